// SPDX-License-Identifier: MIT

// Package utils provides signal fixtures and fakes shared by the tuner's
// tests.
package utils

import (
	"math"
	"sync"
)

// MockTransport records every value sent to it. Send returns Err, which
// tests set to simulate a failing transport.
type MockTransport struct {
	Err error

	mu     sync.Mutex
	sent   []any
	closed bool
}

func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, data)
	return m.Err
}

func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Sent returns a copy of everything sent so far.
func (m *MockTransport) Sent() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]any(nil), m.sent...)
}

// Last returns the most recent value, or nil.
func (m *MockTransport) Last() any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return nil
	}
	return m.sent[len(m.sent)-1]
}

func (m *MockTransport) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// GenerateSineWave returns size 16-bit samples of a sine at frequency Hz.
// amplitude is a fraction of full scale.
func GenerateSineWave(size int, sampleRate, frequency, amplitude float64) []int16 {
	buffer := make([]int16, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = int16(math.Round(math.Sin(2*math.Pi*frequency*t) * amplitude * math.MaxInt16))
	}
	return buffer
}

// GenerateHarmonicWave sums harmonics of fundamental, weights[k] scaling the
// (k+1)th harmonic, normalised so the peak stays below 90% of full scale.
func GenerateHarmonicWave(size int, sampleRate, fundamental float64, weights ...float64) []int16 {
	var total float64
	for _, w := range weights {
		total += math.Abs(w)
	}
	if total == 0 {
		return make([]int16, size)
	}

	buffer := make([]int16, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		var signal float64
		for k, w := range weights {
			signal += w * math.Sin(2*math.Pi*fundamental*float64(k+1)*t)
		}
		buffer[i] = int16(signal / total * math.MaxInt16 * 0.9)
	}
	return buffer
}

// ToFloat widens 16-bit samples to float64 without rescaling.
func ToFloat(samples []int16) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = float64(s)
	}
	return out
}

// FindPeakBin returns the index of the largest magnitude in
// magnitudes[startBin:endBin+1], clamped to the slice.
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}
	if startBin < 0 {
		startBin = 0
	}
	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]
	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}
