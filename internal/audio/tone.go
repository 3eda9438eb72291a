// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"math"
	"sync/atomic"
)

// ToneOptions configures a synthetic sine source.
type ToneOptions struct {
	Frequency  float64
	Amplitude  float64 // fraction of full scale, 0..1
	SampleRate float64
	Realtime   bool
}

// ToneSource generates a continuous sine wave. It is used for demos,
// calibration and tests that need a source without hardware.
type ToneSource struct {
	amplitude float64
	phase     float64

	frequency atomic.Uint64 // math.Float64bits
	rate      float64
	clock     *chunkClock
	closed    atomic.Bool
}

var _ Source = (*ToneSource)(nil)

// NewToneSource validates opts and returns a source positioned at phase 0.
func NewToneSource(opts ToneOptions) (*ToneSource, error) {
	if opts.SampleRate <= 0 {
		return nil, openError("tone", fmt.Errorf("invalid sample rate %.0f", opts.SampleRate))
	}
	if opts.Frequency <= 0 || opts.Frequency >= opts.SampleRate/2 {
		return nil, openError("tone", fmt.Errorf("frequency %.2f Hz outside (0, %.0f)", opts.Frequency, opts.SampleRate/2))
	}
	if opts.Amplitude < 0 || opts.Amplitude > 1 {
		return nil, openError("tone", fmt.Errorf("amplitude %.2f outside [0, 1]", opts.Amplitude))
	}

	s := &ToneSource{amplitude: opts.Amplitude, rate: opts.SampleRate}
	s.SetFrequency(opts.Frequency)
	if opts.Realtime {
		s.clock = newChunkClock(opts.SampleRate)
	}
	return s, nil
}

// SetFrequency retunes the generator without a phase discontinuity. Values
// outside the valid range are ignored.
func (s *ToneSource) SetFrequency(freq float64) {
	if freq <= 0 || freq >= s.rate/2 {
		return
	}
	s.frequency.Store(math.Float64bits(freq))
}

// Frequency returns the current generator frequency.
func (s *ToneSource) Frequency() float64 {
	return math.Float64frombits(s.frequency.Load())
}

// ReadChunk fills dst with the next len(dst) samples.
func (s *ToneSource) ReadChunk(dst []int16) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if s.clock != nil {
		s.clock.wait(len(dst))
	}

	step := 2 * math.Pi * s.Frequency() / s.rate
	scale := s.amplitude * math.MaxInt16
	for i := range dst {
		dst[i] = int16(math.Round(scale * math.Sin(s.phase)))
		s.phase += step
		if s.phase >= 2*math.Pi {
			s.phase -= 2 * math.Pi
		}
	}
	return nil
}

func (s *ToneSource) Close() error {
	s.closed.Store(true)
	return nil
}
