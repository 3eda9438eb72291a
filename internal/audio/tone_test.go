// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestToneSourceWaveform(t *testing.T) {
	const sampleRate = 48000.0

	src, err := NewToneSource(ToneOptions{Frequency: 1000, Amplitude: 0.5, SampleRate: sampleRate})
	if err != nil {
		t.Fatalf("NewToneSource() error = %v", err)
	}

	// 1 kHz at 48 kHz repeats every 48 samples.
	buf := make([]int16, 96)
	if err := src.ReadChunk(buf); err != nil {
		t.Fatalf("ReadChunk() error = %v", err)
	}

	peak := int16(math.Round(0.5 * math.MaxInt16))
	checks := []struct {
		index int
		want  int16
	}{
		{0, 0},
		{12, peak},
		{24, 0},
		{36, -peak},
		{48, 0},
		{60, peak},
	}
	for _, c := range checks {
		if d := int(buf[c.index]) - int(c.want); d < -1 || d > 1 {
			t.Errorf("sample[%d] = %d, want %d±1", c.index, buf[c.index], c.want)
		}
	}
}

func TestToneSourcePhaseContinuity(t *testing.T) {
	opts := ToneOptions{Frequency: 440, Amplitude: 0.8, SampleRate: 48000}

	whole, _ := NewToneSource(opts)
	want := make([]int16, 1000)
	_ = whole.ReadChunk(want)

	split, _ := NewToneSource(opts)
	got := make([]int16, 1000)
	_ = split.ReadChunk(got[:300])
	_ = split.ReadChunk(got[300:])

	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d differs across chunk boundary: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestToneSourceOptions(t *testing.T) {
	tests := []struct {
		desc    string
		opts    ToneOptions
		wantErr bool
	}{
		{"valid", ToneOptions{Frequency: 440, Amplitude: 0.5, SampleRate: 48000}, false},
		{"zero rate", ToneOptions{Frequency: 440, Amplitude: 0.5}, true},
		{"zero frequency", ToneOptions{Amplitude: 0.5, SampleRate: 48000}, true},
		{"above nyquist", ToneOptions{Frequency: 24000, Amplitude: 0.5, SampleRate: 48000}, true},
		{"amplitude too high", ToneOptions{Frequency: 440, Amplitude: 1.5, SampleRate: 48000}, true},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			_, err := NewToneSource(tt.opts)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewToneSource() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestToneSourceSetFrequency(t *testing.T) {
	src, _ := NewToneSource(ToneOptions{Frequency: 440, Amplitude: 0.5, SampleRate: 48000})

	src.SetFrequency(220)
	if got := src.Frequency(); got != 220 {
		t.Errorf("Frequency() = %v, want 220", got)
	}

	src.SetFrequency(-1)
	src.SetFrequency(30000)
	if got := src.Frequency(); got != 220 {
		t.Errorf("Frequency() after invalid updates = %v, want 220", got)
	}
}

func TestToneSourceClose(t *testing.T) {
	src, _ := NewToneSource(ToneOptions{Frequency: 440, Amplitude: 0.5, SampleRate: 48000})

	if err := src.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := src.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := src.ReadChunk(make([]int16, 10)); !errors.Is(err, ErrClosed) {
		t.Errorf("ReadChunk() after Close = %v, want ErrClosed", err)
	}
}

func TestChunkClock(t *testing.T) {
	now := time.Unix(1000, 0)
	var slept []time.Duration

	c := newChunkClock(1000)
	c.now = func() time.Time { return now }
	c.sleep = func(d time.Duration) {
		slept = append(slept, d)
		now = now.Add(d)
	}

	c.wait(100)
	c.wait(100)

	// The consumer stalls for a second; the clock resyncs instead of
	// returning a burst of chunks without sleeping.
	now = now.Add(time.Second)
	c.wait(100)

	want := []time.Duration{100 * time.Millisecond, 100 * time.Millisecond, 100 * time.Millisecond}
	if len(slept) != len(want) {
		t.Fatalf("slept %v, want %v", slept, want)
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Errorf("sleep[%d] = %v, want %v", i, slept[i], want[i])
		}
	}
}

func TestToneSourceNoAllocs(t *testing.T) {
	src, _ := NewToneSource(ToneOptions{Frequency: 440, Amplitude: 0.5, SampleRate: 48000})
	buf := make([]int16, 3000)

	allocs := testing.AllocsPerRun(100, func() {
		_ = src.ReadChunk(buf)
	})
	if allocs > 0 {
		t.Errorf("ReadChunk allocated: got %.1f allocs, want 0", allocs)
	}
}

func BenchmarkToneSource(b *testing.B) {
	src, _ := NewToneSource(ToneOptions{Frequency: 440, Amplitude: 0.5, SampleRate: 48000})
	buf := make([]int16, 3000)

	b.ReportAllocs()
	b.ResetTimer()

	for iter := 0; iter < b.N; iter++ {
		_ = src.ReadChunk(buf)
	}
}
