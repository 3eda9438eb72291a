// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
	"testing"

	"tuner/internal/config"
	"tuner/internal/fft"
	"tuner/pkg/utils"
)

const (
	testSampleRate   = 48000.0
	testBufferLength = 48000
)

func newTestHPS(t testing.TB, backend fft.Backend) *HPS {
	t.Helper()
	h, err := NewHPS(testSampleRate, testBufferLength, HPSOptions{
		Harmonics:        config.DefaultHPSHarmonics,
		MinFrequency:     config.DefaultMinFrequency,
		FundamentalFloor: config.DefaultFundamentalFloor,
		Backend:          backend,
	})
	if err != nil {
		t.Fatalf("NewHPS() error = %v", err)
	}
	return h
}

// newTestACF searches 96-440 Hz, which keeps every test tone clear of its
// own subharmonic lags.
func newTestACF(t testing.TB) *Autocorrelation {
	t.Helper()
	a, err := NewAutocorrelation(testSampleRate, testBufferLength, ACFOptions{
		WindowSize: testBufferLength / 2,
		Offset:     config.DefaultLagOffset,
		LagMin:     config.DefaultLagMin,
		LagMax:     500,
	})
	if err != nil {
		t.Fatalf("NewAutocorrelation() error = %v", err)
	}
	return a
}

func TestHPSSine(t *testing.T) {
	tests := []struct {
		freq    float64
		backend fft.Backend
	}{
		{440, fft.Gonum},
		{440, fft.GoDSP},
		{110, fft.Gonum},
		{196, fft.Gonum},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v Hz/%v", tt.freq, tt.backend), func(t *testing.T) {
			h := newTestHPS(t, tt.backend)
			window := utils.ToFloat(utils.GenerateSineWave(testBufferLength, testSampleRate, tt.freq, 0.5))

			// Bins are 48000/65536 = 0.73 Hz wide.
			if got := h.Estimate(window); math.Abs(got-tt.freq) > 1 {
				t.Errorf("Estimate(%v Hz sine) = %v", tt.freq, got)
			}
		})
	}
}

func TestHPSSilence(t *testing.T) {
	h := newTestHPS(t, fft.Gonum)
	if got := h.Estimate(make([]float64, testBufferLength)); got != 0 {
		t.Errorf("Estimate(silence) = %v, want 0", got)
	}
}

func TestHPSIgnoresLowFrequencies(t *testing.T) {
	h := newTestHPS(t, fft.Gonum)

	// A 30 Hz rumble sits below the minimum frequency and cannot be reported.
	window := utils.ToFloat(utils.GenerateSineWave(testBufferLength, testSampleRate, 30, 0.5))
	if got := h.Estimate(window); got > 0 && got < config.DefaultMinFrequency {
		t.Errorf("Estimate(30 Hz) = %v, want nothing below %v Hz", got, config.DefaultMinFrequency)
	}
}

func TestHPSRoundsToHundredths(t *testing.T) {
	h := newTestHPS(t, fft.Gonum)
	window := utils.ToFloat(utils.GenerateSineWave(testBufferLength, testSampleRate, 440, 0.5))

	got := h.Estimate(window)
	if math.Abs(got*100-math.Round(got*100)) > 1e-6 {
		t.Errorf("Estimate() = %v, want a value rounded to 0.01 Hz", got)
	}
}

func TestNewHPSValidation(t *testing.T) {
	tests := []struct {
		desc string
		opts HPSOptions
	}{
		{"no harmonics", HPSOptions{Harmonics: 0}},
		{"negative floor", HPSOptions{Harmonics: 5, FundamentalFloor: -0.1}},
		{"floor of one", HPSOptions{Harmonics: 5, FundamentalFloor: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if _, err := NewHPS(testSampleRate, testBufferLength, tt.opts); err == nil {
				t.Error("NewHPS() expected error")
			}
		})
	}
}

func TestAutocorrelationSine(t *testing.T) {
	tests := []struct {
		desc   string
		freq   float64
		window []int16
	}{
		{"110 Hz sine", 110, utils.GenerateSineWave(testBufferLength, testSampleRate, 110, 0.5)},
		{"196 Hz sine", 196, utils.GenerateSineWave(testBufferLength, testSampleRate, 196, 0.5)},
		{"110 Hz with harmonics", 110, utils.GenerateHarmonicWave(testBufferLength, testSampleRate, 110, 1, 0.5, 0.3)},
	}

	a := newTestACF(t)
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := a.Estimate(utils.ToFloat(tt.window)); math.Abs(got-tt.freq) > 1 {
				t.Errorf("Estimate() = %v, want %v±1", got, tt.freq)
			}
		})
	}
}

func TestAutocorrelationLagResolution(t *testing.T) {
	a := newTestACF(t)
	window := utils.ToFloat(utils.GenerateSineWave(testBufferLength, testSampleRate, 110, 0.5))

	// The period is 436.36 samples; the best integer lag is 436.
	if got, want := a.Estimate(window), 110.09; got != want {
		t.Errorf("Estimate() = %v, want %v", got, want)
	}
}

func TestAutocorrelationDegenerate(t *testing.T) {
	a := newTestACF(t)

	if got := a.Estimate(make([]float64, testBufferLength)); got != 0 {
		t.Errorf("Estimate(silence) = %v, want 0", got)
	}
	if got := a.Estimate(make([]float64, 100)); got != 0 {
		t.Errorf("Estimate(short window) = %v, want 0", got)
	}
}

func TestNewAutocorrelationValidation(t *testing.T) {
	tests := []struct {
		desc string
		rate float64
		opts ACFOptions
	}{
		{"zero rate", 0, ACFOptions{WindowSize: 100, LagMin: 10, LagMax: 20}},
		{"empty lag range", testSampleRate, ACFOptions{WindowSize: 100, LagMin: 20, LagMax: 20}},
		{"zero lag", testSampleRate, ACFOptions{WindowSize: 100, LagMin: 0, LagMax: 20}},
		{"zero window", testSampleRate, ACFOptions{LagMin: 10, LagMax: 20}},
		{"lags overrun buffer", testSampleRate, ACFOptions{WindowSize: 24000, Offset: 1, LagMin: 109, LagMax: 24001}},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if _, err := NewAutocorrelation(tt.rate, testBufferLength, tt.opts); err == nil {
				t.Error("NewAutocorrelation() expected error")
			}
		})
	}

	// t + lagMax - 1 + W == buffer length is the largest lag range that fits.
	if _, err := NewAutocorrelation(testSampleRate, testBufferLength, ACFOptions{
		WindowSize: 24000, Offset: 1, LagMin: 109, LagMax: 24000,
	}); err != nil {
		t.Errorf("NewAutocorrelation() at the boundary: %v", err)
	}
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"autocorrelation", StrategyAutocorrelation, false},
		{"ACF", StrategyAutocorrelation, false},
		{"hps", StrategyHPS, false},
		{"HPS", StrategyHPS, false},
		{"yin", StrategyAutocorrelation, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStrategy(tt.in)
			if got != tt.want || (err != nil) != tt.wantErr {
				t.Errorf("ParseStrategy(%q) = (%v, %v), want (%v, wantErr %v)", tt.in, got, err, tt.want, tt.wantErr)
			}
		})
	}
}

func TestNewEstimator(t *testing.T) {
	cfg := config.NewConfig()

	est, err := NewEstimator(cfg)
	if err != nil {
		t.Fatalf("NewEstimator(default) error = %v", err)
	}
	acf, ok := est.(*Autocorrelation)
	if !ok {
		t.Fatalf("NewEstimator(default) = %T, want *Autocorrelation", est)
	}
	if lo, hi := acf.LagRange(); lo != 109 || hi != 1500 {
		t.Errorf("LagRange() = [%d, %d), want [109, 1500)", lo, hi)
	}

	cfg.Tuner.Strategy = config.StrategyHPS
	cfg.Tuner.FFTBackend = config.FFTBackendGoDSP
	est, err = NewEstimator(cfg)
	if err != nil {
		t.Fatalf("NewEstimator(hps) error = %v", err)
	}
	hps, ok := est.(*HPS)
	if !ok {
		t.Fatalf("NewEstimator(hps) = %T, want *HPS", est)
	}
	if hps.Spectrum().Backend() != fft.GoDSP {
		t.Errorf("HPS backend = %v, want godsp", hps.Spectrum().Backend())
	}

	cfg.Tuner.Strategy = "yin"
	if est, err := NewEstimator(cfg); err == nil || est != nil {
		t.Errorf("NewEstimator(yin) = (%v, %v), want (nil, error)", est, err)
	}
}

func BenchmarkHPSEstimate(b *testing.B) {
	h := newTestHPS(b, fft.Gonum)
	window := utils.ToFloat(utils.GenerateSineWave(testBufferLength, testSampleRate, 440, 0.5))

	b.ReportAllocs()
	b.ResetTimer()

	for iter := 0; iter < b.N; iter++ {
		_ = h.Estimate(window)
	}
}

func BenchmarkAutocorrelationEstimate(b *testing.B) {
	a := newTestACF(b)
	window := utils.ToFloat(utils.GenerateSineWave(testBufferLength, testSampleRate, 110, 0.5))

	b.ReportAllocs()
	b.ResetTimer()

	for iter := 0; iter < b.N; iter++ {
		_ = a.Estimate(window)
	}
}
