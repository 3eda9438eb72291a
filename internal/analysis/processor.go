// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
	"strings"

	"tuner/internal/config"
	"tuner/internal/fft"
)

// Estimator maps the rolling sample window (oldest sample first) to a
// fundamental frequency in Hz, or 0 when there is no pitch to report.
// Estimators own scratch buffers and must only be used from one goroutine.
type Estimator interface {
	Estimate(window []float64) float64
	Name() string
}

// Strategy selects an Estimator implementation.
type Strategy int

const (
	StrategyAutocorrelation Strategy = iota
	StrategyHPS
)

func (s Strategy) String() string {
	switch s {
	case StrategyAutocorrelation:
		return config.StrategyAutocorrelation
	case StrategyHPS:
		return config.StrategyHPS
	default:
		return "unknown"
	}
}

// ParseStrategy converts a strategy name (case-insensitive) to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(name) {
	case config.StrategyAutocorrelation, "acf", "autocorr":
		return StrategyAutocorrelation, nil
	case config.StrategyHPS:
		return StrategyHPS, nil
	default:
		return StrategyAutocorrelation, fmt.Errorf("unknown pitch strategy %q", name)
	}
}

// NewEstimator builds the estimator selected by cfg.Tuner.Strategy.
func NewEstimator(cfg *config.Config) (Estimator, error) {
	strategy, err := ParseStrategy(cfg.Tuner.Strategy)
	if err != nil {
		return nil, err
	}

	switch strategy {
	case StrategyHPS:
		backend, err := fft.ParseBackend(cfg.Tuner.FFTBackend)
		if err != nil {
			return nil, err
		}
		hps, err := NewHPS(cfg.Audio.SampleRate, cfg.Audio.BufferLength, HPSOptions{
			Harmonics:        cfg.Tuner.HPSHarmonics,
			MinFrequency:     cfg.Tuner.MinFrequency,
			FundamentalFloor: cfg.Tuner.FundamentalFloor,
			Backend:          backend,
		})
		if err != nil {
			return nil, err
		}
		return hps, nil
	default:
		lagMin, lagMax := cfg.LagBounds()
		acf, err := NewAutocorrelation(cfg.Audio.SampleRate, cfg.Audio.BufferLength, ACFOptions{
			WindowSize: cfg.WindowSize(),
			Offset:     cfg.Tuner.LagOffset,
			LagMin:     lagMin,
			LagMax:     lagMax,
		})
		if err != nil {
			return nil, err
		}
		return acf, nil
	}
}

// roundHz rounds a frequency to 2 decimal places.
func roundHz(f float64) float64 {
	return math.Round(f*100) / 100
}
