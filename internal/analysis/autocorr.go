// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// ACFOptions configures the autocorrelation estimator.
type ACFOptions struct {
	WindowSize int // W, samples correlated per lag
	Offset     int // t, first sample of the reference window
	LagMin     int // inclusive
	LagMax     int // exclusive
}

// Autocorrelation estimates pitch as sampleRate / lag for the lag that
// maximises sum(x[t+i] * x[t+lag+i]) over i in [0, W).
type Autocorrelation struct {
	sampleRate float64
	opts       ACFOptions
	needed     int // samples the window must hold
}

var _ Estimator = (*Autocorrelation)(nil)

// NewAutocorrelation validates that every lag in range fits inside a window
// of bufferLength samples.
func NewAutocorrelation(sampleRate float64, bufferLength int, opts ACFOptions) (*Autocorrelation, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("autocorrelation: sample rate must be positive, got %g", sampleRate)
	}
	if opts.WindowSize <= 0 || opts.Offset < 0 {
		return nil, fmt.Errorf("autocorrelation: invalid window %d at offset %d", opts.WindowSize, opts.Offset)
	}
	if opts.LagMin < 1 || opts.LagMax <= opts.LagMin {
		return nil, fmt.Errorf("autocorrelation: empty lag range [%d, %d)", opts.LagMin, opts.LagMax)
	}

	needed := opts.Offset + opts.LagMax - 1 + opts.WindowSize
	if needed > bufferLength {
		return nil, fmt.Errorf("autocorrelation: lag %d with window %d needs %d samples, buffer has %d",
			opts.LagMax-1, opts.WindowSize, needed, bufferLength)
	}

	return &Autocorrelation{sampleRate: sampleRate, opts: opts, needed: needed}, nil
}

func (a *Autocorrelation) Name() string { return "autocorrelation" }

// Estimate returns sampleRate/bestLag rounded to 0.01 Hz, or 0 when the
// window is too short or no lag correlates positively (silence).
func (a *Autocorrelation) Estimate(window []float64) float64 {
	if len(window) < a.needed {
		return 0
	}

	t, w := a.opts.Offset, a.opts.WindowSize
	ref := window[t : t+w]

	bestLag := 0
	var best float64
	for lag := a.opts.LagMin; lag < a.opts.LagMax; lag++ {
		if v := floats.Dot(ref, window[t+lag:t+lag+w]); v > best {
			best, bestLag = v, lag
		}
	}

	if bestLag == 0 {
		return 0
	}
	return roundHz(a.sampleRate / float64(bestLag))
}

// LagRange returns the searched lags as [min, max).
func (a *Autocorrelation) LagRange() (int, int) {
	return a.opts.LagMin, a.opts.LagMax
}
