// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"

	"tuner/internal/fft"

	"gonum.org/v1/gonum/floats"
)

// HPSOptions configures the harmonic product spectrum estimator.
type HPSOptions struct {
	Harmonics    int     // spectra multiplied together, including the original
	MinFrequency float64 // bins below this are never reported

	// FundamentalFloor is the fraction of the strongest magnitude a bin
	// needs on its own to be reported. On a clean tone the product of a
	// subharmonic's near-zero magnitudes can still outscore the true
	// fundamental; the floor rules those bins out. Zero disables it.
	FundamentalFloor float64

	Backend fft.Backend
}

// HPS estimates pitch with a harmonic product spectrum: the magnitude
// spectrum is multiplied by copies of itself decimated by 2..Harmonics, so
// the bin whose harmonics are all strong stands out.
type HPS struct {
	spectrum *fft.Processor
	opts     HPSOptions
	minBin   int
	product  []float64
}

var _ Estimator = (*HPS)(nil)

// NewHPS returns an estimator for windows of bufferLength samples.
func NewHPS(sampleRate float64, bufferLength int, opts HPSOptions) (*HPS, error) {
	if opts.Harmonics < 1 {
		return nil, fmt.Errorf("hps: harmonics must be at least 1, got %d", opts.Harmonics)
	}
	if opts.FundamentalFloor < 0 || opts.FundamentalFloor >= 1 {
		return nil, fmt.Errorf("hps: fundamental floor %g outside [0, 1)", opts.FundamentalFloor)
	}

	spectrum, err := fft.NewProcessor(bufferLength, sampleRate, opts.Backend)
	if err != nil {
		return nil, fmt.Errorf("hps: %w", err)
	}

	// First bin at or above the minimum frequency.
	minBin := 0
	for minBin < spectrum.Bins() && spectrum.BinFrequency(minBin) < opts.MinFrequency {
		minBin++
	}

	return &HPS{
		spectrum: spectrum,
		opts:     opts,
		minBin:   minBin,
		product:  make([]float64, spectrum.Bins()),
	}, nil
}

func (h *HPS) Name() string { return "hps" }

// Estimate returns the frequency of the strongest harmonic product bin,
// rounded to 0.01 Hz, or 0 for a silent window.
func (h *HPS) Estimate(window []float64) float64 {
	mags := h.spectrum.Magnitudes(window)
	product := h.product
	copy(product, mags)

	n := len(mags)
	for i := 2; i <= h.opts.Harmonics; i++ {
		m := (n + i - 1) / i
		for k := 0; k < m; k++ {
			product[k] *= mags[k*i]
		}
	}

	clear(product[:min(h.minBin, n)])

	peak := floats.Max(mags)
	if peak == 0 {
		return 0
	}
	if h.opts.FundamentalFloor > 0 {
		floor := h.opts.FundamentalFloor * peak
		for k := h.minBin; k < n; k++ {
			if mags[k] < floor {
				product[k] = 0
			}
		}
	}

	best := floats.MaxIdx(product)
	if product[best] <= 0 {
		return 0
	}

	return roundHz(h.spectrum.BinFrequency(best))
}

// Spectrum exposes the underlying FFT processor.
func (h *HPS) Spectrum() *fft.Processor { return h.spectrum }
