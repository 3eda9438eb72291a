// SPDX-License-Identifier: MIT

// Package fft turns a block of real samples into a magnitude half-spectrum.
// The input is Hann windowed and zero padded to the next power of two; all
// buffers are allocated up front so the default backend does not allocate
// per call.
package fft

import (
	"fmt"
	"math/cmplx"
	"strings"

	"tuner/pkg/bitint"

	dspfft "github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// Backend selects the FFT implementation.
type Backend int

const (
	Gonum Backend = iota
	GoDSP
)

func (b Backend) String() string {
	switch b {
	case Gonum:
		return "gonum"
	case GoDSP:
		return "godsp"
	default:
		return "unknown"
	}
}

// ParseBackend converts a backend name (case-insensitive) to a Backend.
func ParseBackend(name string) (Backend, error) {
	switch strings.ToLower(name) {
	case "gonum", "":
		return Gonum, nil
	case "godsp", "go-dsp":
		return GoDSP, nil
	default:
		return Gonum, fmt.Errorf("unknown FFT backend %q", name)
	}
}

// Workspace holds pre-allocated buffers for one transform.
type Workspace struct {
	input     []float64    // windowed samples followed by zero padding
	fftOutput []complex128 // gonum output, fftSize/2+1 coefficients
	magnitude []float64    // first half of the spectrum
	window    []float64    // Hann coefficients for the unpadded length
}

// Processor computes magnitude spectra for a fixed input length.
type Processor struct {
	size       int
	fftSize    int
	sampleRate float64
	backend    Backend
	fftObj     *fourier.FFT
	workspace  Workspace
}

// NewProcessor builds a processor for blocks of size samples. The transform
// length is size rounded up to a power of two.
func NewProcessor(size int, sampleRate float64, backend Backend) (*Processor, error) {
	if size < 2 {
		return nil, fmt.Errorf("fft: input size must be at least 2, got %d", size)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("fft: sample rate must be positive, got %g", sampleRate)
	}

	fftSize := bitint.NextPowerOfTwo(size)

	coeffs := make([]float64, size)
	for i := range coeffs {
		coeffs[i] = 1
	}
	window.Hann(coeffs)

	p := &Processor{
		size:       size,
		fftSize:    fftSize,
		sampleRate: sampleRate,
		backend:    backend,
		workspace: Workspace{
			input:     make([]float64, fftSize),
			fftOutput: make([]complex128, fftSize/2+1),
			magnitude: make([]float64, fftSize/2),
			window:    coeffs,
		},
	}
	if backend == Gonum {
		p.fftObj = fourier.NewFFT(fftSize)
	}

	return p, nil
}

// Magnitudes windows samples, zero pads them and returns |X[k]| for
// k in [0, FFTSize/2). Samples beyond Size are ignored and missing samples
// are treated as zero. The returned slice is owned by the processor and is
// overwritten by the next call.
func (p *Processor) Magnitudes(samples []float64) []float64 {
	ws := &p.workspace

	n := min(len(samples), p.size)
	for i := 0; i < n; i++ {
		ws.input[i] = samples[i] * ws.window[i]
	}
	clear(ws.input[n:])

	switch p.backend {
	case GoDSP:
		out := dspfft.FFTReal(ws.input)
		for i := range ws.magnitude {
			ws.magnitude[i] = cmplx.Abs(out[i])
		}
	default:
		p.fftObj.Coefficients(ws.fftOutput, ws.input)
		for i := range ws.magnitude {
			ws.magnitude[i] = cmplx.Abs(ws.fftOutput[i])
		}
	}

	return ws.magnitude
}

// BinFrequency returns the centre frequency in Hz of bin i of the padded
// transform, or 0 when i is outside the half-spectrum.
func (p *Processor) BinFrequency(i int) float64 {
	if i < 0 || i >= len(p.workspace.magnitude) {
		return 0
	}
	return float64(i) * p.sampleRate / float64(p.fftSize)
}

// Size is the unpadded input length.
func (p *Processor) Size() int { return p.size }

// FFTSize is the padded transform length.
func (p *Processor) FFTSize() int { return p.fftSize }

// Bins is the number of magnitudes returned by Magnitudes.
func (p *Processor) Bins() int { return len(p.workspace.magnitude) }

func (p *Processor) Backend() Backend { return p.backend }
