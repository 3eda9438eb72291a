// SPDX-License-Identifier: MIT
package analysis

import "math"

// NoiseGate decides whether a chunk carries enough signal to be worth
// estimating. The threshold is in the range 0.0-1.0 of full scale: 0 passes
// anything but digital silence, 1 blocks everything.
type NoiseGate struct {
	threshold int32
}

// NewNoiseGate returns a gate at threshold, clamped to [0, 1].
func NewNoiseGate(threshold float64) *NoiseGate {
	g := &NoiseGate{}
	g.SetThreshold(threshold)
	return g
}

// SetThreshold adjusts the gate threshold, clamped to [0, 1].
func (g *NoiseGate) SetThreshold(threshold float64) {
	threshold = max(0, min(1, threshold))
	g.threshold = int32(threshold * math.MaxInt16)
}

// Threshold returns the threshold as a fraction of full scale.
func (g *NoiseGate) Threshold() float64 {
	return float64(g.threshold) / math.MaxInt16
}

// Open reports whether the peak amplitude of chunk exceeds the threshold.
func (g *NoiseGate) Open(chunk []int16) bool {
	return Peak(chunk) > g.threshold
}

// Peak returns the largest absolute sample value in chunk. Samples are
// widened to int32 so that |-32768| does not overflow.
func Peak(chunk []int16) int32 {
	var peak int32
	for _, s := range chunk {
		sample := int32(s)

		// Absolute value and running max without branching.
		mask := sample >> 31
		amplitude := (sample ^ mask) - mask
		diff := amplitude - peak
		peak += diff & ^(diff >> 31)
	}
	return peak
}

// Level returns the RMS of chunk as a fraction of full scale.
func Level(chunk []int16) float64 {
	if len(chunk) == 0 {
		return 0
	}

	var sumSquare float64
	for _, s := range chunk {
		v := float64(s) / math.MaxInt16
		sumSquare += v * v
	}

	return math.Sqrt(sumSquare / float64(len(chunk)))
}
