// SPDX-License-Identifier: MIT

// Package note converts between frequencies, fractional note numbers and
// note names in twelve-tone equal temperament. Note numbers follow the MIDI
// convention (A4 = 69); every conversion takes the reference pitch of A4 so
// it can be retuned at runtime.
package note

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

const (
	// A4Number is the note number of the reference pitch.
	A4Number = 69

	// DefaultA4 is concert pitch in Hz.
	DefaultA4 = 440.0

	SemitonesPerOctave = 12
)

// Names is the chromatic name table, starting at C.
var Names = [SemitonesPerOctave]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// ErrNoFrequency is returned when a frequency cannot be placed on the note
// scale: zero, negative or not finite. Callers treat it as "no estimate".
var ErrNoFrequency = errors.New("note: no usable frequency")

// FrequencyToNumber returns 12*log2(freq/a4) + 69.
func FrequencyToNumber(freq, a4 float64) (float64, error) {
	if !(freq > 0) || math.IsInf(freq, 0) {
		return 0, fmt.Errorf("%w: frequency %g Hz", ErrNoFrequency, freq)
	}
	if !(a4 > 0) || math.IsInf(a4, 0) {
		return 0, fmt.Errorf("%w: reference pitch %g Hz", ErrNoFrequency, a4)
	}
	return SemitonesPerOctave*math.Log2(freq/a4) + A4Number, nil
}

// NumberToFrequency returns a4 * 2^((n-69)/12).
func NumberToFrequency(n, a4 float64) float64 {
	return a4 * math.Exp2((n-A4Number)/SemitonesPerOctave)
}

// pitchClass returns round(n) mod 12 in [0, 12).
func pitchClass(n float64) int {
	pc := int(math.Round(n)) % SemitonesPerOctave
	if pc < 0 {
		pc += SemitonesPerOctave
	}
	return pc
}

// NumberToName returns the name of the nearest note, without octave.
func NumberToName(n float64) string {
	return Names[pitchClass(n)]
}

// NumberToOctave returns the scientific pitch octave of the nearest note
// (60 is C4, 69 is A4).
func NumberToOctave(n float64) int {
	r := int(math.Round(n))
	octave := r / SemitonesPerOctave
	if r%SemitonesPerOctave < 0 {
		octave--
	}
	return octave - 1
}

// NameWithOctave returns names such as "A4" or "C#-1".
func NameWithOctave(n float64) string {
	return NumberToName(n) + strconv.Itoa(NumberToOctave(n))
}

// FrequencyToName returns the name of the note nearest to freq.
func FrequencyToName(freq, a4 float64) (string, error) {
	n, err := FrequencyToNumber(freq, a4)
	if err != nil {
		return "", err
	}
	return NumberToName(n), nil
}
