// SPDX-License-Identifier: MIT
package note

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

func TestFrequencyToNumber(t *testing.T) {
	tests := []struct {
		freq, a4 float64
		want     float64
	}{
		{440, 440, 69},
		{880, 440, 81},
		{220, 440, 57},
		{261.6255653, 440, 60},
		{432, 432, 69},
		{466.1637615, 440, 70},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%g@%g", tt.freq, tt.a4), func(t *testing.T) {
			got, err := FrequencyToNumber(tt.freq, tt.a4)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("FrequencyToNumber(%g, %g) = %.9f, want %g", tt.freq, tt.a4, got, tt.want)
			}
		})
	}
}

func TestFrequencyToNumberDegenerate(t *testing.T) {
	tests := []struct {
		name     string
		freq, a4 float64
	}{
		{"zero", 0, 440},
		{"negative", -440, 440},
		{"NaN", math.NaN(), 440},
		{"infinite", math.Inf(1), 440},
		{"zero reference", 440, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FrequencyToNumber(tt.freq, tt.a4)
			if !errors.Is(err, ErrNoFrequency) {
				t.Errorf("error = %v, want ErrNoFrequency", err)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	for _, a4 := range []float64{415, 432, 440, 442.5} {
		for _, freq := range []float64{27.5, 41.2, 82.41, 110, 196, 329.63, 440, 1000, 4186.01, 15000} {
			n, err := FrequencyToNumber(freq, a4)
			if err != nil {
				t.Fatalf("FrequencyToNumber(%g, %g): %v", freq, a4, err)
			}
			back := NumberToFrequency(n, a4)
			if math.Abs(back-freq) > 1e-9*freq {
				t.Errorf("round trip of %g Hz at A4=%g gave %.12g", freq, a4, back)
			}
		}
	}
}

func TestNumberToName(t *testing.T) {
	tests := []struct {
		n    float64
		want string
	}{
		{69, "A"},
		{60, "C"},
		{61, "C#"},
		{71, "B"},
		{72, "C"},
		{68.6, "A"},
		{69.4, "A"},
		{0, "C"},
		{-1, "B"},
		{-3, "A"},
		{-12, "C"},
	}

	for _, tt := range tests {
		if got := NumberToName(tt.n); got != tt.want {
			t.Errorf("NumberToName(%g) = %q, want %q", tt.n, got, tt.want)
		}
	}

	if NumberToName(-3) != NumberToName(9) {
		t.Error("negative note numbers are not normalised into [0, 12)")
	}
}

func TestNameWithOctave(t *testing.T) {
	tests := []struct {
		n    float64
		want string
	}{
		{69, "A4"},
		{60, "C4"},
		{59, "B3"},
		{40, "E2"},
		{0, "C-1"},
		{-1, "B-2"},
		{127, "G9"},
	}

	for _, tt := range tests {
		if got := NameWithOctave(tt.n); got != tt.want {
			t.Errorf("NameWithOctave(%g) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestFrequencyToName(t *testing.T) {
	name, err := FrequencyToName(82.41, DefaultA4)
	if err != nil || name != "E" {
		t.Errorf("FrequencyToName(82.41) = (%q, %v), want E", name, err)
	}

	if _, err := FrequencyToName(0, DefaultA4); !errors.Is(err, ErrNoFrequency) {
		t.Errorf("FrequencyToName(0) error = %v, want ErrNoFrequency", err)
	}
}
