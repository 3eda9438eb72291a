// SPDX-License-Identifier: MIT
package tuning

import (
	"math"
	"testing"
)

func TestNeedleBufferAverageOfIdenticalValues(t *testing.T) {
	for _, x := range []float64{45, -12.5, 0.1, 89.999} {
		b := NewNeedleBuffer(30)
		for iter := 0; iter < 30; iter++ {
			b.Push(x)
		}
		if got := b.Average(); math.Abs(got-x) > 1e-12 {
			t.Errorf("Average() after 30 pushes of %g = %g", x, got)
		}
	}
}

func TestNeedleBufferEvictsOldest(t *testing.T) {
	b := NewNeedleBuffer(3)
	b.Push(3)
	b.Push(6)
	b.Push(9)
	if b.Average() != 6 {
		t.Fatalf("Average() = %g, want 6", b.Average())
	}

	// 3 is evicted: (6+9+12)/3.
	b.Push(12)
	if b.Average() != 9 {
		t.Errorf("Average() = %g after eviction, want 9", b.Average())
	}
}

func TestNeedleBufferStartsAtZero(t *testing.T) {
	b := NewNeedleBuffer(4)
	if b.Average() != 0 {
		t.Fatalf("Average() of an empty buffer = %g, want 0", b.Average())
	}
	b.Push(8)
	if b.Average() != 2 {
		t.Errorf("Average() = %g, want 2 (zeros count)", b.Average())
	}
	if b.Len() != 4 {
		t.Errorf("Len() = %d, want 4", b.Len())
	}
}

func TestNeedleBufferMinimumLength(t *testing.T) {
	b := NewNeedleBuffer(0)
	b.Push(7)
	b.Push(5)
	if b.Average() != 5 {
		t.Errorf("Average() = %g, want the last value", b.Average())
	}
}
