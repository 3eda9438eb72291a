// SPDX-License-Identifier: MIT
package tuning

// NeedleBuffer is a fixed-length circular buffer of needle angles whose
// average drives the displayed needle. It starts filled with zeros, so the
// needle eases in from centre.
type NeedleBuffer struct {
	values []float64
	next   int
	sum    float64
}

// NewNeedleBuffer returns a buffer averaging the last length angles.
func NewNeedleBuffer(length int) *NeedleBuffer {
	if length < 1 {
		length = 1
	}
	return &NeedleBuffer{values: make([]float64, length)}
}

// Push stores angle, evicting the oldest value.
func (b *NeedleBuffer) Push(angle float64) {
	b.sum += angle - b.values[b.next]
	b.values[b.next] = angle
	b.next = (b.next + 1) % len(b.values)

	// Resum once per lap so the running sum cannot drift.
	if b.next == 0 {
		b.sum = 0
		for _, v := range b.values {
			b.sum += v
		}
	}
}

// Average returns the arithmetic mean of the buffer.
func (b *NeedleBuffer) Average() float64 {
	return b.sum / float64(len(b.values))
}

// Len returns the buffer length.
func (b *NeedleBuffer) Len() int {
	return len(b.values)
}

// Reset zeroes every slot.
func (b *NeedleBuffer) Reset() {
	clear(b.values)
	b.next = 0
	b.sum = 0
}
