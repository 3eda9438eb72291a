// SPDX-License-Identifier: MIT
package analysis

import "fmt"

// RingBuffer holds the most recent Len() samples in chunk-sized slots. A
// push overwrites the oldest chunk in place, so it costs O(chunk) regardless
// of the buffer length. Before the buffer has filled, the missing history
// reads as zeros.
//
// RingBuffer is owned by the acquisition goroutine and is not safe for
// concurrent use.
type RingBuffer struct {
	data  []float64
	head  int // index of the oldest sample, always a multiple of chunk
	chunk int
}

// NewRingBuffer returns a zero-filled buffer of length samples that accepts
// chunks of chunk samples. length must be a positive multiple of chunk.
func NewRingBuffer(length, chunk int) (*RingBuffer, error) {
	if chunk <= 0 || length < chunk || length%chunk != 0 {
		return nil, fmt.Errorf("ring buffer length %d must be a positive multiple of chunk size %d", length, chunk)
	}
	return &RingBuffer{
		data:  make([]float64, length),
		chunk: chunk,
	}, nil
}

// Push appends one chunk, discarding the oldest chunk.
func (r *RingBuffer) Push(chunk []int16) error {
	if len(chunk) != r.chunk {
		return fmt.Errorf("ring buffer expects %d samples per chunk, got %d", r.chunk, len(chunk))
	}

	dst := r.data[r.head : r.head+r.chunk]
	for i, s := range chunk {
		dst[i] = float64(s)
	}
	r.head = (r.head + r.chunk) % len(r.data)

	return nil
}

// Snapshot copies the window, oldest sample first, into dst and returns it.
// dst is grown if it is too short.
func (r *RingBuffer) Snapshot(dst []float64) []float64 {
	if cap(dst) < len(r.data) {
		dst = make([]float64, len(r.data))
	}
	dst = dst[:len(r.data)]

	n := copy(dst, r.data[r.head:])
	copy(dst[n:], r.data[:r.head])

	return dst
}

// Len returns the window length in samples.
func (r *RingBuffer) Len() int { return len(r.data) }

// ChunkSize returns the number of samples accepted per Push.
func (r *RingBuffer) ChunkSize() int { return r.chunk }

// Reset zero-fills the buffer.
func (r *RingBuffer) Reset() {
	clear(r.data)
	r.head = 0
}
