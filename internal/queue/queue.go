// SPDX-License-Identifier: MIT

// Package queue provides the hand-off between the acquisition goroutine and
// the display loop: a bounded FIFO in which neither side ever waits. When the
// consumer falls behind, the oldest entry is discarded to make room.
package queue

import "sync"

// Queue is a bounded, drop-oldest FIFO safe for one producer and one
// consumer (and correct, if slower, for more).
type Queue[T any] struct {
	mu      sync.Mutex
	items   []T
	head    int // index of the oldest item
	count   int
	dropped uint64
}

// New returns a queue holding at most capacity items. A capacity below one
// is raised to one.
func New[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{items: make([]T, capacity)}
}

// Put appends v without blocking. If the queue is full the oldest item is
// evicted and Put reports true.
func (q *Queue[T]) Put(v T) (evicted bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	capacity := len(q.items)
	if q.count == capacity {
		var zero T
		q.items[q.head] = zero
		q.head = (q.head + 1) % capacity
		q.count--
		q.dropped++
		evicted = true
	}

	q.items[(q.head+q.count)%capacity] = v
	q.count++

	return evicted
}

// Get removes and returns the oldest item. It never blocks; ok is false when
// the queue is empty.
func (q *Queue[T]) Get() (v T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return v, false
	}

	var zero T
	v = q.items[q.head]
	q.items[q.head] = zero
	q.head = (q.head + 1) % len(q.items)
	q.count--

	return v, true
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the maximum number of queued items.
func (q *Queue[T]) Cap() int {
	return len(q.items)
}

// Dropped returns how many items have been evicted since creation.
func (q *Queue[T]) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
