// SPDX-License-Identifier: MIT
package queue

import (
	"sync"
	"testing"
)

func TestPutThenGet(t *testing.T) {
	q := New[float64](4)

	q.Put(440.12)
	got, ok := q.Get()
	if !ok || got != 440.12 {
		t.Errorf("Get() = (%g, %v), want (440.12, true)", got, ok)
	}
}

func TestGetEmpty(t *testing.T) {
	q := New[float64](4)

	got, ok := q.Get()
	if ok {
		t.Errorf("Get() on empty queue = (%g, true), want no value", got)
	}

	q.Put(1)
	q.Get()
	if _, ok := q.Get(); ok {
		t.Error("Get() after draining returned a value")
	}
}

func TestFIFOOrder(t *testing.T) {
	q := New[int](8)
	for i := 0; i < 5; i++ {
		q.Put(i)
	}
	for want := 0; want < 5; want++ {
		got, ok := q.Get()
		if !ok || got != want {
			t.Fatalf("Get() = (%d, %v), want (%d, true)", got, ok, want)
		}
	}
}

func TestDropOldestWhenFull(t *testing.T) {
	q := New[int](3)

	for i := 0; i < 3; i++ {
		if q.Put(i) {
			t.Fatalf("Put(%d) evicted before the queue was full", i)
		}
	}
	if !q.Put(3) || !q.Put(4) {
		t.Fatal("Put on a full queue did not report an eviction")
	}

	if q.Len() != 3 {
		t.Errorf("Len() = %d, want 3", q.Len())
	}
	if q.Dropped() != 2 {
		t.Errorf("Dropped() = %d, want 2", q.Dropped())
	}

	for _, want := range []int{2, 3, 4} {
		got, _ := q.Get()
		if got != want {
			t.Errorf("Get() = %d, want %d", got, want)
		}
	}
}

func TestWrapAround(t *testing.T) {
	q := New[int](2)
	next := 0
	for round := 0; round < 10; round++ {
		q.Put(round * 2)
		q.Put(round*2 + 1)
		for iter := 0; iter < 2; iter++ {
			got, ok := q.Get()
			if !ok || got != next {
				t.Fatalf("round %d: Get() = (%d, %v), want %d", round, got, ok, next)
			}
			next++
		}
	}
}

func TestMinimumCapacity(t *testing.T) {
	q := New[string](0)
	if q.Cap() != 1 {
		t.Fatalf("Cap() = %d, want 1", q.Cap())
	}
	q.Put("a")
	q.Put("b")
	if got, _ := q.Get(); got != "b" {
		t.Errorf("Get() = %q, want the newest item", got)
	}
}

func TestSingleProducerSingleConsumer(t *testing.T) {
	const total = 10000
	q := New[int](16)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			q.Put(i)
		}
	}()

	// Values must arrive strictly increasing; gaps are evictions.
	last := -1
	received := 0
	for last < total-1 {
		v, ok := q.Get()
		if !ok {
			continue
		}
		if v <= last {
			t.Fatalf("received %d after %d", v, last)
		}
		last = v
		received++
	}
	wg.Wait()

	if uint64(received)+q.Dropped() != total {
		t.Errorf("received %d + dropped %d != %d", received, q.Dropped(), total)
	}
}

func TestPutGetZeroAllocs(t *testing.T) {
	q := New[float64](64)
	allocs := testing.AllocsPerRun(100, func() {
		q.Put(440)
		q.Get()
	})
	if allocs > 0 {
		t.Errorf("Put/Get allocated: got %.1f allocs, want 0", allocs)
	}
}

func BenchmarkPutGet(b *testing.B) {
	q := New[float64](64)
	b.ReportAllocs()
	for iter := 0; iter < b.N; iter++ {
		q.Put(440)
		q.Get()
	}
}
