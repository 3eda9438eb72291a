// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"tuner/internal/audio"
	applog "tuner/internal/log"
)

// Estimate is one pitch estimate, published once per chunk. A Frequency of
// 0 means no pitch was found (silence, gated input or a failed estimate).
type Estimate struct {
	Frequency float64   `json:"frequency"`
	Level     float64   `json:"level"` // RMS of the chunk, 0..1
	At        time.Time `json:"at"`
}

// Sink receives estimates from the acquisition goroutine. Put must never
// block; it reports whether an older estimate was discarded to make room.
type Sink interface {
	Put(Estimate) bool
}

// AnalyzerOptions sizes the acquisition loop.
type AnalyzerOptions struct {
	ChunkSize     int
	BufferLength  int
	GateThreshold float64 // 0..1 of full scale
}

// Stats are cumulative counters for an Analyzer.
type Stats struct {
	Chunks     uint64 // chunks read successfully
	Estimates  uint64 // estimates with a non-zero frequency
	Gated      uint64 // chunks skipped by the noise gate
	ReadErrors uint64 // failed reads, all of them retried
	Recovered  uint64 // estimator panics recovered
	Evicted    uint64 // estimates dropped by the sink
}

type analyzerState int

const (
	stateIdle analyzerState = iota
	stateRunning
	stateStopped
)

// Analyzer runs the acquisition loop: read a chunk, push it into the ring
// buffer, estimate the pitch over the whole window and hand the estimate to
// the sink. The ring buffer and estimator belong to the loop goroutine.
type Analyzer struct {
	source    audio.Source
	estimator Estimator
	sink      Sink

	ring   *RingBuffer
	gate   *NoiseGate
	chunk  []int16
	window []float64

	mu      sync.Mutex
	state   analyzerState
	running atomic.Bool
	done    chan struct{}

	chunks     atomic.Uint64
	estimates  atomic.Uint64
	gated      atomic.Uint64
	readErrors atomic.Uint64
	recovered  atomic.Uint64
	evicted    atomic.Uint64
}

// NewAnalyzer wires a source to an estimator. The analyzer takes ownership of
// source and closes it when the loop exits.
func NewAnalyzer(source audio.Source, estimator Estimator, sink Sink, opts AnalyzerOptions) (*Analyzer, error) {
	if source == nil || estimator == nil || sink == nil {
		return nil, errors.New("analyzer: source, estimator and sink are required")
	}

	ring, err := NewRingBuffer(opts.BufferLength, opts.ChunkSize)
	if err != nil {
		return nil, fmt.Errorf("analyzer: %w", err)
	}

	return &Analyzer{
		source:    source,
		estimator: estimator,
		sink:      sink,
		ring:      ring,
		gate:      NewNoiseGate(opts.GateThreshold),
		chunk:     make([]int16, opts.ChunkSize),
		window:    make([]float64, opts.BufferLength),
		done:      make(chan struct{}),
	}, nil
}

// Start launches the acquisition goroutine. It fails if the analyzer has
// already been started or stopped.
func (a *Analyzer) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.state {
	case stateRunning:
		return errors.New("analyzer: already running")
	case stateStopped:
		return errors.New("analyzer: stopped")
	}

	a.state = stateRunning
	a.running.Store(true)
	go a.run()

	applog.Infof("Analyzer started: %s, %d sample window, %d samples per chunk",
		a.estimator.Name(), a.ring.Len(), a.ring.ChunkSize())
	return nil
}

// Stop asks the loop to exit and waits until it has closed the source. The
// loop notices the request after the read in progress completes. Stop may be
// called any number of times from any goroutine.
func (a *Analyzer) Stop() {
	a.mu.Lock()
	switch a.state {
	case stateIdle:
		a.state = stateStopped
		if err := a.source.Close(); err != nil {
			applog.Warnf("Error closing audio source: %v", err)
		}
		close(a.done)
	case stateRunning:
		a.state = stateStopped
		a.running.Store(false)
	}
	a.mu.Unlock()

	<-a.done
}

// Done is closed once the loop has exited and the source is closed. The
// loop also exits on its own at the end of a finite source.
func (a *Analyzer) Done() <-chan struct{} {
	return a.done
}

// Stats returns a snapshot of the counters.
func (a *Analyzer) Stats() Stats {
	return Stats{
		Chunks:     a.chunks.Load(),
		Estimates:  a.estimates.Load(),
		Gated:      a.gated.Load(),
		ReadErrors: a.readErrors.Load(),
		Recovered:  a.recovered.Load(),
		Evicted:    a.evicted.Load(),
	}
}

func (a *Analyzer) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	defer close(a.done)
	defer func() {
		if err := a.source.Close(); err != nil {
			applog.Warnf("Error closing audio source: %v", err)
		}
		a.running.Store(false)
		applog.Infof("Analyzer stopped after %d chunks", a.chunks.Load())
	}()

	for a.running.Load() {
		if err := a.source.ReadChunk(a.chunk); err != nil {
			if errors.Is(err, io.EOF) {
				applog.Info("Audio source reached end of stream")
				return
			}
			if errors.Is(err, audio.ErrClosed) {
				return
			}
			a.readErrors.Add(1)
			applog.Warnf("Audio read failed, continuing: %v", err)
			continue
		}
		a.chunks.Add(1)

		a.process(a.chunk, time.Now())
	}
}

// process handles one chunk. A panicking estimator costs that chunk's
// estimate, not the loop.
func (a *Analyzer) process(chunk []int16, at time.Time) {
	est := Estimate{Level: Level(chunk), At: at}

	if err := a.ring.Push(chunk); err != nil {
		applog.Errorf("Ring buffer rejected chunk: %v", err)
		return
	}

	if a.gate.Open(chunk) {
		est.Frequency = a.estimate()
		if est.Frequency > 0 {
			a.estimates.Add(1)
		}
	} else {
		a.gated.Add(1)
	}

	if a.sink.Put(est) {
		n := a.evicted.Add(1)
		applog.Debugf("Estimate queue full, dropped oldest (%d total)", n)
	}
}

func (a *Analyzer) estimate() (freq float64) {
	defer func() {
		if r := recover(); r != nil {
			a.recovered.Add(1)
			applog.Errorf("Pitch estimator %s failed: %v", a.estimator.Name(), r)
			freq = 0
		}
	}()

	a.window = a.ring.Snapshot(a.window)
	return a.estimator.Estimate(a.window)
}
