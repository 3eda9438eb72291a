// SPDX-License-Identifier: MIT

// Package tuner assembles the pitch pipeline. An acquisition goroutine
// (analysis.Analyzer) feeds estimates through a drop-oldest queue; the
// display loop calls Poll once per frame to turn the next estimate into a
// tuning.Reading.
package tuner

import (
	"fmt"
	"math"
	"sync/atomic"

	"tuner/internal/analysis"
	"tuner/internal/audio"
	"tuner/internal/config"
	applog "tuner/internal/log"
	"tuner/internal/queue"
	"tuner/internal/transport"
	"tuner/internal/tuning"
)

// Stats combines the acquisition and display counters.
type Stats struct {
	analysis.Stats
	Polls      uint64 // Poll calls
	Updates    uint64 // polls that produced a Reading
	Silent     uint64 // estimates without a usable frequency
	SendErrors uint64
}

// Tuner is the consumer-facing handle on the pipeline. Start, Stop, SetA4,
// A4, Latest, Done and Stats are safe from any goroutine; Poll must be called
// from a single display goroutine.
type Tuner struct {
	analyzer  *analysis.Analyzer
	estimates *queue.Queue[analysis.Estimate]
	tracker   *tuning.Tracker
	transport transport.Transport

	a4     atomic.Uint64 // math.Float64bits
	latest atomic.Pointer[tuning.Reading]

	polls      atomic.Uint64
	updates    atomic.Uint64
	silent     atomic.Uint64
	sendErrors atomic.Uint64
}

// New builds a tuner reading from source. The tuner owns source from here
// on. t may be nil when readings are only consumed through Poll.
func New(cfg *config.Config, source audio.Source, t transport.Transport) (*Tuner, error) {
	estimator, err := analysis.NewEstimator(cfg)
	if err != nil {
		source.Close()
		return nil, fmt.Errorf("tuner: %w", err)
	}

	estimates := queue.New[analysis.Estimate](cfg.Tuner.QueueCapacity)
	analyzer, err := analysis.NewAnalyzer(source, estimator, estimates, analysis.AnalyzerOptions{
		ChunkSize:     cfg.Audio.ChunkSize,
		BufferLength:  cfg.Audio.BufferLength,
		GateThreshold: cfg.Audio.GateThreshold,
	})
	if err != nil {
		source.Close()
		return nil, fmt.Errorf("tuner: %w", err)
	}

	tn := &Tuner{
		analyzer:  analyzer,
		estimates: estimates,
		tracker: tuning.NewTracker(tuning.Config{
			HitsTillNoteUpdate: cfg.Tuner.HitsTillNoteUpdate,
			NeedleBufferLength: cfg.Tuner.NeedleBufferLength,
			InTuneThresholdHz:  cfg.Tuner.InTuneThresholdHz,
			SustainedHits:      cfg.Tuner.SustainedHits,
		}),
		transport: t,
	}
	if err := tn.SetA4(cfg.Tuner.A4Frequency); err != nil {
		source.Close()
		return nil, err
	}

	return tn, nil
}

// Start launches acquisition.
func (t *Tuner) Start() error {
	return t.analyzer.Start()
}

// Stop ends acquisition and closes the source. It is idempotent.
func (t *Tuner) Stop() {
	t.analyzer.Stop()
}

// Done is closed when acquisition has ended, either through Stop or because
// a finite source ran out.
func (t *Tuner) Done() <-chan struct{} {
	return t.analyzer.Done()
}

// SetA4 changes the reference pitch. It takes effect from the next Poll.
func (t *Tuner) SetA4(hz float64) error {
	if hz <= 0 || math.IsNaN(hz) || math.IsInf(hz, 0) {
		return fmt.Errorf("tuner: invalid A4 frequency %v", hz)
	}
	t.a4.Store(math.Float64bits(hz))
	return nil
}

// A4 returns the reference pitch in Hz.
func (t *Tuner) A4() float64 {
	return math.Float64frombits(t.a4.Load())
}

// Poll takes at most one estimate from the queue and folds it into the
// display state. It returns false when the queue was empty or the estimate
// carried no pitch; the previous Reading then remains current.
func (t *Tuner) Poll() (tuning.Reading, bool) {
	t.polls.Add(1)

	est, ok := t.estimates.Get()
	if !ok {
		return tuning.Reading{}, false
	}

	reading, err := t.tracker.Update(est.Frequency, t.A4())
	if err != nil {
		t.silent.Add(1)
		if est.Frequency != 0 {
			applog.Debugf("Skipping estimate of %v Hz: %v", est.Frequency, err)
		}
		return tuning.Reading{}, false
	}

	t.updates.Add(1)
	t.latest.Store(&reading)
	t.publish(reading)

	return reading, true
}

// Latest returns the most recent Reading produced by Poll.
func (t *Tuner) Latest() (tuning.Reading, bool) {
	r := t.latest.Load()
	if r == nil {
		return tuning.Reading{}, false
	}
	return *r, true
}

// Stats returns a snapshot of the pipeline counters.
func (t *Tuner) Stats() Stats {
	return Stats{
		Stats:      t.analyzer.Stats(),
		Polls:      t.polls.Load(),
		Updates:    t.updates.Load(),
		Silent:     t.silent.Load(),
		SendErrors: t.sendErrors.Load(),
	}
}

func (t *Tuner) publish(r tuning.Reading) {
	if t.transport == nil {
		return
	}
	if err := t.transport.Send(r); err != nil {
		// Warn once; later failures would repeat every frame.
		if t.sendErrors.Add(1) == 1 {
			applog.Warnf("Transport send failed: %v", err)
		} else {
			applog.Debugf("Transport send failed: %v", err)
		}
	}
}
