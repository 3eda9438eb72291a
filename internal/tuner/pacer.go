// SPDX-License-Identifier: MIT
package tuner

import (
	"context"
	"time"

	applog "tuner/internal/log"
	"tuner/internal/tuning"
)

// Pacer blocks until the next display frame is due.
type Pacer interface {
	Wait(ctx context.Context) error
}

// FrameTimer paces a loop at a fixed frame rate. A frame that overruns its
// slot by more than a whole period resynchronises the schedule instead of
// firing a burst of catch-up frames.
type FrameTimer struct {
	period   time.Duration
	next     time.Time
	warnings bool
	overruns uint64

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// NewFrameTimer returns a pacer for fps frames per second. With warnings set
// every overrun is logged.
func NewFrameTimer(fps int, warnings bool) *FrameTimer {
	if fps < 1 {
		fps = 1
	}
	return &FrameTimer{
		period:   time.Second / time.Duration(fps),
		warnings: warnings,
		now:      time.Now,
		after:    time.After,
	}
}

// Wait sleeps out the remainder of the current frame.
func (f *FrameTimer) Wait(ctx context.Context) error {
	now := f.now()
	if f.next.IsZero() {
		f.next = now
	}
	f.next = f.next.Add(f.period)

	if late := now.Sub(f.next); late > 0 {
		f.overruns++
		if f.warnings {
			applog.Warnf("Frame overran by %v (frame period %v)", late, f.period)
		}
		if late > f.period {
			f.next = now
		}
		return ctx.Err()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.after(f.next.Sub(now)):
		return nil
	}
}

// Period returns the frame period.
func (f *FrameTimer) Period() time.Duration { return f.period }

// Overruns returns how many frames started late.
func (f *FrameTimer) Overruns() uint64 { return f.overruns }

// Run is the headless display loop: once per frame it polls t and passes any
// new Reading to fn. It returns nil once acquisition has ended and the queue
// is drained, or the context error if ctx is cancelled first.
func Run(ctx context.Context, t *Tuner, pacer Pacer, fn func(tuning.Reading)) error {
	for {
		if err := pacer.Wait(ctx); err != nil {
			return err
		}

		select {
		case <-t.Done():
			for {
				r, ok := t.Poll()
				if !ok && t.estimates.Len() == 0 {
					return nil
				}
				if ok && fn != nil {
					fn(r)
				}
			}
		default:
		}

		if r, ok := t.Poll(); ok && fn != nil {
			fn(r)
		}
	}
}
