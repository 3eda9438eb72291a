// SPDX-License-Identifier: MIT
package audio

import "time"

// chunkClock paces synthetic and file sources to the wall clock so they
// deliver chunks at the rate a real device would.
type chunkClock struct {
	sampleRate float64
	next       time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

func newChunkClock(sampleRate float64) *chunkClock {
	return &chunkClock{sampleRate: sampleRate, now: time.Now, sleep: time.Sleep}
}

// wait blocks until samples worth of audio would have been captured since
// the previous call. A consumer that falls more than one chunk behind is
// resynchronised rather than bursting to catch up.
func (c *chunkClock) wait(samples int) {
	period := time.Duration(float64(samples) / c.sampleRate * float64(time.Second))
	now := c.now()
	if c.next.IsZero() || now.Sub(c.next) > period {
		c.next = now
	}
	c.next = c.next.Add(period)
	if d := c.next.Sub(now); d > 0 {
		c.sleep(d)
	}
}
