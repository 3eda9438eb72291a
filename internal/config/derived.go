// SPDX-License-Identifier: MIT
package config

import "time"

// WindowSize is the autocorrelation window W, half the buffer length.
func (c *Config) WindowSize() int {
	return c.Audio.BufferLength / 2
}

// LagBounds returns the half-open autocorrelation lag range [min, max).
// A zero lag_max defaults to half a chunk.
func (c *Config) LagBounds() (int, int) {
	hi := c.Tuner.LagMax
	if hi == 0 {
		hi = c.Audio.ChunkSize / 2
	}
	return c.Tuner.LagMin, hi
}

// ChunkDuration is the wall-clock length of one chunk at the sample rate.
func (c *Config) ChunkDuration() time.Duration {
	if c.Audio.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(c.Audio.ChunkSize) / c.Audio.SampleRate * float64(time.Second))
}

// FramePeriod is the display tick period.
func (c *Config) FramePeriod() time.Duration {
	if c.Tuner.FPS <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.Tuner.FPS)
}
