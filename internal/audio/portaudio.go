// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	applog "tuner/internal/log"

	"github.com/gordonklaus/portaudio"
)

// PortAudioOptions selects and configures the capture device.
type PortAudioOptions struct {
	DeviceID   int // -1 for the default input device
	SampleRate float64
	ChunkSize  int
	LowLatency bool
}

// PortAudioSource reads from a blocking (non-callback) PortAudio stream.
// PortAudio must be initialised for the lifetime of the source.
type PortAudioSource struct {
	stream *portaudio.Stream
	buf    []int16 // bound to the stream at open time

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

var _ Source = (*PortAudioSource)(nil)

// OpenPortAudio opens and starts a mono 16-bit input stream.
func OpenPortAudio(opts PortAudioOptions) (*PortAudioSource, error) {
	if opts.ChunkSize <= 0 {
		return nil, openError("open", fmt.Errorf("invalid chunk size %d", opts.ChunkSize))
	}

	device, err := InputDevice(opts.DeviceID)
	if err != nil {
		return nil, openError("open", err)
	}

	latency := device.DefaultHighInputLatency
	if opts.LowLatency {
		latency = device.DefaultLowInputLatency
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: 1,
			Latency:  latency,
		},
		SampleRate:      opts.SampleRate,
		FramesPerBuffer: opts.ChunkSize,
	}

	buf := make([]int16, opts.ChunkSize)
	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return nil, openError("open", fmt.Errorf("%s at %.0f Hz: %w", device.Name, opts.SampleRate, err))
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, openError("start", err)
	}

	applog.Infof("PortAudio: capturing from %q at %.0f Hz, %d samples per chunk, latency %v",
		device.Name, opts.SampleRate, opts.ChunkSize, latency)

	return &PortAudioSource{stream: stream, buf: buf}, nil
}

// ReadChunk blocks until the stream has delivered one chunk. An input
// overflow is reported as a transient DeviceError; the samples of that read
// are discarded.
func (s *PortAudioSource) ReadChunk(dst []int16) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if len(dst) != len(s.buf) {
		return readError(fmt.Errorf("chunk of %d samples requested from a %d sample stream", len(dst), len(s.buf)))
	}

	if err := s.stream.Read(); err != nil {
		if errors.Is(err, portaudio.InputOverflowed) {
			return readError(fmt.Errorf("input overflowed: %w", err))
		}
		return readError(err)
	}

	copy(dst, s.buf)
	return nil
}

// Close stops and closes the stream.
func (s *PortAudioSource) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		stopErr := s.stream.Stop()
		closeErr := s.stream.Close()
		if err := errors.Join(stopErr, closeErr); err != nil {
			s.closeErr = &DeviceError{Op: "close", Err: err}
		}
	})
	return s.closeErr
}
