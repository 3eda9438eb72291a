// SPDX-License-Identifier: MIT
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	applog "tuner/internal/log"

	"github.com/gen2brain/malgo"
)

// MalgoOptions configures miniaudio capture.
type MalgoOptions struct {
	SampleRate float64
	ChunkSize  int
	Backlog    int // device periods buffered between callback and reader; 0 means 8
}

// MalgoSource captures through miniaudio. The device delivers periods on
// its own thread; ReadChunk reassembles them into exact chunks. Periods that
// arrive while the backlog is full are dropped and reported as an overrun.
type MalgoSource struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device

	periods  chan []int16
	pending  []int16
	overruns atomic.Uint64
	reported uint64

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

var _ Source = (*MalgoSource)(nil)

// OpenMalgo opens the default capture device as mono 16-bit.
func OpenMalgo(opts MalgoOptions) (*MalgoSource, error) {
	if opts.ChunkSize <= 0 {
		return nil, openError("open", fmt.Errorf("invalid chunk size %d", opts.ChunkSize))
	}
	backlog := opts.Backlog
	if backlog <= 0 {
		backlog = 8
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		applog.Debugf("malgo: %s", message)
	})
	if err != nil {
		return nil, openError("open", fmt.Errorf("miniaudio context: %w", err))
	}

	s := &MalgoSource{
		ctx:     ctx,
		periods: make(chan []int16, backlog),
		done:    make(chan struct{}),
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = 1
	cfg.SampleRate = uint32(opts.SampleRate)
	cfg.PeriodSizeInFrames = uint32(opts.ChunkSize)
	cfg.Alsa.NoMMap = 1

	device, err := malgo.InitDevice(ctx.Context, cfg, malgo.DeviceCallbacks{Data: s.onData})
	if err != nil {
		s.freeContext()
		return nil, openError("open", fmt.Errorf("capture device: %w", err))
	}
	s.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		s.freeContext()
		return nil, openError("start", err)
	}

	applog.Infof("malgo: capturing from the default device at %.0f Hz", opts.SampleRate)
	return s, nil
}

// onData runs on the miniaudio thread and must not block.
func (s *MalgoSource) onData(_, in []byte, frames uint32) {
	n := min(int(frames), len(in)/2)
	period := make([]int16, n)
	for i := range period {
		period[i] = int16(binary.LittleEndian.Uint16(in[2*i:]))
	}

	select {
	case s.periods <- period:
	default:
		s.overruns.Add(1)
	}
}

// ReadChunk assembles len(dst) samples from captured periods. If periods
// were dropped since the previous read, the chunk is still filled but a
// transient DeviceError is returned so the gap is logged.
func (s *MalgoSource) ReadChunk(dst []int16) error {
	filled := 0
	for filled < len(dst) {
		if len(s.pending) == 0 {
			select {
			case <-s.done:
				return ErrClosed
			case p := <-s.periods:
				s.pending = p
			}
		}
		n := copy(dst[filled:], s.pending)
		s.pending = s.pending[n:]
		filled += n
	}

	if total := s.overruns.Load(); total != s.reported {
		dropped := total - s.reported
		s.reported = total
		return readError(fmt.Errorf("overrun: %d capture periods dropped", dropped))
	}
	return nil
}

// Close stops the device and frees the miniaudio context.
func (s *MalgoSource) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		var errs []error
		if err := s.device.Stop(); err != nil {
			errs = append(errs, err)
		}
		s.device.Uninit()
		errs = append(errs, s.freeContext())
		if err := errors.Join(errs...); err != nil {
			s.closeErr = &DeviceError{Op: "close", Err: err}
		}
	})
	return s.closeErr
}

func (s *MalgoSource) freeContext() error {
	err := s.ctx.Uninit()
	s.ctx.Free()
	return err
}
