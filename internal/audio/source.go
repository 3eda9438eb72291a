// SPDX-License-Identifier: MIT

/*
Package audio provides the sample sources that feed the tuner: a blocking
PortAudio capture stream, a miniaudio (malgo) capture device, a synthetic
tone and WAV/MP3 files. Every source yields mono 16-bit samples in
fixed-size chunks.

Error model:
  - Failures while opening a device are returned as *DeviceError and are
    fatal to the caller.
  - Failures while reading (overflow, driver hiccups) are *DeviceError
    values marked transient; the acquisition loop logs them and reads again.
  - Finite sources return ErrEndOfStream, which wraps io.EOF.
*/
package audio

import (
	"errors"
	"fmt"
	"io"

	"tuner/internal/config"
)

// Source is a mono 16-bit sample stream.
type Source interface {
	// ReadChunk fills dst completely, blocking until len(dst) samples are
	// available.
	ReadChunk(dst []int16) error

	// Close releases the device. It is safe to call more than once and
	// after a failed read.
	Close() error
}

var (
	// ErrEndOfStream is returned by finite sources once they are exhausted.
	ErrEndOfStream = fmt.Errorf("audio: end of stream: %w", io.EOF)

	// ErrClosed is returned by ReadChunk after Close.
	ErrClosed = errors.New("audio: source closed")
)

// DeviceError reports a capture device failure.
type DeviceError struct {
	Op        string // "open", "start", "read", ...
	Err       error
	transient bool
}

func (e *DeviceError) Error() string {
	if e.transient {
		return fmt.Sprintf("audio device %s (transient): %v", e.Op, e.Err)
	}
	return fmt.Sprintf("audio device %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// Transient reports whether reading again may succeed.
func (e *DeviceError) Transient() bool { return e.transient }

func openError(op string, err error) error {
	return &DeviceError{Op: op, Err: err}
}

func readError(err error) error {
	return &DeviceError{Op: "read", Err: err, transient: true}
}

// IsTransient reports whether err is a transient device error.
func IsTransient(err error) bool {
	var de *DeviceError
	return errors.As(err, &de) && de.Transient()
}

// Open opens the source selected by cfg.Audio.Backend and, when recording
// is enabled, wraps it in a Recorder.
func Open(cfg *config.Config) (Source, error) {
	src, err := openBackend(cfg.Audio)
	if err != nil {
		return nil, err
	}
	if !cfg.Recording.Enabled {
		return src, nil
	}

	rec, err := NewRecorder(src, cfg.Recording.OutputFile, int(cfg.Audio.SampleRate), cfg.Audio.ChunkSize)
	if err != nil {
		src.Close()
		return nil, err
	}
	return rec, nil
}

// openBackend returns an untyped nil Source on failure.
func openBackend(a config.AudioConfig) (Source, error) {
	var (
		src Source
		err error
	)
	switch a.Backend {
	case config.BackendPortAudio:
		var s *PortAudioSource
		if s, err = OpenPortAudio(PortAudioOptions{
			DeviceID:   a.InputDevice,
			SampleRate: a.SampleRate,
			ChunkSize:  a.ChunkSize,
			LowLatency: a.LowLatency,
		}); err == nil {
			src = s
		}
	case config.BackendMalgo:
		var s *MalgoSource
		if s, err = OpenMalgo(MalgoOptions{
			SampleRate: a.SampleRate,
			ChunkSize:  a.ChunkSize,
		}); err == nil {
			src = s
		}
	case config.BackendTone:
		var s *ToneSource
		if s, err = NewToneSource(ToneOptions{
			Frequency:  a.ToneFrequency,
			Amplitude:  0.5,
			SampleRate: a.SampleRate,
			Realtime:   a.Realtime,
		}); err == nil {
			src = s
		}
	case config.BackendFile:
		var s *FileSource
		if s, err = OpenFile(a.InputFile, FileOptions{
			SampleRate: a.SampleRate,
			Loop:       a.Loop,
			Realtime:   a.Realtime,
		}); err == nil {
			src = s
		}
	default:
		err = openError("open", fmt.Errorf("unknown backend %q", a.Backend))
	}
	if err != nil {
		return nil, err
	}
	return src, nil
}
