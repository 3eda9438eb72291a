// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	applog "tuner/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Recorder wraps a Source and writes every chunk it delivers to a 16-bit
// mono WAV file. Recording failures are logged and never interrupt capture.
type Recorder struct {
	Source

	path       string
	outputFile *os.File
	wavEncoder *wav.Encoder
	sampleBuf  *audio.IntBuffer // reused for format conversion

	frames    atomic.Int64
	failed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// NewRecorder creates path and starts teeing src into it. The caller's
// source is closed when the Recorder is closed.
func NewRecorder(src Source, path string, sampleRate, chunkSize int) (*Recorder, error) {
	if path == "" {
		return nil, fmt.Errorf("recording: empty output path")
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("recording: %w", err)
	}

	r := &Recorder{
		Source:     src,
		path:       path,
		outputFile: file,
		wavEncoder: wav.NewEncoder(file, sampleRate, 16, 1, 1),
		sampleBuf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: 1,
				SampleRate:  sampleRate,
			},
			Data:           make([]int, chunkSize),
			SourceBitDepth: 16,
		},
	}

	applog.Infof("Recording to %s", path)
	return r, nil
}

// ReadChunk reads from the wrapped source and appends the chunk to the file.
func (r *Recorder) ReadChunk(dst []int16) error {
	if err := r.Source.ReadChunk(dst); err != nil {
		return err
	}
	if r.failed.Load() {
		return nil
	}

	if cap(r.sampleBuf.Data) < len(dst) {
		r.sampleBuf.Data = make([]int, len(dst))
	}
	r.sampleBuf.Data = r.sampleBuf.Data[:len(dst)]
	for i, sample := range dst {
		r.sampleBuf.Data[i] = int(sample)
	}

	if err := r.wavEncoder.Write(r.sampleBuf); err != nil {
		// A full disk should not take the tuner down with it.
		applog.Errorf("Error writing to WAV file %s, recording stopped: %v", r.path, err)
		r.failed.Store(true)
		return nil
	}
	r.frames.Add(int64(len(dst)))
	return nil
}

// Frames returns the number of samples written so far.
func (r *Recorder) Frames() int64 {
	return r.frames.Load()
}

// Path returns the output file path.
func (r *Recorder) Path() string {
	return r.path
}

// Close finalises the WAV header and closes both the file and the wrapped
// source. It is safe to call more than once.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		srcErr := r.Source.Close()
		encErr := r.wavEncoder.Close()
		fileErr := r.outputFile.Close()
		r.closeErr = errors.Join(srcErr, encErr, fileErr)
		applog.Infof("Recording closed: %s, %d samples", r.path, r.frames.Load())
	})
	return r.closeErr
}
