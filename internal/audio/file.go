// SPDX-License-Identifier: MIT
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	applog "tuner/internal/log"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// FileOptions configures playback of a recorded file.
type FileOptions struct {
	SampleRate float64 // the file must match; no resampling is done
	Loop       bool
	Realtime   bool
}

// FileSource replays a WAV or MP3 file as mono 16-bit chunks. The file is
// decoded completely at open time.
type FileSource struct {
	path    string
	samples []int16
	pos     int
	loop    bool
	clock   *chunkClock
	closed  atomic.Bool
}

var _ Source = (*FileSource)(nil)

// OpenFile decodes path, choosing the decoder by extension.
func OpenFile(path string, opts FileOptions) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, openError("open", err)
	}
	defer f.Close()

	var (
		samples []int16
		rate    int
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav", ".wave":
		samples, rate, err = decodeWAV(f)
	case ".mp3":
		samples, rate, err = decodeMP3(f)
	default:
		err = fmt.Errorf("unsupported file type %q", ext)
	}
	if err != nil {
		return nil, openError("decode", fmt.Errorf("%s: %w", path, err))
	}
	if len(samples) == 0 {
		return nil, openError("decode", fmt.Errorf("%s: no audio data", path))
	}
	if opts.SampleRate > 0 && float64(rate) != opts.SampleRate {
		return nil, openError("open", fmt.Errorf("%s is %d Hz, configured rate is %.0f Hz", path, rate, opts.SampleRate))
	}

	applog.Infof("File: %s, %d samples at %d Hz (loop=%v)", path, len(samples), rate, opts.Loop)

	s := &FileSource{path: path, samples: samples, loop: opts.Loop}
	if opts.Realtime {
		s.clock = newChunkClock(float64(rate))
	}
	return s, nil
}

// ReadChunk copies the next len(dst) samples. The final partial chunk is
// zero-filled; the read after it returns ErrEndOfStream unless looping.
func (s *FileSource) ReadChunk(dst []int16) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if s.pos >= len(s.samples) {
		if !s.loop {
			return ErrEndOfStream
		}
		s.pos = 0
	}
	if s.clock != nil {
		s.clock.wait(len(dst))
	}

	filled := 0
	for filled < len(dst) {
		n := copy(dst[filled:], s.samples[s.pos:])
		s.pos += n
		filled += n
		if s.pos < len(s.samples) {
			continue
		}
		if !s.loop {
			clear(dst[filled:])
			break
		}
		s.pos = 0
	}
	return nil
}

// Len returns the decoded length in samples.
func (s *FileSource) Len() int { return len(s.samples) }

func (s *FileSource) Close() error {
	s.closed.Store(true)
	return nil
}

func decodeWAV(r io.ReadSeeker) ([]int16, int, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, errors.New("not a valid WAV file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, err
	}

	channels := int(dec.NumChans)
	if channels < 1 {
		return nil, 0, errors.New("WAV file has no channels")
	}
	depth := int(dec.BitDepth)

	frames := len(buf.Data) / channels
	out := make([]int16, frames)
	for i := range out {
		var sum int
		for c := 0; c < channels; c++ {
			sum += toInt16Scale(buf.Data[i*channels+c], depth)
		}
		out[i] = int16(sum / channels)
	}
	return out, int(dec.SampleRate), nil
}

// toInt16Scale maps a decoded PCM value of the given bit depth onto the
// int16 range. 8-bit WAV data is unsigned.
func toInt16Scale(v, depth int) int {
	switch {
	case depth == 8:
		return (v - 128) << 8
	case depth > 16:
		return v >> (depth - 16)
	case depth < 16:
		return v << (16 - depth)
	default:
		return v
	}
}

func decodeMP3(r io.Reader) ([]int16, int, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, 0, err
	}

	// go-mp3 always produces interleaved stereo, 16-bit little endian.
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, 0, err
	}

	out := make([]int16, len(raw)/4)
	for i := range out {
		l := int16(binary.LittleEndian.Uint16(raw[4*i:]))
		r := int16(binary.LittleEndian.Uint16(raw[4*i+2:]))
		out[i] = int16((int32(l) + int32(r)) / 2)
	}
	return out, dec.SampleRate(), nil
}
