// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jfreymuth/vorbis"

	"github.com/ik5/audcue/utils"
)

// oggReader is an interface for oggvorbis.Reader to allow testing
type oggReader interface {
	SampleRate() int
	Channels() int
	// Read decodes interleaved values into p and returns how many it wrote.
	Read(p []float32) (int, error)
	// Length is the stream length in samples per channel.
	Length() int64
	SetPosition(pos int64) error
}

// commenter is implemented by readers that expose the Vorbis comment header.
type commenter interface {
	CommentHeader() vorbis.CommentHeader
}

// source adapts an oggvorbis reader to compressed.FrameDecoder.
type source struct {
	dec      oggReader
	file     io.Closer
	channels int
	frameBuf []float32 // buffer for reading frames from decoder
}

func newSource(dec oggReader, file io.Closer) *source {
	return &source{
		dec:      dec,
		file:     file,
		channels: dec.Channels(),
		frameBuf: make([]float32, 4096),
	}
}

func (s *source) SampleRate() int { return s.dec.SampleRate() }
func (s *source) Channels() int   { return s.channels }
func (s *source) Frames() int64   { return max(s.dec.Length(), 0) }

func (s *source) SeekFrame(frame int64) error {
	if err := s.dec.SetPosition(frame); err != nil {
		return fmt.Errorf("seek vorbis to frame %d: %w", frame, err)
	}

	return nil
}

func (s *source) ReadInt16(dst []int16) (int, error) {
	want := len(dst) / s.channels * s.channels
	if want == 0 {
		return 0, nil
	}

	if cap(s.frameBuf) < want {
		s.frameBuf = make([]float32, want)
	}
	buf := s.frameBuf[:want]

	n, err := s.dec.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("decode vorbis: %w", err)
	}

	n -= n % s.channels
	for i, v := range buf[:n] {
		dst[i] = utils.Float32ToInt16(v)
	}

	return n, err
}

func (s *source) Close() error {
	if s.file == nil {
		return nil
	}

	return s.file.Close()
}

// title returns the TITLE comment of the stream, if the reader has one.
func title(dec oggReader) string {
	c, ok := dec.(commenter)
	if !ok {
		return ""
	}

	for _, kv := range c.CommentHeader().Comments {
		k, v, found := strings.Cut(kv, "=")
		if found && strings.EqualFold(k, "TITLE") {
			return v
		}
	}

	return ""
}
