// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// go-mp3 always emits 16-bit little-endian stereo.
const (
	channels      = 2
	bytesPerFrame = 4
)

// mp3Reader is an interface for gomp3.Decoder to allow testing
type mp3Reader interface {
	Read([]byte) (int, error)
	Seek(offset int64, whence int) (int64, error)
	SampleRate() int
	Length() int64
}

// source adapts a go-mp3 decoder to compressed.FrameDecoder.
type source struct {
	dec   mp3Reader
	file  io.Closer
	buf   []byte
	carry []byte // bytes of a frame split across two decoder reads
}

func newSource(dec mp3Reader, file io.Closer) *source {
	return &source{
		dec:   dec,
		file:  file,
		buf:   make([]byte, 8192),
		carry: make([]byte, 0, bytesPerFrame),
	}
}

func (s *source) SampleRate() int { return s.dec.SampleRate() }
func (s *source) Channels() int   { return channels }

// Frames is the decoded length; 0 when go-mp3 could not measure it.
func (s *source) Frames() int64 {
	l := s.dec.Length()
	if l < 0 {
		return 0
	}

	return l / bytesPerFrame
}

func (s *source) SeekFrame(frame int64) error {
	s.carry = s.carry[:0]
	if _, err := s.dec.Seek(frame*bytesPerFrame, io.SeekStart); err != nil {
		return fmt.Errorf("seek mp3 to frame %d: %w", frame, err)
	}

	return nil
}

func (s *source) ReadInt16(dst []int16) (int, error) {
	need := len(dst) / channels * bytesPerFrame
	if need == 0 {
		return 0, nil
	}
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	buf := s.buf[:need]

	c := copy(buf, s.carry)
	s.carry = s.carry[:0]

	n, err := io.ReadAtLeast(s.dec, buf[c:], bytesPerFrame-c)
	n += c
	if errors.Is(err, io.ErrUnexpectedEOF) {
		// a torn final frame is dropped
		err = io.EOF
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("decode mp3: %w", err)
	}

	whole := n - n%bytesPerFrame
	if err == nil {
		s.carry = append(s.carry, buf[whole:n]...)
	}

	// Convert bytes to samples
	samples := whole / 2
	for i := range samples {
		dst[i] = int16(binary.LittleEndian.Uint16(buf[2*i:]))
	}

	return samples, err
}

func (s *source) Close() error {
	if s.file == nil {
		return nil
	}

	return s.file.Close()
}
