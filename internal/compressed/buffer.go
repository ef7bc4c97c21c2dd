// SPDX-License-Identifier: EPL-2.0

// Package compressed gives random access over compressed streams through a
// circular decode buffer, and keeps their cues in a .cue sidecar.
//
// The stream format is fixed: mono, 16-bit, 44.1 kHz. Decoders producing
// more channels are downmixed; any other sample rate is rejected.
package compressed

import (
	"errors"
	"fmt"
	"io"

	"github.com/ik5/audcue/utils"
)

const (
	SampleRate    = 44100
	Channels      = 1
	BitsPerSample = 16

	// BufferSize is the decode buffer length in samples, a power of two.
	BufferSize = 1 << 16
	mask       = BufferSize - 1

	// chunkFrames bounds a single decoder read.
	chunkFrames = 4096
)

// FrameDecoder is a seekable decoder of interleaved int16 frames.
type FrameDecoder interface {
	SampleRate() int
	Channels() int
	// Frames is the stream length in frames.
	Frames() int64
	// SeekFrame positions the decoder so the next read starts at frame.
	SeekFrame(frame int64) error
	// ReadInt16 fills dst with whole interleaved frames and returns the
	// number of values written. It returns io.EOF at end of stream.
	ReadInt16(dst []int16) (int, error)
	Close() error
}

// decodeBuffer caches the most recent BufferSize decoded mono samples.
// decoded holds the absolute span [start, end).
type decodeBuffer struct {
	dec     FrameDecoder
	ring    []int16
	start   int64
	end     int64
	eof     bool
	scratch []int16
	mono    []int16
}

func newDecodeBuffer(dec FrameDecoder) *decodeBuffer {
	return &decodeBuffer{
		dec:  dec,
		ring: make([]int16, BufferSize),
		mono: make([]int16, chunkFrames),
	}
}

// seek returns the ring index of pos, repositioning the decoder only when
// pos is outside the decoded span.
func (b *decodeBuffer) seek(pos int64) (int, error) {
	if pos < b.start || pos > b.end {
		if err := b.dec.SeekFrame(pos); err != nil {
			return 0, fmt.Errorf("seek to %d: %w", pos, err)
		}
		b.start, b.end, b.eof = pos, pos, false
	}

	return int(pos & mask), nil
}

// fill decodes forward until n samples from pos are buffered or the stream
// ends, and returns how many are available. pos must have been passed to
// seek and n must not exceed BufferSize.
func (b *decodeBuffer) fill(pos int64, n int) (int, error) {
	want := pos + int64(n)
	ch := b.dec.Channels()

	for b.end < want && !b.eof {
		frames := int(min(want-b.end, chunkFrames))
		if need := frames * ch; cap(b.scratch) < need {
			b.scratch = make([]int16, need)
		}

		got, err := b.dec.ReadInt16(b.scratch[:frames*ch])

		mono := b.scratch[:got]
		if ch > 1 {
			k := utils.DownmixInt16(b.mono, b.scratch[:got], ch)
			mono = b.mono[:k]
		}

		for i, v := range mono {
			b.ring[(b.end+int64(i))&mask] = v
		}
		b.end += int64(len(mono))
		if b.end-b.start > BufferSize {
			b.start = b.end - BufferSize
		}

		switch {
		case errors.Is(err, io.EOF):
			b.eof = true
		case err != nil:
			return 0, fmt.Errorf("decode at %d: %w", b.end, err)
		case got == 0:
			return 0, fmt.Errorf("decode at %d: %w", b.end, io.ErrNoProgress)
		}
	}

	return int(max(min(b.end-pos, int64(n)), 0)), nil
}

// at returns the buffered sample at ring index idx+i.
func (b *decodeBuffer) at(idx, i int) int16 {
	return b.ring[(idx+i)&mask]
}
