// SPDX-License-Identifier: EPL-2.0

package compressed

import (
	"encoding/binary"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/ik5/audcue/audio"
)

type readerState int

const (
	created readerState = iota
	opened
	released
)

// Reader decodes a frame window of a compressed stream into 16-bit
// little-endian PCM. It follows the same lifecycle and window rules as the
// mapped lossless reader.
type Reader struct {
	c     *Container
	first int64
	last  int64 // < 0 until Open resolves it

	state readerState
	pos   int64 // frame cursor
}

var _ audio.Reader = (*Reader)(nil)

// Open claims the container's decoder. Only one reader may be open per
// container.
func (r *Reader) Open() error {
	switch r.state {
	case opened:
		return nil
	case released:
		return audio.ErrReleased
	}

	if err := r.c.claim(r); err != nil {
		return err
	}

	total := r.c.TotalFrames()
	last := r.last
	if last < 0 || last > total {
		last = total
	}
	if r.first > last {
		r.c.unclaim(r)
		return fmt.Errorf("%w: start %d past end %d", audio.ErrSeekOutOfWindow, r.first, last)
	}

	r.last = last
	r.pos = r.first
	r.state = opened

	r.c.log.Debug("reader opened",
		zap.String("path", r.c.path),
		zap.Int64("first", r.first),
		zap.Int64("last", r.last))

	return nil
}

func (r *Reader) check() error {
	switch r.state {
	case created:
		return audio.ErrNotOpen
	case released:
		return audio.ErrReleased
	}

	return nil
}

func (r *Reader) SeekFrame(frame int64) error {
	if err := r.check(); err != nil {
		return err
	}

	if frame < r.first || frame > r.last {
		return fmt.Errorf("%w: frame %d not in [%d, %d]", audio.ErrSeekOutOfWindow, frame, r.first, r.last)
	}

	r.pos = frame

	return nil
}

func (r *Reader) Frame() int64 { return r.pos }

func (r *Reader) HasRemaining() bool {
	return r.state == opened && r.pos < r.last
}

// PCMBuffer decodes min(len(buf)/2, remaining) frames into buf and advances
// the cursor by bytes/2. Decoder failures are returned wrapped in
// audio.ErrDecode.
func (r *Reader) PCMBuffer(buf []byte) (int, error) {
	if err := r.check(); err != nil {
		return 0, err
	}

	if len(buf) < 2 {
		return 0, nil
	}
	if r.pos >= r.last {
		return 0, io.EOF
	}

	want := min(int64(len(buf)/2), r.last-r.pos)
	b := r.c.buf
	n := 0

	for int64(n) < want {
		k := int(min(want-int64(n), BufferSize/2))

		idx, err := b.seek(r.pos)
		if err == nil {
			k, err = b.fill(r.pos, k)
		}
		if err != nil {
			r.c.log.Error("decode failed",
				zap.String("path", r.c.path),
				zap.Int64("frame", r.pos),
				zap.Error(err))
			return n * 2, fmt.Errorf("%w: %w", audio.ErrDecode, err)
		}

		if k == 0 {
			// the stream ended before its advertised length
			r.c.log.Warn("stream shorter than reported",
				zap.String("path", r.c.path),
				zap.Int64("frame", r.pos),
				zap.Int64("reported", r.last))
			r.last = r.pos
			break
		}

		for i := range k {
			binary.LittleEndian.PutUint16(buf[(n+i)*2:], uint16(b.at(idx, i)))
		}
		n += k
		r.pos += int64(k)
	}

	if n == 0 {
		return 0, io.EOF
	}

	return n * 2, nil
}

// Read lets a Reader feed io.Copy.
func (r *Reader) Read(p []byte) (int, error) {
	return r.PCMBuffer(p)
}

// Release hands the decoder back to the container. It is safe to call more
// than once.
func (r *Reader) Release() error {
	if r.state == released {
		return nil
	}

	wasOpen := r.state == opened
	r.state = released
	if wasOpen {
		r.c.unclaim(r)
	}

	return nil
}
