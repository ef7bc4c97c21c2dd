// SPDX-License-Identifier: EPL-2.0

package pcmio

import (
	"fmt"
	"io"

	mmap "github.com/edsrzf/mmap-go"
	"go.uber.org/zap"

	"github.com/ik5/audcue/audio"
)

type readerState int

const (
	created readerState = iota
	opened
	released
)

// Reader reads a frame window of a payload through a read-only memory map.
//
// SeekFrame outside [first, last] is rejected with audio.ErrSeekOutOfWindow and
// leaves the cursor where it was. Release unmaps the file; on some platforms
// the file cannot be deleted or truncated until it has been called.
type Reader struct {
	p     *Payload
	first int64
	last  int64 // < 0 until Open resolves it

	state readerState
	m     mmap.MMap
	data  []byte // window bytes inside m
	pos   int    // byte cursor within data
}

var _ audio.Reader = (*Reader)(nil)

// Open maps the window. Calling Open on an open reader is a no-op.
func (r *Reader) Open() error {
	switch r.state {
	case opened:
		return nil
	case released:
		return audio.ErrReleased
	}

	if r.p.Closed() {
		return audio.ErrClosed
	}

	total := r.p.Frames()
	last := r.last
	if last < 0 || last > total {
		last = total
	}
	if r.first > last {
		return fmt.Errorf("%w: start %d past end %d", audio.ErrSeekOutOfWindow, r.first, last)
	}

	fs := int64(r.p.Format().FrameSize())
	lo := r.p.Start() + r.first*fs
	hi := r.p.Start() + last*fs

	if hi > lo {
		m, err := mmap.Map(r.p.File(), mmap.RDONLY, 0)
		if err != nil {
			return fmt.Errorf("map %s: %w", r.p.File().Name(), err)
		}
		if int64(len(m)) < hi {
			_ = m.Unmap()
			return fmt.Errorf("%w: payload extends past end of file", audio.ErrMalformedContainer)
		}
		r.m = m
		r.data = m[lo:hi]
	}

	r.last = last
	r.pos = 0
	r.state = opened
	r.p.track(r)

	r.p.log.Debug("reader opened",
		zap.String("file", r.p.File().Name()),
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

// Window returns the resolved frame bounds; last is -1 before Open when no
// explicit end was given.
func (r *Reader) Window() (first, last int64) { return r.first, r.last }

func (r *Reader) SeekFrame(frame int64) error {
	if err := r.check(); err != nil {
		return err
	}

	if frame < r.first || frame > r.last {
		return fmt.Errorf("%w: frame %d not in [%d, %d]", audio.ErrSeekOutOfWindow, frame, r.first, r.last)
	}

	r.pos = int(frame-r.first) * r.p.Format().FrameSize()

	return nil
}

// Frame returns the frame under the cursor.
func (r *Reader) Frame() int64 {
	return r.first + int64(r.pos/r.p.Format().FrameSize())
}

// PCMBuffer copies min(len(buf), remaining) bytes. At the window end it
// returns 0, io.EOF.
func (r *Reader) PCMBuffer(buf []byte) (int, error) {
	if err := r.check(); err != nil {
		return 0, err
	}

	if r.pos >= len(r.data) {
		if len(buf) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}

	n := copy(buf, r.data[r.pos:])
	r.pos += n

	return n, nil
}

func (r *Reader) HasRemaining() bool {
	return r.state == opened && r.pos < len(r.data)
}

// Read lets a Reader feed io.Copy.
func (r *Reader) Read(p []byte) (int, error) {
	return r.PCMBuffer(p)
}

// Release unmaps the window. It is safe to call more than once.
func (r *Reader) Release() error {
	if r.state == released {
		return nil
	}

	wasOpen := r.state == opened
	r.state = released
	r.data = nil

	if !wasOpen {
		return nil
	}

	r.p.untrack(r)

	if r.m == nil {
		return nil
	}

	err := r.m.Unmap()
	r.m = nil
	if err != nil {
		return fmt.Errorf("unmap: %w", err)
	}

	return nil
}
