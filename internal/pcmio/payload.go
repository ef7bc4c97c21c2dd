// SPDX-License-Identifier: EPL-2.0

// Package pcmio implements the payload bookkeeping, mapped reader and
// streaming writer shared by the chunked lossless containers (WAV, AIFF).
//
// A container keeps its PCM payload as one contiguous byte range of an open
// file, optionally followed by a trailer of metadata chunks. While a writer
// appends, the trailer is dropped and the payload is the tail of the file;
// Seal puts the trailer back and lets the container patch its header.
package pcmio

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ik5/audcue/audio"
)

// PatchFunc rewrites header length fields once the trailer is on disk.
type PatchFunc func(f *os.File, payloadLen, fileLen int64) error

// Payload tracks the PCM byte range of one open container file.
type Payload struct {
	file     *os.File
	format   audio.Format
	order    binary.ByteOrder
	start    int64
	prefix   int64
	length   atomic.Int64
	trailer  int64
	state    audio.State
	readOnly bool
	closed   bool
	log      *zap.Logger

	mtx     sync.Mutex
	writer  *Writer
	readers map[*Reader]struct{}
}

// Config describes a payload found by a container parser.
type Config struct {
	File     *os.File
	Format   audio.Format
	Order    binary.ByteOrder
	Start    int64
	// Prefix counts the bytes of the payload chunk body ahead of the
	// samples, which decide the pad byte together with the payload length.
	Prefix   int64
	Length   int64
	Trailer  int64
	State    audio.State
	ReadOnly bool
	Logger   *zap.Logger
}

func NewPayload(cfg Config) *Payload {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	p := &Payload{
		file:     cfg.File,
		format:   cfg.Format,
		order:    cfg.Order,
		start:    cfg.Start,
		prefix:   cfg.Prefix,
		trailer:  cfg.Trailer,
		state:    cfg.State,
		readOnly: cfg.ReadOnly,
		log:      log.Named("pcmio"),
		readers:  make(map[*Reader]struct{}),
	}
	p.length.Store(cfg.Length)

	return p
}

func (p *Payload) File() *os.File              { return p.file }
func (p *Payload) Format() audio.Format        { return p.format }
func (p *Payload) ByteOrder() binary.ByteOrder { return p.order }
func (p *Payload) Start() int64                { return p.start }
func (p *Payload) Len() int64                  { return p.length.Load() }
func (p *Payload) State() audio.State          { return p.state }
func (p *Payload) ReadOnly() bool              { return p.readOnly }
func (p *Payload) Closed() bool                { return p.closed }

// Frames is the number of whole frames on disk.
func (p *Payload) Frames() int64 {
	return p.Len() / int64(p.format.FrameSize())
}

// reclaim drops the trailer so payload bytes can continue at the end of the
// file. truncate also drops the existing payload.
func (p *Payload) reclaim(truncate bool) error {
	if truncate {
		p.length.Store(0)
	}

	if truncate || p.trailer > 0 {
		if err := p.file.Truncate(p.start + p.Len()); err != nil {
			return fmt.Errorf("truncate payload: %w", err)
		}
		p.trailer = 0
	}

	p.state = audio.Draft

	return nil
}

// appendBytes writes b at the end of the payload.
func (p *Payload) appendBytes(b []byte) (int, error) {
	if p.state != audio.Draft || p.trailer > 0 {
		if err := p.reclaim(false); err != nil {
			return 0, err
		}
	}

	n, err := p.file.WriteAt(b, p.start+p.Len())
	p.length.Add(int64(n))
	if err != nil {
		return n, fmt.Errorf("write payload: %w", err)
	}

	return n, nil
}

// Flush pushes buffered bytes of the active writer, if any.
func (p *Payload) Flush() error {
	p.mtx.Lock()
	w := p.writer
	p.mtx.Unlock()

	if w == nil {
		return nil
	}

	return w.Flush()
}

// Seal flushes the active writer, writes trailer after the payload (with the
// pad byte an odd chunk body needs), lets patch fix the header and marks the
// payload finalized.
func (p *Payload) Seal(trailer []byte, patch PatchFunc) error {
	if p.closed {
		return audio.ErrClosed
	}
	if p.readOnly {
		return audio.ErrReadOnly
	}

	if err := p.Flush(); err != nil {
		return err
	}

	end := p.start + p.Len()
	tail := make([]byte, 0, 1+len(trailer))
	if (p.prefix+p.Len())%2 == 1 {
		tail = append(tail, 0)
	}
	tail = append(tail, trailer...)

	if err := p.file.Truncate(end); err != nil {
		return fmt.Errorf("truncate trailer: %w", err)
	}

	if len(tail) > 0 {
		if _, err := p.file.WriteAt(tail, end); err != nil {
			return fmt.Errorf("write trailer: %w", err)
		}
	}
	p.trailer = int64(len(tail))

	if err := patch(p.file, p.Len(), end+p.trailer); err != nil {
		return err
	}

	if err := p.file.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	p.state = audio.Finalized
	p.log.Debug("payload sealed",
		zap.String("file", p.file.Name()),
		zap.Int64("payload_bytes", p.Len()),
		zap.Int64("trailer_bytes", p.trailer))

	return nil
}

// NewReader returns an unopened reader over [start, end] frames; end < 0
// selects the end of the payload at Open time.
func (p *Payload) NewReader(start, end int64) (*Reader, error) {
	if p.closed {
		return nil, audio.ErrClosed
	}
	if start < 0 {
		return nil, fmt.Errorf("%w: start %d", audio.ErrSeekOutOfWindow, start)
	}

	return &Reader{p: p, first: start, last: end}, nil
}

// NewWriter opens the single writer of this payload. finalize runs when the
// writer closes and normally is the container's Update.
func (p *Payload) NewWriter(appendMode, buffered bool, finalize func() error, cfg audio.WriterConfig) (*Writer, error) {
	if p.closed {
		return nil, audio.ErrClosed
	}
	if p.readOnly {
		return nil, audio.ErrReadOnly
	}

	p.mtx.Lock()
	defer p.mtx.Unlock()

	if p.writer != nil {
		return nil, audio.ErrWriterActive
	}

	// truncating under a live mapping faults the reader
	if !appendMode && len(p.readers) > 0 {
		return nil, audio.ErrReaderActive
	}

	if err := p.reclaim(!appendMode); err != nil {
		return nil, err
	}

	w := newWriter(p, buffered, finalize, cfg)
	p.writer = w

	p.log.Debug("writer opened",
		zap.String("file", p.file.Name()),
		zap.Bool("append", appendMode),
		zap.Bool("buffered", buffered),
		zap.Int64("payload_bytes", p.Len()))

	return w, nil
}

func (p *Payload) detach(w *Writer) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if p.writer == w {
		p.writer = nil
	}
}

func (p *Payload) track(r *Reader) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	p.readers[r] = struct{}{}
}

func (p *Payload) untrack(r *Reader) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	delete(p.readers, r)
}

// Close closes the active writer and finalizes a draft payload, releases
// readers still open, then closes the file.
func (p *Payload) Close(finalize func() error) error {
	if p.closed {
		return nil
	}

	var err error

	p.mtx.Lock()
	w := p.writer
	readers := make([]*Reader, 0, len(p.readers))
	for r := range p.readers {
		readers = append(readers, r)
	}
	p.mtx.Unlock()

	if w != nil {
		err = multierr.Append(err, w.Close())
	} else if p.state == audio.Draft && !p.readOnly {
		err = multierr.Append(err, finalize())
	}

	for _, r := range readers {
		p.log.Warn("reader still open at close", zap.String("file", p.file.Name()))
		err = multierr.Append(err, r.Release())
	}

	p.closed = true
	err = multierr.Append(err, p.file.Close())

	return err
}
