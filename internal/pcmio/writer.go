// SPDX-License-Identifier: EPL-2.0

package pcmio

import (
	"bufio"
	"fmt"

	goaudio "github.com/go-audio/audio"
	"go.uber.org/multierr"

	"github.com/ik5/audcue/audio"
	"github.com/ik5/audcue/utils"
)

// DefaultBufferSize is the coalescing buffer of a buffered writer.
const DefaultBufferSize = 64 * 1024

// sink adapts the payload end to io.Writer.
type sink struct{ p *Payload }

func (s sink) Write(b []byte) (int, error) { return s.p.appendBytes(b) }

// Writer streams PCM bytes to the end of a payload. The buffered and
// unbuffered modes put exactly the same bytes on disk.
type Writer struct {
	p        *Payload
	raw      sink
	bw       *bufio.Writer // nil when unbuffered
	finalize func() error
	closed   bool

	one     [1]byte
	scratch []byte

	tap     *audio.RingBuffer
	partial []byte
	amps    []float32
}

var _ audio.Writer = (*Writer)(nil)

func newWriter(p *Payload, buffered bool, finalize func() error, cfg audio.WriterConfig) *Writer {
	w := &Writer{
		p:        p,
		raw:      sink{p: p},
		finalize: finalize,
		tap:      cfg.Tap,
	}

	if buffered {
		size := cfg.BufferSize
		if size <= 0 {
			size = DefaultBufferSize
		}
		w.bw = bufio.NewWriterSize(w.raw, size)
	}

	return w
}

func (w *Writer) write(b []byte) (int, error) {
	if w.closed {
		return 0, audio.ErrClosed
	}

	var (
		n   int
		err error
	)
	if w.bw != nil {
		n, err = w.bw.Write(b)
	} else {
		n, err = w.raw.Write(b)
	}

	if w.tap != nil && n > 0 {
		w.feed(b[:n])
	}

	return n, err
}

func (w *Writer) Write(b []byte) (int, error) {
	return w.write(b)
}

func (w *Writer) WriteByte(c byte) error {
	w.one[0] = c
	_, err := w.write(w.one[:])

	return err
}

// WriteSamples encodes buf.Data at the payload's bit depth and byte order.
func (w *Writer) WriteSamples(buf *goaudio.IntBuffer) error {
	if buf == nil || len(buf.Data) == 0 {
		return nil
	}

	f := w.p.Format()
	if buf.Format != nil && buf.Format.NumChannels != 0 && buf.Format.NumChannels != f.Channels {
		return fmt.Errorf("%w: buffer has %d channels, container %d", audio.ErrUnsupportedLayout, buf.Format.NumChannels, f.Channels)
	}

	width := (f.BitsPerSample + 7) / 8
	need := len(buf.Data) * width
	if cap(w.scratch) < need {
		w.scratch = make([]byte, need)
	}
	w.scratch = w.scratch[:need]

	for i, v := range buf.Data {
		utils.PutSample(w.scratch[i*width:], v, f.BitsPerSample, w.p.ByteOrder())
	}

	_, err := w.write(w.scratch)

	return err
}

// feed converts complete frames to amplitudes, carrying a partial frame over
// to the next call.
func (w *Writer) feed(b []byte) {
	f := w.p.Format()
	fs := f.FrameSize()

	data := b
	if len(w.partial) > 0 {
		w.partial = append(w.partial, b...)
		data = w.partial
	}

	whole := len(data) - len(data)%fs
	w.amps = utils.FrameAmplitudes(w.amps[:0], data[:whole], f.Channels, f.BitsPerSample, w.p.ByteOrder())
	if len(w.amps) > 0 {
		w.tap.AddSamples(w.amps)
	}

	rest := data[whole:]
	w.partial = append(w.partial[:0], rest...)
}

// Flush pushes buffered bytes to the file.
func (w *Writer) Flush() error {
	if w.closed || w.bw == nil {
		return nil
	}

	if err := w.bw.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	return nil
}

// Close flushes, detaches the writer and finalizes the container. It is safe
// to call more than once.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}

	err := w.Flush()
	w.closed = true
	w.p.detach(w)

	if w.finalize != nil {
		err = multierr.Append(err, w.finalize())
	}

	return err
}
