// SPDX-License-Identifier: EPL-2.0

package convert

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"go.uber.org/multierr"

	"github.com/ik5/audcue/audio"
	"github.com/ik5/audcue/cue"
)

const bufFrames = 4096

// byteOrderer is implemented by containers whose payload is not
// little-endian.
type byteOrderer interface {
	ByteOrder() binary.ByteOrder
}

func byteOrder(c audio.Container) binary.ByteOrder {
	if o, ok := c.(byteOrderer); ok {
		return o.ByteOrder()
	}

	return binary.LittleEndian
}

func formatOf(c audio.Container) audio.Format {
	return audio.Format{
		SampleRate:    c.SampleRate(),
		Channels:      c.Channels(),
		BitsPerSample: c.BitsPerSample(),
	}
}

// Pipeline returns the conversion of r, laid out as src, to dst's rate and
// channel count. dst must have one channel or as many as src.
func Pipeline(r audio.Reader, src audio.Format, order binary.ByteOrder, dst audio.Format) (Source, error) {
	if dst.Channels != 1 && dst.Channels != src.Channels {
		return nil, fmt.Errorf("%w: cannot convert %d channels to %d", audio.ErrUnsupportedLayout, src.Channels, dst.Channels)
	}

	var s Source = NewPCMSource(r, src, order)
	if src.SampleRate != dst.SampleRate {
		s = NewResampler(s, dst.SampleRate)
	}
	if dst.Channels == 1 && src.Channels > 1 {
		s = NewMonoMixer(s)
	}

	return s, nil
}

// quantize scales v in [-1, 1] to a signed integer of bits width.
func quantize(v float32, bits int) int {
	v = min(max(v, -1), 1)
	peak := int64(1)<<(bits-1) - 1

	return int(float64(v) * float64(peak))
}

// Window replaces the payload of dst with frames [start, end] of src,
// converted to dst's format, and replaces the cues of dst with the cues of
// src inside the window. A negative end selects the end of src. Closing the
// writer finalizes dst. It returns the number of frames written.
func Window(src, dst audio.Container, start, end int64) (int64, error) {
	sf, df := formatOf(src), formatOf(dst)

	last := end
	if total := src.TotalFrames(); last < 0 || last > total {
		last = total
	}

	r, err := src.NewReader(start, end)
	if err != nil {
		return 0, err
	}
	if err := r.Open(); err != nil {
		return 0, err
	}
	defer r.Release()

	s, err := Pipeline(r, sf, byteOrder(src), df)
	if err != nil {
		return 0, err
	}

	var cues []cue.Cue
	for _, q := range src.Cues() {
		if q.Location < start || q.Location > last {
			continue
		}
		at := (q.Location - start) * int64(df.SampleRate) / int64(sf.SampleRate)
		cues = append(cues, cue.Cue{Location: at, Label: q.Label})
	}

	// dst is untouched until its writer is open
	w, err := dst.NewWriter(false, true, audio.WriterConfig{})
	if err != nil {
		return 0, err
	}

	dst.Metadata().Replace(nil)
	for _, q := range cues {
		if err := dst.AddCue(q.Location, q.Label); err != nil {
			return 0, multierr.Append(err, w.Close())
		}
	}

	written, err := pump(s, w, df)

	return written, multierr.Append(err, w.Close())
}

func pump(s Source, w audio.Writer, f audio.Format) (int64, error) {
	fbuf := make([]float32, bufFrames*f.Channels)
	ibuf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: f.Channels, SampleRate: f.SampleRate},
		Data:           make([]int, 0, len(fbuf)),
		SourceBitDepth: f.BitsPerSample,
	}

	var frames int64
	for {
		n, err := s.ReadSamples(fbuf)
		if n > 0 {
			ibuf.Data = ibuf.Data[:n]
			for i, v := range fbuf[:n] {
				ibuf.Data[i] = quantize(v, f.BitsPerSample)
			}
			if werr := w.WriteSamples(ibuf); werr != nil {
				return frames, werr
			}
			frames += int64(n / f.Channels)
		}

		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
	}
}
