// SPDX-License-Identifier: EPL-2.0

package convert

import (
	"errors"
	"fmt"
	"io"

	"github.com/ik5/audcue/utils"
)

// Resampler streams src at another sample rate using cubic interpolation.
// Works on interleaved samples; preserves channel count.
// A one-pole low-pass filter runs on the input when downsampling.
type Resampler struct {
	src      Source
	dstRate  int
	ratio    float64 // source frames per output frame
	channels int

	// frames[0] = t-1, frames[1] = t0, frames[2] = t+1, frames[3] = t+2
	// Missing frames at either edge repeat their neighbour and are marked
	// false in hasFrame.
	frames   [4][]float32
	hasFrame [4]bool
	primed   bool

	// position between frames[1] and frames[2], in source frames
	pos float64

	srcBuf []float32
	eof    bool

	useFilter   bool
	filterInit  bool
	filterAlpha float32
	filterState []float32
}

var _ Source = (*Resampler)(nil)

func NewResampler(src Source, dstRate int) *Resampler {
	channels := src.Channels()
	ratio := float64(src.SampleRate()) / float64(dstRate)

	r := &Resampler{
		src:         src,
		dstRate:     dstRate,
		ratio:       ratio,
		channels:    channels,
		srcBuf:      make([]float32, channels),
		useFilter:   ratio > 1.0,
		filterAlpha: 0.5,
		filterState: make([]float32, channels),
	}

	for i := range r.frames {
		r.frames[i] = make([]float32, channels)
	}

	return r
}

func (r *Resampler) SampleRate() int { return r.dstRate }
func (r *Resampler) Channels() int   { return r.channels }

// readFrame reads the next source frame into dst.
func (r *Resampler) readFrame(dst []float32) (bool, error) {
	if r.eof {
		return false, nil
	}

	n, err := r.src.ReadSamples(r.srcBuf)
	switch {
	case errors.Is(err, io.EOF):
		r.eof = true
	case err != nil:
		return false, fmt.Errorf("resample: %w", err)
	}
	if n < r.channels {
		return false, nil
	}

	copy(dst, r.srcBuf)
	if r.useFilter {
		if !r.filterInit {
			// start at the first sample to avoid a fade-in
			copy(r.filterState, dst)
			r.filterInit = true
		}
		for c := range r.channels {
			// y[n] = alpha * x[n] + (1-alpha) * y[n-1]
			dst[c] = r.filterAlpha*dst[c] + (1-r.filterAlpha)*r.filterState[c]
			r.filterState[c] = dst[c]
		}
	}

	return true, nil
}

// fill reads frames[i]; at end of stream it repeats frames[i-1].
func (r *Resampler) fill(i int) error {
	ok, err := r.readFrame(r.frames[i])
	if err != nil {
		return err
	}
	if !ok {
		copy(r.frames[i], r.frames[i-1])
	}
	r.hasFrame[i] = ok

	return nil
}

func (r *Resampler) prime() error {
	r.primed = true

	ok, err := r.readFrame(r.frames[1])
	if err != nil {
		return err
	}
	if !ok {
		return io.EOF
	}
	copy(r.frames[0], r.frames[1])
	r.hasFrame[1] = true

	if err := r.fill(2); err != nil {
		return err
	}

	return r.fill(3)
}

// advance shifts the window by one source frame.
func (r *Resampler) advance() error {
	oldest := r.frames[0]
	copy(r.frames[:3], r.frames[1:])
	r.frames[3] = oldest
	copy(r.hasFrame[:3], r.hasFrame[1:])

	return r.fill(3)
}

// ReadSamples produces dst samples at the target rate.
// dst length must be a multiple of the channel count.
func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}

	if !r.primed {
		if err := r.prime(); err != nil {
			return 0, err
		}
	}

	written := 0
	want := len(dst) / r.channels

	for written < want {
		for r.pos >= 1.0 {
			r.pos -= 1.0
			if err := r.advance(); err != nil {
				return written * r.channels, err
			}
		}

		// past the last source frame, or between it and nothing
		if !r.hasFrame[1] || (!r.hasFrame[2] && r.pos > 0) {
			break
		}

		off := written * r.channels
		utils.CubicInterpolateFrame(dst[off:off+r.channels], &r.frames, float32(r.pos))

		written++
		r.pos += r.ratio
	}

	if written == 0 && want > 0 {
		return 0, io.EOF
	}

	return written * r.channels, nil
}
