// SPDX-License-Identifier: EPL-2.0

// Package convert renders a frame window of one container into the payload
// of another, resampling and mixing down to the target format on the way.
//
// The pipeline works on interleaved float32 samples in [-1, 1]:
//
//	container reader -> PCMSource -> Resampler -> MonoMixer -> writer
//
// Stages that would not change anything are left out.
package convert

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ik5/audcue/audio"
	"github.com/ik5/audcue/utils"
)

var ErrInvalidDstSize = errors.New("dst size must be multiple of channels")

// Source is a pull source of interleaved float32 samples.
type Source interface {
	SampleRate() int
	Channels() int
	// ReadSamples fills dst with whole frames and returns the number of
	// values written. It returns io.EOF when the source is drained.
	ReadSamples(dst []float32) (int, error)
}

// PCMSource decodes the raw payload bytes of an opened audio.Reader.
type PCMSource struct {
	r     audio.Reader
	f     audio.Format
	order binary.ByteOrder
	width int
	buf   []byte
}

var _ Source = (*PCMSource)(nil)

// NewPCMSource reads r, whose bytes are laid out as f in order.
func NewPCMSource(r audio.Reader, f audio.Format, order binary.ByteOrder) *PCMSource {
	return &PCMSource{
		r:     r,
		f:     f,
		order: order,
		width: (f.BitsPerSample + 7) / 8,
	}
}

func (s *PCMSource) SampleRate() int { return s.f.SampleRate }
func (s *PCMSource) Channels() int   { return s.f.Channels }

func (s *PCMSource) ReadSamples(dst []float32) (int, error) {
	frames := len(dst) / s.f.Channels
	if frames == 0 {
		return 0, nil
	}

	need := frames * s.f.FrameSize()
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	buf := s.buf[:need]

	n, err := s.r.PCMBuffer(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("read pcm: %w", err)
	}

	n -= n % s.f.FrameSize()
	samples := n / s.width
	for i := range samples {
		dst[i] = utils.SampleToFloat32(buf[i*s.width:], s.f.BitsPerSample, s.order)
	}

	return samples, err
}
