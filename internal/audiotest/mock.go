// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/ik5/audcue/utils"
)

// ErrInjected is returned by a MockSource after FailAfter frames.
var ErrInjected = errors.New("audiotest: injected decode failure")

// MockSource is a seekable generator of interleaved int16 frames. It stands
// in for compressed-format decoders in tests.
type MockSource struct {
	sampleRate   int
	channels     int
	totalSamples int // Total samples to generate (per channel)
	generated    int // Samples generated so far (per channel)
	waveform     func(sample int, channel int) float32
	exact        func(sample int) int16

	// FailAfter makes reads fail once this many frames were produced; < 0 disables.
	FailAfter int
	// FailSeek makes every SeekFrame fail.
	FailSeek bool
	Seeks    int
}

// NewMockSource creates a new mock audio source.
// totalSamples is the total number of samples per channel to generate.
// waveform is a function that generates sample values given sample index and channel.
func NewMockSource(sampleRate, channels, totalSamples int, waveform func(sample int, channel int) float32) *MockSource {
	return &MockSource{
		sampleRate:   sampleRate,
		channels:     channels,
		totalSamples: totalSamples,
		generated:    0,
		waveform:     waveform,
		FailAfter:    -1,
	}
}

// NewSilentSource creates a mock source that generates silence (all zeros).
func NewSilentSource(sampleRate, channels, totalSamples int) *MockSource {
	return NewMockSource(sampleRate, channels, totalSamples, func(sample int, channel int) float32 {
		return 0.0
	})
}

// NewRampSource produces RampValue(i) on every channel of frame i, so a
// test can tell which frame a sample came from.
func NewRampSource(sampleRate, channels, totalSamples int) *MockSource {
	m := NewMockSource(sampleRate, channels, totalSamples, nil)
	m.exact = RampValue

	return m
}

// RampValue is the int16 sample of frame i in ramp fixtures.
func RampValue(i int) int16 {
	return int16(i%20000 - 10000)
}

func (m *MockSource) SampleRate() int { return m.sampleRate }
func (m *MockSource) Channels() int   { return m.channels }
func (m *MockSource) Frames() int64   { return int64(m.totalSamples) }
func (m *MockSource) Close() error    { return nil }

// Reset resets the generated sample counter to allow re-reading
func (m *MockSource) Reset() {
	m.generated = 0
}

// SeekFrame positions the generator at frame.
func (m *MockSource) SeekFrame(frame int64) error {
	m.Seeks++
	if m.FailSeek {
		return ErrInjected
	}
	if frame < 0 || frame > int64(m.totalSamples) {
		return errors.New("audiotest: seek out of range")
	}

	m.generated = int(frame)

	return nil
}

// ReadInt16 fills dst with whole interleaved frames and returns the number
// of int16 values written.
func (m *MockSource) ReadInt16(dst []int16) (int, error) {
	if m.FailAfter >= 0 && m.generated >= m.FailAfter {
		return 0, ErrInjected
	}
	if m.generated >= m.totalSamples {
		return 0, io.EOF
	}

	// Calculate how many frames we can write
	framesRequested := len(dst) / m.channels
	framesAvailable := m.totalSamples - m.generated
	framesToWrite := min(framesRequested, framesAvailable)
	if m.FailAfter >= 0 {
		framesToWrite = min(framesToWrite, m.FailAfter-m.generated)
	}

	// Generate samples
	for frame := range framesToWrite {
		sampleIndex := m.generated + frame
		for ch := range m.channels {
			if m.exact != nil {
				dst[frame*m.channels+ch] = m.exact(sampleIndex)
				continue
			}
			dst[frame*m.channels+ch] = utils.Float32ToInt16(m.waveform(sampleIndex, ch))
		}
	}

	m.generated += framesToWrite

	return framesToWrite * m.channels, nil
}

// PCM16Ramp returns n mono 16-bit little-endian samples built from RampValue.
func PCM16Ramp(n int) []byte {
	out := make([]byte, 0, n*2)
	for i := range n {
		out = binary.LittleEndian.AppendUint16(out, uint16(RampValue(i)))
	}

	return out
}
