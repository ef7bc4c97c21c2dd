// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ik5/audcue/audio"
)

const (
	// HeaderLen is the size of the canonical header written by Create.
	HeaderLen = 44

	formatPCM        = 1
	formatExtensible = 0xFFFE
)

// header builds the canonical RIFF/fmt/data header for dataSize payload bytes.
func header(f audio.Format, dataSize uint32) []byte {
	numChannels := uint16(f.Channels)
	bitsPerSample := uint16(f.BitsPerSample)
	blockAlign := uint16(f.FrameSize())
	byteRate := uint32(f.SampleRate) * uint32(blockAlign)
	riffSize := 36 + dataSize + dataSize&1

	// Pre-allocate buffer for entire header (44 bytes)
	header := make([]byte, HeaderLen)

	// RIFF header (12 bytes)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], riffSize)
	copy(header[8:12], "WAVE")

	// fmt chunk (24 bytes)
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(header[20:22], formatPCM)
	binary.LittleEndian.PutUint16(header[22:24], numChannels)
	binary.LittleEndian.PutUint32(header[24:28], uint32(f.SampleRate))
	binary.LittleEndian.PutUint32(header[28:32], byteRate)
	binary.LittleEndian.PutUint16(header[32:34], blockAlign)
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)

	// data chunk header (8 bytes)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], dataSize)

	return header
}

// WritePCM writes a complete WAV stream holding pcm, which must already be
// little-endian interleaved frames of f.
func WritePCM(w io.Writer, f audio.Format, pcm []byte) error {
	if !f.Valid() {
		return fmt.Errorf("%w: %+v", ErrUnsupportedWavLayout, f)
	}
	if len(pcm)%f.FrameSize() != 0 {
		return fmt.Errorf("%w: %d bytes is not a whole number of frames", ErrUnsupportedWavLayout, len(pcm))
	}

	// Write header in one operation
	if _, err := w.Write(header(f, uint32(len(pcm)))); err != nil {
		return fmt.Errorf("%w", err)
	}

	if _, err := w.Write(pcm); err != nil {
		return fmt.Errorf("%w", err)
	}

	if len(pcm)%2 == 1 {
		if _, err := w.Write([]byte{0}); err != nil {
			return fmt.Errorf("%w", err)
		}
	}

	return nil
}

// parseFormat decodes a fmt chunk body.
func parseFormat(b []byte) (audio.Format, error) {
	if len(b) < 16 {
		return audio.Format{}, fmt.Errorf("%w: fmt chunk is %d bytes", audio.ErrMalformedContainer, len(b))
	}

	tag := binary.LittleEndian.Uint16(b[0:2])
	if tag == formatExtensible {
		if len(b) < 40 {
			return audio.Format{}, fmt.Errorf("%w: short WAVE_FORMAT_EXTENSIBLE", audio.ErrMalformedContainer)
		}
		// first two bytes of the sub-format GUID carry the real tag
		tag = binary.LittleEndian.Uint16(b[24:26])
	}
	if tag != formatPCM {
		return audio.Format{}, fmt.Errorf("%w: format tag %#x", ErrOnlyPCMSupported, tag)
	}

	f := audio.Format{
		Channels:      int(binary.LittleEndian.Uint16(b[2:4])),
		SampleRate:    int(binary.LittleEndian.Uint32(b[4:8])),
		BitsPerSample: int(binary.LittleEndian.Uint16(b[14:16])),
	}
	if !f.Valid() {
		return audio.Format{}, fmt.Errorf("%w: %d ch, %d Hz, %d bits", ErrUnsupportedWavLayout, f.Channels, f.SampleRate, f.BitsPerSample)
	}

	if align := int(binary.LittleEndian.Uint16(b[12:14])); align != f.FrameSize() {
		return audio.Format{}, fmt.Errorf("%w: block align %d, expected %d", ErrUnsupportedWavLayout, align, f.FrameSize())
	}

	return f, nil
}
