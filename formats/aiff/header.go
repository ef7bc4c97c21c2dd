// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ik5/audcue/audio"
)

const (
	// HeaderLen is the size of the FORM, COMM and SSND headers written by Create.
	HeaderLen = 54

	commLen     = 18
	ssndHeadLen = 8 // offset + blockSize
)

// decodeExtended reads an IEEE 754 80-bit extended float.
func decodeExtended(b []byte) float64 {
	se := binary.BigEndian.Uint16(b[0:2])
	mant := binary.BigEndian.Uint64(b[2:10])

	exp := int(se & 0x7fff)
	if exp == 0 && mant == 0 {
		return 0
	}

	v := math.Ldexp(float64(mant), exp-16383-63)
	if se&0x8000 != 0 {
		v = -v
	}

	return v
}

// putExtended stores a non-negative v as an 80-bit extended float.
func putExtended(b []byte, v float64) {
	if v <= 0 {
		clear(b[:10])
		return
	}

	frac, exp := math.Frexp(v)
	binary.BigEndian.PutUint16(b[0:2], uint16(exp-1+16383))
	binary.BigEndian.PutUint64(b[2:10], uint64(math.Ldexp(frac, 64)))
}

type common struct {
	format audio.Format
	frames uint32
	order  binary.ByteOrder
}

// parseCommon decodes a COMM body; aifc selects the extended AIFF-C layout.
func parseCommon(b []byte, aifc bool) (common, error) {
	if len(b) < commLen {
		return common{}, fmt.Errorf("%w: COMM chunk is %d bytes", ErrNoCommonChunk, len(b))
	}

	c := common{
		format: audio.Format{
			Channels:      int(binary.BigEndian.Uint16(b[0:2])),
			BitsPerSample: int(binary.BigEndian.Uint16(b[6:8])),
			SampleRate:    int(math.Round(decodeExtended(b[8:18]))),
		},
		frames: binary.BigEndian.Uint32(b[2:6]),
		order:  binary.BigEndian,
	}

	if aifc {
		if len(b) < commLen+4 {
			return common{}, fmt.Errorf("%w: AIFC COMM chunk without compression type", ErrNoCommonChunk)
		}

		switch ct := string(b[18:22]); ct {
		case "NONE", "twos":
		case "sowt":
			c.order = binary.LittleEndian
		default:
			return common{}, fmt.Errorf("%w: compression %q", ErrOnlyPCMSupported, ct)
		}
	}

	if err := validFormat(c.format); err != nil {
		return common{}, err
	}

	return c, nil
}

// validFormat rejects what AIFF stores differently from WAV: 8-bit samples
// are signed here, so only 16, 24 and 32 bits are handled.
func validFormat(f audio.Format) error {
	if !f.Valid() || f.BitsPerSample == 8 {
		return fmt.Errorf("%w: %d ch, %d Hz, %d bits", ErrUnsupportedAiffLayout, f.Channels, f.SampleRate, f.BitsPerSample)
	}

	return nil
}

// header builds FORM, COMM and an empty SSND header.
func header(f audio.Format) []byte {
	h := make([]byte, HeaderLen)

	// FORM header (12 bytes)
	copy(h[0:4], "FORM")
	binary.BigEndian.PutUint32(h[4:8], HeaderLen-8)
	copy(h[8:12], "AIFF")

	// COMM chunk (26 bytes)
	copy(h[12:16], "COMM")
	binary.BigEndian.PutUint32(h[16:20], commLen)
	binary.BigEndian.PutUint16(h[20:22], uint16(f.Channels))
	binary.BigEndian.PutUint32(h[22:26], 0) // numSampleFrames
	binary.BigEndian.PutUint16(h[26:28], uint16(f.BitsPerSample))
	putExtended(h[28:38], float64(f.SampleRate))

	// SSND chunk header (16 bytes)
	copy(h[38:42], "SSND")
	binary.BigEndian.PutUint32(h[42:46], ssndHeadLen)
	binary.BigEndian.PutUint32(h[46:50], 0) // offset
	binary.BigEndian.PutUint32(h[50:54], 0) // blockSize

	return h
}
