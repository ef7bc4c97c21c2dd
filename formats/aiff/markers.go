// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/ik5/audcue/audio"
	"github.com/ik5/audcue/cue"
	"github.com/ik5/audcue/internal/pcmio"
)

const maxMarkers = math.MaxInt16

// text decodes a chunk string. Bytes that are not UTF-8 are read as
// Windows-1252; Mac Roman files decode mostly alike for ASCII names.
func text(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}

	s, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}

	return string(s)
}

// parseMarkers decodes a MARK body into cues.
func parseMarkers(b []byte) ([]cue.Cue, error) {
	if len(b) < 2 {
		return nil, fmt.Errorf("%w: short MARK chunk", audio.ErrMalformedContainer)
	}

	n := int(binary.BigEndian.Uint16(b[0:2]))
	b = b[2:]

	cues := make([]cue.Cue, 0, n)
	for i := range n {
		if len(b) < 7 {
			return nil, fmt.Errorf("%w: MARK entry %d truncated", audio.ErrMalformedContainer, i)
		}

		pos := binary.BigEndian.Uint32(b[2:6])
		l := int(b[6])
		// pstring: count byte plus text, padded to an even total
		size := 1 + l + (1+l)&1
		if len(b) < 7+l {
			return nil, fmt.Errorf("%w: MARK entry %d name truncated", audio.ErrMalformedContainer, i)
		}

		cues = append(cues, cue.Cue{Location: int64(pos), Label: text(b[7 : 7+l])})
		b = b[min(6+size, len(b)):]
	}

	return cues, nil
}

// pstringLabel cuts label to 255 bytes without splitting a rune.
func pstringLabel(label string) string {
	if len(label) <= 255 {
		return label
	}

	s := label[:255]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}

	return s
}

// appendMarkers appends a MARK chunk; marker ids are 1-based in location
// order. Nothing is appended for no cues.
func appendMarkers(dst []byte, cues []cue.Cue) ([]byte, error) {
	if len(cues) == 0 {
		return dst, nil
	}
	if len(cues) > maxMarkers {
		return nil, fmt.Errorf("%w: %d markers, at most %d", audio.ErrCueOutOfRange, len(cues), maxMarkers)
	}

	be := binary.BigEndian
	body := be.AppendUint16(nil, uint16(len(cues)))

	for i, c := range cues {
		if c.Location < 0 || c.Location > math.MaxUint32 {
			return nil, fmt.Errorf("%w: frame %d", audio.ErrCueOutOfRange, c.Location)
		}

		name := pstringLabel(c.Label)

		body = be.AppendUint16(body, uint16(i+1))
		body = be.AppendUint32(body, uint32(c.Location))
		body = append(body, byte(len(name)))
		body = append(body, name...)
		if (1+len(name))%2 == 1 {
			body = append(body, 0)
		}
	}

	return pcmio.AppendChunk(dst, "MARK", be, body), nil
}

// appendName appends a NAME chunk for a non-empty title.
func appendName(dst []byte, title string) []byte {
	if title == "" {
		return dst
	}

	return pcmio.AppendChunk(dst, "NAME", binary.BigEndian, []byte(title))
}
