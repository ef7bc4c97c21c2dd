// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/ik5/audcue/audio"
	"github.com/ik5/audcue/cue"
	"github.com/ik5/audcue/internal/pcmio"
)

const cuePointLen = 24

type cuePoint struct {
	id     uint32
	offset uint32
}

// parseCuePoints decodes a "cue " chunk body. The sample offset of each point
// is taken as its frame position.
func parseCuePoints(b []byte) ([]cuePoint, error) {
	if len(b) < 4 {
		return nil, fmt.Errorf("%w: short cue chunk", audio.ErrMalformedContainer)
	}

	n := binary.LittleEndian.Uint32(b[0:4])
	if uint64(n)*cuePointLen > uint64(len(b)-4) {
		return nil, fmt.Errorf("%w: cue chunk declares %d points in %d bytes", audio.ErrMalformedContainer, n, len(b))
	}

	points := make([]cuePoint, 0, n)
	for i := range int(n) {
		p := b[4+i*cuePointLen:]
		points = append(points, cuePoint{
			id:     binary.LittleEndian.Uint32(p[0:4]),
			offset: binary.LittleEndian.Uint32(p[20:24]),
		})
	}

	return points, nil
}

// subchunks walks the sub-chunks of a LIST body following its 4-byte type.
func subchunks(list []byte, fn func(id string, body []byte)) {
	b := list[4:]
	for len(b) >= pcmio.ChunkHeaderLen {
		id := string(b[0:4])
		size := int(binary.LittleEndian.Uint32(b[4:8]))
		b = b[pcmio.ChunkHeaderLen:]
		if size > len(b) {
			return
		}

		fn(id, b[:size])

		b = b[min(size+size&1, len(b)):]
	}
}

// text decodes a NUL-terminated string. Bytes that are not UTF-8 are read as
// Windows-1252.
func text(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	if utf8.Valid(b) {
		return string(b)
	}

	s, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}

	return string(s)
}

// parseLabels collects labl and note texts of an adtl list by cue id. A labl
// wins over a note for the same id.
func parseLabels(list []byte, labels map[uint32]string) {
	notes := make(map[uint32]string)

	subchunks(list, func(id string, body []byte) {
		if len(body) < 4 {
			return
		}
		cueID := binary.LittleEndian.Uint32(body[0:4])

		switch id {
		case "labl":
			labels[cueID] = text(body[4:])
		case "note":
			notes[cueID] = text(body[4:])
		}
	})

	for id, n := range notes {
		if _, ok := labels[id]; !ok {
			labels[id] = n
		}
	}
}

type infoEntry struct {
	id   string
	body []byte
}

// parseInfo keeps the entries of an INFO list and returns its INAM title.
func (c *Container) parseInfo(list []byte) string {
	var title string
	subchunks(list, func(id string, body []byte) {
		if id == "INAM" {
			title = text(body)
			return
		}
		c.info = append(c.info, infoEntry{id: id, body: bytes.Clone(body)})
	})

	return title
}

// appendInfo appends a LIST/INFO chunk holding entries and, when set, title
// as INAM. Nothing is appended when both are empty.
func appendInfo(dst []byte, entries []infoEntry, title string) []byte {
	if len(entries) == 0 && title == "" {
		return dst
	}

	le := binary.LittleEndian
	list := []byte("INFO")
	if title != "" {
		list = pcmio.AppendChunk(list, "INAM", le, append([]byte(title), 0))
	}
	for _, e := range entries {
		list = pcmio.AppendChunk(list, e.id, le, e.body)
	}

	return pcmio.AppendChunk(dst, "LIST", le, list)
}

func buildCues(points []cuePoint, labels map[uint32]string) []cue.Cue {
	cues := make([]cue.Cue, 0, len(points))
	for _, p := range points {
		cues = append(cues, cue.Cue{Location: int64(p.offset), Label: labels[p.id]})
	}

	return cues
}

// checkText rejects text that a NUL-terminated chunk cannot carry.
func checkText(s string) error {
	if i := strings.IndexByte(s, 0); i >= 0 {
		return fmt.Errorf("%w: NUL at byte %d of %q", audio.ErrInvalidLabel, i, s)
	}

	return nil
}

// appendMarkers appends a "cue " chunk and, when any cue has a label, a
// LIST/adtl chunk of labl entries. Cue ids are 1-based in location order.
func appendMarkers(dst []byte, cues []cue.Cue) ([]byte, error) {
	if len(cues) == 0 {
		return dst, nil
	}

	le := binary.LittleEndian

	points := le.AppendUint32(make([]byte, 0, 4+len(cues)*cuePointLen), uint32(len(cues)))
	adtl := []byte("adtl")

	for i, c := range cues {
		if c.Location < 0 || c.Location > math.MaxUint32 {
			return nil, fmt.Errorf("%w: frame %d", audio.ErrCueOutOfRange, c.Location)
		}
		if err := checkText(c.Label); err != nil {
			return nil, err
		}

		id := uint32(i + 1)
		pos := uint32(c.Location)

		points = le.AppendUint32(points, id)
		points = le.AppendUint32(points, pos) // play order position
		points = append(points, "data"...)
		points = le.AppendUint32(points, 0) // chunk start
		points = le.AppendUint32(points, 0) // block start
		points = le.AppendUint32(points, pos)

		if c.Label != "" {
			body := le.AppendUint32(nil, id)
			body = append(body, c.Label...)
			body = append(body, 0)
			adtl = pcmio.AppendChunk(adtl, "labl", le, body)
		}
	}

	dst = pcmio.AppendChunk(dst, "cue ", le, points)
	if len(adtl) > 4 {
		dst = pcmio.AppendChunk(dst, "LIST", le, adtl)
	}

	return dst, nil
}
