// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/ik5/audcue/audio"
	"github.com/ik5/audcue/cue"
)

func TestParseFormat(t *testing.T) {
	t.Parallel()

	ext := make([]byte, 40)
	copy(ext, header(audio.Format{SampleRate: 48000, Channels: 2, BitsPerSample: 24}, 0)[20:36])
	binary.LittleEndian.PutUint16(ext[0:2], formatExtensible)
	binary.LittleEndian.PutUint16(ext[24:26], formatPCM)

	extFloat := make([]byte, 40)
	copy(extFloat, ext)
	binary.LittleEndian.PutUint16(extFloat[24:26], 3)

	badAlign := header(mono16, 0)[20:36]
	binary.LittleEndian.PutUint16(badAlign[12:14], 3)

	tests := []struct {
		name    string
		body    []byte
		want    audio.Format
		wantErr error
	}{
		{"pcm", header(mono16, 0)[20:36], mono16, nil},
		{"extensible", ext, audio.Format{SampleRate: 48000, Channels: 2, BitsPerSample: 24}, nil},
		{"extensible float", extFloat, audio.Format{}, ErrOnlyPCMSupported},
		{"short", make([]byte, 14), audio.Format{}, audio.ErrMalformedContainer},
		{"short extensible", ext[:18], audio.Format{}, audio.ErrMalformedContainer},
		{"block align", badAlign, audio.Format{}, ErrUnsupportedWavLayout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := parseFormat(tt.body)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("parseFormat() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseFormat() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("parseFormat() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMarkers_RoundTrip(t *testing.T) {
	t.Parallel()

	cues := []cue.Cue{{Location: 0, Label: "a"}, {Location: 10}, {Location: 99, Label: "odd"}}

	raw, err := appendMarkers(nil, cues)
	if err != nil {
		t.Fatalf("appendMarkers() error = %v", err)
	}

	if string(raw[0:4]) != "cue " {
		t.Fatalf("first chunk = %q, want cue", raw[0:4])
	}
	size := int(binary.LittleEndian.Uint32(raw[4:8]))
	points, err := parseCuePoints(raw[8 : 8+size])
	if err != nil {
		t.Fatalf("parseCuePoints() error = %v", err)
	}

	list := raw[8+size:]
	if string(list[0:4]) != "LIST" || string(list[8:12]) != "adtl" {
		t.Fatalf("second chunk = %q/%q, want LIST/adtl", list[0:4], list[8:12])
	}
	labels := make(map[uint32]string)
	parseLabels(list[8:], labels)

	got := buildCues(points, labels)
	if len(got) != len(cues) {
		t.Fatalf("got %d cues, want %d", len(got), len(cues))
	}
	for i := range cues {
		if got[i] != cues[i] {
			t.Errorf("cue %d = %+v, want %+v", i, got[i], cues[i])
		}
	}
}

func TestMarkers_NoLabelsNoList(t *testing.T) {
	t.Parallel()

	raw, err := appendMarkers(nil, []cue.Cue{{Location: 5}})
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != 8+4+cuePointLen {
		t.Errorf("len = %d, want only a cue chunk", len(raw))
	}

	raw, err = appendMarkers(nil, nil)
	if err != nil || len(raw) != 0 {
		t.Errorf("appendMarkers(nil) = %d bytes, %v", len(raw), err)
	}
}

func TestParseCuePoints_Truncated(t *testing.T) {
	t.Parallel()

	body := binary.LittleEndian.AppendUint32(nil, 2)
	body = append(body, make([]byte, cuePointLen)...)

	if _, err := parseCuePoints(body); !errors.Is(err, audio.ErrMalformedContainer) {
		t.Errorf("parseCuePoints() error = %v, want ErrMalformedContainer", err)
	}
	if _, err := parseCuePoints([]byte{1}); !errors.Is(err, audio.ErrMalformedContainer) {
		t.Errorf("parseCuePoints() error = %v, want ErrMalformedContainer", err)
	}
}

func TestParseLabels_NoteFallback(t *testing.T) {
	t.Parallel()

	le := binary.LittleEndian
	list := []byte("adtl")
	list = append(list, "note"...)
	list = le.AppendUint32(list, 7)
	list = le.AppendUint32(list, 1)
	list = append(list, "nb\x00\x00"...)
	list = append(list, "labl"...)
	list = le.AppendUint32(list, 6)
	list = le.AppendUint32(list, 2)
	list = append(list, "x\x00"...)
	list = append(list, "note"...)
	list = le.AppendUint32(list, 6)
	list = le.AppendUint32(list, 2)
	list = append(list, "y\x00"...)

	labels := make(map[uint32]string)
	parseLabels(list, labels)

	if labels[1] != "nb" {
		t.Errorf("labels[1] = %q, want nb", labels[1])
	}
	if labels[2] != "x" {
		t.Errorf("labels[2] = %q, want labl text x", labels[2])
	}
}

func TestText_Windows1252(t *testing.T) {
	t.Parallel()

	if got := text([]byte("Caf\xe9\x00junk")); got != "Café" {
		t.Errorf("text() = %q, want Café", got)
	}
	if got := text([]byte("Café")); got != "Café" {
		t.Errorf("text() = %q, want Café", got)
	}
}
