// SPDX-License-Identifier: EPL-2.0

package cuesheet

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `REM GENRE Field
REM DATE 2024
PERFORMER "Someone"
TITLE "Morning session"
FILE "take.mp3" MP3
  TRACK 01 AUDIO
    TITLE "intro"
    INDEX 01 00:00:00
  TRACK 02 AUDIO
    TITLE "verse"
    FLAGS DCP
    INDEX 00 00:59:70
    INDEX 01 01:00:00
  TRACK 03 AUDIO
    INDEX 01 02:30:37
`

func TestParse(t *testing.T) {
	t.Parallel()

	s, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, "Morning session", s.Title)
	assert.Equal(t, "Someone", s.Performer)
	assert.Equal(t, "take.mp3", s.File)
	assert.Equal(t, "MP3", s.FileType)
	require.Len(t, s.Tracks, 3)

	assert.Equal(t, "intro", s.Tracks[0].Title)
	assert.Equal(t, "verse", s.Tracks[1].Title)
	assert.Empty(t, s.Tracks[2].Title)

	start, ok := s.Tracks[1].Start()
	require.True(t, ok)
	assert.Equal(t, int64(60*75), start)

	start, ok = s.Tracks[2].Start()
	require.True(t, ok)
	assert.Equal(t, int64(150*75+37), start)
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"unknown command":    "BOGUS 1\n",
		"index before track": "INDEX 01 00:00:00\n",
		"bad msf":            "TRACK 01 AUDIO\nINDEX 01 00:61:00\n",
		"cd frame overflow":  "TRACK 01 AUDIO\nINDEX 01 00:00:75\n",
		"zero track":         "TRACK 00 AUDIO\n",
		"out of order":       "TRACK 02 AUDIO\nTRACK 01 AUDIO\n",
		"unterminated":       "TITLE \"abc\n",
		"binary":             "TITLE \x00\x01\n",
	}

	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse(strings.NewReader(input))
			if !errors.Is(err, ErrSyntax) {
				t.Errorf("Parse() error = %v, want ErrSyntax", err)
			}
		})
	}
}

func TestParse_Windows1252(t *testing.T) {
	t.Parallel()

	// 0xE9 is é in Windows-1252 and invalid on its own in UTF-8
	input := []byte("TITLE \"caf\xe9\"\n")

	s, err := Parse(bytes.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, "café", s.Title)
}

func TestParse_BOM(t *testing.T) {
	t.Parallel()

	s, err := Parse(strings.NewReader("\xef\xbb\xbfTITLE x\n"))
	require.NoError(t, err)
	assert.Equal(t, "x", s.Title)
}

func TestWriteToParseRoundTrip(t *testing.T) {
	t.Parallel()

	in := &Sheet{
		Title:    "say 'hi'",
		File:     "take.mp3",
		FileType: "MP3",
		Tracks: []Track{
			{Number: 1, Title: "a", Indexes: []Index{{Number: 1, Frames: 0}}},
			{Number: 2, Title: "b", Indexes: []Index{{Number: 1, Frames: 75*61 + 3}}},
		},
	}

	var buf bytes.Buffer
	n, err := in.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.Contains(t, buf.String(), "INDEX 01 01:01:03")

	out, err := Parse(&buf)
	require.NoError(t, err)
	assert.Equal(t, "say 'hi'", out.Title)
	require.Len(t, out.Tracks, 2)
	assert.Equal(t, "AUDIO", out.Tracks[1].Type)

	start, _ := out.Tracks[1].Start()
	assert.Equal(t, int64(75*61+3), start)
}

func TestWriteTo_RejectsUnquotableText(t *testing.T) {
	t.Parallel()

	for _, bad := range []string{"line one\nline two", "cr\rhere", `say "hi"`} {
		sheet := &Sheet{
			Title:  "ok",
			Tracks: []Track{{Number: 1, Title: bad, Indexes: []Index{{Number: 1}}}},
		}

		var buf bytes.Buffer
		_, err := sheet.WriteTo(&buf)
		require.ErrorIs(t, err, ErrText, bad)
		assert.Zero(t, buf.Len(), "nothing written for %q", bad)

		require.ErrorIs(t, CheckText(bad), ErrText)
	}

	require.NoError(t, CheckText("tabs\tand 'single' quotes are fine"))
}

func TestMSF(t *testing.T) {
	t.Parallel()

	for _, frames := range []int64{0, 1, 74, 75, 4499, 4500, 75 * 60 * 120} {
		got, err := ParseMSF(FormatMSF(frames))
		require.NoError(t, err)
		assert.Equal(t, frames, got)
	}

	_, err := ParseMSF("1:2")
	assert.ErrorIs(t, err, ErrMSF)
}

func TestFrameConversion(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(44100), FramesToSamples(75, 44100))
	assert.Equal(t, int64(588), FramesToSamples(1, 44100))
	// 1/75 s at 48 kHz is 640 samples exactly; at 22050 it is 294
	assert.Equal(t, int64(640), FramesToSamples(1, 48000))
	assert.Equal(t, int64(294), FramesToSamples(1, 22050))

	assert.Equal(t, int64(75), SamplesToFrames(44100, 44100))
	assert.Equal(t, int64(0), SamplesToFrames(587, 44100))

	rate := 44100
	tolerance := int64(rate / FramesPerSecond)
	for _, s := range []int64{0, 1, 587, 588, 589, 12345, 44100*90 + 17} {
		back := FramesToSamples(SamplesToFrames(s, rate), rate)
		diff := s - back
		if diff < 0 {
			diff = -diff
		}
		assert.LessOrEqual(t, diff, tolerance, "sample %d came back as %d", s, back)
	}
}
