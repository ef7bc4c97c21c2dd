// SPDX-License-Identifier: EPL-2.0

// Package cuesheet reads and writes CUE sheets, the plain-text track lists
// used as marker sidecars for compressed audio.
//
// Positions in a sheet are CD frames (75 per second), written as mm:ss:ff.
// FramesToSamples and SamplesToFrames convert between CD frames and PCM
// sample frames; the conversion loses up to one CD frame of precision.
package cuesheet

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// FramesPerSecond is the CD frame rate used by INDEX positions.
const FramesPerSecond = 75

var (
	ErrSyntax = errors.New("cue sheet syntax error")
	ErrMSF    = errors.New("invalid mm:ss:ff position")
	ErrText   = errors.New("text cannot be quoted in a cue sheet")
)

type Index struct {
	Number int
	Frames int64
}

type Track struct {
	Number    int
	Type      string
	Title     string
	Performer string
	Indexes   []Index
}

// Start returns the INDEX 01 position, falling back to the first index.
func (t Track) Start() (int64, bool) {
	for _, idx := range t.Indexes {
		if idx.Number == 1 {
			return idx.Frames, true
		}
	}

	if len(t.Indexes) > 0 {
		return t.Indexes[0].Frames, true
	}

	return 0, false
}

type Sheet struct {
	Title     string
	Performer string
	File      string
	FileType  string
	Tracks    []Track
}

// FramesToSamples converts CD frames to PCM frames, rounding to nearest.
func FramesToSamples(frames int64, sampleRate int) int64 {
	return (frames*int64(sampleRate)*2 + FramesPerSecond) / (2 * FramesPerSecond)
}

// SamplesToFrames converts PCM frames to whole CD frames, rounding down.
func SamplesToFrames(samples int64, sampleRate int) int64 {
	return samples * FramesPerSecond / int64(sampleRate)
}

// FormatMSF renders CD frames as mm:ss:ff.
func FormatMSF(frames int64) string {
	ff := frames % FramesPerSecond
	secs := frames / FramesPerSecond

	return fmt.Sprintf("%02d:%02d:%02d", secs/60, secs%60, ff)
}

// ParseMSF parses mm:ss:ff into CD frames.
func ParseMSF(s string) (int64, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrMSF, s)
	}

	var v [3]int64
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: %q", ErrMSF, s)
		}
		v[i] = n
	}

	if v[1] >= 60 || v[2] >= FramesPerSecond {
		return 0, fmt.Errorf("%w: %q", ErrMSF, s)
	}

	return (v[0]*60+v[1])*FramesPerSecond + v[2], nil
}

// commands that are valid but carry nothing this package keeps
var ignored = map[string]bool{
	"REM":        true,
	"CATALOG":    true,
	"CDTEXTFILE": true,
	"FLAGS":      true,
	"ISRC":       true,
	"PREGAP":     true,
	"POSTGAP":    true,
	"SONGWRITER": true,
}

func syntaxErr(line int, format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrSyntax, line, fmt.Sprintf(format, args...))
}

// Parse reads a sheet. Input that is not valid UTF-8 is decoded as
// Windows-1252, which is what most legacy rippers emit.
func Parse(r io.Reader) (*Sheet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		data, err = charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSyntax, err)
		}
	}

	sheet := &Sheet{}
	var track *Track

	sc := bufio.NewScanner(bytes.NewReader(data))
	for line := 1; sc.Scan(); line++ {
		fields, err := tokenize(sc.Text())
		if err != nil {
			return nil, syntaxErr(line, "%v", err)
		}
		if len(fields) == 0 {
			continue
		}

		cmd := strings.ToUpper(fields[0])
		args := fields[1:]

		switch {
		case ignored[cmd]:
		case cmd == "TITLE" || cmd == "PERFORMER":
			if len(args) != 1 {
				return nil, syntaxErr(line, "%s takes one value", cmd)
			}
			setText(sheet, track, cmd, args[0])
		case cmd == "FILE":
			if len(args) < 1 || len(args) > 2 {
				return nil, syntaxErr(line, "FILE takes a name and a type")
			}
			sheet.File = args[0]
			if len(args) == 2 {
				sheet.FileType = args[1]
			}
		case cmd == "TRACK":
			if len(args) != 2 {
				return nil, syntaxErr(line, "TRACK takes a number and a type")
			}
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return nil, syntaxErr(line, "bad track number %q", args[0])
			}
			if len(sheet.Tracks) > 0 && n <= sheet.Tracks[len(sheet.Tracks)-1].Number {
				return nil, syntaxErr(line, "track %d out of order", n)
			}
			sheet.Tracks = append(sheet.Tracks, Track{Number: n, Type: args[1]})
			track = &sheet.Tracks[len(sheet.Tracks)-1]
		case cmd == "INDEX":
			if track == nil {
				return nil, syntaxErr(line, "INDEX outside TRACK")
			}
			if len(args) != 2 {
				return nil, syntaxErr(line, "INDEX takes a number and a position")
			}
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 0 || n > 99 {
				return nil, syntaxErr(line, "bad index number %q", args[0])
			}
			frames, err := ParseMSF(args[1])
			if err != nil {
				return nil, syntaxErr(line, "%v", err)
			}
			track.Indexes = append(track.Indexes, Index{Number: n, Frames: frames})
		default:
			return nil, syntaxErr(line, "unknown command %q", fields[0])
		}
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSyntax, err)
	}

	return sheet, nil
}

func setText(s *Sheet, t *Track, cmd, v string) {
	switch {
	case t != nil && cmd == "TITLE":
		t.Title = v
	case t != nil:
		t.Performer = v
	case cmd == "TITLE":
		s.Title = v
	default:
		s.Performer = v
	}
}

// tokenize splits on blanks, honoring double quotes.
func tokenize(line string) ([]string, error) {
	var (
		out   []string
		cur   strings.Builder
		inTok bool
		quote bool
	)

	for _, r := range line {
		switch {
		case r == 0:
			return nil, errors.New("NUL byte")
		case quote && r == '"':
			quote = false
			out = append(out, cur.String())
			cur.Reset()
			inTok = false
		case quote:
			cur.WriteRune(r)
		case r == '"' && !inTok:
			quote = true
		case r == ' ' || r == '\t' || r == '\r':
			if inTok {
				out = append(out, cur.String())
				cur.Reset()
				inTok = false
			}
		default:
			cur.WriteRune(r)
			inTok = true
		}
	}

	if quote {
		return nil, errors.New("unterminated quote")
	}
	if inTok {
		out = append(out, cur.String())
	}

	return out, nil
}

// CheckText reports whether s survives a write and parse round trip as a
// quoted value. Line breaks and double quotes do not.
func CheckText(s string) error {
	if i := strings.IndexAny(s, "\r\n\""); i >= 0 {
		return fmt.Errorf("%w: %q at byte %d", ErrText, s[i], i)
	}

	return nil
}

// Validate runs CheckText over every text field.
func (s *Sheet) Validate() error {
	for _, v := range []string{s.Title, s.Performer, s.File} {
		if err := CheckText(v); err != nil {
			return err
		}
	}
	for _, t := range s.Tracks {
		if err := CheckText(t.Title); err != nil {
			return fmt.Errorf("track %02d: %w", t.Number, err)
		}
		if err := CheckText(t.Performer); err != nil {
			return fmt.Errorf("track %02d: %w", t.Number, err)
		}
	}

	return nil
}

func quoted(s string) string {
	return `"` + s + `"`
}

// WriteTo serializes the sheet with tracks in slice order. Nothing is
// written when Validate fails.
func (s *Sheet) WriteTo(w io.Writer) (int64, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}

	var b strings.Builder

	if s.Performer != "" {
		fmt.Fprintf(&b, "PERFORMER %s\n", quoted(s.Performer))
	}
	if s.Title != "" {
		fmt.Fprintf(&b, "TITLE %s\n", quoted(s.Title))
	}
	if s.File != "" {
		fileType := s.FileType
		if fileType == "" {
			fileType = "WAVE"
		}
		fmt.Fprintf(&b, "FILE %s %s\n", quoted(s.File), fileType)
	}

	for _, t := range s.Tracks {
		trackType := t.Type
		if trackType == "" {
			trackType = "AUDIO"
		}
		fmt.Fprintf(&b, "  TRACK %02d %s\n", t.Number, trackType)
		if t.Title != "" {
			fmt.Fprintf(&b, "    TITLE %s\n", quoted(t.Title))
		}
		if t.Performer != "" {
			fmt.Fprintf(&b, "    PERFORMER %s\n", quoted(t.Performer))
		}
		for _, idx := range t.Indexes {
			fmt.Fprintf(&b, "    INDEX %02d %s\n", idx.Number, FormatMSF(idx.Frames))
		}
	}

	n, err := io.WriteString(w, b.String())
	if err != nil {
		return int64(n), fmt.Errorf("%w", err)
	}

	return int64(n), nil
}
