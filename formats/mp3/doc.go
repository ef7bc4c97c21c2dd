// SPDX-License-Identifier: EPL-2.0

// Package mp3 opens MP3 files as read-only cue containers.
//
// This package uses github.com/hajimehoshi/go-mp3 to decode MP3 files and
// internal/compressed for random access and the .cue sidecar.
//
// # Output Format
//
// Every MP3 container reports the fixed compressed-stream format:
//   - Sample format: 16-bit little-endian PCM
//   - Channels: 1 (the stereo output of go-mp3 is averaged)
//   - Sample rate: 44.1kHz; other rates are rejected with
//     audio.ErrUnsupportedLayout
//
// # Cues
//
// Cues are kept in a sidecar next to the audio file, e.g. "live.mp3" keeps
// them in "live.cue":
//
//	c, err := mp3.Open("live.mp3", audio.Options{})
//	if err != nil {
//	    // Handle error
//	}
//	defer c.Close()
//
//	_ = c.AddCue(44100*90, "encore")
//	err = c.Update() // rewrites live.cue
//
// When the sidecar has no TITLE, the ID3v2 title of the file is used.
//
// # Limitations
//
// Note:
//   - MP3 writing is not supported (Create and NewWriter fail)
//   - Only one reader may be open per container
//   - Sidecar positions are CD frames, so cue locations survive a round trip
//     to within 1/75 s
package mp3
