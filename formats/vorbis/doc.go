// SPDX-License-Identifier: EPL-2.0

// Package vorbis opens Ogg Vorbis files as read-only cue containers.
//
// This package uses github.com/jfreymuth/oggvorbis to decode Ogg Vorbis files.
// Vorbis is a free, open-source lossy audio compression format.
//
// Containers report 16-bit mono at 44.1kHz: multi-channel streams are
// averaged down to one channel and other sample rates are rejected. Cues are
// stored in a .cue sidecar next to the file and its title falls back to the
// TITLE comment of the stream:
//
//	c, err := vorbis.Open("drive.ogg", audio.Options{})
//	if err != nil {
//	    // Handle error
//	}
//	defer c.Close()
//
//	fmt.Println(c.Metadata().Title())
package vorbis
