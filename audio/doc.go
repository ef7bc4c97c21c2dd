// SPDX-License-Identifier: EPL-2.0

// Package audio defines the container model shared by every format.
//
// A Container owns one open file, its PCM format and its cue markers. The
// lossless formats (WAV, AIFF) are read through a memory-mapped Reader and
// appended to by a streaming Writer; the compressed formats (MP3, Ogg
// Vorbis) decode to 16-bit mono and keep their markers in a .cue sidecar.
//
// # Lifecycle
//
// A container is Draft while payload bytes were written since its header
// was last rewritten, and Finalized afterwards:
//
//	c, _ := opener.Create("take.wav", audio.Format{SampleRate: 44100, Channels: 1, BitsPerSample: 16}, audio.Options{})
//	w, _ := c.NewWriter(false, true, audio.WriterConfig{})
//	w.Write(pcm)
//	c.AddCue(22050, "half")
//	w.Close() // rewrites the header, c.State() == audio.Finalized
//
// # Readers
//
// A Reader covers a frame window and must be opened before use and released
// on every path before the file is removed:
//
//	r, _ := c.NewReader(0, -1)
//	if err := r.Open(); err != nil { ... }
//	defer r.Release()
//
// # Registry
//
// A Registry maps file extensions to Openers. Lookups are case-insensitive
// and ignore a leading dot.
//
// # Errors
//
// Every failure wraps one of the sentinel errors in this package, so callers
// test with errors.Is.
//
// # Ring buffer
//
// RingBuffer keeps the latest N amplitude samples for a renderer running on
// another goroutine. Writers fill it through WriterConfig.Tap.
package audio
