// SPDX-License-Identifier: EPL-2.0

// Package wav implements the RIFF/WAVE container.
//
// Integer PCM of 8, 16, 24 or 32 bits is supported, including
// WAVE_FORMAT_EXTENSIBLE headers whose sub-format is PCM. Samples are
// little-endian and 8-bit samples are unsigned, as stored on disk.
//
// # Markers
//
// Cues are stored as a "cue " chunk whose sample offsets are frame indexes,
// with labels in LIST/adtl "labl" entries. The title is the INAM entry of a
// LIST/INFO chunk. All three are parsed wherever they appear and rewritten
// after the data chunk by Update; copies found ahead of the data chunk are
// renamed to JUNK so readers see a single authoritative set.
//
// # Lifecycle
//
// Create writes a 44-byte header with a zero data length and leaves the
// container in audio.Draft. Writing moves an open file to Draft and strips
// the trailing chunks; Update (also run by Writer.Close and Container.Close)
// puts them back and patches the RIFF and data lengths.
//
// A file whose data chunk runs to end of file with a length that disagrees
// with the file (a capture that never reached Update) opens in Draft with the
// frames actually on disk.
//
//	c, err := wav.Create("take.wav", audio.Format{SampleRate: 44100, Channels: 1, BitsPerSample: 16}, audio.Options{})
//	w, err := c.NewWriter(false, true, audio.WriterConfig{})
//	w.Write(pcm)
//	c.AddCue(44100, "one second")
//	w.Close()
//	c.Close()
package wav
