// SPDX-License-Identifier: EPL-2.0

// Package aiff implements the FORM/AIFF container, plus AIFF-C files whose
// compression type is raw PCM ("NONE", "twos" or little-endian "sowt").
//
// Payload bytes are read and written in the file's byte order, big-endian
// for plain AIFF. Only 16, 24 and 32-bit samples are handled.
//
// Cues map to MARK markers (position in frames, name as a pstring of at
// most 255 bytes) and the title to the NAME chunk. Update writes them after
// SSND and patches the FORM size, COMM numSampleFrames and SSND size; copies
// found ahead of SSND are renamed to JUNK.
//
//	c, err := aiff.Create("take.aiff", audio.Format{SampleRate: 48000, Channels: 2, BitsPerSample: 24}, audio.Options{})
//	w, err := c.NewWriter(false, true, audio.WriterConfig{})
//	w.Write(pcmBigEndian)
//	w.Close()
package aiff
