// SPDX-License-Identifier: EPL-2.0

// Package audcue reads and writes audio containers together with their cue
// markers.
//
// A File picks its format strategy once, from the file extension, and
// forwards to it for the life of the handle.
//
// # Supported Formats
//
// The package supports the following containers:
//   - WAV (RIFF, 8/16/24/32-bit integer PCM) via formats/wav, read/write
//   - AIFF and AIFF-C (none/twos/sowt) via formats/aiff, read/write
//   - MP3 via formats/mp3, read-only, cues in a .cue sidecar
//   - Ogg Vorbis via formats/vorbis, read-only, cues in a .cue sidecar
//
// # Quick Start
//
// Record into a new file and mark a position:
//
//	f, _ := audcue.CreateDefault("take.wav")
//	w, _ := f.Writer(false, true)
//	w.Write(pcm)
//	_ = f.AddCue(44100, "one second")
//	w.Close() // finalizes the header and writes the cue chunk
//	f.Close()
//
// Read a window back:
//
//	f, _ := audcue.Open("take.wav")
//	r, _ := f.ReaderRange(0, 4410)
//	_ = r.Open()
//	n, _ := r.PCMBuffer(buf)
//	r.Release()
//
// # Lifecycle
//
// A lossless file is Draft while payload bytes may be ahead of its header
// and Finalized once Update (or closing the writer) has rewritten the
// lengths and the cue chunks. Readers must be released before the file is
// deleted or truncated.
//
// # Performance
//
// The package keeps copies off the hot path:
//   - Lossless readers map the file instead of reading it
//   - Buffered writers coalesce small writes into one syscall
//   - Compressed readers decode through a circular buffer and only re-seek
//     the decoder when a seek leaves it
//
// See the individual subpackages for more detailed documentation.
package audcue
