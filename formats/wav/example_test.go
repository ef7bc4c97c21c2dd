// SPDX-License-Identifier: EPL-2.0

package wav_test

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ik5/audcue/audio"
	"github.com/ik5/audcue/formats/wav"
)

// Example_capture records PCM through a buffered writer and marks a position.
func Example_capture() {
	dir, _ := os.MkdirTemp("", "wav-example")
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "take.wav")

	c, err := wav.Create(path, audio.Format{SampleRate: 8000, Channels: 1, BitsPerSample: 16}, audio.Options{})
	if err != nil {
		fmt.Printf("Create error: %v\n", err)
		return
	}

	w, _ := c.NewWriter(false, true, audio.WriterConfig{})
	w.Write(make([]byte, 2*8000)) // one second of silence
	c.AddCue(4000, "half")
	w.Close() // finalizes the header

	fmt.Printf("Frames: %d\n", c.TotalFrames())
	fmt.Printf("State: %s\n", c.State())
	c.Close()

	c, _ = wav.Open(path, audio.Options{})
	defer c.Close()
	for _, q := range c.Cues() {
		fmt.Printf("Cue %d %q\n", q.Location, q.Label)
	}
	// Output:
	// Frames: 8000
	// State: finalized
	// Cue 4000 "half"
}

// ExampleWritePCM writes a complete file in one call.
func ExampleWritePCM() {
	dir, _ := os.MkdirTemp("", "wav-example")
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "tone.wav")

	f, _ := os.Create(path)
	err := wav.WritePCM(f, audio.Format{SampleRate: 16000, Channels: 2, BitsPerSample: 16}, make([]byte, 4*160))
	f.Close()
	if err != nil {
		fmt.Printf("Write error: %v\n", err)
		return
	}

	c, _ := wav.Open(path, audio.Options{})
	defer c.Close()
	fmt.Printf("%d Hz, %d channels, %d frames\n", c.SampleRate(), c.Channels(), c.TotalFrames())
	// Output:
	// 16000 Hz, 2 channels, 160 frames
}
