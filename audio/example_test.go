// SPDX-License-Identifier: EPL-2.0

package audio_test

import (
	"errors"
	"fmt"

	"github.com/ik5/audcue/audio"
)

// Example_ringBuffer shows a capture loop keeping only the latest samples
// for a level meter.
func Example_ringBuffer() {
	rb := audio.NewRingBuffer(4)

	for _, v := range []float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6} {
		rb.Add(v)
	}

	fmt.Println(rb.Size(), rb.Array())
	// Output:
	// 4 [0.3 0.4 0.5 0.6]
}

type nullOpener struct{}

func (nullOpener) Open(string, audio.Options) (audio.Container, error) {
	return nil, audio.ErrUnsupportedFormat
}

func (nullOpener) Create(string, audio.Format, audio.Options) (audio.Container, error) {
	return nil, audio.ErrReadOnly
}

// Example_registry demonstrates extension lookup.
func Example_registry() {
	r := audio.NewRegistry()
	r.Register(".Null", nullOpener{})

	o, ok := r.Get("NULL")
	fmt.Println(ok)

	_, err := o.Create("x.null", audio.Format{SampleRate: 8000, Channels: 1, BitsPerSample: 16}, audio.Options{})
	fmt.Println(errors.Is(err, audio.ErrReadOnly))
	// Output:
	// true
	// true
}
