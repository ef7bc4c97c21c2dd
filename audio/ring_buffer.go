// SPDX-License-Identifier: EPL-2.0

package audio

import "sync"

// RingBuffer is a fixed-capacity circular buffer of amplitude samples shared
// between a capture goroutine and a render goroutine. When full, Add drops
// the oldest sample. Every method takes the same lock and none blocks beyond
// it; all are O(1) except Array.
type RingBuffer struct {
	mtx  sync.Mutex
	buf  []float32
	head int // oldest element
	tail int // next write position
	full bool
}

// NewRingBuffer panics when capacity < 1.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 1 {
		panic("audio: ring buffer capacity must be positive")
	}

	return &RingBuffer{buf: make([]float32, capacity)}
}

func (rb *RingBuffer) add(v float32) {
	rb.buf[rb.tail] = v
	rb.tail = (rb.tail + 1) % len(rb.buf)

	if rb.full {
		rb.head = rb.tail
		return
	}

	rb.full = rb.tail == rb.head
}

// Add inserts v, evicting the oldest sample when full.
func (rb *RingBuffer) Add(v float32) {
	rb.mtx.Lock()
	defer rb.mtx.Unlock()

	rb.add(v)
}

// AddSamples inserts vs in order under a single lock acquisition.
func (rb *RingBuffer) AddSamples(vs []float32) {
	rb.mtx.Lock()
	defer rb.mtx.Unlock()

	for _, v := range vs {
		rb.add(v)
	}
}

// Clear resets the indices. Storage is not zeroed.
func (rb *RingBuffer) Clear() {
	rb.mtx.Lock()
	defer rb.mtx.Unlock()

	rb.head, rb.tail, rb.full = 0, 0, false
}

func (rb *RingBuffer) size() int {
	if rb.full {
		return len(rb.buf)
	}

	return (rb.tail - rb.head + len(rb.buf)) % len(rb.buf)
}

// Size returns the number of valid samples, 0..Capacity.
func (rb *RingBuffer) Size() int {
	rb.mtx.Lock()
	defer rb.mtx.Unlock()

	return rb.size()
}

func (rb *RingBuffer) Capacity() int { return len(rb.buf) }

// Get returns the i-th valid sample, 0 being the oldest.
func (rb *RingBuffer) Get(i int) (float32, bool) {
	rb.mtx.Lock()
	defer rb.mtx.Unlock()

	if i < 0 || i >= rb.size() {
		return 0, false
	}

	return rb.buf[(rb.head+i)%len(rb.buf)], true
}

// Array returns a snapshot of the valid samples, oldest first.
func (rb *RingBuffer) Array() []float32 {
	rb.mtx.Lock()
	defer rb.mtx.Unlock()

	n := rb.size()
	out := make([]float32, n)
	if n == 0 {
		return out
	}

	if rb.head+n <= len(rb.buf) {
		copy(out, rb.buf[rb.head:rb.head+n])
		return out
	}

	k := copy(out, rb.buf[rb.head:])
	copy(out[k:], rb.buf[:n-k])

	return out
}
