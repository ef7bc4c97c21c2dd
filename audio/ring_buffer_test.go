// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"slices"
	"sync"
	"testing"
)

func TestRingBuffer_FillAndOverflow(t *testing.T) {
	t.Parallel()

	rb := NewRingBuffer(3)
	if rb.Capacity() != 3 {
		t.Fatalf("Capacity() = %d, want 3", rb.Capacity())
	}

	for i, want := range []int{1, 2, 3, 3, 3} {
		rb.Add(float32(i + 1))
		if got := rb.Size(); got != want {
			t.Errorf("after %d adds Size() = %d, want %d", i+1, got, want)
		}
	}

	// 1 and 2 were evicted
	if got := rb.Array(); !slices.Equal(got, []float32{3, 4, 5}) {
		t.Errorf("Array() = %v, want [3 4 5]", got)
	}
}

func TestRingBuffer_WrapOrder(t *testing.T) {
	t.Parallel()

	rb := NewRingBuffer(4)
	rb.AddSamples([]float32{1, 2, 3})
	rb.AddSamples([]float32{4, 5, 6})

	want := []float32{3, 4, 5, 6}
	if got := rb.Array(); !slices.Equal(got, want) {
		t.Fatalf("Array() = %v, want %v", got, want)
	}

	for i, w := range want {
		v, ok := rb.Get(i)
		if !ok || v != w {
			t.Errorf("Get(%d) = %v, %v, want %v, true", i, v, ok, w)
		}
	}
}

func TestRingBuffer_PartialNoWrap(t *testing.T) {
	t.Parallel()

	rb := NewRingBuffer(8)
	rb.AddSamples([]float32{0.25, -0.5})

	if got := rb.Array(); !slices.Equal(got, []float32{0.25, -0.5}) {
		t.Errorf("Array() = %v", got)
	}
}

func TestRingBuffer_GetOutOfRange(t *testing.T) {
	t.Parallel()

	rb := NewRingBuffer(2)
	rb.Add(1)

	for _, i := range []int{-1, 1, 2} {
		if _, ok := rb.Get(i); ok {
			t.Errorf("Get(%d) ok = true, want false", i)
		}
	}
}

func TestRingBuffer_Clear(t *testing.T) {
	t.Parallel()

	rb := NewRingBuffer(2)
	rb.AddSamples([]float32{1, 2, 3})
	rb.Clear()

	if rb.Size() != 0 {
		t.Errorf("Size() after Clear = %d, want 0", rb.Size())
	}
	if got := rb.Array(); len(got) != 0 {
		t.Errorf("Array() after Clear = %v, want empty", got)
	}

	rb.Add(9)
	if got := rb.Array(); !slices.Equal(got, []float32{9}) {
		t.Errorf("Array() = %v, want [9]", got)
	}
}

func TestRingBuffer_CapacityOne(t *testing.T) {
	t.Parallel()

	rb := NewRingBuffer(1)
	rb.AddSamples([]float32{1, 2, 3})

	if got := rb.Array(); !slices.Equal(got, []float32{3}) {
		t.Errorf("Array() = %v, want [3]", got)
	}
}

func TestNewRingBuffer_PanicsOnZero(t *testing.T) {
	t.Parallel()

	for _, c := range []int{0, -4} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("NewRingBuffer(%d) did not panic", c)
				}
			}()
			NewRingBuffer(c)
		}()
	}
}

func TestRingBuffer_Concurrent(t *testing.T) {
	t.Parallel()

	rb := NewRingBuffer(64)

	var wg sync.WaitGroup
	for w := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 1000 {
				rb.Add(float32(w*1000 + i))
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for range 200 {
			if n := len(rb.Array()); n > 64 {
				t.Errorf("snapshot of %d samples exceeds capacity", n)
				return
			}
		}
	}()

	wg.Wait()

	if rb.Size() != 64 {
		t.Errorf("Size() = %d, want 64", rb.Size())
	}
}

func BenchmarkRingBuffer_AddSamples(b *testing.B) {
	rb := NewRingBuffer(4096)
	vs := make([]float32, 512)

	b.ReportAllocs()

	for b.Loop() {
		rb.AddSamples(vs)
	}
}
