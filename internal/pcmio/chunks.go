// SPDX-License-Identifier: EPL-2.0

package pcmio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ik5/audcue/audio"
)

// ChunkHeaderLen is the size of an IFF/RIFF chunk header (id + length).
const ChunkHeaderLen = 8

// Chunk is one chunk header found by WalkChunks.
type Chunk struct {
	ID   string
	Off  int64 // offset of the header
	Size int64 // body length, clipped for a recovered payload
}

// Body is the offset of the chunk body.
func (c Chunk) Body() int64 { return c.Off + ChunkHeaderLen }

// End is the offset after the body and its pad byte.
func (c Chunk) End() int64 { return c.Body() + c.Size + c.Size&1 }

func printableID(b []byte) bool {
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return false
		}
	}

	return true
}

// Layout describes the chunk grammar of a container.
type Layout struct {
	Order     binary.ByteOrder
	PayloadID string
	// EmptyPayload is the body length of a payload chunk holding no samples.
	EmptyPayload int64
}

// WalkChunks lists the chunks in [off, end).
//
// l.PayloadID names the sample chunk. When that chunk overruns the file, is
// marked with the 0xFFFFFFFF streaming placeholder, or is followed by bytes
// that are not a chunk header, it is taken to extend to end of file and
// recovered is true: the file is an interrupted capture. Garbage after the
// payload chunk ends the walk; anywhere before it is malformed.
func WalkChunks(r io.ReaderAt, off, end int64, l Layout) (chunks []Chunk, recovered bool, err error) {
	var hdr [ChunkHeaderLen]byte
	seenPayload := false

	// an empty payload chunk directly followed by the bad bytes is the zero
	// placeholder length left by a capture that never finished
	recoverLast := func(at int64) bool {
		n := len(chunks)
		if n == 0 || chunks[n-1].ID != l.PayloadID || chunks[n-1].Size != l.EmptyPayload || chunks[n-1].End() != at {
			return false
		}
		chunks[n-1].Size = end - chunks[n-1].Body()

		return true
	}

	for off+ChunkHeaderLen <= end {
		if _, err := r.ReadAt(hdr[:], off); err != nil {
			return nil, false, fmt.Errorf("%w: chunk header at %d: %v", audio.ErrMalformedContainer, off, err)
		}

		c := Chunk{ID: string(hdr[:4]), Off: off, Size: int64(l.Order.Uint32(hdr[4:]))}

		if !printableID(hdr[:4]) || (c.ID != l.PayloadID && c.Body()+c.Size > end) {
			if recoverLast(off) {
				return chunks, true, nil
			}
			if seenPayload {
				return chunks, false, nil
			}

			return nil, false, fmt.Errorf("%w: bad chunk at %d", audio.ErrMalformedContainer, off)
		}

		if c.ID == l.PayloadID {
			seenPayload = true
			if c.Size == 0xFFFFFFFF || c.Body()+c.Size > end {
				c.Size = end - c.Body()
				return append(chunks, c), true, nil
			}
		}

		chunks = append(chunks, c)
		off = c.End()
	}

	// fewer than a header's worth of bytes left after an empty payload chunk
	if off < end && recoverLast(off) {
		return chunks, true, nil
	}

	return chunks, false, nil
}

// ReadBody returns the body of c, or at most limit bytes of it when limit > 0.
func ReadBody(r io.ReaderAt, c Chunk, limit int64) ([]byte, error) {
	n := c.Size
	if limit > 0 && n > limit {
		n = limit
	}

	b := make([]byte, n)
	if _, err := r.ReadAt(b, c.Body()); err != nil {
		return nil, fmt.Errorf("%w: chunk %q: %v", audio.ErrMalformedContainer, c.ID, err)
	}

	return b, nil
}

// ReadRaw returns the chunk header, body and pad byte as stored. A pad byte
// missing at end of file reads as zero.
func ReadRaw(r io.ReaderAt, c Chunk) ([]byte, error) {
	b := make([]byte, c.End()-c.Off)
	n, err := r.ReadAt(b, c.Off)
	if err != nil && !(errors.Is(err, io.EOF) && int64(n) >= ChunkHeaderLen+c.Size) {
		return nil, fmt.Errorf("%w: chunk %q: %v", audio.ErrMalformedContainer, c.ID, err)
	}
	return b, nil
}

// AppendChunk appends an id/length header, body and pad byte to dst.
func AppendChunk(dst []byte, id string, order binary.AppendByteOrder, body []byte) []byte {
	dst = append(dst, id[:4]...)
	dst = order.AppendUint32(dst, uint32(len(body)))
	dst = append(dst, body...)
	if len(body)%2 == 1 {
		dst = append(dst, 0)
	}

	return dst
}

// OpenFile opens path for reading and writing, falling back to read-only
// when the file cannot be written.
func OpenFile(path string) (f *os.File, readOnly bool, err error) {
	f, err = os.OpenFile(path, os.O_RDWR, 0)
	if err == nil {
		return f, false, nil
	}
	if !errors.Is(err, os.ErrPermission) {
		return nil, false, err
	}

	f, err = os.Open(path)
	if err != nil {
		return nil, false, err
	}

	return f, true, nil
}
