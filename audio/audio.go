// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"io"
	"strings"
	"sync"

	goaudio "github.com/go-audio/audio"
	"go.uber.org/zap"

	"github.com/ik5/audcue/cue"
)

// State is the header lifecycle of a container.
type State int

const (
	// Draft means payload bytes may have been written since the header
	// length fields and marker chunks were last rewritten.
	Draft State = iota
	// Finalized means the on-disk header describes the payload exactly.
	Finalized
)

func (s State) String() string {
	switch s {
	case Draft:
		return "draft"
	case Finalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// Format describes interleaved PCM.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// FrameSize is the byte length of one frame.
func (f Format) FrameSize() int {
	return f.Channels * ((f.BitsPerSample + 7) / 8)
}

func (f Format) Valid() bool {
	switch f.BitsPerSample {
	case 8, 16, 24, 32:
	default:
		return false
	}

	return f.SampleRate > 0 && f.Channels > 0 && f.Channels <= 0xFFFF
}

// Container owns one open audio file and its markers.
type Container interface {
	SampleRate() int
	Channels() int
	BitsPerSample() int
	// TotalFrames is derived from the payload currently on disk.
	TotalFrames() int64
	Metadata() *cue.Metadata
	// AddCue records a marker in memory only; Update persists it.
	AddCue(location int64, label string) error
	Cues() []cue.Cue
	State() State
	// Update rewrites header lengths and markers. Calling it twice in a row
	// leaves the file unchanged.
	Update() error
	// NewReader returns an unopened reader over [start, end] frames.
	// A negative end means the end of the payload at Open time.
	NewReader(start, end int64) (Reader, error)
	NewWriter(append, buffered bool, cfg WriterConfig) (Writer, error)
	// Close finalizes a draft container and releases the file handle.
	Close() error
}

// Reader is a bounded random-access PCM reader.
//
// Lifecycle: Created -> Open -> Release. Release must be called on every
// path before the backing file is deleted or truncated.
type Reader interface {
	Open() error
	// SeekFrame moves the cursor to frame, which must lie inside the window.
	SeekFrame(frame int64) error
	Frame() int64
	// PCMBuffer copies raw payload into buf and returns the byte count.
	// Bytes of buf past the count are left as they were.
	PCMBuffer(buf []byte) (int, error)
	// Read is PCMBuffer, so a Reader feeds io.Copy and io.ReadAll.
	io.Reader
	HasRemaining() bool
	Release() error
}

// Writer appends raw PCM bytes to a container payload.
type Writer interface {
	io.Writer
	io.ByteWriter
	// WriteSamples encodes buf at the container's bit depth and byte order.
	WriteSamples(buf *goaudio.IntBuffer) error
	Flush() error
	Close() error
}

// WriterConfig tunes a streaming writer. The zero value is usable.
type WriterConfig struct {
	// Tap receives the first channel of every complete written frame.
	Tap *RingBuffer
	// BufferSize overrides the default coalescing buffer of buffered writers.
	BufferSize int
}

// Options carries settings shared by every format opener.
type Options struct {
	Logger *zap.Logger
	// Metadata pre-seeds the container's cues.
	Metadata *cue.Metadata
	// LenientSidecar turns a corrupt sidecar into a logged warning.
	LenientSidecar bool
}

// Log returns the configured logger or a no-op one.
func (o Options) Log() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}

	return o.Logger
}

// Opener constructs containers of one format.
type Opener interface {
	Open(path string, opts Options) (Container, error)
	Create(path string, f Format, opts Options) (Container, error)
}

// Registry maps file extensions (without the dot, lower case) to openers.
type Registry struct {
	codecs map[string]Opener

	mtx *sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{
		codecs: make(map[string]Opener),
		mtx:    &sync.Mutex{},
	}
}

// NormalizeExt lower-cases ext and strips a leading dot.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

func (r *Registry) Register(ext string, o Opener) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.codecs[NormalizeExt(ext)] = o
}

func (r *Registry) Get(ext string) (Opener, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	o, ok := r.codecs[NormalizeExt(ext)]
	return o, ok
}
