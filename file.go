// SPDX-License-Identifier: EPL-2.0

package audcue

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ik5/audcue/audio"
	"github.com/ik5/audcue/config"
	"github.com/ik5/audcue/cue"
	"github.com/ik5/audcue/formats/aiff"
	"github.com/ik5/audcue/formats/mp3"
	"github.com/ik5/audcue/formats/vorbis"
	"github.com/ik5/audcue/formats/wav"
	"github.com/ik5/audcue/internal/convert"
)

var registry = defaultRegistry()

func defaultRegistry() *audio.Registry {
	r := audio.NewRegistry()

	for _, ext := range []string{"wav", "wave"} {
		r.Register(ext, wav.Opener{})
	}
	for _, ext := range []string{"aif", "aiff", "aifc"} {
		r.Register(ext, aiff.Opener{})
	}
	r.Register("mp3", mp3.Opener{})
	for _, ext := range []string{"ogg", "oga"} {
		r.Register(ext, vorbis.Opener{})
	}

	return r
}

// Register makes opener handle files with extension ext, replacing any
// built-in strategy for it.
func Register(ext string, opener audio.Opener) {
	registry.Register(ext, opener)
}

// Option configures Open and Create.
type Option func(*audio.Options)

// WithMetadata pre-seeds the cues and title of the container.
func WithMetadata(m *cue.Metadata) Option {
	return func(o *audio.Options) { o.Metadata = m }
}

func WithLogger(log *zap.Logger) Option {
	return func(o *audio.Options) { o.Logger = log }
}

// WithLenientSidecar opens compressed files whose .cue sidecar is corrupt
// with no cues instead of failing.
func WithLenientSidecar() Option {
	return func(o *audio.Options) { o.LenientSidecar = true }
}

// WriterOption configures File.Writer.
type WriterOption func(*audio.WriterConfig)

// WithTap feeds the first channel of every written frame into rb.
func WithTap(rb *audio.RingBuffer) WriterOption {
	return func(c *audio.WriterConfig) { c.Tap = rb }
}

// WithBufferSize sets the coalescing buffer of a buffered writer in bytes.
func WithBufferSize(n int) WriterOption {
	return func(c *audio.WriterConfig) { c.BufferSize = n }
}

// File is an open audio container whose strategy was picked from the file
// extension.
type File struct {
	path string
	ext  string
	c    audio.Container
}

func build(opts []Option) audio.Options {
	var o audio.Options
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

func lookup(path string) (string, audio.Opener, error) {
	ext := audio.NormalizeExt(filepath.Ext(path))
	o, ok := registry.Get(ext)
	if !ok {
		return "", nil, fmt.Errorf("%w: %q", audio.ErrUnsupportedFormat, ext)
	}

	return ext, o, nil
}

// Open opens an existing file.
func Open(path string, opts ...Option) (*File, error) {
	ext, o, err := lookup(path)
	if err != nil {
		return nil, err
	}

	c, err := o.Open(path, build(opts))
	if err != nil {
		return nil, err
	}

	return &File{path: path, ext: ext, c: c}, nil
}

// Create creates (or truncates) path as an empty Draft container.
func Create(path string, channels, sampleRate, bitsPerSample int, opts ...Option) (*File, error) {
	ext, o, err := lookup(path)
	if err != nil {
		return nil, err
	}

	f := audio.Format{SampleRate: sampleRate, Channels: channels, BitsPerSample: bitsPerSample}
	c, err := o.Create(path, f, build(opts))
	if err != nil {
		return nil, err
	}

	return &File{path: path, ext: ext, c: c}, nil
}

// CreateDefault is Create with the format of config.Defaults.
func CreateDefault(path string, opts ...Option) (*File, error) {
	return CreateWith(path, config.Defaults(), opts...)
}

// CreateWith is Create with the format of rec.
func CreateWith(path string, rec config.Recording, opts ...Option) (*File, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	return Create(path, rec.Channels, rec.SampleRate, rec.BitsPerSample, opts...)
}

func (f *File) Path() string { return f.path }

// Ext is the lower-case extension the strategy was picked by.
func (f *File) Ext() string { return f.ext }

// Container exposes the format strategy.
func (f *File) Container() audio.Container { return f.c }

func (f *File) Format() audio.Format {
	return audio.Format{
		SampleRate:    f.c.SampleRate(),
		Channels:      f.c.Channels(),
		BitsPerSample: f.c.BitsPerSample(),
	}
}

func (f *File) SampleRate() int         { return f.c.SampleRate() }
func (f *File) Channels() int           { return f.c.Channels() }
func (f *File) BitsPerSample() int      { return f.c.BitsPerSample() }
func (f *File) TotalFrames() int64      { return f.c.TotalFrames() }
func (f *File) State() audio.State      { return f.c.State() }
func (f *File) Metadata() *cue.Metadata { return f.c.Metadata() }
func (f *File) Cues() []cue.Cue         { return f.c.Cues() }
func (f *File) Update() error           { return f.c.Update() }

func (f *File) AddCue(location int64, label string) error {
	return f.c.AddCue(location, label)
}

// Reader returns an unopened reader over the whole payload.
func (f *File) Reader() (audio.Reader, error) {
	return f.c.NewReader(0, -1)
}

// ReaderRange returns an unopened reader over frames [start, end]; a
// negative end selects the end of the payload at Open time.
func (f *File) ReaderRange(start, end int64) (audio.Reader, error) {
	return f.c.NewReader(start, end)
}

// Writer opens the single writer of the file. append keeps the existing
// payload; buffered coalesces small writes.
func (f *File) Writer(append, buffered bool, opts ...WriterOption) (audio.Writer, error) {
	var cfg audio.WriterConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	return f.c.NewWriter(append, buffered, cfg)
}

// Export replaces the payload of dst with frames [start, end] of f,
// resampled and mixed down to dst's format, and the cues of dst with those
// of f inside the window. It returns the number of frames written to dst.
func (f *File) Export(dst *File, start, end int64) (int64, error) {
	return convert.Window(f.c, dst.c, start, end)
}

// Close finalizes a Draft file and releases it. It is safe to call more
// than once.
func (f *File) Close() error {
	return f.c.Close()
}
