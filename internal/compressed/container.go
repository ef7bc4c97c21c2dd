// SPDX-License-Identifier: EPL-2.0

package compressed

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ik5/audcue/audio"
	"github.com/ik5/audcue/cue"
	"github.com/ik5/audcue/cuesheet"
)

// Config describes a compressed stream handed to New.
type Config struct {
	Path    string
	Decoder FrameDecoder
	// FileType is the cue sheet FILE type written to the sidecar, e.g. MP3.
	FileType string
	// Title is used when the sidecar has none, e.g. from embedded tags.
	Title   string
	Options audio.Options
	// Name is the logger name.
	Name string
}

// Container is a read-only compressed stream whose cues live in a sidecar
// next to it: "song.mp3" keeps them in "song.cue".
type Container struct {
	path     string
	sidecar  string
	fileType string
	dec      FrameDecoder
	buf      *decodeBuffer
	meta     *cue.Metadata
	log      *zap.Logger

	saved      []cue.Cue // cues as last read or written
	savedTitle string

	mtx    sync.Mutex
	reader *Reader
	closed bool
}

var _ audio.Container = (*Container)(nil)

var tagTitle = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ", `"`, "'")

// SidecarPath returns the .cue path that belongs to path.
func SidecarPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".cue"
}

// New wraps an open decoder. On error the decoder is left open.
func New(cfg Config) (*Container, error) {
	name := cfg.Name
	if name == "" {
		name = "compressed"
	}
	log := cfg.Options.Log().Named(name)

	if rate := cfg.Decoder.SampleRate(); rate != SampleRate {
		return nil, fmt.Errorf("%w: %d Hz stream, only %d Hz is supported", audio.ErrUnsupportedLayout, rate, SampleRate)
	}
	if ch := cfg.Decoder.Channels(); ch < 1 {
		return nil, fmt.Errorf("%w: %d channels", audio.ErrUnsupportedLayout, ch)
	}

	c := &Container{
		path:     cfg.Path,
		sidecar:  SidecarPath(cfg.Path),
		fileType: cfg.FileType,
		dec:      cfg.Decoder,
		buf:      newDecodeBuffer(cfg.Decoder),
		log:      log,
	}

	meta, err := c.loadSidecar(cfg.Options.LenientSidecar)
	if err != nil {
		return nil, err
	}
	c.saved = meta.Cues()
	c.savedTitle = meta.Title()
	if meta.Title() == "" {
		// tag titles are flattened so they always fit the sidecar
		title := tagTitle.Replace(cfg.Title)
		meta.SetTitle(title)
		c.savedTitle = title
	}
	meta.Merge(cfg.Options.Metadata)
	c.meta = meta

	log.Debug("opened",
		zap.String("path", c.path),
		zap.Int64("frames", c.TotalFrames()),
		zap.Int("decoder_channels", cfg.Decoder.Channels()),
		zap.Int("cues", meta.Len()))

	return c, nil
}

// loadSidecar parses the sidecar. A missing or blank file yields no cues; a
// corrupt one is an error unless lenient.
func (c *Container) loadSidecar(lenient bool) (*cue.Metadata, error) {
	data, err := os.ReadFile(c.sidecar)
	if errors.Is(err, os.ErrNotExist) {
		return cue.NewMetadata(""), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sidecar: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return cue.NewMetadata(""), nil
	}

	sheet, err := cuesheet.Parse(bytes.NewReader(data))
	if err != nil {
		if lenient {
			c.log.Warn("ignoring corrupt sidecar",
				zap.String("sidecar", c.sidecar),
				zap.Error(err))
			return cue.NewMetadata(""), nil
		}

		return nil, fmt.Errorf("%w: %s: %w", audio.ErrMalformedSidecar, c.sidecar, err)
	}

	meta := cue.NewMetadata(sheet.Title)
	for _, t := range sheet.Tracks {
		frames, ok := t.Start()
		if !ok {
			continue
		}
		if err := meta.Add(cuesheet.FramesToSamples(frames, SampleRate), t.Title); err != nil {
			return nil, fmt.Errorf("%w: %s: track %d: %w", audio.ErrMalformedSidecar, c.sidecar, t.Number, err)
		}
	}

	return meta, nil
}

func (c *Container) Path() string            { return c.path }
func (c *Container) Sidecar() string         { return c.sidecar }
func (c *Container) SampleRate() int         { return SampleRate }
func (c *Container) Channels() int           { return Channels }
func (c *Container) BitsPerSample() int      { return BitsPerSample }
func (c *Container) TotalFrames() int64      { return c.dec.Frames() }
func (c *Container) Metadata() *cue.Metadata { return c.meta }
func (c *Container) Cues() []cue.Cue         { return c.meta.Cues() }

// State is always audio.Finalized: the stream itself is never written.
func (c *Container) State() audio.State { return audio.Finalized }

// AddCue records a marker in memory; Update writes the sidecar.
func (c *Container) AddCue(location int64, label string) error {
	if c.isClosed() {
		return audio.ErrClosed
	}
	if err := cuesheet.CheckText(label); err != nil {
		return fmt.Errorf("%w: %w", audio.ErrInvalidLabel, err)
	}

	return c.meta.Add(location, label)
}

// sheet renders the cue set as tracks numbered in location order.
func (c *Container) sheet() *cuesheet.Sheet {
	s := &cuesheet.Sheet{
		Title:    c.meta.Title(),
		File:     filepath.Base(c.path),
		FileType: c.fileType,
	}

	for i, q := range c.meta.Cues() {
		s.Tracks = append(s.Tracks, cuesheet.Track{
			Number: i + 1,
			Type:   "AUDIO",
			Title:  q.Label,
			Indexes: []cuesheet.Index{{
				Number: 1,
				Frames: cuesheet.SamplesToFrames(q.Location, SampleRate),
			}},
		})
	}

	return s
}

// Update truncates and rewrites the sidecar from the cue set. Nothing is
// created when there is no sidecar yet and nothing to put in one.
func (c *Container) Update() error {
	if c.isClosed() {
		return audio.ErrClosed
	}

	s := c.sheet()
	// checked before the sidecar is truncated
	if err := s.Validate(); err != nil {
		return fmt.Errorf("%w: %w", audio.ErrInvalidLabel, err)
	}
	saved := c.meta.Cues()
	if len(s.Tracks) == 0 && s.Title == "" {
		if _, err := os.Stat(c.sidecar); errors.Is(err, os.ErrNotExist) {
			c.saved, c.savedTitle = saved, s.Title
			return nil
		}
	}

	f, err := os.Create(c.sidecar)
	if err != nil {
		return fmt.Errorf("write sidecar: %w", err)
	}

	_, err = s.WriteTo(f)
	err = multierr.Append(err, f.Close())
	if err != nil {
		return fmt.Errorf("write sidecar %s: %w", c.sidecar, err)
	}

	c.saved, c.savedTitle = saved, s.Title
	c.log.Debug("sidecar written",
		zap.String("sidecar", c.sidecar),
		zap.Int("tracks", len(s.Tracks)))

	return nil
}

// NewReader returns an unopened reader over frames [start, end].
func (c *Container) NewReader(start, end int64) (audio.Reader, error) {
	if c.isClosed() {
		return nil, audio.ErrClosed
	}
	if start < 0 {
		return nil, fmt.Errorf("%w: start %d", audio.ErrSeekOutOfWindow, start)
	}

	return &Reader{c: c, first: start, last: end}, nil
}

// NewWriter always fails: compressed streams are not encoded.
func (c *Container) NewWriter(bool, bool, audio.WriterConfig) (audio.Writer, error) {
	return nil, audio.ErrReadOnly
}

func (c *Container) changed() bool {
	return c.meta.Title() != c.savedTitle || !slices.Equal(c.meta.Cues(), c.saved)
}

func (c *Container) isClosed() bool {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return c.closed
}

func (c *Container) claim(r *Reader) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if c.closed {
		return audio.ErrClosed
	}
	if c.reader != nil && c.reader != r {
		return audio.ErrReaderActive
	}
	c.reader = r

	return nil
}

func (c *Container) unclaim(r *Reader) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if c.reader == r {
		c.reader = nil
	}
}

// Close writes the sidecar if the cues changed since it was last read or
// written, releases an open reader and closes the decoder. It is safe to call
// more than once.
func (c *Container) Close() error {
	if c.isClosed() {
		return nil
	}

	var err error
	if c.changed() {
		err = c.Update()
	}

	c.mtx.Lock()
	c.closed = true
	r := c.reader
	c.mtx.Unlock()

	if r != nil {
		c.log.Warn("reader still open at close", zap.String("path", c.path))
		err = multierr.Append(err, r.Release())
	}

	return multierr.Append(err, c.dec.Close())
}
