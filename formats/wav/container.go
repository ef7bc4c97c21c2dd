// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"slices"

	gowav "github.com/go-audio/wav"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ik5/audcue/audio"
	"github.com/ik5/audcue/cue"
	"github.com/ik5/audcue/internal/pcmio"
)

var layout = pcmio.Layout{Order: binary.LittleEndian, PayloadID: "data"}

// Container is an open RIFF/WAVE file.
//
// Markers live in a "cue " chunk with labels in a LIST/adtl chunk, and the
// title in the INAM entry of LIST/INFO. Update rewrites all three after the
// payload; every other chunk following the payload is kept verbatim.
type Container struct {
	path string
	p    *pcmio.Payload
	meta *cue.Metadata
	log  *zap.Logger

	dataOff int64       // offset of the data chunk header
	extra   []byte      // preserved chunks after data, raw
	info    []infoEntry // LIST/INFO entries other than INAM
	stale   []int64     // cue/adtl/INFO chunk headers ahead of data, renamed to JUNK on Update

	saved      []cue.Cue // cues as last written
	savedTitle string
}

var _ audio.Container = (*Container)(nil)

// Opener registers the WAV strategy with an audio.Registry.
type Opener struct{}

func (Opener) Open(path string, opts audio.Options) (audio.Container, error) {
	return Open(path, opts)
}

func (Opener) Create(path string, f audio.Format, opts audio.Options) (audio.Container, error) {
	return Create(path, f, opts)
}

// Open parses an existing file. A file that cannot be opened for writing is
// opened read-only. An interrupted capture (data chunk running to end of file
// with a stale length) opens in audio.Draft.
func Open(path string, opts audio.Options) (*Container, error) {
	f, readOnly, err := pcmio.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	c, err := load(f, readOnly, opts)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("%s: %w", path, err), f.Close())
	}
	c.path = path

	c.log.Debug("opened",
		zap.String("path", path),
		zap.Int64("frames", c.TotalFrames()),
		zap.Stringer("state", c.State()),
		zap.Int("cues", c.meta.Len()),
		zap.Bool("read_only", readOnly))

	return c, nil
}

func load(f *os.File, readOnly bool, opts audio.Options) (*Container, error) {
	log := opts.Log().Named("wav")

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}
	size := info.Size()

	var riff [12]byte
	if _, err := f.ReadAt(riff[:], 0); err != nil {
		return nil, ErrNotWavFile
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, ErrNotWavFile
	}

	chunks, recovered, err := pcmio.WalkChunks(f, 12, size, layout)
	if err != nil {
		return nil, err
	}

	c := &Container{log: log}

	var (
		format *audio.Format
		data   *pcmio.Chunk
		points []cuePoint
		title  string
	)
	labels := make(map[uint32]string)

	for i := range chunks {
		ch := chunks[i]

		switch ch.ID {
		case "fmt ":
			body, err := pcmio.ReadBody(f, ch, 64)
			if err != nil {
				return nil, err
			}
			ff, err := parseFormat(body)
			if err != nil {
				return nil, err
			}
			format = &ff

		case "data":
			if data == nil {
				data = &chunks[i]
			}

		case "cue ":
			body, err := pcmio.ReadBody(f, ch, 0)
			if err != nil {
				return nil, err
			}
			if points, err = parseCuePoints(body); err != nil {
				return nil, err
			}
			if data == nil {
				c.stale = append(c.stale, ch.Off)
			}

		case "LIST":
			body, err := pcmio.ReadBody(f, ch, 0)
			if err != nil {
				return nil, err
			}
			if len(body) < 4 {
				return nil, fmt.Errorf("%w: short LIST chunk", audio.ErrMalformedContainer)
			}

			switch string(body[:4]) {
			case "adtl":
				parseLabels(body, labels)
			case "INFO":
				if t := c.parseInfo(body); t != "" {
					title = t
				}
			default:
				if data != nil {
					if err := c.preserve(f, ch); err != nil {
						return nil, err
					}
				}
				continue
			}

			if data == nil {
				c.stale = append(c.stale, ch.Off)
			}

		default:
			if data != nil {
				if err := c.preserve(f, ch); err != nil {
					return nil, err
				}
			}
		}
	}

	if format == nil {
		return nil, ErrNoFormatChunk
	}
	if data == nil {
		return nil, ErrNoDataChunk
	}

	if err := probe(f, size, *format); err != nil {
		return nil, err
	}

	length := data.Size
	state := audio.Finalized
	if recovered {
		length -= length % int64(format.FrameSize())
		state = audio.Draft
		log.Warn("recovered interrupted capture",
			zap.String("file", f.Name()),
			zap.Int64("payload_bytes", length))
	}

	c.dataOff = data.Off
	c.p = pcmio.NewPayload(pcmio.Config{
		File:     f,
		Format:   *format,
		Order:    binary.LittleEndian,
		Start:    data.Body(),
		Length:   length,
		Trailer:  size - data.Body() - length,
		State:    state,
		ReadOnly: readOnly,
		Logger:   log,
	})

	c.meta = cue.NewMetadata(title, buildCues(points, labels)...)
	c.saved = c.meta.Cues()
	c.savedTitle = title
	c.meta.Merge(opts.Metadata)

	return c, nil
}

// probe cross-checks the header with go-audio/wav.
func probe(r io.ReaderAt, size int64, f audio.Format) error {
	d := gowav.NewDecoder(io.NewSectionReader(r, 0, size))
	d.ReadInfo()
	if err := d.Err(); err != nil {
		return fmt.Errorf("%w: %v", audio.ErrMalformedContainer, err)
	}

	if int(d.NumChans) != f.Channels || int(d.SampleRate) != f.SampleRate {
		return fmt.Errorf("%w: fmt chunk disagrees with decoder (%d ch, %d Hz)", audio.ErrMalformedContainer, d.NumChans, d.SampleRate)
	}

	return nil
}

func (c *Container) preserve(f *os.File, ch pcmio.Chunk) error {
	raw, err := pcmio.ReadRaw(f, ch)
	if err != nil {
		return err
	}
	c.extra = append(c.extra, raw...)

	return nil
}

// Create truncates or creates path and writes a header with an empty payload.
// The container starts in audio.Draft.
func Create(path string, f audio.Format, opts audio.Options) (*Container, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%w: %d ch, %d Hz, %d bits", ErrUnsupportedWavLayout, f.Channels, f.SampleRate, f.BitsPerSample)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}

	if _, err := file.WriteAt(header(f, 0), 0); err != nil {
		return nil, multierr.Append(fmt.Errorf("write header: %w", err), file.Close())
	}

	log := opts.Log().Named("wav")

	c := &Container{
		path:    path,
		log:     log,
		dataOff: HeaderLen - pcmio.ChunkHeaderLen,
		meta:    cue.NewMetadata(""),
	}
	c.meta.Merge(opts.Metadata)

	c.p = pcmio.NewPayload(pcmio.Config{
		File:   file,
		Format: f,
		Order:  binary.LittleEndian,
		Start:  HeaderLen,
		State:  audio.Draft,
		Logger: log,
	})

	log.Debug("created",
		zap.String("path", path),
		zap.Int("channels", f.Channels),
		zap.Int("sample_rate", f.SampleRate),
		zap.Int("bits", f.BitsPerSample))

	return c, nil
}

func (c *Container) Path() string            { return c.path }
func (c *Container) SampleRate() int         { return c.p.Format().SampleRate }
func (c *Container) Channels() int           { return c.p.Format().Channels }
func (c *Container) BitsPerSample() int      { return c.p.Format().BitsPerSample }
func (c *Container) TotalFrames() int64      { return c.p.Frames() }
func (c *Container) State() audio.State      { return c.p.State() }
func (c *Container) ReadOnly() bool          { return c.p.ReadOnly() }
func (c *Container) Cues() []cue.Cue         { return c.meta.Cues() }
func (c *Container) Metadata() *cue.Metadata { return c.meta }

// AddCue records a marker in memory. Update or Close writes it.
func (c *Container) AddCue(location int64, label string) error {
	if c.p.Closed() {
		return audio.ErrClosed
	}
	if location > math.MaxUint32 {
		return fmt.Errorf("%w: frame %d", audio.ErrCueOutOfRange, location)
	}
	if err := checkText(label); err != nil {
		return err
	}

	return c.meta.Add(location, label)
}

// Update writes the trailing chunks after the payload and patches the RIFF
// and data lengths. It is idempotent.
func (c *Container) Update() error {
	if c.p.Closed() {
		return audio.ErrClosed
	}
	if c.p.ReadOnly() {
		return audio.ErrReadOnly
	}

	cues := c.meta.Cues()
	trailer, err := appendMarkers(nil, cues)
	if err != nil {
		return err
	}
	if err := checkText(c.meta.Title()); err != nil {
		return err
	}
	trailer = appendInfo(trailer, c.info, c.meta.Title())
	trailer = append(trailer, c.extra...)

	if err := c.p.Flush(); err != nil {
		return err
	}
	if total := c.p.Start() + c.p.Len() + 1 + int64(len(trailer)); total-8 > math.MaxUint32 {
		return ErrFileTooLarge
	}

	err = c.p.Seal(trailer, c.patch)
	if err != nil {
		return err
	}

	c.saved = cues
	c.savedTitle = c.meta.Title()
	c.log.Debug("updated",
		zap.String("path", c.path),
		zap.Int64("frames", c.TotalFrames()),
		zap.Int("cues", len(cues)))

	return nil
}

func (c *Container) patch(f *os.File, payloadLen, fileLen int64) error {
	var b [4]byte

	binary.LittleEndian.PutUint32(b[:], uint32(fileLen-8))
	if _, err := f.WriteAt(b[:], 4); err != nil {
		return fmt.Errorf("patch RIFF size: %w", err)
	}

	binary.LittleEndian.PutUint32(b[:], uint32(payloadLen))
	if _, err := f.WriteAt(b[:], c.dataOff+4); err != nil {
		return fmt.Errorf("patch data size: %w", err)
	}

	for _, off := range c.stale {
		if _, err := f.WriteAt([]byte("JUNK"), off); err != nil {
			return fmt.Errorf("retire chunk at %d: %w", off, err)
		}
	}
	c.stale = nil

	return nil
}

// NewReader returns an unopened reader over frames [start, end]; end < 0
// means the end of the payload when the reader is opened.
func (c *Container) NewReader(start, end int64) (audio.Reader, error) {
	r, err := c.p.NewReader(start, end)
	if err != nil {
		return nil, err
	}

	return r, nil
}

// NewWriter opens the payload writer. append=false discards the payload.
// Closing the writer runs Update.
func (c *Container) NewWriter(appendMode, buffered bool, cfg audio.WriterConfig) (audio.Writer, error) {
	w, err := c.p.NewWriter(appendMode, buffered, c.Update, cfg)
	if err != nil {
		return nil, err
	}

	return w, nil
}

func (c *Container) changed() bool {
	return c.meta.Title() != c.savedTitle || !slices.Equal(c.meta.Cues(), c.saved)
}

// Close finalizes a draft container, writes cues added since the last Update
// and closes the file. It is safe to call more than once.
func (c *Container) Close() error {
	if c.p.Closed() {
		return nil
	}

	var err error
	if c.p.State() == audio.Finalized && !c.p.ReadOnly() && c.changed() {
		err = c.Update()
	}

	return multierr.Append(err, c.p.Close(c.Update))
}
