// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"slices"

	goaiff "github.com/go-audio/aiff"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ik5/audcue/audio"
	"github.com/ik5/audcue/cue"
	"github.com/ik5/audcue/internal/pcmio"
)

var layout = pcmio.Layout{Order: binary.BigEndian, PayloadID: "SSND", EmptyPayload: ssndHeadLen}

// Container is an open FORM/AIFF (or uncompressed AIFF-C) file.
//
// Cues are MARK markers and the title is the NAME chunk; Update writes both
// after the SSND chunk. Other chunks following SSND are kept verbatim.
type Container struct {
	path string
	p    *pcmio.Payload
	meta *cue.Metadata
	log  *zap.Logger

	commOff   int64 // offset of the COMM chunk header
	ssndOff   int64 // offset of the SSND chunk header
	ssndExtra int64 // offset/blockSize fields plus alignment bytes ahead of samples

	extra []byte  // preserved chunks after SSND, raw
	stale []int64 // MARK/NAME chunk headers ahead of SSND, renamed to JUNK on Update

	saved      []cue.Cue
	savedTitle string
}

var _ audio.Container = (*Container)(nil)

// Opener registers the AIFF strategy with an audio.Registry.
type Opener struct{}

func (Opener) Open(path string, opts audio.Options) (audio.Container, error) {
	return Open(path, opts)
}

func (Opener) Create(path string, f audio.Format, opts audio.Options) (audio.Container, error) {
	return Create(path, f, opts)
}

// Open parses an existing file, read-only when it cannot be written. An
// interrupted capture opens in audio.Draft.
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
	log := opts.Log().Named("aiff")

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}
	size := info.Size()

	var form [12]byte
	if _, err := f.ReadAt(form[:], 0); err != nil {
		return nil, ErrNotAiffFile
	}
	if string(form[0:4]) != "FORM" {
		return nil, ErrNotAiffFile
	}

	var aifc bool
	switch string(form[8:12]) {
	case "AIFF":
	case "AIFC":
		aifc = true
	default:
		return nil, ErrNotAiffFile
	}

	chunks, recovered, err := pcmio.WalkChunks(f, 12, size, layout)
	if err != nil {
		return nil, err
	}

	c := &Container{log: log}

	var (
		comm  *common
		ssnd  *pcmio.Chunk
		cues  []cue.Cue
		title string
	)

	for i := range chunks {
		ch := chunks[i]

		switch ch.ID {
		case "COMM":
			body, err := pcmio.ReadBody(f, ch, 64)
			if err != nil {
				return nil, err
			}
			cc, err := parseCommon(body, aifc)
			if err != nil {
				return nil, err
			}
			comm = &cc
			c.commOff = ch.Off

		case "SSND":
			if ssnd == nil {
				ssnd = &chunks[i]
			}

		case "MARK", "NAME":
			body, err := pcmio.ReadBody(f, ch, 0)
			if err != nil {
				return nil, err
			}

			if ch.ID == "MARK" {
				if cues, err = parseMarkers(body); err != nil {
					return nil, err
				}
			} else {
				title = text(body)
			}

			if ssnd == nil {
				c.stale = append(c.stale, ch.Off)
			}

		default:
			if ssnd != nil {
				raw, err := pcmio.ReadRaw(f, ch)
				if err != nil {
					return nil, err
				}
				c.extra = append(c.extra, raw...)
			}
		}
	}

	if comm == nil {
		return nil, ErrNoCommonChunk
	}
	if ssnd == nil || ssnd.Size < ssndHeadLen {
		return nil, ErrNoSoundChunk
	}

	var head [ssndHeadLen]byte
	if _, err := f.ReadAt(head[:], ssnd.Body()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSoundChunk, err)
	}
	c.ssndExtra = ssndHeadLen + int64(binary.BigEndian.Uint32(head[0:4]))
	if c.ssndExtra > ssnd.Size {
		return nil, fmt.Errorf("%w: SSND offset past chunk end", audio.ErrMalformedContainer)
	}
	c.ssndOff = ssnd.Off

	// the decoder walks chunk sizes a torn capture no longer matches
	if !recovered {
		if err := probe(f, size, comm.format); err != nil {
			return nil, err
		}
	}

	length := ssnd.Size - c.ssndExtra
	state := audio.Finalized
	if recovered {
		length -= length % int64(comm.format.FrameSize())
		state = audio.Draft
		log.Warn("recovered interrupted capture",
			zap.String("file", f.Name()),
			zap.Int64("payload_bytes", length))
	} else if frames := int64(comm.frames); frames*int64(comm.format.FrameSize()) != length {
		log.Debug("COMM frame count disagrees with SSND",
			zap.String("file", f.Name()),
			zap.Int64("comm_frames", frames),
			zap.Int64("ssnd_bytes", length))
	}

	start := ssnd.Body() + c.ssndExtra
	c.p = pcmio.NewPayload(pcmio.Config{
		File:     f,
		Format:   comm.format,
		Order:    comm.order,
		Start:    start,
		Prefix:   c.ssndExtra,
		Length:   length,
		Trailer:  size - start - length,
		State:    state,
		ReadOnly: readOnly,
		Logger:   log,
	})

	c.meta = cue.NewMetadata(title, cues...)
	c.saved = c.meta.Cues()
	c.savedTitle = title
	c.meta.Merge(opts.Metadata)

	return c, nil
}

// probe cross-checks the header with go-audio/aiff.
func probe(r io.ReaderAt, size int64, f audio.Format) error {
	d := goaiff.NewDecoder(io.NewSectionReader(r, 0, size))
	d.ReadInfo()
	if err := d.Err(); err != nil {
		return fmt.Errorf("%w: %v", audio.ErrMalformedContainer, err)
	}

	if int(d.NumChans) != f.Channels || d.SampleRate != f.SampleRate {
		return fmt.Errorf("%w: COMM chunk disagrees with decoder (%d ch, %d Hz)", audio.ErrMalformedContainer, d.NumChans, d.SampleRate)
	}

	return nil
}

// Create truncates or creates path with an empty SSND chunk. The container
// starts in audio.Draft.
func Create(path string, f audio.Format, opts audio.Options) (*Container, error) {
	if err := validFormat(f); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}

	if _, err := file.WriteAt(header(f), 0); err != nil {
		return nil, multierr.Append(fmt.Errorf("write header: %w", err), file.Close())
	}

	log := opts.Log().Named("aiff")

	c := &Container{
		path:      path,
		log:       log,
		commOff:   12,
		ssndOff:   HeaderLen - pcmio.ChunkHeaderLen - ssndHeadLen,
		ssndExtra: ssndHeadLen,
		meta:      cue.NewMetadata(""),
	}
	c.meta.Merge(opts.Metadata)

	c.p = pcmio.NewPayload(pcmio.Config{
		File:   file,
		Format: f,
		Order:  binary.BigEndian,
		Start:  HeaderLen,
		Prefix: ssndHeadLen,
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

// ByteOrder is big-endian except for "sowt" AIFF-C files.
func (c *Container) ByteOrder() binary.ByteOrder { return c.p.ByteOrder() }

// AddCue records a marker in memory. Update or Close writes it.
func (c *Container) AddCue(location int64, label string) error {
	if c.p.Closed() {
		return audio.ErrClosed
	}
	if location > math.MaxUint32 {
		return fmt.Errorf("%w: frame %d", audio.ErrCueOutOfRange, location)
	}

	return c.meta.Add(location, label)
}

// Update writes MARK and NAME after the payload and patches the FORM size,
// the COMM frame count and the SSND size. It is idempotent.
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
	trailer = appendName(trailer, c.meta.Title())
	trailer = append(trailer, c.extra...)

	if err := c.p.Flush(); err != nil {
		return err
	}
	if c.p.Start()+c.p.Len()+1+int64(len(trailer))-8 > math.MaxUint32 {
		return fmt.Errorf("%w: FORM size exceeds 4 GiB", ErrUnsupportedAiffLayout)
	}

	if err := c.p.Seal(trailer, c.patch); err != nil {
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

	binary.BigEndian.PutUint32(b[:], uint32(fileLen-8))
	if _, err := f.WriteAt(b[:], 4); err != nil {
		return fmt.Errorf("patch FORM size: %w", err)
	}

	binary.BigEndian.PutUint32(b[:], uint32(payloadLen/int64(c.p.Format().FrameSize())))
	if _, err := f.WriteAt(b[:], c.commOff+pcmio.ChunkHeaderLen+2); err != nil {
		return fmt.Errorf("patch COMM frames: %w", err)
	}

	binary.BigEndian.PutUint32(b[:], uint32(c.ssndExtra+payloadLen))
	if _, err := f.WriteAt(b[:], c.ssndOff+4); err != nil {
		return fmt.Errorf("patch SSND size: %w", err)
	}

	for _, off := range c.stale {
		if _, err := f.WriteAt([]byte("JUNK"), off); err != nil {
			return fmt.Errorf("retire chunk at %d: %w", off, err)
		}
	}
	c.stale = nil

	return nil
}

// NewReader returns an unopened reader over frames [start, end] that copies
// payload bytes in file byte order.
func (c *Container) NewReader(start, end int64) (audio.Reader, error) {
	r, err := c.p.NewReader(start, end)
	if err != nil {
		return nil, err
	}

	return r, nil
}

// NewWriter opens the payload writer; bytes must be in ByteOrder. Closing
// the writer runs Update.
func (c *Container) NewWriter(appendMode, buffered bool, cfg audio.WriterConfig) (audio.Writer, error) {
	w, err := c.p.NewWriter(appendMode, buffered, c.Update, cfg)
	if err != nil {
		return nil, err
	}

	return w, nil
}

// Close finalizes a draft container, writes cues added since the last Update
// and closes the file. It is safe to call more than once.
func (c *Container) Close() error {
	if c.p.Closed() {
		return nil
	}

	var err error
	changed := c.meta.Title() != c.savedTitle || !slices.Equal(c.meta.Cues(), c.saved)
	if c.p.State() == audio.Finalized && !c.p.ReadOnly() && changed {
		err = c.Update()
	}

	return multierr.Append(err, c.p.Close(c.Update))
}
