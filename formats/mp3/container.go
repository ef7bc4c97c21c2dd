// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"fmt"
	"io"
	"os"

	"github.com/bogem/id3v2/v2"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ik5/audcue/audio"
	"github.com/ik5/audcue/internal/compressed"
)

// FileType is the cue sheet FILE type of MP3 sidecars.
const FileType = "MP3"

// Opener registers the MP3 strategy with an audio.Registry.
type Opener struct{}

var _ audio.Opener = Opener{}

func (Opener) Open(path string, opts audio.Options) (audio.Container, error) {
	c, err := Open(path, opts)
	if err != nil {
		return nil, err
	}

	return c, nil
}

func (Opener) Create(string, audio.Format, audio.Options) (audio.Container, error) {
	return nil, ErrEncodingUnsupported
}

// Open decodes path and loads its .cue sidecar. When the sidecar carries no
// title, the ID3v2 title is used.
func Open(path string, opts audio.Options) (*compressed.Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	dec, err := gomp3.NewDecoder(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrNotMp3File, path, err)
	}

	return open(path, dec, f, opts)
}

func open(path string, dec mp3Reader, file io.Closer, opts audio.Options) (*compressed.Container, error) {
	log := opts.Log().Named("mp3")

	c, err := compressed.New(compressed.Config{
		Path:     path,
		Decoder:  newSource(dec, file),
		FileType: FileType,
		Title:    readTitle(path, log),
		Options:  opts,
		Name:     "mp3",
	})
	if err != nil {
		if file != nil {
			err = multierr.Append(err, file.Close())
		}
		return nil, err
	}

	return c, nil
}

// readTitle returns the ID3v2 title of path, or "" when there is none.
func readTitle(path string, log *zap.Logger) string {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true, ParseFrames: []string{"Title"}})
	if err != nil {
		log.Debug("no id3v2 tag", zap.String("path", path), zap.Error(err))
		return ""
	}
	defer tag.Close()

	return tag.Title()
}
