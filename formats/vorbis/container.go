// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"fmt"
	"io"
	"os"

	"github.com/jfreymuth/oggvorbis"
	"go.uber.org/multierr"

	"github.com/ik5/audcue/audio"
	"github.com/ik5/audcue/internal/compressed"
)

// FileType is the cue sheet FILE type of Ogg Vorbis sidecars.
const FileType = "OGG"

// Opener registers the Vorbis strategy with an audio.Registry.
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
// title, the TITLE comment of the stream is used.
func Open(path string, opts audio.Options) (*compressed.Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	dec, err := oggvorbis.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrNotVorbisFile, path, err)
	}

	return open(path, dec, f, opts)
}

func open(path string, dec oggReader, file io.Closer, opts audio.Options) (*compressed.Container, error) {
	c, err := compressed.New(compressed.Config{
		Path:     path,
		Decoder:  newSource(dec, file),
		FileType: FileType,
		Title:    title(dec),
		Options:  opts,
		Name:     "vorbis",
	})
	if err != nil {
		if file != nil {
			err = multierr.Append(err, file.Close())
		}
		return nil, err
	}

	return c, nil
}
