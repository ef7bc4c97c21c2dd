// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"fmt"

	"github.com/ik5/audcue/audio"
)

var (
	// ErrNotVorbisFile is returned when the file is not an Ogg Vorbis stream.
	ErrNotVorbisFile = fmt.Errorf("%w: not an Ogg Vorbis stream", audio.ErrMalformedContainer)
	// ErrEncodingUnsupported is returned by Create; Vorbis files are never written.
	ErrEncodingUnsupported = fmt.Errorf("%w: Vorbis encoding is not supported", audio.ErrReadOnly)
)
