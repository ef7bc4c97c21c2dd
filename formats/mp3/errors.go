// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"fmt"

	"github.com/ik5/audcue/audio"
)

var (
	// ErrNotMp3File is returned when go-mp3 finds no decodable frame.
	ErrNotMp3File = fmt.Errorf("%w: not an MP3 stream", audio.ErrMalformedContainer)
	// ErrEncodingUnsupported is returned by Create; MP3 files are never written.
	ErrEncodingUnsupported = fmt.Errorf("%w: MP3 encoding is not supported", audio.ErrReadOnly)
)
