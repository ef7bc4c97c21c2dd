// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"fmt"

	"github.com/ik5/audcue/audio"
)

var (
	// ErrNotAiffFile indicates the file is not a FORM/AIFF or FORM/AIFC file
	ErrNotAiffFile = fmt.Errorf("%w: not an AIFF file", audio.ErrMalformedContainer)

	// ErrNoCommonChunk indicates a missing or short COMM chunk
	ErrNoCommonChunk = fmt.Errorf("%w: missing COMM chunk", audio.ErrMalformedContainer)

	// ErrNoSoundChunk indicates a missing or short SSND chunk
	ErrNoSoundChunk = fmt.Errorf("%w: missing SSND chunk", audio.ErrMalformedContainer)

	// ErrOnlyPCMSupported indicates an AIFC compression type other than raw PCM
	ErrOnlyPCMSupported = fmt.Errorf("%w: only uncompressed AIFF is supported", audio.ErrUnsupportedLayout)

	// ErrUnsupportedAiffLayout indicates a channel count, rate or sample size that is not handled
	ErrUnsupportedAiffLayout = fmt.Errorf("%w: unsupported AIFF layout", audio.ErrUnsupportedLayout)
)
