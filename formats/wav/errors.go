// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"fmt"

	"github.com/ik5/audcue/audio"
)

var (
	ErrNotWavFile           = fmt.Errorf("%w: not a RIFF/WAVE file", audio.ErrMalformedContainer)
	ErrNoFormatChunk        = fmt.Errorf("%w: missing fmt chunk", audio.ErrMalformedContainer)
	ErrNoDataChunk          = fmt.Errorf("%w: missing data chunk", audio.ErrMalformedContainer)
	ErrOnlyPCMSupported     = fmt.Errorf("%w: only integer PCM is supported", audio.ErrUnsupportedLayout)
	ErrUnsupportedWavLayout = fmt.Errorf("%w: unsupported WAV layout", audio.ErrUnsupportedLayout)
	ErrFileTooLarge         = fmt.Errorf("%w: RIFF size exceeds 4 GiB", audio.ErrUnsupportedLayout)
)
