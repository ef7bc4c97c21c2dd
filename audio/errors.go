// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

var (
	ErrUnsupportedFormat  = errors.New("unsupported format")
	ErrMalformedContainer = errors.New("malformed container")
	ErrUnsupportedLayout  = errors.New("unsupported audio layout")
	ErrMalformedSidecar   = errors.New("malformed cue sidecar")
	ErrDecode             = errors.New("decode failed")

	ErrNotOpen         = errors.New("reader is not open")
	ErrReleased        = errors.New("reader already released")
	ErrSeekOutOfWindow = errors.New("seek outside reader window")
	ErrReaderActive    = errors.New("another reader is open")

	ErrReadOnly      = errors.New("container is read-only")
	ErrWriterActive  = errors.New("another writer is open")
	ErrClosed        = errors.New("container closed")
	ErrCueOutOfRange = errors.New("cue location not representable in container")
	ErrInvalidLabel  = errors.New("cue text not representable in container")
)
