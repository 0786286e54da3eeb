// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrInvalidFormat     = errors.New("invalid PCM format")
	ErrShortBuffer       = errors.New("dst is smaller than one frame")
	ErrUnknownLength     = errors.New("stream length is unknown")

	ErrUnsupportedConversion = errors.New("unsupported PCM conversion")
)

// DecodeError reports a file that could not be opened or decoded.
type DecodeError struct {
	Path   string
	Format string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Format == "" {
		return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("decode %s (%s): %v", e.Path, e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
