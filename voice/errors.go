// SPDX-License-Identifier: EPL-2.0

package voice

import "errors"

var (
	ErrClosed            = errors.New("voice is closed")
	ErrFormatMismatch    = errors.New("buffer format does not match the voice")
	ErrUnsupportedFormat = errors.New("only 16-bit PCM output is supported")
	// ErrDeviceFormat is returned when a voice asks for a different rate or
	// channel count than the already running output device.
	ErrDeviceFormat = errors.New("output device is running with another format")
)
