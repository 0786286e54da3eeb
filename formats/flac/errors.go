// SPDX-License-Identifier: EPL-2.0

package flac

import "errors"

var (
	// ErrNotFlacFile indicates the input has no valid fLaC stream header
	ErrNotFlacFile = errors.New("not a FLAC file")

	// ErrUnsupportedFlacLayout indicates a STREAMINFO block without channels or rate
	ErrUnsupportedFlacLayout = errors.New("unsupported FLAC layout")
)
