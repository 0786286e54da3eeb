// SPDX-License-Identifier: EPL-2.0

// Package aiff provides AIFF (Audio Interchange File Format) decoding.
//
// This package uses github.com/go-audio/aiff to decode AIFF files. Samples
// of any supported bit depth are converted to 16-bit little-endian PCM.
//
// # Supported Formats
//
//   - PCM 8, 16, 24 and 32-bit
//   - Any channel count
//   - Any sample rate
//
// # Seeking
//
// go-audio/aiff only reads forward. Seek rewinds the input, parses the
// headers again and decodes up to the requested offset, so seeking late into
// long files is proportionally slower.
//
// # Error Handling
//
//   - ErrNotAiffFile: the input is not a valid AIFF file
//   - ErrUnsupportedBitDepth: the COMM chunk has an unsupported sample size
//   - ErrUnsupportedAiffLayout: the COMM chunk carries no channels or rate
package aiff
