// SPDX-License-Identifier: EPL-2.0

// Package flac provides FLAC audio file decoding.
//
// This package uses github.com/mewkiz/flac. Frames are decoded on demand and
// interleaved into 16-bit little-endian PCM; 24-bit and 32-bit streams are
// narrowed, 8-bit streams widened.
//
// Seek uses the seek table mewkiz/flac builds for seekable inputs, then drops
// the samples between the start of the located frame and the requested
// offset.
package flac
