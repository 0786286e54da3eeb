// SPDX-License-Identifier: EPL-2.0

// Package mp3 provides MP3 audio file decoding.
//
// This package uses github.com/hajimehoshi/go-mp3 to decode MP3 files. The
// go-mp3 decoder already exposes its output as a seekable stream of 16-bit
// little-endian stereo PCM, so the returned audio.Source reads and seeks it
// directly.
//
// # Output Format
//
//   - 16-bit signed little-endian PCM
//   - Channels: 2 (mono files are duplicated by go-mp3)
//   - Sample rate: as encoded in the file
//
// # Seeking
//
// The decoded length is known only when the input is seekable. Decode always
// receives an io.ReadSeeker, but a decoder that reports an unknown length
// fails with ErrNotSeekable wrapping audio.ErrUnknownLength.
//
// # Limitations
//
//   - MP3 writing is not supported (decoding only)
//   - Seeking is sample accurate but decodes from the nearest frame
package mp3
