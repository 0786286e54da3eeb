// SPDX-License-Identifier: EPL-2.0

// Package vorbis provides Ogg Vorbis audio file decoding.
//
// This package uses github.com/jfreymuth/oggvorbis to decode Ogg Vorbis files.
// The decoder produces float samples, which the Source converts to 16-bit
// little-endian PCM as it reads.
//
// # Decoding Vorbis Files
//
//	file, _ := os.Open("audio.ogg")
//	source, err := vorbis.Decoder{}.Decode(file)
//	if err != nil {
//	    // Handle error
//	}
//
//	buf := make([]byte, source.Format().BlockBytes(time.Second))
//	n, err := source.ReadSome(buf)
//
// # Channel Layout
//
// Multi-channel output is interleaved:
//
//	[L0, R0, L1, R1, L2, R2, ...]
//
// # Seeking
//
// Seek maps the byte offset to a sample frame and repositions the
// oggvorbis reader, which requires a seekable input. Files whose length
// cannot be determined are rejected with ErrNotSeekable.
package vorbis
