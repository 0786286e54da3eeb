// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Format keys used by the bundled decoders.
const (
	FormatWAV    = "wav"
	FormatMP3    = "mp3"
	FormatVorbis = "ogg vorbis"
	FormatAIFF   = "aiff"
	FormatFLAC   = "flac"
)

// SniffSize is the number of leading bytes DetectHeader looks at.
const SniffSize = 64

func normalizeExt(ext string) string {
	return strings.TrimPrefix(strings.ToLower(ext), ".")
}

// DetectHeader guesses the format key from the first bytes of a file.
// It returns "" when nothing matches.
func DetectHeader(head []byte) string {
	switch {
	case len(head) >= 12 && bytes.Equal(head[:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WAVE")):
		return FormatWAV
	case len(head) >= 12 && bytes.Equal(head[:4], []byte("FORM")) &&
		(bytes.Equal(head[8:12], []byte("AIFF")) || bytes.Equal(head[8:12], []byte("AIFC"))):
		return FormatAIFF
	case bytes.HasPrefix(head, []byte("OggS")):
		return FormatVorbis
	case bytes.HasPrefix(head, []byte("fLaC")):
		return FormatFLAC
	case bytes.HasPrefix(head, []byte("ID3")):
		return FormatMP3
	case len(head) >= 2 && head[0] == 0xff && head[1]&0xe0 == 0xe0:
		// MPEG audio frame sync
		return FormatMP3
	}

	return ""
}

// Detect resolves the decoder for path, trying the extension first and
// falling back to sniffing the header from rs. rs is rewound to the start.
func (r *Registry) Detect(path string, rs io.ReadSeeker) (string, Decoder, error) {
	if key, ok := r.formatForExt(filepath.Ext(path)); ok {
		if d, ok := r.Get(key); ok {
			return key, d, nil
		}
	}

	head := make([]byte, SniffSize)
	n, err := io.ReadFull(rs, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", nil, fmt.Errorf("%w", err)
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return "", nil, fmt.Errorf("%w", err)
	}

	key := DetectHeader(head[:n])
	if d, ok := r.Get(key); ok && key != "" {
		return key, d, nil
	}

	return "", nil, ErrUnsupportedFormat
}

// Open opens path, detects its format and decodes it. Every failure is
// reported as a *DecodeError.
func (r *Registry) Open(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}

	key, d, err := r.Detect(path, f)
	if err != nil {
		f.Close()
		return nil, &DecodeError{Path: path, Err: err}
	}

	src, err := d.Decode(f)
	if err != nil {
		f.Close()
		return nil, &DecodeError{Path: path, Format: key, Err: err}
	}

	if !src.Format().Valid() {
		src.Close()
		return nil, &DecodeError{Path: path, Format: key, Err: ErrInvalidFormat}
	}

	return src, nil
}
