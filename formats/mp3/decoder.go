// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"errors"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/ik5/audstream/audio"
)

// go-mp3 always produces 16-bit little-endian stereo.
const (
	channels       = 2
	bytesPerSample = 2
)

var ErrNotSeekable = errors.New("mp3 input is not seekable")

// mp3Reader is an interface for gomp3.Decoder to allow testing
type mp3Reader interface {
	io.ReadSeeker
	SampleRate() int
	Length() int64
}

type Decoder struct{}

func (Decoder) Decode(rs io.ReadSeeker) (audio.Source, error) {
	dec, err := gomp3.NewDecoder(rs)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	var closer io.Closer
	if c, ok := rs.(io.Closer); ok {
		closer = c
	}

	return newSource(dec, closer)
}

// newSource wraps a decoder whose Read already yields PCM bytes and whose
// Seek addresses decoded byte offsets.
func newSource(dec mp3Reader, closer io.Closer) (audio.Source, error) {
	length := dec.Length()
	if length < 0 {
		return nil, fmt.Errorf("%w: %w", ErrNotSeekable, audio.ErrUnknownLength)
	}

	f := audio.NewFormat(dec.SampleRate(), channels, bytesPerSample, int(length))
	return audio.NewPCMSource(dec, 0, f, closer), nil
}
