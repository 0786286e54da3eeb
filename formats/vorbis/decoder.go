// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"errors"
	"fmt"
	"io"

	"github.com/ik5/audstream/audio"
	"github.com/ik5/audstream/utils"
	"github.com/jfreymuth/oggvorbis"
)

var ErrNotSeekable = errors.New("ogg input is not seekable")

// oggReader is an interface for oggvorbis.Reader to allow testing
type oggReader interface {
	SampleRate() int
	Channels() int
	// Length is the stream length in samples per channel, 0 if unknown.
	Length() int64
	SetPosition(pos int64) error
	// Read fills p with interleaved float samples and returns how many
	// values it wrote.
	Read(p []float32) (int, error)
}

type source struct {
	dec    oggReader
	closer io.Closer
	format audio.Format
	cur    audio.Cursor
	fbuf   []float32
}

func (s *source) Format() audio.Format {
	f := s.format
	f.TotalBytes = s.cur.Total()
	return f
}

func (s *source) Position() int { return s.cur.Position() }

func (s *source) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func (s *source) ReadSome(dst []byte) (int, error) {
	if s.cur.Remaining() == 0 {
		return 0, io.EOF
	}

	n := s.cur.Span(len(dst))
	if n == 0 {
		return 0, audio.ErrShortBuffer
	}

	want := n / 2
	if cap(s.fbuf) < want {
		s.fbuf = make([]float32, want)
	}
	s.fbuf = s.fbuf[:want]

	got := 0
	ended := false
	for got < want {
		m, err := s.dec.Read(s.fbuf[got:])
		got += m
		if errors.Is(err, io.EOF) {
			ended = true
			break
		}
		if err != nil {
			if got == 0 {
				return 0, fmt.Errorf("%w", err)
			}
			break
		}
		if m == 0 {
			ended = true
			break
		}
	}

	got -= got % s.format.Channels
	written := s.cur.Advance(utils.PutFloat32PCM16(dst, s.fbuf[:got]))

	if ended && written < n {
		// the header promised more audio than the packets held
		s.cur.Truncate()
	}
	if written == 0 {
		return 0, io.EOF
	}

	return written, nil
}

func (s *source) Seek(pos int) (int, error) {
	target := s.cur.Target(pos)
	if err := s.dec.SetPosition(int64(target / s.format.BlockAlign)); err != nil {
		return s.cur.Position(), fmt.Errorf("%w", err)
	}
	s.cur.Set(target)
	return target, nil
}

type Decoder struct{}

func (Decoder) Decode(rs io.ReadSeeker) (audio.Source, error) {
	dec, err := oggvorbis.NewReader(rs)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	var closer io.Closer
	if c, ok := rs.(io.Closer); ok {
		closer = c
	}

	src, err := newSource(dec, closer)
	if err != nil {
		return nil, err
	}
	return src, nil
}

func newSource(dec oggReader, closer io.Closer) (*source, error) {
	frames := dec.Length()
	if frames <= 0 {
		return nil, fmt.Errorf("%w: %w", ErrNotSeekable, audio.ErrUnknownLength)
	}

	f := audio.NewFormat(dec.SampleRate(), dec.Channels(), 2, int(frames)*dec.Channels()*2)

	return &source{
		dec:    dec,
		closer: closer,
		format: f,
		cur:    audio.NewCursor(f.TotalBytes, f.BlockAlign),
		fbuf:   make([]float32, 4096),
	}, nil
}
