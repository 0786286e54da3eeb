// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
	"github.com/ik5/audstream/audio"
	"github.com/ik5/audstream/utils"
)

// aiffReader is an interface for aiff.Decoder to allow testing
type aiffReader interface {
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// source wraps go-audio aiff.Decoder to implement audio.Source. The
// decoder cannot seek, so Seek reopens the input and skips forward.
type source struct {
	dec      aiffReader
	reopen   func() (aiffReader, error)
	closer   io.Closer
	format   audio.Format
	bitDepth int
	cur      audio.Cursor
	ibuf     goaudio.IntBuffer
	data     []int
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

// decode fills up to want samples into s.data and reports whether the
// decoder ran dry.
func (s *source) decode(want int) (int, bool, error) {
	if cap(s.data) < want {
		s.data = make([]int, want)
	}
	s.data = s.data[:want]

	got := 0
	for got < want {
		s.ibuf.Data = s.data[got:want]
		n, err := s.dec.PCMBuffer(&s.ibuf)
		got += n
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || (err == nil && n == 0) {
			return got, true, nil
		}
		if err != nil {
			return got, false, fmt.Errorf("%w", err)
		}
	}

	return got, false, nil
}

func (s *source) ReadSome(dst []byte) (int, error) {
	if s.cur.Remaining() == 0 {
		return 0, io.EOF
	}

	n := s.cur.Span(len(dst))
	if n == 0 {
		return 0, audio.ErrShortBuffer
	}

	got, ended, err := s.decode(n / 2)
	if err != nil && got == 0 {
		return 0, err
	}

	got -= got % s.format.Channels
	written := s.cur.Advance(utils.PutIntPCM16(dst, s.data[:got], s.bitDepth))

	if ended && written < n {
		s.cur.Truncate()
	}
	if written == 0 {
		return 0, io.EOF
	}

	return written, nil
}

func (s *source) Seek(pos int) (int, error) {
	target := s.cur.Target(pos)

	dec, err := s.reopen()
	if err != nil {
		return s.cur.Position(), err
	}
	s.dec = dec
	s.cur.Set(0)

	// decode and drop everything before target
	const chunk = 4096
	for skip := target / 2; skip > 0; {
		got, ended, err := s.decode(min(skip, chunk))
		if err != nil {
			return s.cur.Position(), err
		}
		s.cur.Advance(got * 2)
		skip -= got
		if ended {
			s.cur.Truncate()
			break
		}
	}

	return s.cur.Position(), nil
}

type Decoder struct{}

func (Decoder) Decode(rs io.ReadSeeker) (audio.Source, error) {
	var info *aiff.Decoder

	reopen := func() (aiffReader, error) {
		if _, err := rs.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("%w", err)
		}

		dec := aiff.NewDecoder(rs)
		if !dec.IsValidFile() {
			return nil, ErrNotAiffFile
		}
		dec.ReadInfo()
		info = dec

		return dec, nil
	}

	dec, err := reopen()
	if err != nil {
		return nil, err
	}

	switch info.BitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, ErrUnsupportedBitDepth
	}
	if info.NumChans == 0 || info.SampleRate <= 0 {
		return nil, ErrUnsupportedAiffLayout
	}

	channels := int(info.NumChans)
	f := audio.NewFormat(info.SampleRate, channels, 2, int(info.NumSampleFrames)*channels*2)

	var closer io.Closer
	if c, ok := rs.(io.Closer); ok {
		closer = c
	}

	return newSource(dec, reopen, closer, f, int(info.BitDepth)), nil
}

func newSource(dec aiffReader, reopen func() (aiffReader, error), closer io.Closer, f audio.Format, bitDepth int) *source {
	return &source{
		dec:      dec,
		reopen:   reopen,
		closer:   closer,
		format:   f,
		bitDepth: bitDepth,
		cur:      audio.NewCursor(f.TotalBytes, f.BlockAlign),
		ibuf: goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: f.Channels, SampleRate: f.SampleRate},
			SourceBitDepth: bitDepth,
		},
	}
}
