// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"
)

// pcmSource serves PCM that is already laid out as bytes in r, starting at
// dataStart. Decoders for uncompressed containers and decoders that expose an
// io.ReadSeeker over their output build on it.
type pcmSource struct {
	r         io.ReadSeeker
	closer    io.Closer
	dataStart int64
	format    Format
	cur       Cursor
}

// NewPCMSource returns a Source reading f.TotalBytes of PCM from r at
// dataStart. r must already be positioned at dataStart. closer, if not nil,
// is closed together with the Source.
func NewPCMSource(r io.ReadSeeker, dataStart int64, f Format, closer io.Closer) Source {
	return &pcmSource{
		r:         r,
		closer:    closer,
		dataStart: dataStart,
		format:    f,
		cur:       NewCursor(f.TotalBytes, f.BlockAlign),
	}
}

func (s *pcmSource) Format() Format {
	f := s.format
	f.TotalBytes = s.cur.Total()
	return f
}

func (s *pcmSource) Position() int { return s.cur.Position() }

func (s *pcmSource) ReadSome(dst []byte) (int, error) {
	if s.cur.Remaining() == 0 {
		return 0, io.EOF
	}

	n := s.cur.Span(len(dst))
	if n == 0 {
		return 0, ErrShortBuffer
	}

	got, err := io.ReadFull(s.r, dst[:n])
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		// the container promised more than the file holds
		got = s.cur.Advance(got)
		s.cur.Truncate()
		if got == 0 {
			return 0, io.EOF
		}
		return got, nil
	case err != nil:
		return 0, fmt.Errorf("%w", err)
	}

	return s.cur.Advance(got), nil
}

func (s *pcmSource) Seek(pos int) (int, error) {
	target := s.cur.Target(pos)
	if _, err := s.r.Seek(s.dataStart+int64(target), io.SeekStart); err != nil {
		return s.cur.Position(), fmt.Errorf("%w", err)
	}
	s.cur.Set(target)
	return target, nil
}

func (s *pcmSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
