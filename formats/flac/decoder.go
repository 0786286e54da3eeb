// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ik5/audstream/audio"
	"github.com/ik5/audstream/utils"
	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
)

// flacReader is an interface for flac.Stream to allow testing
type flacReader interface {
	ParseNext() (*frame.Frame, error)
	// Seek positions the stream on the frame holding sampleNum and returns
	// the first sample number of that frame.
	Seek(sampleNum uint64) (uint64, error)
}

type source struct {
	dec      flacReader
	closer   io.Closer
	format   audio.Format
	bitDepth int
	cur      audio.Cursor

	frameBuf []byte
	pending  []byte
	// bytes of the next decoded frame that precede the last seek target
	skip int
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

// unpack interleaves fr into frameBuf as 16-bit PCM.
func (s *source) unpack(fr *frame.Frame) []byte {
	channels := s.format.Channels
	if len(fr.Subframes) < channels {
		return nil
	}

	blockSize := len(fr.Subframes[0].Samples)
	need := blockSize * s.format.BlockAlign
	if cap(s.frameBuf) < need {
		s.frameBuf = make([]byte, need)
	}
	buf := s.frameBuf[:need]

	off := 0
	for i := range blockSize {
		for ch := range channels {
			v := utils.ScaleToInt16(int(fr.Subframes[ch].Samples[i]), s.bitDepth)
			binary.LittleEndian.PutUint16(buf[off:], uint16(v))
			off += 2
		}
	}

	return buf
}

func (s *source) ReadSome(dst []byte) (int, error) {
	if s.cur.Remaining() == 0 {
		return 0, io.EOF
	}

	n := s.cur.Span(len(dst))
	if n == 0 {
		return 0, audio.ErrShortBuffer
	}

	written := 0
	ended := false
	for written < n {
		if len(s.pending) == 0 {
			fr, err := s.dec.ParseNext()
			if errors.Is(err, io.EOF) {
				ended = true
				break
			}
			if err != nil {
				if written == 0 {
					return 0, fmt.Errorf("%w", err)
				}
				break
			}

			s.pending = s.unpack(fr)
			if s.skip > 0 {
				d := min(s.skip, len(s.pending))
				s.pending = s.pending[d:]
				s.skip -= d
			}
			continue
		}

		c := copy(dst[written:n], s.pending)
		s.pending = s.pending[c:]
		written += c
	}

	written = s.cur.Advance(written)
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
	sample := target / s.format.BlockAlign

	start, err := s.dec.Seek(uint64(sample))
	if err != nil {
		return s.cur.Position(), fmt.Errorf("%w", err)
	}

	s.pending = nil
	s.skip = (sample - int(start)) * s.format.BlockAlign
	s.cur.Set(target)

	return target, nil
}

type Decoder struct{}

func (Decoder) Decode(rs io.ReadSeeker) (audio.Source, error) {
	stream, err := flac.NewSeek(rs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFlacFile, err)
	}

	info := stream.Info
	if info.NSamples == 0 {
		return nil, audio.ErrUnknownLength
	}
	if info.NChannels == 0 || info.SampleRate == 0 {
		return nil, ErrUnsupportedFlacLayout
	}

	channels := int(info.NChannels)
	f := audio.NewFormat(int(info.SampleRate), channels, 2, int(info.NSamples)*channels*2)

	var closer io.Closer
	if c, ok := rs.(io.Closer); ok {
		closer = c
	}

	return newSource(stream, closer, f, int(info.BitsPerSample)), nil
}

func newSource(dec flacReader, closer io.Closer, f audio.Format, bitDepth int) *source {
	return &source{
		dec:      dec,
		closer:   closer,
		format:   f,
		bitDepth: bitDepth,
		cur:      audio.NewCursor(f.TotalBytes, f.BlockAlign),
	}
}
