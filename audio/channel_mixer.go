// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ChannelMixer reads interleaved 16-bit PCM from src and changes its channel
// count. Output channel c is the average of every input channel j with
// j%out == c when downmixing, and a copy of input channel c%in otherwise,
// so mono is averaged down and duplicated up.
type ChannelMixer struct {
	src io.Reader
	in  int
	out int
	tmp []byte
}

func NewChannelMixer(src io.Reader, in, out int) *ChannelMixer {
	return &ChannelMixer{
		src: src,
		in:  in,
		out: out,
		tmp: make([]byte, 4096*in*2),
	}
}

// Read fills p with whole output frames.
func (m *ChannelMixer) Read(p []byte) (int, error) {
	if m.in == m.out {
		return m.src.Read(p)
	}

	frames := len(p) / (m.out * 2)
	if frames == 0 {
		return 0, ErrShortBuffer
	}

	need := frames * m.in * 2
	if cap(m.tmp) < need {
		m.tmp = make([]byte, need)
	}
	m.tmp = m.tmp[:need]

	n, err := io.ReadFull(m.src, m.tmp)
	frames = n / (m.in * 2)
	if frames == 0 {
		if err == nil || errors.Is(err, io.ErrUnexpectedEOF) {
			err = io.EOF
		}
		return 0, err
	}
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("%w", err)
	}

	for f := range frames {
		src := m.tmp[f*m.in*2:]
		dst := p[f*m.out*2:]

		if m.in < m.out {
			for c := range m.out {
				copy(dst[c*2:c*2+2], src[(c%m.in)*2:])
			}
			continue
		}

		for c := range m.out {
			sum, count := 0, 0
			for j := c; j < m.in; j += m.out {
				sum += int(int16(binary.LittleEndian.Uint16(src[j*2:])))
				count++
			}
			binary.LittleEndian.PutUint16(dst[c*2:], uint16(int16(sum/count)))
		}
	}

	return frames * m.out * 2, nil
}
