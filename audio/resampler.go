// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ik5/audstream/utils"
)

// resampleChunk is how many source frames a Resampler pulls per read.
const resampleChunk = 256

// Resampler reads interleaved 16-bit PCM from src and converts it to another
// sample rate using cubic interpolation, keeping the channel count. A simple
// low-pass filter is applied when downsampling.
type Resampler struct {
	src      io.Reader
	channels int
	ratio    float64 // source frames per output frame

	// frames[1] and frames[2] bracket the output position; [0] and [3]
	// are the outer taps.
	frames [4][]float32
	primed bool
	tail   int
	eof    bool
	pos    float64

	raw    []byte
	rawOff int
	rawLen int

	useFilter   bool
	filterReady bool
	filterAlpha float32
	filterState []float32
}

func NewResampler(src io.Reader, srcRate, dstRate, channels int) *Resampler {
	ratio := float64(srcRate) / float64(dstRate)

	r := &Resampler{
		src:         src,
		channels:    channels,
		ratio:       ratio,
		raw:         make([]byte, resampleChunk*channels*2),
		useFilter:   ratio > 1,
		filterAlpha: 0.5,
		filterState: make([]float32, channels),
	}
	for i := range r.frames {
		r.frames[i] = make([]float32, channels)
	}

	return r
}

// Buffered returns how many source bytes were read from src but not yet
// turned into output, including the interpolation look-ahead.
func (r *Resampler) Buffered() int {
	n := r.rawLen - r.rawOff
	if r.primed {
		n += 2 * r.channels * 2
	}
	return n
}

// readFrame decodes the next source frame into dst.
func (r *Resampler) readFrame(dst []float32) error {
	frameBytes := r.channels * 2

	if r.rawOff+frameBytes > r.rawLen {
		if r.eof {
			return io.EOF
		}

		n, err := io.ReadFull(r.src, r.raw)
		switch {
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			r.eof = true
		case err != nil:
			return fmt.Errorf("%w", err)
		}
		r.rawLen = n - n%frameBytes
		r.rawOff = 0
		if r.rawLen == 0 {
			return io.EOF
		}
	}

	for c := range r.channels {
		s := int16(binary.LittleEndian.Uint16(r.raw[r.rawOff+c*2:]))
		dst[c] = float32(s) / 32768
	}
	r.rawOff += frameBytes

	if r.useFilter {
		if !r.filterReady {
			// start at the first sample to avoid a warm-up ramp
			copy(r.filterState, dst)
			r.filterReady = true
		}
		for c := range r.channels {
			// one-pole low-pass: y[n] = a*x[n] + (1-a)*y[n-1]
			dst[c] = r.filterAlpha*dst[c] + (1-r.filterAlpha)*r.filterState[c]
			r.filterState[c] = dst[c]
		}
	}

	return nil
}

func (r *Resampler) prime() error {
	if err := r.readFrame(r.frames[1]); err != nil {
		return err
	}
	copy(r.frames[0], r.frames[1])

	for i := 2; i < 4; i++ {
		if err := r.readFrame(r.frames[i]); err != nil {
			if !errors.Is(err, io.EOF) {
				return err
			}
			copy(r.frames[i], r.frames[i-1])
			r.tail++
		}
	}

	r.primed = true
	return nil
}

// shift drops the oldest frame and reads a new one. Past the end of src the
// last frame is repeated until it has been interpolated.
func (r *Resampler) shift() error {
	if r.tail >= 2 {
		return io.EOF
	}

	r.frames[0], r.frames[1], r.frames[2], r.frames[3] = r.frames[1], r.frames[2], r.frames[3], r.frames[0]

	if err := r.readFrame(r.frames[3]); err != nil {
		if !errors.Is(err, io.EOF) {
			return err
		}
		copy(r.frames[3], r.frames[2])
		r.tail++
	}

	return nil
}

// Read fills p with whole output frames at the target rate.
func (r *Resampler) Read(p []byte) (int, error) {
	frameBytes := r.channels * 2
	want := len(p) / frameBytes
	if want == 0 {
		return 0, ErrShortBuffer
	}

	if !r.primed {
		if err := r.prime(); err != nil {
			return 0, err
		}
	}

	written := 0
	for written < want {
		for r.pos >= 1 {
			r.pos--
			if err := r.shift(); err != nil {
				// keep the position so the next Read reports the same error
				r.pos++
				if written == 0 {
					return 0, err
				}
				return written * frameBytes, nil
			}
		}

		alpha := float32(r.pos)
		out := p[written*frameBytes:]
		for c := range r.channels {
			v := utils.CubicInterpolate(r.frames[0][c], r.frames[1][c], r.frames[2][c], r.frames[3][c], alpha)
			binary.LittleEndian.PutUint16(out[c*2:], uint16(utils.Float32ToInt16(v)))
		}

		written++
		r.pos += r.ratio
	}

	return written * frameBytes, nil
}
