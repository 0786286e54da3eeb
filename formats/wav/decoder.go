// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"fmt"
	"io"

	gowav "github.com/go-audio/wav"
	"github.com/ik5/audstream/audio"
)

type Decoder struct{}

// Decode parses the RIFF headers with go-audio/wav and returns a Source that
// reads the data chunk directly. Only 16-bit integer PCM is accepted.
func (Decoder) Decode(rs io.ReadSeeker) (audio.Source, error) {
	dec := gowav.NewDecoder(rs)

	// IsValidFile parses the headers; Err hides io.EOF so a short input
	// must be caught here.
	if !dec.IsValidFile() {
		if err := dec.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNotWavFile, err)
		}
		return nil, ErrNotWavFile
	}

	if dec.WavAudioFormat != 1 || dec.BitDepth != 16 {
		return nil, ErrOnlyPCM16bitSupported
	}
	if dec.NumChans == 0 || dec.SampleRate == 0 {
		return nil, ErrUnsupportedWavLayout
	}

	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedWavChunks, err)
	}

	dataStart, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	f := audio.NewFormat(int(dec.SampleRate), int(dec.NumChans), 2, dec.PCMSize)

	var closer io.Closer
	if c, ok := rs.(io.Closer); ok {
		closer = c
	}

	return audio.NewPCMSource(rs, dataStart, f, closer), nil
}
