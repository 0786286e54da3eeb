// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"
)

// Converter is an io.Reader of 16-bit PCM at a target format.
type Converter struct {
	from, to  Format
	r         io.Reader
	resampler *Resampler
}

// NewConverter wraps src, which yields 16-bit PCM in format from, so that it
// yields 16-bit PCM in format to. Channels are mixed first, then the rate is
// changed. Only the rate and channel count of the formats are used.
func NewConverter(src io.Reader, from, to Format) (*Converter, error) {
	if from.BytesPerSample != 2 || to.BytesPerSample != 2 {
		return nil, fmt.Errorf("%w: %d-bit to %d-bit", ErrUnsupportedConversion, from.BitDepth(), to.BitDepth())
	}
	if from.Channels < 1 || to.Channels < 1 || from.SampleRate < 1 || to.SampleRate < 1 {
		return nil, ErrInvalidFormat
	}

	c := &Converter{from: from, to: to, r: src}
	if from.Channels != to.Channels {
		c.r = NewChannelMixer(c.r, from.Channels, to.Channels)
	}
	if from.SampleRate != to.SampleRate {
		c.resampler = NewResampler(c.r, from.SampleRate, to.SampleRate, to.Channels)
		c.r = c.resampler
	}

	return c, nil
}

func (c *Converter) Read(p []byte) (int, error) { return c.r.Read(p) }

// SourceBytes maps n bytes of converted output back to the number of bytes
// of the input they were made from.
func (c *Converter) SourceBytes(n int) int {
	frames := int64(n / c.to.BlockAlign)
	frames = frames * int64(c.from.SampleRate) / int64(c.to.SampleRate)
	return int(frames) * c.from.BlockAlign
}

// Buffered returns how many input bytes were read from src but have not
// been converted yet.
func (c *Converter) Buffered() int {
	if c.resampler == nil {
		return 0
	}
	// the resampler counts bytes after mixing
	frames := c.resampler.Buffered() / (c.to.Channels * 2)
	return frames * c.from.BlockAlign
}
