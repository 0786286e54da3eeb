// SPDX-License-Identifier: EPL-2.0

package voice

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/ik5/audstream/audio"
	"github.com/ik5/audstream/sound"
	"github.com/rs/zerolog"
)

// oto allows a single context per process. It is created by the first
// voice, suspended when the last voice closes and resumed by the next one.
var device struct {
	mu     sync.Mutex
	ctx    *oto.Context
	rate   int
	chans  int
	refs   int
	logger zerolog.Logger
}

func acquireContext(rate, chans int, bufferSize time.Duration, logger zerolog.Logger) (*oto.Context, error) {
	device.mu.Lock()
	defer device.mu.Unlock()

	if device.ctx == nil {
		op := &oto.NewContextOptions{
			SampleRate:   rate,
			ChannelCount: chans,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   bufferSize,
		}

		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			return nil, fmt.Errorf("failed to create oto context: %w", err)
		}
		<-ready

		device.ctx = ctx
		device.rate = rate
		device.chans = chans
		device.logger = logger
		logger.Info().Int("sample_rate", rate).Int("channels", chans).Msg("audio device initialized")
	}

	if device.rate != rate || device.chans != chans {
		return nil, fmt.Errorf("%w: %dHz %dch, want %dHz %dch",
			ErrDeviceFormat, device.rate, device.chans, rate, chans)
	}

	if device.refs == 0 {
		if err := device.ctx.Resume(); err != nil {
			return nil, fmt.Errorf("resume audio device: %w", err)
		}
	}
	device.refs++

	return device.ctx, nil
}

func releaseContext() {
	device.mu.Lock()
	defer device.mu.Unlock()

	if device.refs == 0 {
		return
	}
	device.refs--
	if device.refs > 0 {
		return
	}

	if err := device.ctx.Suspend(); err != nil {
		device.logger.Warn().Err(err).Msg("suspend audio device")
		return
	}
	device.logger.Info().Msg("audio device suspended")
}

// Device creates voices that play through the system audio output. The
// output runs at one sample rate and channel count; voices for other
// formats are converted on the way out.
type Device struct {
	format     audio.Format
	bufferSize time.Duration
	logger     zerolog.Logger
}

// NewDevice returns a voice factory backed by oto that outputs sampleRate Hz
// with channels channels. bufferSize is the driver buffer, zero picks the
// platform default.
func NewDevice(sampleRate, channels int, bufferSize time.Duration, logger zerolog.Logger) *Device {
	return &Device{
		format:     audio.NewFormat(sampleRate, channels, 2, 0),
		bufferSize: bufferSize,
		logger:     logger.With().Str("component", "device").Logger(),
	}
}

// Format is the format the device plays at.
func (d *Device) Format() audio.Format { return d.format }

func (d *Device) NewVoice(f audio.Format, sink sound.CompletionSink) (sound.Voice, error) {
	if f.BytesPerSample != 2 {
		return nil, fmt.Errorf("%w: %d-bit", ErrUnsupportedFormat, f.BitDepth())
	}

	q := NewQueue(f, sink)
	out, err := newOutput(q, f, d.format)
	if err != nil {
		return nil, err
	}

	ctx, err := acquireContext(d.format.SampleRate, d.format.Channels, d.bufferSize, d.logger)
	if err != nil {
		return nil, err
	}

	v := &Voice{Queue: q, out: out, player: ctx.NewPlayer(out), logger: d.logger}
	// the player pulls silence until the queue is started
	v.player.Play()
	activeVoices.Inc()

	d.logger.Debug().
		Uint32("format_hash", f.Hash()).
		Bool("converted", out.conv != nil).
		Msg("voice opened")

	return v, nil
}

// output is what a player reads: the queue itself, or the queue converted
// to the device format.
type output struct {
	q    *Queue
	conv *audio.Converter
}

func newOutput(q *Queue, from, to audio.Format) (*output, error) {
	o := &output{q: q}
	if from.SampleRate == to.SampleRate && from.Channels == to.Channels {
		return o, nil
	}

	conv, err := audio.NewConverter(q, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
	}
	o.conv = conv
	return o, nil
}

func (o *output) Read(p []byte) (int, error) {
	if o.conv == nil {
		return o.q.Read(p)
	}
	return o.conv.Read(p)
}

// pending returns how many bytes of the queue's format were read from the
// queue but are not audible yet, given what the player holds back.
func (o *output) pending(playerBuffered int) int {
	if o.conv == nil {
		return playerBuffered
	}
	return o.conv.SourceBytes(playerBuffered) + o.conv.Buffered()
}

// Voice is a Queue played by an oto player. Volume is applied by the Queue,
// the player always runs at full gain.
type Voice struct {
	*Queue

	mu     sync.Mutex
	out    *output
	player *oto.Player
	logger zerolog.Logger
	closed bool
}

// PlaybackByteOffset excludes what the player and the converter have read
// ahead but not yet played. It is negative while the tail of an already
// finished buffer is still being played.
func (v *Voice) PlaybackByteOffset() int {
	return v.Queue.PlaybackByteOffset() - v.out.pending(v.player.BufferedSize())
}

func (v *Voice) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return nil
	}
	v.closed = true

	v.player.Pause()
	_ = v.Queue.Close()
	err := v.player.Close()
	releaseContext()
	activeVoices.Dec()

	if err != nil {
		return fmt.Errorf("close player: %w", err)
	}
	return nil
}
