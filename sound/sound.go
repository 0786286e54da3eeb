// SPDX-License-Identifier: EPL-2.0

package sound

import (
	"time"

	"github.com/ik5/audstream/audio"
	"github.com/rs/zerolog"
)

// DefaultBlockDuration is the amount of audio decoded into one stream buffer.
const DefaultBlockDuration = time.Second

// Sound is decoded audio that Listeners bind to for playback.
type Sound interface {
	Load(path string) error
	// Unload releases the decoded data. It fails with ErrStillReferenced
	// while any listener is bound.
	Unload() error

	BindSource(ep Endpoint) error
	UnbindSource(ep Endpoint) error
	// ResetBuffer requeues the sound from its start on ep's voice.
	ResetBuffer(ep Endpoint) error
	// Seek requeues the sound from samplePos. Positions past the end map to 0.
	Seek(ep Endpoint, samplePos int) error
	// SamplePos is the current playback position in sample frames, 0 when
	// ep is not bound.
	SamplePos(ep Endpoint) int
	// BufferDone handles a completed buffer and reports whether a new one
	// was queued.
	BufferDone(ep Endpoint, b *Buffer) bool
	// Stream tops up ep's voice and returns the number of buffers queued.
	Stream(ep Endpoint) int
	IsEOS(ep Endpoint) bool

	IsStream() bool
	IsLoaded() bool
	RefCount() int
	Format() audio.Format
	// Size is the length of the sound in sample frames.
	Size() int
}

// Opener turns a path into a decoded Source. *audio.Registry implements it.
type Opener interface {
	Open(path string) (audio.Source, error)
}

type Options struct {
	// BlockDuration sizes stream buffers. Defaults to DefaultBlockDuration.
	BlockDuration time.Duration
	// Logger receives component logs. The zero value discards them.
	Logger zerolog.Logger
	Opener Opener
}

func (o Options) blockDuration() time.Duration {
	if o.BlockDuration <= 0 {
		return DefaultBlockDuration
	}
	return o.BlockDuration
}

func (o Options) logger(component string) zerolog.Logger {
	return o.Logger.With().Str("component", component).Logger()
}

// wrapTarget maps a sample position to an aligned byte offset inside a
// stream of total bytes. Out of range positions map to 0.
func wrapTarget(f audio.Format, samplePos int) int {
	if samplePos < 0 || samplePos >= f.Frames() {
		return 0
	}
	return samplePos * f.BlockAlign
}
