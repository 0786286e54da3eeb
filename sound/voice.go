// SPDX-License-Identifier: EPL-2.0

package sound

import (
	"github.com/google/uuid"
	"github.com/ik5/audstream/audio"
)

// Voice is a playback channel that consumes queued Buffers in order.
//
// Implementations report completions through the CompletionSink given at
// creation. The sink may be called from any goroutine but never while the
// Voice holds its own lock, so a sink may call back into the Voice.
type Voice interface {
	Submit(b *Buffer) error
	Start()
	// Stop suspends playback and keeps queued buffers.
	Stop()
	// Flush drops every queued buffer without reporting completions.
	Flush()
	QueuedCount() int
	// PlaybackByteOffset is the number of bytes already played from the
	// buffer at the head of the queue.
	PlaybackByteOffset() int
	SetVolume(v float64)
	Volume() float64
	FormatHash() uint32
	Close() error
}

// CompletionSink receives Voice events.
type CompletionSink interface {
	// OnBufferConsumed fires once for every submitted buffer that was played
	// to its end.
	OnBufferConsumed(b *Buffer)
	// OnStreamDrained fires when the last queued buffer has been consumed.
	OnStreamDrained()
}

type VoiceFactory interface {
	NewVoice(f audio.Format, sink CompletionSink) (Voice, error)
}

// VoiceFactoryFunc adapts a function to VoiceFactory.
type VoiceFactoryFunc func(f audio.Format, sink CompletionSink) (Voice, error)

func (fn VoiceFactoryFunc) NewVoice(f audio.Format, sink CompletionSink) (Voice, error) {
	return fn(f, sink)
}

// Endpoint is what a Sound gets to see of a Listener: an identity and the
// Voice to queue buffers on.
type Endpoint struct {
	ID    uuid.UUID
	Voice Voice
}
