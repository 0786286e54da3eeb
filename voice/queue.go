// SPDX-License-Identifier: EPL-2.0

package voice

import (
	"fmt"
	"io"
	"sync"

	"github.com/ik5/audstream/audio"
	"github.com/ik5/audstream/sound"
	"github.com/ik5/audstream/utils"
)

// Queue is a software voice: submitted buffers are played by whoever reads
// from it. A stopped or empty Queue reads as silence, so an output device
// can pull from it continuously.
//
// Completions are reported to the sink after the queue lock is released.
type Queue struct {
	mu      sync.Mutex
	format  audio.Format
	sink    sound.CompletionSink
	bufs    []*sound.Buffer
	offset  int
	started bool
	volume  float64
	closed  bool
}

func NewQueue(f audio.Format, sink sound.CompletionSink) *Queue {
	return &Queue{format: f, sink: sink, volume: 1}
}

// NewHeadless returns a factory for Queues. Nothing reads from them unless
// the caller does, which makes them useful without an audio device.
func NewHeadless() sound.VoiceFactory {
	return sound.VoiceFactoryFunc(func(f audio.Format, sink sound.CompletionSink) (sound.Voice, error) {
		return NewQueue(f, sink), nil
	})
}

func (q *Queue) Submit(b *sound.Buffer) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	if b.FormatHash() != q.format.Hash() {
		return fmt.Errorf("%w: %08x != %08x", ErrFormatMismatch, b.FormatHash(), q.format.Hash())
	}

	q.bufs = append(q.bufs, b)
	return nil
}

func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.started = true
}

func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.started = false
}

func (q *Queue) Flush() {
	q.mu.Lock()
	defer q.mu.Unlock()

	clear(q.bufs)
	q.bufs = q.bufs[:0]
	q.offset = 0
}

func (q *Queue) QueuedCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.bufs)
}

func (q *Queue) PlaybackByteOffset() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.offset
}

func (q *Queue) SetVolume(v float64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.volume = v
}

func (q *Queue) Volume() float64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.volume
}

func (q *Queue) FormatHash() uint32 { return q.format.Hash() }

func (q *Queue) Started() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.started
}

// Read plays up to len(p) bytes, scaled by the volume, and pads the rest
// with silence. Only whole frames are played. It returns io.EOF once the
// queue is closed.
func (q *Queue) Read(p []byte) (int, error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return 0, io.EOF
	}

	want := len(p)
	if align := q.format.BlockAlign; align > 0 {
		want -= want % align
	}

	var done []*sound.Buffer
	drained := false
	n := 0
	if q.started {
		for n < want && len(q.bufs) > 0 {
			head := q.bufs[0]
			c := copy(p[n:want], head.Data()[q.offset:])
			n += c
			q.offset += c

			if q.offset >= head.Len() {
				q.bufs[0] = nil
				q.bufs = q.bufs[1:]
				q.offset = 0
				done = append(done, head)
				drained = len(q.bufs) == 0
			}
		}
		if n < want {
			underrunsTotal.Inc()
		}
	}
	sink := q.sink
	volume := q.volume
	q.mu.Unlock()

	utils.ApplyGainPCM16(p[:n], volume)
	clear(p[n:])
	bytesPlayedTotal.Add(float64(n))

	if sink != nil {
		for _, b := range done {
			sink.OnBufferConsumed(b)
		}
		if drained {
			sink.OnStreamDrained()
		}
	}

	return len(p), nil
}

// Close drops queued buffers. Later reads return io.EOF and later
// submissions fail.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.started = false
	q.bufs = nil
	q.offset = 0
	return nil
}
