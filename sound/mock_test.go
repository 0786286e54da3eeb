// SPDX-License-Identifier: EPL-2.0

package sound

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ik5/audstream/audio"
	"github.com/ik5/audstream/internal/audiotest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var errVoiceClosed = errors.New("voice closed")

// submission records a buffer as it was when queued; stream buffers are
// refilled in place later.
type submission struct {
	base  int
	n     int
	frame int
}

// mockVoice queues buffers and plays them only when the test says so.
type mockVoice struct {
	mu        sync.Mutex
	format    audio.Format
	sink      CompletionSink
	queue     []*Buffer
	submitted []*Buffer
	subs      []submission
	started   bool
	offset    int
	volume    float64
	flushes   int
	closed    bool
}

func newMockVoice(f audio.Format, sink CompletionSink) *mockVoice {
	return &mockVoice{format: f, sink: sink, volume: 1}
}

func (v *mockVoice) Submit(b *Buffer) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return errVoiceClosed
	}
	v.queue = append(v.queue, b)
	v.submitted = append(v.submitted, b)
	v.subs = append(v.subs, submission{base: b.Base(), n: b.Len(), frame: firstFrame(b)})
	return nil
}

func (v *mockVoice) Start() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.started = true
}

func (v *mockVoice) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.started = false
}

func (v *mockVoice) Flush() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.queue = nil
	v.offset = 0
	v.flushes++
}

func (v *mockVoice) QueuedCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	return len(v.queue)
}

func (v *mockVoice) PlaybackByteOffset() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.offset
}

func (v *mockVoice) SetVolume(vol float64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.volume = vol
}

func (v *mockVoice) Volume() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.volume
}

func (v *mockVoice) FormatHash() uint32 { return v.format.Hash() }

func (v *mockVoice) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.closed = true
	return nil
}

// Advance moves the play head n bytes into the head buffer.
func (v *mockVoice) Advance(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.offset += n
}

// Consume plays the head buffer to its end and reports it to the sink the
// way a backend would: after unlocking.
func (v *mockVoice) Consume() *Buffer {
	v.mu.Lock()
	if len(v.queue) == 0 {
		v.mu.Unlock()
		return nil
	}
	b := v.queue[0]
	v.queue = v.queue[1:]
	v.offset = 0
	drained := len(v.queue) == 0
	sink := v.sink
	v.mu.Unlock()

	if sink != nil {
		sink.OnBufferConsumed(b)
		if drained {
			sink.OnStreamDrained()
		}
	}
	return b
}

func (v *mockVoice) Queue() []*Buffer {
	v.mu.Lock()
	defer v.mu.Unlock()

	return append([]*Buffer(nil), v.queue...)
}

func (v *mockVoice) Started() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.started
}

func (v *mockVoice) Closed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.closed
}

func (v *mockVoice) Flushes() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.flushes
}

type mockFactory struct {
	mu     sync.Mutex
	voices []*mockVoice
}

func (f *mockFactory) NewVoice(format audio.Format, sink CompletionSink) (Voice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v := newMockVoice(format, sink)
	f.voices = append(f.voices, v)
	return v, nil
}

func (f *mockFactory) Voices() []*mockVoice {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]*mockVoice(nil), f.voices...)
}

func (f *mockFactory) Last() *mockVoice {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.voices) == 0 {
		return nil
	}
	return f.voices[len(f.voices)-1]
}

const (
	testRate  = 8000
	testAlign = 4
	// bytes in one second of 8kHz stereo 16-bit PCM
	testSecond = testRate * testAlign
)

func newEndpoint(f audio.Format) (Endpoint, *mockVoice) {
	v := newMockVoice(f, nil)
	return Endpoint{ID: uuid.New(), Voice: v}, v
}

func testOpener(frames int) *audiotest.Opener {
	o := audiotest.NewOpener()
	o.Add("ramp.wav", func() audio.Source {
		return audiotest.NewRampSource(testRate, 2, frames)
	})
	o.Add("short.wav", func() audio.Source {
		return audiotest.NewRampSource(testRate, 2, testRate/2)
	})
	o.Add("mono.wav", func() audio.Source {
		return audiotest.NewRampSource(testRate*2, 1, testRate)
	})
	o.Add("empty.wav", func() audio.Source {
		return audiotest.NewRampSource(testRate, 2, 0)
	})
	return o
}

func testOptions(o Opener) Options {
	return Options{BlockDuration: time.Second, Logger: zerolog.Nop(), Opener: o}
}

// loadStream loads a ramp stream of the given length in frames.
func loadStream(t *testing.T, frames int) *StreamingSound {
	t.Helper()

	s := NewStreamingSound(testOptions(testOpener(frames)))
	require.NoError(t, s.Load("ramp.wav"))
	return s
}

func loadStatic(t *testing.T, frames int) *StaticSound {
	t.Helper()

	s := NewStaticSound(testOptions(testOpener(frames)))
	require.NoError(t, s.Load("ramp.wav"))
	return s
}

// cursor reaches into s for the cursor of ep. Tests run single threaded.
func cursor(t *testing.T, s *StreamingSound, ep Endpoint) *PlaybackCursor {
	t.Helper()

	c, ok := s.cursors[ep.ID]
	require.True(t, ok, "listener is not bound")
	return c
}

// firstFrame is the ramp value at the start of b.
func firstFrame(b *Buffer) int {
	if b.Len() < 2 {
		return -1
	}
	return audiotest.FrameAt(b.Data(), 0)
}
