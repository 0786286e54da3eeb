// SPDX-License-Identifier: EPL-2.0

package sound

import (
	"errors"
	"testing"

	"github.com/ik5/audstream/audio"
	"github.com/ik5/audstream/internal/audiotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2.5 seconds at 8kHz
const twoAndHalf = testRate * 5 / 2

func TestStreamingSoundLoad(t *testing.T) {
	s := loadStream(t, twoAndHalf)

	assert.True(t, s.IsLoaded())
	assert.True(t, s.IsStream())
	assert.Equal(t, testSecond, s.BlockBytes())
	assert.Equal(t, twoAndHalf, s.Size())
	assert.Equal(t, twoAndHalf*testAlign, s.Format().TotalBytes)

	first := s.FirstBuffer()
	require.NotNil(t, first)
	assert.Equal(t, testSecond, first.Len())
	assert.Equal(t, 0, first.Base())
	assert.True(t, first.IsShared())
	assert.False(t, first.IsEndOfStream())

	assert.ErrorIs(t, s.Load("ramp.wav"), ErrAlreadyLoaded)
}

func TestStreamingSoundLoadErrors(t *testing.T) {
	tests := []struct {
		name   string
		opener Opener
		path   string
		want   error
	}{
		{name: "no opener", path: "ramp.wav", want: ErrNoOpener},
		{name: "missing file", opener: testOpener(10), path: "missing.wav"},
		{name: "empty stream", opener: testOpener(10), path: "empty.wav", want: ErrEmptyStream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStreamingSound(testOptions(tt.opener))
			err := s.Load(tt.path)
			require.Error(t, err)
			assert.False(t, s.IsLoaded())

			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
			if tt.opener != nil {
				var de *audio.DecodeError
				assert.True(t, errors.As(err, &de))
			}
		})
	}
}

func TestStreamingSoundShortStream(t *testing.T) {
	o := testOpener(10)
	s := NewStreamingSound(testOptions(o))
	require.NoError(t, s.Load("short.wav"))

	ep, v := newEndpoint(s.Format())
	require.NoError(t, s.BindSource(ep))

	// half a second fits in the first block, nothing else to queue
	require.Len(t, v.Queue(), 1)
	assert.Same(t, s.FirstBuffer(), v.Queue()[0])
	assert.True(t, s.FirstBuffer().IsEndOfStream())
	assert.True(t, s.IsEOS(ep))

	state, ok := s.Cursor(ep)
	require.True(t, ok)
	assert.Nil(t, state.Back)
	assert.Equal(t, testSecond/2, state.Next)
}

// Double buffering over a 2.5s stream with 1s blocks.
func TestStreamingSoundDoubleBuffer(t *testing.T) {
	s := loadStream(t, twoAndHalf)
	total := s.Format().TotalBytes

	ep, v := newEndpoint(s.Format())
	require.NoError(t, s.BindSource(ep))
	assert.Equal(t, 1, s.RefCount())

	c := cursor(t, s, ep)
	require.Len(t, v.Queue(), 2)
	assert.Same(t, s.FirstBuffer(), c.front)
	assert.Same(t, c.front, v.Queue()[0])
	assert.Same(t, c.back, v.Queue()[1])
	assert.Equal(t, 0, c.base)
	assert.Equal(t, testSecond, c.back.Base())
	assert.Equal(t, testRate, firstFrame(c.back))
	assert.Equal(t, 2*testSecond, c.next)
	assert.False(t, s.IsEOS(ep))

	require.True(t, s.streamNext(c, nil))
	assert.Equal(t, testSecond, c.base)
	assert.Equal(t, testSecond, c.front.Base())
	assert.Equal(t, 2*testSecond, c.back.Base())
	assert.Equal(t, testSecond/2, c.back.Len())
	assert.Equal(t, 2*testRate, firstFrame(c.back))
	assert.True(t, c.back.IsEndOfStream())
	assert.Equal(t, total, c.next)
	assert.True(t, s.IsEOS(ep))

	// the freed first block got a fresh buffer, it is never refilled
	assert.NotSame(t, s.FirstBuffer(), c.back)
	assert.Equal(t, 0, s.FirstBuffer().Base())
	assert.Equal(t, 0, firstFrame(s.FirstBuffer()))

	assert.False(t, s.streamNext(c, nil))
	assert.Equal(t, total, c.next)
}

// Cursors over one stream are independent.
func TestStreamingSoundIndependentCursors(t *testing.T) {
	s := loadStream(t, twoAndHalf)

	ep1, v1 := newEndpoint(s.Format())
	ep2, v2 := newEndpoint(s.Format())
	require.NoError(t, s.BindSource(ep1))
	require.NoError(t, s.BindSource(ep2))
	assert.Equal(t, 2, s.RefCount())

	// both start on the shared first block
	assert.Same(t, v1.Queue()[0], v2.Queue()[0])

	before, ok := s.Cursor(ep2)
	require.True(t, ok)

	v1.Consume()
	require.True(t, s.BufferDone(ep1, v1.submitted[0]))

	after, ok := s.Cursor(ep2)
	require.True(t, ok)
	assert.Equal(t, before, after)

	c1, _ := s.Cursor(ep1)
	assert.Equal(t, testSecond, c1.Base)
	assert.Equal(t, s.Format().TotalBytes, c1.Next)

	// ep2 still decodes its own back buffer from the shared source
	v2.Consume()
	require.True(t, s.BufferDone(ep2, v2.submitted[0]))
	c2, _ := s.Cursor(ep2)
	assert.Equal(t, c1.Base, c2.Base)
	assert.NotSame(t, c1.Back, c2.Back)
	assert.Equal(t, 2*testRate, firstFrame(c2.Back))
}

// nextPos never goes backwards and every queued buffer continues the
// previous one.
func TestStreamingSoundMonotonic(t *testing.T) {
	const frames = testRate*7 + 123

	s := loadStream(t, frames)
	total := s.Format().TotalBytes

	ep, v := newEndpoint(s.Format())
	require.NoError(t, s.BindSource(ep))

	prev := 0
	for {
		b := v.Consume()
		require.NotNil(t, b)
		if !s.BufferDone(ep, b) {
			break
		}
		state, _ := s.Cursor(ep)
		assert.GreaterOrEqual(t, state.Next, prev)
		assert.LessOrEqual(t, state.Next, total)
		prev = state.Next
	}

	assert.True(t, s.IsEOS(ep))

	end := 0
	for _, sub := range v.subs {
		require.Equal(t, end, sub.base)
		assert.Equal(t, (sub.base/testAlign)%32768, sub.frame)
		end = sub.base + sub.n
	}
	assert.Equal(t, total, end)
}

// Once at the end nothing changes until a reset.
func TestStreamingSoundEOSIdempotent(t *testing.T) {
	s := loadStream(t, twoAndHalf)

	ep, v := newEndpoint(s.Format())
	require.NoError(t, s.BindSource(ep))

	c := cursor(t, s, ep)
	require.True(t, s.streamNext(c, nil))
	require.True(t, s.IsEOS(ep))

	state := c.state()
	submitted := len(v.submitted)
	src := s.src.(*audiotest.MockSource)
	reads := src.Reads()

	for range 5 {
		assert.False(t, s.streamNext(c, nil))
		assert.Equal(t, 0, s.Stream(ep))
	}
	assert.Equal(t, state, c.state())
	assert.Len(t, v.submitted, submitted)
	assert.Equal(t, reads, src.Reads())

	require.NoError(t, s.ResetStream(ep))
	assert.False(t, s.IsEOS(ep))
	assert.Equal(t, 2*testSecond, c.next)
}

func TestStreamingSoundBusy(t *testing.T) {
	s := loadStream(t, twoAndHalf)

	ep, _ := newEndpoint(s.Format())
	require.NoError(t, s.BindSource(ep))

	c := cursor(t, s, ep)
	c.busy = true
	state := c.state()

	assert.False(t, s.streamNext(c, nil))
	assert.Equal(t, state, c.state())
}

func TestStreamingSoundStaleCompletion(t *testing.T) {
	s := loadStream(t, testRate*4)

	ep, v := newEndpoint(s.Format())
	require.NoError(t, s.BindSource(ep))
	first := v.Queue()[0]
	back := v.Queue()[1]

	// still queued on the voice
	assert.False(t, s.BufferDone(ep, first))
	// not the front buffer
	v.Consume()
	assert.False(t, s.BufferDone(ep, back))

	// a seek flushes the voice; the completion of the old front is late
	require.NoError(t, s.Seek(ep, testRate))
	assert.False(t, s.BufferDone(ep, first))

	c, _ := s.Cursor(ep)
	assert.Equal(t, testSecond, c.Base)
	assert.Equal(t, 3*testSecond, c.Next)

	other, _ := newEndpoint(s.Format())
	assert.False(t, s.BufferDone(other, first))
}

func TestStreamingSoundStreamAll(t *testing.T) {
	s := loadStream(t, testRate*5)

	ep, v := newEndpoint(s.Format())
	require.NoError(t, s.BindSource(ep))

	// nothing consumed, nothing to do
	assert.Equal(t, 0, s.StreamAll())

	v.Consume()
	v.Consume()
	require.Equal(t, 2, s.StreamAll())

	q := v.Queue()
	require.Len(t, q, 2)
	assert.Equal(t, 2*testSecond, q[0].Base())
	assert.Equal(t, 3*testSecond, q[1].Base())

	c, _ := s.Cursor(ep)
	assert.Equal(t, 2*testSecond, c.Base)
	assert.Equal(t, 4*testSecond, c.Next)
	assert.Same(t, q[0], c.Front)

	v.Consume()
	assert.Equal(t, 1, s.Stream(ep))
	assert.Equal(t, s.Format().TotalBytes, cursor(t, s, ep).next)
}

// Seek targets, including the wrap-to-start policy.
func TestStreamingSoundSeek(t *testing.T) {
	tests := []struct {
		name      string
		samplePos int
		wantBase  int
	}{
		{name: "start", samplePos: 0, wantBase: 0},
		{name: "mid block", samplePos: 12000, wantBase: 12000 * testAlign},
		{name: "last frame", samplePos: twoAndHalf - 1, wantBase: (twoAndHalf - 1) * testAlign},
		{name: "size wraps", samplePos: twoAndHalf, wantBase: 0},
		{name: "past end wraps", samplePos: twoAndHalf * 3, wantBase: 0},
		{name: "negative wraps", samplePos: -5, wantBase: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := loadStream(t, twoAndHalf)

			ep, v := newEndpoint(s.Format())
			require.NoError(t, s.BindSource(ep))
			v.Start()

			require.NoError(t, s.Seek(ep, tt.samplePos))
			assert.False(t, v.Started())

			c := cursor(t, s, ep)
			assert.Equal(t, tt.wantBase, c.base)
			assert.Equal(t, tt.wantBase/testAlign, s.SamplePos(ep))
			assert.Equal(t, tt.wantBase, c.front.Base())
			assert.Equal(t, tt.wantBase/testAlign, firstFrame(c.front))
			if tt.wantBase == 0 {
				assert.Same(t, s.FirstBuffer(), c.front)
			}
			assert.LessOrEqual(t, c.next, s.Format().TotalBytes)
			assert.Equal(t, c.held(), v.QueuedCount())
		})
	}
}

func TestStreamingSoundSamplePos(t *testing.T) {
	s := loadStream(t, twoAndHalf)

	ep, v := newEndpoint(s.Format())
	require.NoError(t, s.BindSource(ep))

	v.Advance(100 * testAlign)
	assert.Equal(t, 100, s.SamplePos(ep))

	// played out but the completion has not been handled yet
	v.Consume()
	assert.Equal(t, testRate, s.SamplePos(ep))
	v.Advance(10 * testAlign)
	assert.Equal(t, testRate+10, s.SamplePos(ep))

	require.True(t, s.BufferDone(ep, v.submitted[0]))
	assert.Equal(t, testRate+10, s.SamplePos(ep))

	// output latency can put the audible position behind the queue head
	v.Advance(-20 * testAlign)
	assert.Equal(t, testRate-10, s.SamplePos(ep))

	other, _ := newEndpoint(s.Format())
	assert.Equal(t, 0, s.SamplePos(other))
}

// The first block is never released.
func TestStreamingSoundFirstBufferKept(t *testing.T) {
	s := loadStream(t, twoAndHalf)
	first := s.FirstBuffer()

	ep, v := newEndpoint(s.Format())
	require.NoError(t, s.BindSource(ep))

	require.NoError(t, s.ResetStream(ep))
	require.NoError(t, s.Seek(ep, twoAndHalf))
	v.Consume()
	require.True(t, s.BufferDone(ep, first))
	require.NoError(t, s.Seek(ep, 0))
	require.NoError(t, s.UnbindSource(ep))

	assert.False(t, first.IsReleased())
	assert.Same(t, first, s.FirstBuffer())
	assert.Equal(t, testSecond, first.Len())
	assert.Equal(t, 0, firstFrame(first))
	assert.Equal(t, 1000, audiotest.FrameAt(first.Data(), 1000*testAlign))
}

func TestStreamingSoundReleasesTransientBuffers(t *testing.T) {
	s := loadStream(t, twoAndHalf)

	ep, v := newEndpoint(s.Format())
	require.NoError(t, s.BindSource(ep))
	back := v.Queue()[1]

	require.NoError(t, s.UnbindSource(ep))
	assert.True(t, back.IsReleased())
	assert.Nil(t, back.Data())
	assert.Zero(t, v.QueuedCount())
	assert.Equal(t, 1, v.Flushes())
	assert.Equal(t, 0, s.RefCount())
}

func TestStreamingSoundBindErrors(t *testing.T) {
	s := NewStreamingSound(testOptions(testOpener(twoAndHalf)))
	ep, _ := newEndpoint(audio.Format{})
	assert.ErrorIs(t, s.BindSource(ep), ErrNotLoaded)

	require.NoError(t, s.Load("ramp.wav"))
	require.NoError(t, s.BindSource(ep))
	assert.ErrorIs(t, s.BindSource(ep), ErrDoubleBind)
	assert.Equal(t, 1, s.RefCount())

	assert.ErrorIs(t, s.BindSource(Endpoint{ID: ep.ID}), ErrDoubleBind)
	noVoice, _ := newEndpoint(s.Format())
	noVoice.Voice = nil
	assert.ErrorIs(t, s.BindSource(noVoice), ErrNoVoice)

	stranger, _ := newEndpoint(s.Format())
	assert.ErrorIs(t, s.UnbindSource(stranger), ErrNotBound)
	assert.ErrorIs(t, s.Seek(stranger, 0), ErrNotBound)
	assert.ErrorIs(t, s.ResetStream(stranger), ErrNotBound)
	assert.True(t, s.IsEOS(stranger))
	assert.Equal(t, 0, s.Stream(stranger))
}

// Stream refcount follows binds and unbinds, unload needs zero.
func TestStreamingSoundUnload(t *testing.T) {
	s := loadStream(t, twoAndHalf)
	src := s.src.(*audiotest.MockSource)

	ep1, _ := newEndpoint(s.Format())
	ep2, _ := newEndpoint(s.Format())
	require.NoError(t, s.BindSource(ep1))
	require.NoError(t, s.BindSource(ep2))

	assert.ErrorIs(t, s.Unload(), ErrStillReferenced)
	require.NoError(t, s.UnbindSource(ep1))
	assert.ErrorIs(t, s.Unload(), ErrStillReferenced)
	assert.True(t, s.IsLoaded())
	assert.False(t, src.Closed())

	require.NoError(t, s.UnbindSource(ep2))
	require.NoError(t, s.Unload())
	assert.False(t, s.IsLoaded())
	assert.True(t, src.Closed())
	assert.Nil(t, s.FirstBuffer())

	// unloading an empty sound is fine
	require.NoError(t, s.Unload())
	// and it can be loaded again
	require.NoError(t, s.Load("ramp.wav"))
}
