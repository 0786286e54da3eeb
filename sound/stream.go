// SPDX-License-Identifier: EPL-2.0

package sound

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ik5/audstream/audio"
	"github.com/rs/zerolog"
)

// StreamingSound decodes a file incrementally. Every bound listener gets a
// PlaybackCursor with up to two buffers in flight, and all cursors share one
// Source. The mutex serialises every Source read and seek and every cursor
// mutation, so completions may arrive from any goroutine.
type StreamingSound struct {
	mu     sync.Mutex
	opener Opener
	logger zerolog.Logger
	blockD time.Duration

	path   string
	src    audio.Source
	format audio.Format
	block  int

	// first holds the opening block for the sound's whole lifetime and is
	// queued directly whenever a cursor starts at 0.
	first   *Buffer
	pool    *blockPool
	cursors map[uuid.UUID]*PlaybackCursor
}

func NewStreamingSound(opts Options) *StreamingSound {
	return &StreamingSound{
		opener:  opts.Opener,
		logger:  opts.logger("streaming_sound"),
		blockD:  opts.blockDuration(),
		cursors: make(map[uuid.UUID]*PlaybackCursor),
	}
}

// Load opens path and eagerly decodes its first block.
func (s *StreamingSound) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.src != nil {
		return ErrAlreadyLoaded
	}
	if s.opener == nil {
		return ErrNoOpener
	}

	src, err := s.opener.Open(path)
	if err != nil {
		decodeErrorsTotal.Inc()
		return fmt.Errorf("%w", err)
	}

	f := src.Format()
	block := f.BlockBytes(s.blockD)
	if f.TotalBytes == 0 || block == 0 {
		src.Close()
		return &audio.DecodeError{Path: path, Err: ErrEmptyStream}
	}

	s.src = src
	s.format = f
	s.block = block
	s.pool = newBlockPool(block)

	first := newBuffer(make([]byte, min(block, f.TotalBytes)), f, uuid.Nil)
	first.shared = true
	if _, err := s.fill(first, 0); err != nil || first.Len() == 0 {
		src.Close()
		s.src = nil
		decodeErrorsTotal.Inc()
		if err == nil {
			err = ErrEmptyStream
		}
		return &audio.DecodeError{Path: path, Err: err}
	}
	s.first = first
	s.path = path

	s.logger.Info().
		Str("path", path).
		Int("sample_rate", f.SampleRate).
		Int("channels", f.Channels).
		Int("total_bytes", s.total()).
		Int("block_bytes", block).
		Msg("stream loaded")

	return nil
}

// total is the current stream length. A Source may shorten it when the file
// holds less than its header promised.
func (s *StreamingSound) total() int {
	return s.src.Format().TotalBytes
}

func (s *StreamingSound) Unload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.src == nil {
		return nil
	}
	if len(s.cursors) > 0 {
		s.logger.Warn().
			Str("path", s.path).
			Int("ref_count", len(s.cursors)).
			Msg("unload of a referenced stream refused, potential resource leak")
		return ErrStillReferenced
	}

	err := s.src.Close()
	s.src = nil
	s.first = nil
	s.pool = nil
	s.format = audio.Format{}
	s.logger.Info().Str("path", s.path).Msg("stream unloaded")

	if err != nil {
		return fmt.Errorf("close source: %w", err)
	}
	return nil
}

// fill decodes from stream offset pos into b, reusing b's backing array up
// to its capacity, and returns the bytes decoded.
func (s *StreamingSound) fill(b *Buffer, pos int) (int, error) {
	if s.src.Position() != pos {
		if _, err := s.src.Seek(pos); err != nil {
			return 0, fmt.Errorf("seek to %d: %w", pos, err)
		}
	}

	data := b.data[:cap(b.data)]
	if rest := s.total() - pos; len(data) > rest {
		data = data[:max(rest, 0)]
	}

	n := 0
	for n < len(data) {
		m, err := s.src.ReadSome(data[n:])
		n += m
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			b.data = data[:n]
			return n, fmt.Errorf("%w", err)
		}
		if m == 0 {
			break
		}
	}

	b.data = data[:n]
	b.base = pos
	b.eos = b.end() >= s.total()
	bytesDecodedTotal.Add(float64(n))

	return n, nil
}

func (s *StreamingSound) newTransient(owner uuid.UUID) *Buffer {
	return newBuffer(s.pool.get(), s.format, owner)
}

// release returns a transient buffer's memory to the pool. The shared first
// buffer and views of it are never released.
func (s *StreamingSound) release(b *Buffer) {
	if b == nil || b.shared || b.released {
		return
	}
	s.pool.put(b.data)
	b.data = nil
	b.released = true
	buffersReleasedTotal.Inc()
}

func (s *StreamingSound) submit(c *PlaybackCursor, b *Buffer) error {
	if err := c.voice.Submit(b); err != nil {
		return fmt.Errorf("submit buffer: %w", err)
	}
	buffersSubmittedTotal.WithLabelValues(kindStream).Inc()
	return nil
}

// loadStreamData queues the buffers for a cursor starting at pos: front at
// pos and, when more than one block remains, back right after it.
func (s *StreamingSound) loadStreamData(c *PlaybackCursor, pos int) error {
	c.busy = true
	defer func() { c.busy = false }()

	c.base = pos

	if pos == 0 {
		c.front = s.first
		c.next = s.first.Len()
	} else {
		front := s.newTransient(c.listener)
		n, err := s.fill(front, pos)
		if err != nil || n == 0 {
			s.release(front)
			decodeErrorsTotal.Inc()
			return s.streamError(err, pos)
		}
		c.front = front
		c.next = pos + n
	}

	if c.next < s.total() {
		back := s.newTransient(c.listener)
		n, err := s.fill(back, c.next)
		if err != nil || n == 0 {
			s.release(back)
			decodeErrorsTotal.Inc()
			s.logger.Error().Err(s.streamError(err, c.next)).Msg("back buffer decode failed")
		} else {
			c.back = back
			c.next += n
		}
	}

	if err := s.submit(c, c.front); err != nil {
		return err
	}
	if c.back != nil {
		if err := s.submit(c, c.back); err != nil {
			return err
		}
	}

	s.logger.Debug().
		Str("listener", c.listener.String()).
		Int("base", c.base).
		Int("next", c.next).
		Int("queued", c.held()).
		Msg("stream data loaded")

	return nil
}

func (s *StreamingSound) streamError(err error, pos int) error {
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return &audio.DecodeError{Path: s.path, Err: fmt.Errorf("decode at %d: %w", pos, err)}
}

// clearStreamData stops the cursor's voice, drops whatever it still has
// queued and releases the cursor's transient buffers.
func (s *StreamingSound) clearStreamData(c *PlaybackCursor) {
	c.busy = true
	defer func() { c.busy = false }()

	c.voice.Stop()
	if c.voice.QueuedCount() > 0 {
		c.voice.Flush()
	}

	s.release(c.back)
	s.release(c.front)
	c.front, c.back = nil, nil
}

// streamNext moves the cursor one block forward once its voice has finished
// the front buffer. done is the buffer the voice reported, nil when the
// caller already knows the front buffer was consumed.
func (s *StreamingSound) streamNext(c *PlaybackCursor, done *Buffer) bool {
	if c.busy {
		streamNextTotal.WithLabelValues(resultBusy).Inc()
		return false
	}
	if c.front == nil || c.next >= s.total() {
		streamNextTotal.WithLabelValues(resultEOS).Inc()
		return false
	}
	if done != nil && done != c.front {
		streamNextTotal.WithLabelValues(resultStale).Inc()
		return false
	}

	freed := c.front
	c.front, c.back = c.back, nil
	if c.front != nil {
		c.base = c.front.base
	} else {
		c.base = c.next
	}

	// the shared first buffer may still be queued on other voices
	refill := freed
	if freed.shared {
		refill = s.newTransient(c.listener)
	}

	n, err := s.fill(refill, c.next)
	if err != nil || n == 0 {
		s.release(refill)
		if c.front == nil {
			// nothing left in flight, keep the cursor consistent
			c.base = c.next
		}
		decodeErrorsTotal.Inc()
		streamNextTotal.WithLabelValues(resultError).Inc()
		s.logger.Error().
			Err(s.streamError(err, c.next)).
			Str("listener", c.listener.String()).
			Msg("stream refill failed")
		return false
	}

	c.next += n
	if c.front == nil {
		c.front = refill
	} else {
		c.back = refill
	}

	if err := s.submit(c, refill); err != nil {
		s.logger.Error().Err(err).Str("listener", c.listener.String()).Msg("stream refill not queued")
		streamNextTotal.WithLabelValues(resultError).Inc()
		return false
	}

	streamNextTotal.WithLabelValues(resultQueued).Inc()
	s.logger.Debug().
		Str("listener", c.listener.String()).
		Uint64("buffer", refill.id).
		Int("base", c.base).
		Int("next", c.next).
		Msg("stream buffer queued")

	return true
}

// topUp refills a cursor for every buffer its voice has consumed.
func (s *StreamingSound) topUp(c *PlaybackCursor) int {
	queued := 0
	// at most both buffers can have been consumed
	for range 2 {
		if c.voice.QueuedCount() >= c.held() {
			break
		}
		if !s.streamNext(c, nil) {
			break
		}
		queued++
	}
	return queued
}

func (s *StreamingSound) BindSource(ep Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.src == nil {
		return ErrNotLoaded
	}
	if _, ok := s.cursors[ep.ID]; ok {
		return ErrDoubleBind
	}
	if ep.Voice == nil {
		return ErrNoVoice
	}

	c := newPlaybackCursor(ep)
	if err := s.loadStreamData(c, 0); err != nil {
		s.clearStreamData(c)
		return err
	}

	s.cursors[ep.ID] = c
	boundListeners.Inc()
	s.logger.Debug().Str("listener", ep.ID.String()).Int("ref_count", len(s.cursors)).Msg("listener bound")

	return nil
}

func (s *StreamingSound) UnbindSource(ep Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cursors[ep.ID]
	if !ok {
		return ErrNotBound
	}

	s.clearStreamData(c)
	delete(s.cursors, ep.ID)
	boundListeners.Dec()
	s.logger.Debug().Str("listener", ep.ID.String()).Int("ref_count", len(s.cursors)).Msg("listener unbound")

	return nil
}

// ResetBuffer is ResetStream for the Sound interface.
func (s *StreamingSound) ResetBuffer(ep Endpoint) error { return s.ResetStream(ep) }

// ResetStream requeues ep's cursor from the start of the stream.
func (s *StreamingSound) ResetStream(ep Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cursors[ep.ID]
	if !ok {
		return ErrNotBound
	}

	s.clearStreamData(c)
	return s.loadStreamData(c, 0)
}

// Seek requeues ep's cursor at samplePos. The voice is left stopped.
func (s *StreamingSound) Seek(ep Endpoint, samplePos int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cursors[ep.ID]
	if !ok {
		return ErrNotBound
	}

	pos := wrapTarget(s.src.Format(), samplePos)
	s.clearStreamData(c)
	return s.loadStreamData(c, pos)
}

func (s *StreamingSound) SamplePos(ep Endpoint) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cursors[ep.ID]
	if !ok || s.format.BlockAlign == 0 {
		return 0
	}

	// The offset may be negative while the output still plays the tail of
	// a buffer it already handed back.
	pos := c.base + c.voice.PlaybackByteOffset()

	// buffers the voice finished whose completion has not been handled yet
	if consumed := c.held() - c.voice.QueuedCount(); consumed > 0 {
		pos += c.front.Len()
		if consumed > 1 && c.back != nil {
			pos += c.back.Len()
		}
	}

	return min(max(pos, 0), s.total()) / s.format.BlockAlign
}

// BufferDone streams the next block into ep's cursor when b is the front
// buffer and the voice really has let go of it. Late completions for
// buffers that were flushed or already replaced are ignored.
func (s *StreamingSound) BufferDone(ep Endpoint, b *Buffer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cursors[ep.ID]
	if !ok {
		return false
	}
	if b != c.front || c.voice.QueuedCount() >= c.held() {
		streamNextTotal.WithLabelValues(resultStale).Inc()
		return false
	}
	return s.streamNext(c, b)
}

// Stream tops up ep's cursor and returns how many buffers were queued.
func (s *StreamingSound) Stream(ep Endpoint) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cursors[ep.ID]
	if !ok {
		return 0
	}
	return s.topUp(c)
}

// StreamAll tops up every bound cursor.
func (s *StreamingSound) StreamAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	queued := 0
	for _, c := range s.cursors {
		queued += s.topUp(c)
	}
	return queued
}

func (s *StreamingSound) IsEOS(ep Endpoint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cursors[ep.ID]
	if !ok {
		return true
	}
	return c.next >= s.total()
}

func (s *StreamingSound) IsStream() bool { return true }

func (s *StreamingSound) IsLoaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.src != nil
}

func (s *StreamingSound) RefCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.cursors)
}

// Format reports the stream format with its current length.
func (s *StreamingSound) Format() audio.Format {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.src == nil {
		return audio.Format{}
	}
	return s.src.Format()
}

func (s *StreamingSound) Size() int {
	return s.Format().Frames()
}

// BlockBytes is the size of one stream buffer.
func (s *StreamingSound) BlockBytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.block
}

// FirstBuffer returns the buffer holding the opening block.
func (s *StreamingSound) FirstBuffer() *Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.first
}

// Cursor returns a snapshot of ep's cursor.
func (s *StreamingSound) Cursor(ep Endpoint) (CursorState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cursors[ep.ID]
	if !ok {
		return CursorState{}, false
	}
	return c.state(), true
}
