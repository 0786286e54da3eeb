// SPDX-License-Identifier: EPL-2.0

package sound

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/ik5/audstream/audio"
	"github.com/rs/zerolog"
)

// StaticSound holds a whole file in a single Buffer shared by every bound
// listener.
type StaticSound struct {
	mu     sync.Mutex
	opener Opener
	logger zerolog.Logger

	path   string
	buf    *Buffer
	format audio.Format
	// byte offset each bound listener's queue starts at
	bound  map[uuid.UUID]int
}

func NewStaticSound(opts Options) *StaticSound {
	return &StaticSound{
		opener: opts.Opener,
		logger: opts.logger("static_sound"),
		bound:  make(map[uuid.UUID]int),
	}
}

// Load decodes the entire file at path into memory.
func (s *StaticSound) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.buf != nil {
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
	defer src.Close()

	data, err := readAll(src)
	if err != nil {
		decodeErrorsTotal.Inc()
		return &audio.DecodeError{Path: path, Err: err}
	}
	if len(data) == 0 {
		return &audio.DecodeError{Path: path, Err: ErrEmptyStream}
	}

	f := src.Format()
	f.TotalBytes = len(data)

	s.path = path
	s.format = f
	s.buf = newBuffer(data, f, uuid.Nil)
	s.buf.eos = true
	bytesDecodedTotal.Add(float64(len(data)))

	s.logger.Info().
		Str("path", path).
		Int("sample_rate", f.SampleRate).
		Int("channels", f.Channels).
		Int("bytes", len(data)).
		Msg("static sound loaded")

	return nil
}

// readAll drains src into one frame-aligned slice sized from its format.
func readAll(src audio.Source) ([]byte, error) {
	data := make([]byte, src.Format().TotalBytes)

	n := 0
	for n < len(data) {
		m, err := src.ReadSome(data[n:])
		n += m
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w", err)
		}
		if m == 0 {
			break
		}
	}

	return data[:n], nil
}

func (s *StaticSound) Unload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.buf == nil {
		return nil
	}
	if len(s.bound) > 0 {
		s.logger.Warn().
			Str("path", s.path).
			Int("ref_count", len(s.bound)).
			Msg("unload of a referenced sound refused, potential resource leak")
		return ErrStillReferenced
	}

	s.buf = nil
	s.format = audio.Format{}
	s.logger.Info().Str("path", s.path).Msg("static sound unloaded")

	return nil
}

func (s *StaticSound) BindSource(ep Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.buf == nil {
		return ErrNotLoaded
	}
	if _, ok := s.bound[ep.ID]; ok {
		return ErrDoubleBind
	}
	if ep.Voice == nil {
		return ErrNoVoice
	}

	if err := s.submit(ep, s.buf); err != nil {
		return err
	}

	s.bound[ep.ID] = 0
	boundListeners.Inc()
	s.logger.Debug().Str("listener", ep.ID.String()).Int("ref_count", len(s.bound)).Msg("listener bound")

	return nil
}

func (s *StaticSound) UnbindSource(ep Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bound[ep.ID]; !ok {
		return ErrNotBound
	}

	s.clear(ep)
	delete(s.bound, ep.ID)
	boundListeners.Dec()
	s.logger.Debug().Str("listener", ep.ID.String()).Int("ref_count", len(s.bound)).Msg("listener unbound")

	return nil
}

func (s *StaticSound) ResetBuffer(ep Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.requeue(ep, 0)
}

// Seek requeues the part of the buffer from samplePos on.
func (s *StaticSound) Seek(ep Endpoint, samplePos int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.requeue(ep, wrapTarget(s.format, samplePos))
}

func (s *StaticSound) requeue(ep Endpoint, off int) error {
	if _, ok := s.bound[ep.ID]; !ok {
		return ErrNotBound
	}

	s.clear(ep)

	b := s.buf
	if off > 0 {
		b = s.buf.view(off, ep.ID)
	}
	if err := s.submit(ep, b); err != nil {
		return err
	}

	s.bound[ep.ID] = off
	return nil
}

func (s *StaticSound) clear(ep Endpoint) {
	if ep.Voice == nil {
		return
	}
	ep.Voice.Stop()
	if ep.Voice.QueuedCount() > 0 {
		ep.Voice.Flush()
	}
}

func (s *StaticSound) submit(ep Endpoint, b *Buffer) error {
	if err := ep.Voice.Submit(b); err != nil {
		return fmt.Errorf("submit buffer: %w", err)
	}
	buffersSubmittedTotal.WithLabelValues(kindStatic).Inc()
	return nil
}

func (s *StaticSound) SamplePos(ep Endpoint) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	base, ok := s.bound[ep.ID]
	if !ok || ep.Voice == nil || s.format.BlockAlign == 0 {
		return 0
	}

	pos := base + ep.Voice.PlaybackByteOffset()
	if ep.Voice.QueuedCount() == 0 {
		// played out
		pos = s.buf.Len()
	}

	return min(max(pos, 0), s.buf.Len()) / s.format.BlockAlign
}

// BufferDone is a no-op, the single buffer is all there is.
func (s *StaticSound) BufferDone(Endpoint, *Buffer) bool { return false }
func (s *StaticSound) Stream(Endpoint) int               { return 0 }

// IsEOS is always true, everything is queued at bind time.
func (s *StaticSound) IsEOS(Endpoint) bool { return true }
func (s *StaticSound) IsStream() bool      { return false }

func (s *StaticSound) IsLoaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.buf != nil
}

func (s *StaticSound) RefCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.bound)
}

func (s *StaticSound) Format() audio.Format {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.format
}

func (s *StaticSound) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.format.Frames()
}

// Buffer returns the loaded buffer, nil when unloaded.
func (s *StaticSound) Buffer() *Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.buf
}
