// SPDX-License-Identifier: EPL-2.0

package sound

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type State int

const (
	StateInitial State = iota
	StatePlaying
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type eventKind int

const (
	eventConsumed eventKind = iota
	eventDrained
)

type event struct {
	kind eventKind
	gen  uint64
	buf  *Buffer
}

// Listener plays one Sound at a time on its own Voice.
//
// Voice completions are queued and handled on the listener's dispatcher
// goroutine, never on the voice's callback goroutine.
type Listener struct {
	mu      sync.Mutex
	id      uuid.UUID
	factory VoiceFactory
	logger  zerolog.Logger

	voice  Voice
	gen    uint64
	snd    Sound
	loop   bool
	state  State
	volume float64

	evMu   sync.Mutex
	events []event
	notify chan struct{}
	quit   chan struct{}
	done   chan struct{}
	closed bool
}

func NewListener(factory VoiceFactory, logger zerolog.Logger) *Listener {
	l := &Listener{
		id:      uuid.New(),
		factory: factory,
		volume:  1,
		notify:  make(chan struct{}, 1),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	l.logger = logger.With().Str("component", "listener").Str("listener", l.id.String()).Logger()

	go l.dispatch()

	return l
}

func (l *Listener) ID() uuid.UUID { return l.id }

// sink hands a voice's completions to its listener, tagged with the voice
// generation so events from a replaced voice can be dropped.
type sink struct {
	l   *Listener
	gen uint64
}

func (s sink) OnBufferConsumed(b *Buffer) {
	s.l.enqueue(event{kind: eventConsumed, gen: s.gen, buf: b})
}

func (s sink) OnStreamDrained() {
	s.l.enqueue(event{kind: eventDrained, gen: s.gen})
}

func (l *Listener) enqueue(ev event) {
	l.evMu.Lock()
	if l.closed {
		l.evMu.Unlock()
		return
	}
	l.events = append(l.events, ev)
	l.evMu.Unlock()

	select {
	case l.notify <- struct{}{}:
	default:
	}
}

func (l *Listener) pop() (event, bool) {
	l.evMu.Lock()
	defer l.evMu.Unlock()

	if len(l.events) == 0 {
		return event{}, false
	}
	ev := l.events[0]
	l.events[0] = event{}
	l.events = l.events[1:]
	return ev, true
}

func (l *Listener) dispatch() {
	defer close(l.done)

	for {
		select {
		case <-l.quit:
			return
		case <-l.notify:
		}

		for {
			ev, ok := l.pop()
			if !ok {
				break
			}
			l.handle(ev)
		}
	}
}

func (l *Listener) handle(ev event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ev.gen != l.gen || l.snd == nil || l.voice == nil {
		return
	}

	switch ev.kind {
	case eventConsumed:
		if l.snd.IsStream() {
			l.snd.BufferDone(l.endpoint(), ev.buf)
		}
	case eventDrained:
		l.drained()
	}
}

// drained runs once the voice has nothing left to play. A stream that
// still has data was starved and gets topped up, otherwise the sound has
// ended and either loops or stops.
func (l *Listener) drained() {
	if l.state != StatePlaying || l.voice.QueuedCount() > 0 {
		return
	}

	ep := l.endpoint()
	if l.snd.IsStream() && !l.snd.IsEOS(ep) {
		if l.snd.Stream(ep) > 0 {
			l.logger.Warn().Msg("stream underrun, refilled")
			l.voice.Start()
		}
		return
	}

	if l.loop {
		l.logger.Debug().Msg("sound ended, looping")
		if err := l.rewind(); err != nil {
			l.logger.Error().Err(err).Msg("loop rewind failed")
			l.state = StateStopped
		}
		return
	}

	l.voice.Stop()
	l.state = StateStopped
	l.logger.Debug().Msg("sound ended")
}

func (l *Listener) endpoint() Endpoint {
	return Endpoint{ID: l.id, Voice: l.voice}
}

// ensureVoice makes sure the listener has a voice for sounds in s's format,
// recreating it when the format differs.
func (l *Listener) ensureVoice(s Sound) error {
	hash := s.Format().Hash()
	if l.voice != nil && l.voice.FormatHash() == hash {
		return nil
	}
	if l.factory == nil {
		return ErrNoVoice
	}

	if l.voice != nil {
		l.voice.Stop()
		l.voice.Flush()
		if err := l.voice.Close(); err != nil {
			l.logger.Warn().Err(err).Msg("close voice")
		}
		l.voice = nil
	}

	l.gen++
	v, err := l.factory.NewVoice(s.Format(), sink{l: l, gen: l.gen})
	if err != nil {
		return fmt.Errorf("create voice: %w", err)
	}
	v.SetVolume(l.volume)
	l.voice = v

	l.logger.Debug().Uint32("format_hash", hash).Msg("voice created")

	return nil
}

// SetSound binds s, unbinding the current sound first. A nil s only
// unbinds.
func (l *Listener) SetSound(s Sound, loop bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.setSound(s, loop)
}

func (l *Listener) setSound(s Sound, loop bool) error {
	if l.snd != nil {
		if err := l.snd.UnbindSource(l.endpoint()); err != nil && !errors.Is(err, ErrNotBound) {
			return fmt.Errorf("unbind: %w", err)
		}
		l.snd = nil
	}

	l.loop = loop
	l.state = StateInitial
	if s == nil {
		return nil
	}

	if !s.IsLoaded() {
		return ErrNotLoaded
	}
	if err := l.ensureVoice(s); err != nil {
		return err
	}
	if err := s.BindSource(l.endpoint()); err != nil {
		return fmt.Errorf("bind: %w", err)
	}
	l.snd = s

	return nil
}

// PlaySound binds s and starts playing it.
func (l *Listener) PlaySound(s Sound, loop bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.setSound(s, loop); err != nil {
		return err
	}
	return l.play()
}

// Play starts or resumes playback. With nothing queued the sound is
// requeued from the start first.
func (l *Listener) Play() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.play()
}

func (l *Listener) play() error {
	if l.snd == nil {
		return ErrNoSound
	}

	if l.voice.QueuedCount() == 0 {
		if err := l.snd.ResetBuffer(l.endpoint()); err != nil {
			return fmt.Errorf("reset buffer: %w", err)
		}
	}

	l.voice.Start()
	l.state = StatePlaying

	return nil
}

// Stop halts playback and requeues the sound from the start. It does
// nothing unless the listener is playing.
func (l *Listener) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StatePlaying {
		return nil
	}

	l.voice.Stop()
	l.voice.Flush()
	l.state = StateStopped

	if err := l.snd.ResetBuffer(l.endpoint()); err != nil {
		return fmt.Errorf("reset buffer: %w", err)
	}
	return nil
}

// Pause suspends the voice and keeps its queued buffers.
func (l *Listener) Pause() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.voice == nil {
		return
	}
	l.voice.Stop()
	l.state = StatePaused
}

func (l *Listener) Rewind() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.rewind()
}

func (l *Listener) rewind() error {
	if l.snd == nil {
		return ErrNoSound
	}

	if err := l.snd.ResetBuffer(l.endpoint()); err != nil {
		return fmt.Errorf("reset buffer: %w", err)
	}

	switch l.state {
	case StatePlaying:
		l.voice.Start()
	case StatePaused:
		l.state = StateStopped
	}

	return nil
}

func (l *Listener) Volume() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.volume
}

func (l *Listener) SetVolume(v float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.volume = v
	if l.voice != nil {
		l.voice.SetVolume(v)
	}
}

func (l *Listener) IsLooping() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.loop
}

func (l *Listener) SetLooping(loop bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.loop = loop
}

// PlaybackPos is the playback position in sample frames.
func (l *Listener) PlaybackPos() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.snd == nil {
		return 0
	}
	return l.snd.SamplePos(l.endpoint())
}

// SetPlaybackPos seeks to samplePos and resumes playback if the listener
// was playing.
func (l *Listener) SetPlaybackPos(samplePos int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.snd == nil {
		return ErrNoSound
	}

	if err := l.snd.Seek(l.endpoint(), samplePos); err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	if l.state == StatePlaying {
		l.voice.Start()
	}

	return nil
}

// PlaybackSize is the bound sound's length in sample frames.
func (l *Listener) PlaybackSize() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.snd == nil {
		return 0
	}
	return l.snd.Size()
}

func (l *Listener) SamplesPerSecond() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.snd == nil {
		return 0
	}
	return l.snd.Format().SampleRate
}

func (l *Listener) IsStreamable() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.snd != nil && l.snd.IsStream()
}

func (l *Listener) IsEOS() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.snd == nil {
		return true
	}
	return l.snd.IsEOS(l.endpoint())
}

// Stream tops up the listener's voice from a streaming sound.
func (l *Listener) Stream() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.snd == nil {
		return 0
	}
	return l.snd.Stream(l.endpoint())
}

func (l *Listener) Sound() Sound {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.snd
}

func (l *Listener) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.state
}

func (l *Listener) IsPlaying() bool { return l.State() == StatePlaying }
func (l *Listener) IsPaused() bool  { return l.State() == StatePaused }
func (l *Listener) IsStopped() bool { return l.State() == StateStopped }
func (l *Listener) IsInitial() bool { return l.State() == StateInitial }

// Close unbinds the current sound, closes the voice and stops the
// dispatcher.
func (l *Listener) Close() error {
	l.evMu.Lock()
	if l.closed {
		l.evMu.Unlock()
		return nil
	}
	l.closed = true
	l.events = nil
	l.evMu.Unlock()

	close(l.quit)
	<-l.done

	l.mu.Lock()
	defer l.mu.Unlock()

	var errs []error
	if err := l.setSound(nil, false); err != nil {
		errs = append(errs, err)
	}
	if l.voice != nil {
		if err := l.voice.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close voice: %w", err))
		}
		l.voice = nil
	}

	return errors.Join(errs...)
}
