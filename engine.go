// SPDX-License-Identifier: EPL-2.0

package audstream

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/ik5/audstream/audio"
	"github.com/ik5/audstream/config"
	"github.com/ik5/audstream/formats/aiff"
	"github.com/ik5/audstream/formats/flac"
	"github.com/ik5/audstream/formats/mp3"
	"github.com/ik5/audstream/formats/vorbis"
	"github.com/ik5/audstream/formats/wav"
	"github.com/ik5/audstream/sound"
	"github.com/ik5/audstream/voice"
	"github.com/rs/zerolog"
)

var ErrEngineClosed = errors.New("engine is closed")

var (
	defaultRegistry     *audio.Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the shared registry with every bundled decoder.
func DefaultRegistry() *audio.Registry {
	defaultRegistryOnce.Do(func() {
		r := audio.NewRegistry()
		r.Register(audio.FormatWAV, wav.Decoder{}, ".wav", ".wave")
		r.Register(audio.FormatMP3, mp3.Decoder{}, ".mp3")
		r.Register(audio.FormatVorbis, vorbis.Decoder{}, ".ogg", ".oga")
		r.Register(audio.FormatAIFF, aiff.Decoder{}, ".aif", ".aiff", ".aifc")
		r.Register(audio.FormatFLAC, flac.Decoder{}, ".flac")
		defaultRegistry = r
	})
	return defaultRegistry
}

// Engine ties decoders, voices and the stream pump together and keeps
// track of what it created so Close can tear it all down.
type Engine struct {
	cfg     config.Config
	logger  zerolog.Logger
	opener  sound.Opener
	factory sound.VoiceFactory
	pump    *sound.Pump

	mu        sync.Mutex
	sounds    []sound.Sound
	listeners []*sound.Listener
	closed    bool
}

type Option func(*Engine)

// WithOpener replaces DefaultRegistry as the source of decoded files.
func WithOpener(o sound.Opener) Option {
	return func(e *Engine) { e.opener = o }
}

func New(cfg config.Config, factory sound.VoiceFactory, logger zerolog.Logger, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if factory == nil {
		return nil, sound.ErrNoVoice
	}

	logger = logger.Level(cfg.LogLevel)
	e := &Engine{
		cfg:     cfg,
		logger:  logger.With().Str("component", "engine").Logger(),
		opener:  DefaultRegistry(),
		factory: factory,
		pump:    sound.NewPump(cfg.PumpInterval, logger),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.logger.Info().
		Dur("block_duration", cfg.BlockDuration).
		Dur("pump_interval", cfg.PumpInterval).
		Msg("engine created")

	return e, nil
}

// NewDefault builds an Engine from the environment that plays through the
// system audio output at the configured sample rate and channel count.
func NewDefault(logger zerolog.Logger) (*Engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	dev := voice.NewDevice(cfg.SampleRate, cfg.Channels, cfg.DeviceBuffer, logger.Level(cfg.LogLevel))
	return New(cfg, dev, logger)
}

func (e *Engine) Config() config.Config { return e.cfg }
func (e *Engine) Pump() *sound.Pump     { return e.pump }

func (e *Engine) options() sound.Options {
	return sound.Options{
		BlockDuration: e.cfg.BlockDuration,
		Logger:        e.logger,
		Opener:        e.opener,
	}
}

func (e *Engine) track(s sound.Sound) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEngineClosed
	}
	e.sounds = append(e.sounds, s)
	return nil
}

// LoadStatic decodes the whole file at path.
func (e *Engine) LoadStatic(path string) (*sound.StaticSound, error) {
	s := sound.NewStaticSound(e.options())
	if err := s.Load(path); err != nil {
		return nil, err
	}
	if err := e.track(s); err != nil {
		_ = s.Unload()
		return nil, err
	}
	return s, nil
}

// LoadStream opens path for streaming. A managed stream is topped up by
// the engine's pump in addition to voice completions.
func (e *Engine) LoadStream(path string, managed bool) (*sound.StreamingSound, error) {
	s := sound.NewStreamingSound(e.options())
	if err := s.Load(path); err != nil {
		return nil, err
	}
	if err := e.track(s); err != nil {
		_ = s.Unload()
		return nil, err
	}
	if managed {
		e.pump.Add(s)
	}
	return s, nil
}

// NewListener returns a listener at the configured volume.
func (e *Engine) NewListener() (*sound.Listener, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrEngineClosed
	}

	l := sound.NewListener(e.factory, e.logger)
	l.SetVolume(e.cfg.Volume)
	e.listeners = append(e.listeners, l)
	return l, nil
}

// Release unloads s and forgets it. It fails like Unload while listeners
// are still bound.
func (e *Engine) Release(s sound.Sound) error {
	if err := s.Unload(); err != nil {
		return err
	}
	if st, ok := s.(sound.Streamer); ok {
		e.pump.Remove(st)
	}

	e.mu.Lock()
	e.sounds = slices.DeleteFunc(e.sounds, func(cur sound.Sound) bool { return cur == s })
	e.mu.Unlock()

	return nil
}

// Close closes every listener, stops the pump and unloads every sound.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	listeners, sounds := e.listeners, e.sounds
	e.listeners, e.sounds = nil, nil
	e.mu.Unlock()

	var errs []error
	for _, l := range listeners {
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close listener %s: %w", l.ID(), err))
		}
	}

	e.pump.Close()

	for _, s := range sounds {
		if err := s.Unload(); err != nil {
			errs = append(errs, fmt.Errorf("unload: %w", err))
		}
	}

	e.logger.Info().Int("listeners", len(listeners)).Int("sounds", len(sounds)).Msg("engine closed")

	return errors.Join(errs...)
}
