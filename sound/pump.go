// SPDX-License-Identifier: EPL-2.0

package sound

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultPumpInterval is how often a Pump tops up its streams.
const DefaultPumpInterval = 100 * time.Millisecond

// Streamer is a sound that can be topped up for all of its listeners.
type Streamer interface {
	StreamAll() int
}

// Pump periodically streams every registered sound. Its goroutine runs only
// while at least one sound is registered.
type Pump struct {
	mu       sync.Mutex
	interval time.Duration
	logger   zerolog.Logger
	streams  []Streamer

	cancel context.CancelFunc
	group  *errgroup.Group
}

func NewPump(interval time.Duration, logger zerolog.Logger) *Pump {
	if interval <= 0 {
		interval = DefaultPumpInterval
	}
	return &Pump{
		interval: interval,
		logger:   logger.With().Str("component", "pump").Logger(),
	}
}

// Add registers s. Adding a sound twice is a no-op.
func (p *Pump) Add(s Streamer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, cur := range p.streams {
		if cur == s {
			return
		}
	}
	p.streams = append(p.streams, s)

	if p.cancel == nil {
		p.start()
	}
}

func (p *Pump) start() {
	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.run(gctx) })

	p.cancel = cancel
	p.group = g
	p.logger.Debug().Dur("interval", p.interval).Msg("pump started")
}

func (p *Pump) run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.Tick()
		}
	}
}

// Remove unregisters s and stops the goroutine once nothing is left.
func (p *Pump) Remove(s Streamer) {
	p.mu.Lock()
	for i, cur := range p.streams {
		if cur == s {
			p.streams = append(p.streams[:i], p.streams[i+1:]...)
			break
		}
	}

	var (
		cancel context.CancelFunc
		g      *errgroup.Group
	)
	if len(p.streams) == 0 && p.cancel != nil {
		cancel, g = p.cancel, p.group
		p.cancel, p.group = nil, nil
	}
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		_ = g.Wait()
		p.logger.Debug().Msg("pump stopped")
	}
}

// Tick streams every registered sound once and returns the number of
// buffers queued.
func (p *Pump) Tick() int {
	p.mu.Lock()
	streams := append([]Streamer(nil), p.streams...)
	p.mu.Unlock()

	queued := 0
	for _, s := range streams {
		queued += s.StreamAll()
	}
	if queued > 0 {
		p.logger.Debug().Int("queued", queued).Msg("pump tick")
	}
	return queued
}

func (p *Pump) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.streams)
}

func (p *Pump) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.cancel != nil
}

// Close unregisters everything and stops the goroutine.
func (p *Pump) Close() {
	p.mu.Lock()
	cancel, g := p.cancel, p.group
	p.cancel, p.group = nil, nil
	p.streams = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		_ = g.Wait()
	}
}
