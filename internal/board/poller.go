package board

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Refresher is what the poller drives.
type Refresher interface {
	Load(ctx context.Context) error
	Refresh(ctx context.Context) error
}

// Poller refreshes the board on a fixed interval while enabled. Refresh
// failures are logged and retried on the next tick.
type Poller struct {
	target   Refresher
	interval time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex
	parent  context.Context
	enabled bool
	cancel  context.CancelFunc
	done    chan struct{}
	// gen changes on every Start and Stop so a Start whose initial load
	// raced a Stop does not revive the loop.
	gen     uint64
}

func NewPoller(target Refresher, interval time.Duration, enabled bool, logger zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Poller{
		target:   target,
		interval: interval,
		enabled:  enabled,
		logger:   logger.With().Str("component", "poller").Logger(),
	}
}

// Start performs the initial load and, if enabled, starts the ticker. The
// loop ends when ctx is cancelled or Stop is called.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	p.gen++
	gen := p.gen
	p.mu.Unlock()

	if err := p.target.Load(ctx); err != nil {
		p.logger.Error().Err(err).Msg("initial load failed")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gen != gen {
		return
	}
	p.parent = ctx
	if p.enabled {
		p.startLocked()
	}
}

func (p *Poller) startLocked() {
	if p.cancel != nil || p.parent == nil {
		return
	}
	ctx, cancel := context.WithCancel(p.parent)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done

	go func() {
		defer close(done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := p.target.Refresh(ctx); err != nil && ctx.Err() == nil {
					p.logger.Warn().Err(err).Msg("poll refresh failed")
				}
			}
		}
	}()
}

func (p *Poller) stopLocked() chan struct{} {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	done := p.done
	p.cancel = nil
	p.done = nil
	return done
}

// SetEnabled toggles automatic refresh.
func (p *Poller) SetEnabled(enabled bool) {
	p.mu.Lock()
	p.enabled = enabled
	var done chan struct{}
	if enabled {
		p.startLocked()
	} else {
		done = p.stopLocked()
	}
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (p *Poller) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// RefreshNow runs a refresh outside the timer cadence.
func (p *Poller) RefreshNow(ctx context.Context) error {
	return p.target.Refresh(ctx)
}

// Stop ends the loop. It is safe to call more than once.
func (p *Poller) Stop() {
	p.mu.Lock()
	done := p.stopLocked()
	p.parent = nil
	p.gen++
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Running reports whether the ticker loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}
