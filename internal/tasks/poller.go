package tasks

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/desertthunder/tunepool/internal/player"
)

// Poller samples the engine's playback position on a fixed interval.
//
// The position is kept in an atomic so readers never touch loop state.
type Poller struct {
	engine   player.Engine
	interval time.Duration
	onTick   func(ms int64)
	position atomic.Int64
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewPoller creates a poller; onTick runs on the poller goroutine whenever the position changes.
func NewPoller(engine player.Engine, interval time.Duration, onTick func(ms int64)) *Poller {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Poller{engine: engine, interval: interval, onTick: onTick}
}

// Start begins polling until ctx is done or Stop is called.
func (p *Poller) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(1)

	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.sample()
			}
		}
	}()
}

func (p *Poller) sample() {
	ms := p.engine.CurrentPositionMs()
	if p.position.Swap(ms) != ms && p.onTick != nil {
		p.onTick(ms)
	}
}

// Position returns the last sampled position in milliseconds.
func (p *Poller) Position() int64 {
	return p.position.Load()
}

// Stop ends polling and waits for the goroutine to exit.
func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}
