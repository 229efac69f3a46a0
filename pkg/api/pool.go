package api

import (
	"context"
	"sync/atomic"
	"time"
)

// lane is a counting semaphore with usage counters.
type lane struct {
	sem    chan struct{}
	queued atomic.Int64
	active atomic.Int64
	total  atomic.Int64
}

func newLane(size int) *lane {
	return &lane{sem: make(chan struct{}, size)}
}

func (l *lane) acquire(ctx context.Context) error {
	l.queued.Add(1)
	defer l.queued.Add(-1)

	select {
	case l.sem <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *lane) tryAcquire() bool {
	select {
	case l.sem <- struct{}{}:
		l.active.Add(1)
		return true
	default:
		return false
	}
}

func (l *lane) release() {
	l.active.Add(-1)
	l.total.Add(1)
	<-l.sem
}

// WorkerPool bounds concurrent request processing. Room commands and hints
// run in the fast lane; self-play simulations run in the slow lane so a
// burst of simulations cannot starve live games.
type WorkerPool struct {
	fast *lane
	slow *lane
}

// PoolConfig configures the worker pool.
type PoolConfig struct {
	MaxFastWorkers int // Concurrent room commands and hints (default 100)
	MaxSlowWorkers int // Concurrent simulations (default 4)
}

// DefaultPoolConfig returns a PoolConfig with sensible defaults.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxFastWorkers: 100,
		MaxSlowWorkers: 4,
	}
}

// NewWorkerPool creates a worker pool. Non-positive sizes fall back to the
// defaults.
func NewWorkerPool(config PoolConfig) *WorkerPool {
	def := DefaultPoolConfig()
	if config.MaxFastWorkers <= 0 {
		config.MaxFastWorkers = def.MaxFastWorkers
	}
	if config.MaxSlowWorkers <= 0 {
		config.MaxSlowWorkers = def.MaxSlowWorkers
	}
	return &WorkerPool{
		fast: newLane(config.MaxFastWorkers),
		slow: newLane(config.MaxSlowWorkers),
	}
}

// AcquireFast waits for a fast slot or for ctx to end.
func (p *WorkerPool) AcquireFast(ctx context.Context) error { return p.fast.acquire(ctx) }

// ReleaseFast returns a fast slot.
func (p *WorkerPool) ReleaseFast() { p.fast.release() }

// TryAcquireFast takes a fast slot if one is free.
func (p *WorkerPool) TryAcquireFast() bool { return p.fast.tryAcquire() }

// AcquireSlow waits for a slow slot or for ctx to end.
func (p *WorkerPool) AcquireSlow(ctx context.Context) error { return p.slow.acquire(ctx) }

// ReleaseSlow returns a slow slot.
func (p *WorkerPool) ReleaseSlow() { p.slow.release() }

// TryAcquireSlow takes a slow slot if one is free.
func (p *WorkerPool) TryAcquireSlow() bool { return p.slow.tryAcquire() }

// AcquireSlowWithTimeout waits at most timeout for a slow slot.
func (p *WorkerPool) AcquireSlowWithTimeout(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.AcquireSlow(ctx)
}

// PoolStats is a point-in-time view of pool usage.
type PoolStats struct {
	ActiveFast int64 `json:"activeFast"`
	ActiveSlow int64 `json:"activeSlow"`
	QueuedFast int64 `json:"queuedFast"`
	QueuedSlow int64 `json:"queuedSlow"`
	TotalFast  int64 `json:"totalFast"`
	TotalSlow  int64 `json:"totalSlow"`
	MaxFast    int   `json:"maxFast"`
	MaxSlow    int   `json:"maxSlow"`
}

// Stats returns current pool statistics.
func (p *WorkerPool) Stats() PoolStats {
	return PoolStats{
		ActiveFast: p.fast.active.Load(),
		ActiveSlow: p.slow.active.Load(),
		QueuedFast: p.fast.queued.Load(),
		QueuedSlow: p.slow.queued.Load(),
		TotalFast:  p.fast.total.Load(),
		TotalSlow:  p.slow.total.Load(),
		MaxFast:    cap(p.fast.sem),
		MaxSlow:    cap(p.slow.sem),
	}
}
