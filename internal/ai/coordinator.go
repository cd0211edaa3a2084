package ai

import (
	"context"
	"log/slog"
	"sync"
)

// Coordinator serializes generation runs: at most one is in flight at any
// instant. A trigger while busy never starts a second run; it consults the
// busy handler instead, and an accepted cancellation abandons the active run
// immediately rather than waiting for it to unwind. State transitions are
// mutex-guarded because triggers, cancellations, and run settlement arrive
// on different goroutines.
type Coordinator struct {
	log    *slog.Logger
	onBusy func() bool

	mu     sync.Mutex
	busy   bool
	gen    uint64
	cancel context.CancelFunc
}

// NewCoordinator returns an idle coordinator. onBusy is consulted when a
// trigger arrives while a run is active; returning true cancels that run.
// A nil onBusy ignores busy triggers.
func NewCoordinator(log *slog.Logger, onBusy func() bool) *Coordinator {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Coordinator{log: log, onBusy: onBusy}
}

// Trigger runs fn on the calling goroutine under a fresh cancellable context
// when idle, and reports whether fn ran. When busy, fn is not started;
// instead the busy handler decides whether the active run is cancelled.
// The coordinator is idle again once fn settles, whatever the outcome.
func (c *Coordinator) Trigger(parent context.Context, fn func(ctx context.Context)) bool {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		c.log.Debug("generation already in flight, not starting another")
		if c.onBusy != nil && c.onBusy() {
			c.CancelActive()
		}
		return false
	}
	ctx, cancel := context.WithCancel(parent)
	c.busy = true
	c.gen++
	gen := c.gen
	c.cancel = cancel
	c.mu.Unlock()

	defer func() {
		cancel()
		c.mu.Lock()
		// A cancelled run may settle after a newer busy period has begun;
		// only the period that started this run may flip the state back.
		if c.busy && c.gen == gen {
			c.busy = false
			c.cancel = nil
		}
		c.mu.Unlock()
	}()

	fn(ctx)
	return true
}

// CancelActive fires the live cancellation signal and flips straight to
// idle, without waiting for the abandoned run to settle. It reports whether
// a run was actually cancelled.
func (c *Coordinator) CancelActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.busy {
		return false
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.busy = false
	c.log.Debug("active generation cancelled")
	return true
}

// Busy reports whether a run is currently in flight.
func (c *Coordinator) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}
