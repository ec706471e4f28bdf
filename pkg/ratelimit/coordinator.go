package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/matzehuels/deputy/pkg/observability"
)

// Coordinator tracks whether a registry is currently rate limited and wakes
// waiters when that changes. The zero value is not usable; see NewCoordinator.
//
// All methods are safe for concurrent use.
type Coordinator struct {
	name    string
	limited atomic.Bool

	mu      sync.Mutex
	changed chan struct{} // closed and replaced on every notification
}

// NewCoordinator creates an open coordinator. The name is reported to
// observability hooks.
func NewCoordinator(name string) *Coordinator {
	return &Coordinator{name: name, changed: make(chan struct{})}
}

// Name returns the coordinator name.
func (c *Coordinator) Name() string { return c.name }

// IsLimited reports the current state without blocking.
func (c *Coordinator) IsLimited() bool { return c.limited.Load() }

// EnterLimited moves the coordinator to Limited and wakes all waiters.
// It reports whether a transition happened; calling it while already
// limited is a no-op.
func (c *Coordinator) EnterLimited() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.limited.Load() {
		return false
	}
	c.limited.Store(true)
	c.broadcastLocked()
	observability.RateLimit().OnLimited(c.name)
	return true
}

// Open moves the coordinator back to Open and wakes all waiters.
// It reports whether a transition happened.
func (c *Coordinator) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.limited.Load() {
		return false
	}
	c.limited.Store(false)
	c.broadcastLocked()
	observability.RateLimit().OnOpen(c.name)
	return true
}

// NotifyStateChanged wakes every waiter without changing state. Waiters
// re-check the state after waking.
func (c *Coordinator) NotifyStateChanged() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.broadcastLocked()
}

// WaitUntilOpen blocks until the coordinator is Open or ctx is done.
func (c *Coordinator) WaitUntilOpen(ctx context.Context) error {
	for {
		c.mu.Lock()
		if !c.limited.Load() {
			c.mu.Unlock()
			return nil
		}
		ch := c.changed
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

// Changed returns a channel that is closed on the next notification.
// Take it before inspecting IsLimited so no transition is missed.
func (c *Coordinator) Changed() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.changed
}

// WaitForChange blocks until the next notification and returns whether the
// coordinator is limited at that point.
func (c *Coordinator) WaitForChange(ctx context.Context) (bool, error) {
	ch := c.Changed()

	select {
	case <-ctx.Done():
		return c.IsLimited(), ctx.Err()
	case <-ch:
		return c.IsLimited(), nil
	}
}

func (c *Coordinator) broadcastLocked() {
	close(c.changed)
	c.changed = make(chan struct{})
}
