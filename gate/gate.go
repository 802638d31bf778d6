// Package gate bounds the number of concurrently in-flight requests.
//
// The gate counts a request as in flight as soon as Acquire is entered: the
// counter is incremented first and only then compared with the capacity.
// The caller that raises the counter to the capacity proceeds, the next one
// parks, so the counter transiently reads one past the capacity while a
// caller is parked. Release wakes parked callers whenever the admitted
// count is at or below the capacity. Drain uses a different threshold: it
// waits for the counter to reach exactly zero.
package gate

import (
	"context"
	"sync"
)

// Gate is an admission gate with a soft capacity.
type Gate struct {
	mu       sync.Mutex
	inFlight int // admitted plus parked
	parked   int
	capacity int
	wake     chan struct{}
}

// New creates a gate admitting up to capacity concurrent requests.
// A capacity below 1 is treated as 1.
func New(capacity int) *Gate {
	if capacity < 1 {
		capacity = 1
	}
	return &Gate{
		capacity: capacity,
		wake:     make(chan struct{}),
	}
}

// Acquire takes a slot, blocking while the gate is saturated.
func (g *Gate) Acquire() {
	g.acquire(nil)
}

// AcquireContext is Acquire that gives up when ctx is done. A caller that
// gives up does not hold a slot and must not call Release.
func (g *Gate) AcquireContext(ctx context.Context) error {
	if !g.acquire(ctx.Done()) {
		return ctx.Err()
	}
	return nil
}

func (g *Gate) acquire(cancel <-chan struct{}) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.inFlight++
	if g.inFlight <= g.capacity {
		return true
	}

	g.parked++
	for g.inFlight-g.parked >= g.capacity {
		wake := g.wake
		g.mu.Unlock()
		select {
		case <-wake:
			g.mu.Lock()
		case <-cancel:
			g.mu.Lock()
			g.parked--
			g.inFlight--
			g.broadcastLocked()
			return false
		}
	}
	g.parked--
	return true
}

// Release returns a slot taken by Acquire.
func (g *Gate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.inFlight-g.parked == 0 {
		panic("gate: release without acquire")
	}
	g.inFlight--
	if g.inFlight-g.parked <= g.capacity {
		g.broadcastLocked()
	}
}

func (g *Gate) broadcastLocked() {
	close(g.wake)
	g.wake = make(chan struct{})
}

// Drain blocks until no request is in flight.
func (g *Gate) Drain() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for g.inFlight != 0 {
		wake := g.wake
		g.mu.Unlock()
		<-wake
		g.mu.Lock()
	}
}

// InFlight returns the current counter, parked callers included.
func (g *Gate) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight
}

// Capacity returns the configured capacity.
func (g *Gate) Capacity() int {
	return g.capacity
}
