// Package latch provides a one-shot countdown barrier used to wait for a
// known number of asynchronous completions.
package latch

import (
	"context"
	"sync"
)

// Latch is released once CountDown has been called the number of times it
// was created with. It cannot be reset.
type Latch struct {
	mu    sync.Mutex
	count int
	done  chan struct{}
}

// New creates a latch that opens after n calls to CountDown. A latch created
// with n <= 0 is already open.
func New(n int) *Latch {
	l := &Latch{
		count: n,
		done:  make(chan struct{}),
	}
	if n <= 0 {
		l.count = 0
		close(l.done)
	}
	return l
}

// CountDown decrements the counter and releases all waiters when it reaches
// zero. Calls after the latch opened are ignored.
func (l *Latch) CountDown() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.count == 0 {
		return
	}
	l.count--
	if l.count == 0 {
		close(l.done)
	}
}

// Await blocks until the counter reaches zero.
func (l *Latch) Await() {
	<-l.done
}

// Wait is Await bounded by ctx. It returns ctx.Err() if the context ends
// before the latch opens.
func (l *Latch) Wait(ctx context.Context) error {
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done returns a channel that is closed when the latch opens.
func (l *Latch) Done() <-chan struct{} {
	return l.done
}

// Count returns the remaining count.
func (l *Latch) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}
