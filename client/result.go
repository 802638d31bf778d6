package client

import (
	"sync"

	"github.com/mevdschee/tqbulk/transport"
)

type ownership int

const (
	owned ownership = iota
	released
	moved
)

// Result owns one native query result and releases it exactly once.
// A Result must not be copied; use Move to hand ownership to another owner.
type Result struct {
	mu    sync.Mutex
	h     transport.Handle
	state ownership
}

func newResult(h transport.Handle) *Result {
	return &Result{h: h}
}

// Code returns the driver status code, 0 on success or when the result no
// longer owns a handle.
func (r *Result) Code() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != owned || r.h == nil {
		return 0
	}
	return r.h.Code()
}

// Error returns the driver message for the result, "" when the result no
// longer owns a handle.
func (r *Result) Error() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != owned || r.h == nil {
		return ""
	}
	return r.h.Message()
}

// OK reports whether the query succeeded. It is false for a result that
// was released or moved; Err tells which.
func (r *Result) OK() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.errLocked() != nil {
		return false
	}
	return r.h == nil || r.h.Code() == 0
}

// Err reports misuse: ErrResultReleased or ErrResultMoved once the result
// no longer owns its handle, nil otherwise.
func (r *Result) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errLocked()
}

func (r *Result) errLocked() error {
	switch r.state {
	case released:
		return ErrResultReleased
	case moved:
		return ErrResultMoved
	}
	return nil
}

// Handle returns the native handle without giving up ownership. The handle
// is nil for results of skipped empty statements.
func (r *Result) Handle() (transport.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.errLocked(); err != nil {
		return nil, err
	}
	return r.h, nil
}

// Release frees the native handle. Only the first call has an effect.
func (r *Result) Release() {
	r.mu.Lock()
	if r.state != owned {
		r.mu.Unlock()
		return
	}
	h := r.h
	r.h = nil
	r.state = released
	r.mu.Unlock()

	if h != nil {
		h.Release()
	}
}

// Move transfers ownership of the handle to a new Result and leaves r inert.
// It returns nil if r no longer owns a handle.
func (r *Result) Move() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != owned {
		return nil
	}
	h := r.h
	r.h = nil
	r.state = moved
	return newResult(h)
}
