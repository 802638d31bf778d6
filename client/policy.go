package client

import (
	"fmt"
	"time"

	"github.com/mevdschee/tqbulk/transport"
)

// BatchPolicy configures transport-side write batching.
type BatchPolicy struct {
	Enabled        bool
	ThreadIsolated bool
	BatchSize      int
	TimeoutMs      int
}

// Policy configures a client.
type Policy struct {
	Batch       BatchPolicy
	MaxSessions int
}

// DefaultPolicy returns the default client policy.
func DefaultPolicy() Policy {
	return Policy{
		Batch: BatchPolicy{
			Enabled:        true,
			ThreadIsolated: true,
			BatchSize:      128,
			TimeoutMs:      100,
		},
		MaxSessions: 256,
	}
}

// Validate checks the policy for values the client cannot work with.
func (p Policy) Validate() error {
	if p.MaxSessions < 1 {
		return fmt.Errorf("%w: max_sessions must be positive, got %d", ErrInvalidPolicy, p.MaxSessions)
	}
	if p.Batch.Enabled {
		if p.Batch.TimeoutMs < 1 {
			return fmt.Errorf("%w: batch timeout must be positive, got %dms", ErrInvalidPolicy, p.Batch.TimeoutMs)
		}
		if p.Batch.BatchSize < 1 {
			return fmt.Errorf("%w: batch size must be positive, got %d", ErrInvalidPolicy, p.Batch.BatchSize)
		}
	}
	return nil
}

// Capacity returns the admission capacity derived from the policy. With
// batching enabled the transport holds up to BatchSize requests per session,
// so the capacity is max(1000/TimeoutMs, MaxSessions*BatchSize).
func (p Policy) Capacity() int {
	if !p.Batch.Enabled {
		return p.MaxSessions
	}
	return max(1000/p.Batch.TimeoutMs, p.MaxSessions*p.Batch.BatchSize)
}

func (b BatchPolicy) options() transport.BatchOptions {
	return transport.BatchOptions{
		Enabled:  b.Enabled,
		Isolated: b.ThreadIsolated,
		Size:     b.BatchSize,
		Timeout:  time.Duration(b.TimeoutMs) * time.Millisecond,
	}
}
