package writebatch

import (
	"sync"
	"time"
)

// WriteRequest represents a single write operation to be batched
type WriteRequest struct {
	Query      string
	Done       func(WriteResult)
	EnqueuedAt time.Time
}

// WriteResult contains the result of a write operation
type WriteResult struct {
	AffectedRows int64
	LastInsertID int64
	Error        error
}

// BatchGroup holds a group of write requests with the same batch key
type BatchGroup struct {
	Key       uint64
	Requests  []*WriteRequest
	FirstSeen time.Time
	mu        sync.Mutex
	timer     *time.Timer
}

// Config holds configuration for the write batch manager
type Config struct {
	MaxBatchSize int           // Maximum number of operations per batch (128 default)
	FlushTimeout time.Duration // Delay before a partial batch is executed (100ms default)
	Isolated     bool          // Separate groups per target table instead of one shared group
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		MaxBatchSize: 128,
		FlushTimeout: 100 * time.Millisecond,
		Isolated:     true,
	}
}
