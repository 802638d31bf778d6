package writebatch

import (
	"database/sql"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/mevdschee/tqbulk/parser"
)

// sharedKey is the group key used when batching is not isolated per table
const sharedKey uint64 = 0

// Manager handles batching of write operations
type Manager struct {
	groups  sync.Map // map[uint64]*BatchGroup
	config  Config
	db      *sql.DB
	mu      sync.RWMutex // guards closed against concurrent Enqueue
	closed  bool
	running sync.WaitGroup
}

// New creates a new write batch manager
func New(db *sql.DB, config Config) *Manager {
	if config.MaxBatchSize < 1 {
		config.MaxBatchSize = 1
	}
	return &Manager{
		db:     db,
		config: config,
	}
}

// Config returns the manager configuration
func (m *Manager) Config() Config {
	return m.config
}

// groupKey returns the batch group for a query
func (m *Manager) groupKey(query string) uint64 {
	if !m.config.Isolated {
		return sharedKey
	}
	return xxhash.Sum64String(parser.Parse(query).BatchKey())
}

// Enqueue adds a write operation to the batch queue. done is called exactly
// once with the result, on the goroutine that executes the batch.
func (m *Manager) Enqueue(query string, done func(WriteResult)) {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		done(WriteResult{Error: ErrManagerClosed})
		return
	}

	req := &WriteRequest{
		Query:      query,
		Done:       done,
		EnqueuedAt: time.Now(),
	}
	m.add(m.groupKey(query), req)
	m.mu.RUnlock()
}

func (m *Manager) add(key uint64, req *WriteRequest) {
	for {
		// Get or create batch group
		groupInterface, _ := m.groups.LoadOrStore(key, &BatchGroup{
			Key:       key,
			Requests:  make([]*WriteRequest, 0, m.config.MaxBatchSize),
			FirstSeen: time.Now(),
		})
		group := groupInterface.(*BatchGroup)

		group.mu.Lock()
		if group.Requests == nil {
			// Group has been processed, retry with a fresh lookup
			group.mu.Unlock()
			m.groups.CompareAndDelete(key, group)
			continue
		}
		isFirst := len(group.Requests) == 0
		group.Requests = append(group.Requests, req)
		currentSize := len(group.Requests)

		if currentSize >= m.config.MaxBatchSize {
			// Batch full - execute immediately
			timer := group.timer
			requests := m.takeLocked(group)
			group.mu.Unlock()
			if timer != nil {
				timer.Stop()
			}
			go m.executeBatch(requests)
		} else if isFirst {
			// First request - start timer
			group.timer = time.AfterFunc(m.config.FlushTimeout, func() {
				m.flushGroup(group)
			})
			group.mu.Unlock()
		} else {
			group.mu.Unlock()
		}
		return
	}
}

// takeLocked detaches the requests of a group and removes the group from
// the map so new requests create a fresh batch. group.mu must be held.
func (m *Manager) takeLocked(group *BatchGroup) []*WriteRequest {
	requests := group.Requests
	group.Requests = nil
	if len(requests) > 0 {
		m.running.Add(1)
	}
	m.groups.CompareAndDelete(group.Key, group)
	return requests
}

// flushGroup executes whatever the group holds
func (m *Manager) flushGroup(group *BatchGroup) {
	group.mu.Lock()
	requests := m.takeLocked(group)
	timer := group.timer
	group.mu.Unlock()
	if timer != nil {
		timer.Stop()
	}
	if len(requests) > 0 {
		m.executeBatch(requests)
	}
}

// Pending returns the number of requests waiting in groups
func (m *Manager) Pending() int {
	n := 0
	m.groups.Range(func(_, v any) bool {
		group := v.(*BatchGroup)
		group.mu.Lock()
		n += len(group.Requests)
		group.mu.Unlock()
		return true
	})
	return n
}

// Close stops accepting writes, executes every pending batch and waits for
// running batches to finish
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.groups.Range(func(_, v any) bool {
		m.flushGroup(v.(*BatchGroup))
		return true
	})
	m.running.Wait()
	return nil
}
