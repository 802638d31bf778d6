// Package mock provides an in-memory transport.Transport for tests.
package mock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/mevdschee/tqbulk/transport"
)

// MockTransport implements transport.Transport. Asynchronous queries either
// complete immediately on their own goroutine or, with WithHold, wait until
// the test completes them.
type MockTransport struct {
	mu         sync.Mutex
	connectErr error
	code       int
	message    string
	hold       bool
	block      <-chan struct{}
	batching   *transport.BatchOptions
	conns      []*MockConn

	connectCalls atomic.Int32
}

// NewMockTransport creates a transport whose queries succeed.
func NewMockTransport() *MockTransport {
	return &MockTransport{message: "success"}
}

// WithConnectError makes Connect fail with err.
func (m *MockTransport) WithConnectError(err error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectErr = err
	return m
}

// WithCode makes every query report code and message.
func (m *MockTransport) WithCode(code int, message string) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.code = code
	m.message = message
	return m
}

// WithHold keeps asynchronous queries pending until Complete is called.
func (m *MockTransport) WithHold() *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hold = true
	return m
}

// WithConnectBlock makes Connect wait until ch is closed or ctx is done.
func (m *MockTransport) WithConnectBlock(ch <-chan struct{}) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.block = ch
	return m
}

// Connect implements transport.Transport
func (m *MockTransport) Connect(ctx context.Context, host, user, password, database string, port uint16) (transport.Conn, error) {
	m.connectCalls.Add(1)

	m.mu.Lock()
	block := m.block
	m.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connectErr != nil {
		return nil, m.connectErr
	}
	c := &MockConn{
		t:    m,
		addr: fmt.Sprintf("%s:%d/%s", host, port, database),
	}
	m.conns = append(m.conns, c)
	return c, nil
}

// ConnectCalls returns the number of Connect calls.
func (m *MockTransport) ConnectCalls() int {
	return int(m.connectCalls.Load())
}

// Conn returns the most recent connection, or nil.
func (m *MockTransport) Conn() *MockConn {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.conns) == 0 {
		return nil
	}
	return m.conns[len(m.conns)-1]
}

// Batching returns the options passed to ConfigureBatching, or nil.
func (m *MockTransport) Batching() *transport.BatchOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batching
}

// ConfigureBatching implements transport.BatchConfigurer
func (m *MockTransport) ConfigureBatching(opts transport.BatchOptions) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batching = &opts
}

type pending struct {
	sql  string
	done transport.Completion
}

// MockConn is a connection of MockTransport.
type MockConn struct {
	t    *MockTransport
	addr string

	mu      sync.Mutex
	pending []pending
	queries []string
	handles []*Handle
	closed  bool
	wg      sync.WaitGroup

	closeCalls atomic.Int32
}

func (c *MockConn) newHandle(sql string) *Handle {
	c.t.mu.Lock()
	h := &Handle{sql: sql, code: c.t.code, message: c.t.message}
	c.t.mu.Unlock()

	c.mu.Lock()
	c.queries = append(c.queries, sql)
	c.handles = append(c.handles, h)
	c.mu.Unlock()
	return h
}

// Query implements transport.Conn
func (c *MockConn) Query(ctx context.Context, sql string) transport.Handle {
	return c.newHandle(sql)
}

// QueryAsync implements transport.Conn
func (c *MockConn) QueryAsync(sql string, done transport.Completion) {
	c.t.mu.Lock()
	hold := c.t.hold
	c.t.mu.Unlock()

	if hold {
		c.mu.Lock()
		c.pending = append(c.pending, pending{sql: sql, done: done})
		c.mu.Unlock()
		return
	}
	c.run(pending{sql: sql, done: done})
}

func (c *MockConn) run(p pending) {
	h := c.newHandle(p.sql)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		p.done(h, h.Code())
	}()
}

// Pending returns the number of held asynchronous queries.
func (c *MockConn) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Complete runs up to n held queries, oldest first, and returns how many ran.
func (c *MockConn) Complete(n int) int {
	c.mu.Lock()
	if n > len(c.pending) {
		n = len(c.pending)
	}
	batch := c.pending[:n]
	c.pending = c.pending[n:]
	c.mu.Unlock()

	for _, p := range batch {
		c.run(p)
	}
	return n
}

// CompleteAll runs every held query.
func (c *MockConn) CompleteAll() int {
	return c.Complete(c.Pending())
}

// CompleteNow delivers the oldest held query's completion on the calling
// goroutine.
func (c *MockConn) CompleteNow() bool {
	c.mu.Lock()
	if len(c.pending) == 0 {
		c.mu.Unlock()
		return false
	}
	p := c.pending[0]
	c.pending = c.pending[1:]
	c.mu.Unlock()

	h := c.newHandle(p.sql)
	p.done(h, h.Code())
	return true
}

// CompleteTwice delivers the oldest held query's completion twice, as a
// misbehaving driver would.
func (c *MockConn) CompleteTwice() bool {
	c.mu.Lock()
	if len(c.pending) == 0 {
		c.mu.Unlock()
		return false
	}
	p := c.pending[0]
	c.pending = c.pending[1:]
	c.mu.Unlock()

	h := c.newHandle(p.sql)
	p.done(h, h.Code())
	p.done(h, h.Code())
	return true
}

// Wait blocks until all started completions returned.
func (c *MockConn) Wait() {
	c.wg.Wait()
}

// Queries returns the SQL text of every executed query, in start order.
func (c *MockConn) Queries() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.queries))
	copy(out, c.queries)
	return out
}

// Handles returns every handle produced so far.
func (c *MockConn) Handles() []*Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Handle, len(c.handles))
	copy(out, c.handles)
	return out
}

// Addr returns host:port/database as passed to Connect.
func (c *MockConn) Addr() string {
	return c.addr
}

// Close implements transport.Conn
func (c *MockConn) Close() error {
	c.closeCalls.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Closed reports whether Close was called.
func (c *MockConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// CloseCalls returns the number of Close calls.
func (c *MockConn) CloseCalls() int {
	return int(c.closeCalls.Load())
}

// Handle is a mock native result that counts releases.
type Handle struct {
	sql      string
	code     int
	message  string
	released atomic.Int32
}

// Code implements transport.Handle
func (h *Handle) Code() int { return h.code }

// Message implements transport.Handle
func (h *Handle) Message() string { return h.message }

// Release implements transport.Handle
func (h *Handle) Release() { h.released.Add(1) }

// Releases returns how many times Release was called.
func (h *Handle) Releases() int { return int(h.released.Load()) }

// SQL returns the query text the handle was produced for.
func (h *Handle) SQL() string { return h.sql }
