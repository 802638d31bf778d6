// Package client dispatches synchronous and asynchronous queries to a
// transport while bounding the number of outstanding asynchronous requests.
//
// Usage:
//
//	c, err := client.New(client.DefaultPolicy(), sqldb.New("mysql"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := c.Connect(ctx, "127.0.0.1", "root", "", "test", 3306); err != nil {
//		log.Fatal(err)
//	}
//	defer c.Close()
//
//	s := statement.Builder()
//	s.InsertInto("t").Values(1, 2)
//	err = c.QueryStatementAsync(s, func(r *client.Result) {
//		if !r.OK() {
//			log.Printf("insert failed: %s", r.Error())
//		}
//	})
//
// Callbacks run on transport goroutines. The Result passed to a callback is
// released when the callback returns unless the callback takes it with
// Result.Move. A callback must not call Close on its own client.
package client

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mevdschee/tqbulk/gate"
	"github.com/mevdschee/tqbulk/metrics"
	"github.com/mevdschee/tqbulk/parser"
	"github.com/mevdschee/tqbulk/statement"
	"github.com/mevdschee/tqbulk/transport"
)

// State is the lifecycle state of a client.
type State int

const (
	// Unconnected is the state before a successful Connect.
	Unconnected State = iota
	// Connected allows queries.
	Connected
	// Closed is terminal.
	Closed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Unconnected:
		return "UNCONNECTED"
	case Connected:
		return "CONNECTED"
	case Closed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Callback receives the result of an asynchronous query.
type Callback func(r *Result)

// Client is an admission-controlled query dispatcher.
type Client struct {
	policy    Policy
	transport transport.Transport
	gate      *gate.Gate

	mu         sync.RWMutex
	state      State
	conn       transport.Conn
	connectErr error // set when the last Connect failed
	connecting bool

	closeOnce sync.Once
	closeErr  error
}

// New creates an unconnected client.
func New(policy Policy, t transport.Transport) (*Client, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("%w: transport is nil", ErrInvalidPolicy)
	}
	return &Client{
		policy:    policy,
		transport: t,
		gate:      gate.New(policy.Capacity()),
	}, nil
}

// Connect opens the transport connection and applies the batching policy.
// After a failed Connect every query fails with ErrInvalidConnection until a
// later Connect succeeds. A Connect issued while another is dialing returns
// ErrConnecting.
func (c *Client) Connect(ctx context.Context, host, user, password, database string, port uint16) error {
	c.mu.Lock()
	switch {
	case c.state == Connected:
		c.mu.Unlock()
		return ErrAlreadyConnected
	case c.state == Closed:
		c.mu.Unlock()
		return ErrClosed
	case c.connecting:
		c.mu.Unlock()
		return ErrConnecting
	}
	c.connecting = true
	c.mu.Unlock()

	// The lock is not held while dialing.
	if bc, ok := c.transport.(transport.BatchConfigurer); ok {
		bc.ConfigureBatching(c.policy.Batch.options())
	}
	conn, err := c.transport.Connect(ctx, host, user, password, database, port)
	if err == nil && conn == nil {
		err = fmt.Errorf("transport returned no connection")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.connecting = false

	if err != nil {
		c.connectErr = err
		return fmt.Errorf("%w: %w", ErrInvalidConnection, err)
	}
	if c.state == Closed {
		// Close ran while dialing; nothing will drain or close this one.
		conn.Close()
		return ErrClosed
	}

	c.conn = conn
	c.connectErr = nil
	c.state = Connected
	return nil
}

// connReadyLocked returns the connection or the reason it cannot be used.
func (c *Client) connReadyLocked() (transport.Conn, error) {
	switch c.state {
	case Connected:
		return c.conn, nil
	case Closed:
		return nil, ErrClosed
	}
	if c.connectErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConnection, c.connectErr)
	}
	return nil, ErrNotConnected
}

func (c *Client) readyConn() (transport.Conn, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connReadyLocked()
}

// Query executes sql synchronously. Driver errors are reported through the
// Result; the error return is for misuse only.
func (c *Client) Query(ctx context.Context, sql string) (*Result, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	conn, err := c.connReadyLocked()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	h := conn.Query(ctx, sql)
	observe("sync", sql, h, start)
	return newResult(h), nil
}

// QueryStatement serializes s and executes it synchronously. An empty
// statement is not sent; it yields an empty successful Result.
func (c *Client) QueryStatement(ctx context.Context, s statement.Statement) (*Result, error) {
	if s.Empty() {
		if _, err := c.readyConn(); err != nil {
			return nil, err
		}
		return newResult(nil), nil
	}
	sql, err := c.render(s)
	if err != nil {
		return nil, err
	}
	metrics.StatementRows.Observe(float64(s.Rows()))
	return c.Query(ctx, sql)
}

// render serializes s in the syntax the connection accepts.
func (c *Client) render(s statement.Statement) (string, error) {
	conn, err := c.readyConn()
	if err != nil {
		return "", err
	}
	if f, ok := conn.(transport.StatementFormatter); ok {
		return f.FormatStatement(s), nil
	}
	return s.String(), nil
}

// pending is the per-request context handed to the transport. The
// completion claims the callback exactly once; later deliveries find it
// empty and are dropped.
type pending struct {
	fn     atomic.Pointer[Callback]
	client *Client
	sql    string
	start  time.Time
}

func (p *pending) complete(h transport.Handle, _ int) {
	fn := p.fn.Swap(nil)
	if fn == nil {
		return
	}
	c := p.client
	observe("async", p.sql, h, p.start)

	r := newResult(h)
	// The slot is returned even when the callback panics.
	defer func() {
		r.Release()
		p.client = nil
		metrics.InFlight.Dec()
		c.gate.Release()
	}()
	(*fn)(r)
}

// QueryAsync acquires an admission slot, blocking while the client is
// saturated, and executes sql asynchronously. fn is called exactly once on a
// transport goroutine. A non-nil error means fn will not be called.
func (c *Client) QueryAsync(sql string, fn Callback) error {
	if fn == nil {
		return ErrNilCallback
	}

	if _, err := c.readyConn(); err != nil {
		return err
	}

	waitStart := time.Now()
	c.gate.Acquire()
	metrics.AdmissionWait.Observe(time.Since(waitStart).Seconds())

	// Close may have started while we waited. Holding the slot here makes
	// its drain wait for this request if we still see a live connection.
	conn, err := c.readyConn()
	if err != nil {
		c.gate.Release()
		return err
	}
	metrics.InFlight.Inc()

	p := &pending{client: c, sql: sql, start: time.Now()}
	p.fn.Store(&fn)
	conn.QueryAsync(sql, p.complete)
	return nil
}

// QueryStatementAsync serializes s and executes it asynchronously. An empty
// statement is not sent and takes no slot; fn receives an empty successful
// Result before QueryStatementAsync returns.
func (c *Client) QueryStatementAsync(s statement.Statement, fn Callback) error {
	if fn == nil {
		return ErrNilCallback
	}
	if s.Empty() {
		if _, err := c.readyConn(); err != nil {
			return err
		}
		r := newResult(nil)
		fn(r)
		r.Release()
		return nil
	}
	sql, err := c.render(s)
	if err != nil {
		return err
	}
	metrics.StatementRows.Observe(float64(s.Rows()))
	return c.QueryAsync(sql, fn)
}

// Close waits for all asynchronous queries to complete, then closes the
// connection. Later calls return the first call's error.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		conn := c.conn
		c.state = Closed
		c.conn = nil
		c.mu.Unlock()

		if conn == nil {
			return
		}
		c.gate.Drain()
		c.closeErr = conn.Close()
	})
	return c.closeErr
}

// State returns the lifecycle state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// InFlight returns the number of asynchronous queries holding or waiting
// for a slot.
func (c *Client) InFlight() int {
	return c.gate.InFlight()
}

// Capacity returns the derived admission capacity.
func (c *Client) Capacity() int {
	return c.gate.Capacity()
}

// Policy returns the policy the client was created with.
func (c *Client) Policy() Policy {
	return c.policy
}

func observe(mode, sql string, h transport.Handle, start time.Time) {
	metrics.QueryTotal.WithLabelValues(mode, parser.Classify(sql).String()).Inc()
	metrics.QueryLatency.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	if h != nil && h.Code() != 0 {
		metrics.QueryErrors.WithLabelValues(mode).Inc()
	}
}
