// Package transport defines the narrow driver contract the client dispatches
// queries through.
package transport

import (
	"context"
	"time"

	"github.com/mevdschee/tqbulk/statement"
)

// Transport establishes connections to a database.
type Transport interface {
	// Connect opens a connection. A failed connect returns a nil Conn.
	Connect(ctx context.Context, host, user, password, database string, port uint16) (Conn, error)
}

// Conn is an established connection.
type Conn interface {
	// Query executes sql synchronously and returns the native result.
	Query(ctx context.Context, sql string) Handle

	// QueryAsync executes sql and invokes done exactly once, on a goroutine
	// owned by the transport, with the native result and its status code.
	QueryAsync(sql string, done Completion)

	// Close releases the connection.
	Close() error
}

// Completion receives the outcome of an asynchronous query.
type Completion func(h Handle, code int)

// Handle is a native query result. It must be released exactly once; the
// transport does not promise that a second Release is harmless.
type Handle interface {
	Code() int
	Message() string
	Release()
}

// BatchOptions tunes the transport-side write batching.
type BatchOptions struct {
	Enabled  bool
	Isolated bool // keep separate batch groups per target table
	Size     int
	Timeout  time.Duration
}

// BatchConfigurer is implemented by transports that batch asynchronous
// writes. The client calls it while connecting.
type BatchConfigurer interface {
	ConfigureBatching(opts BatchOptions)
}

// StatementFormatter is implemented by connections that need statements in
// a syntax other than Statement.String.
type StatementFormatter interface {
	FormatStatement(s statement.Statement) string
}
