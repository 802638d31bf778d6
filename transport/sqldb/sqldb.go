// Package sqldb implements transport.Transport on top of database/sql with
// the MySQL, PostgreSQL and SQLite drivers.
//
// Asynchronous queries run on goroutines owned by the connection. When
// batching is configured, asynchronous inserts are grouped by the write
// batch manager and flushed together once a group is full or its timeout
// expires.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/hashicorp/go-multierror"
	_ "github.com/lib/pq"         // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/mevdschee/tqbulk/parser"
	"github.com/mevdschee/tqbulk/statement"
	"github.com/mevdschee/tqbulk/transport"
	"github.com/mevdschee/tqbulk/writebatch"
)

var (
	// ErrUnsupportedDriver is returned for drivers other than mysql, postgres and sqlite3
	ErrUnsupportedDriver = errors.New("unsupported driver")
)

// Transport opens database/sql connections for one driver.
type Transport struct {
	driver string

	mu    sync.Mutex
	batch transport.BatchOptions
}

// New creates a transport for driver (MySQL, Postgres or SQLite).
func New(driver string) *Transport {
	return &Transport{driver: driver}
}

// Driver returns the driver name.
func (t *Transport) Driver() string {
	return t.driver
}

// ConfigureBatching implements transport.BatchConfigurer. It applies to
// connections opened afterwards.
func (t *Transport) ConfigureBatching(opts transport.BatchOptions) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.batch = opts
}

// Connect implements transport.Transport
func (t *Transport) Connect(ctx context.Context, host, user, password, database string, port uint16) (transport.Conn, error) {
	dsn, err := DSN(t.driver, host, user, password, database, port)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(t.driver, dsn)
	if err != nil {
		return nil, err
	}
	if t.driver == SQLite {
		// SQLite has a single writer, and every connection to an in-memory
		// database sees a different database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	t.mu.Lock()
	opts := t.batch
	t.mu.Unlock()

	c := &Conn{db: db}
	if opts.Enabled {
		c.batcher = writebatch.New(db, writebatch.Config{
			MaxBatchSize: opts.Size,
			FlushTimeout: opts.Timeout,
			Isolated:     opts.Isolated,
		})
	}
	return c, nil
}

// Conn is a database/sql backed connection.
type Conn struct {
	db      *sql.DB
	batcher *writebatch.Manager
	running sync.WaitGroup
}

// DB returns the underlying database handle.
func (c *Conn) DB() *sql.DB {
	return c.db
}

// Batching reports whether asynchronous inserts are batched.
func (c *Conn) Batching() bool {
	return c.batcher != nil
}

// Query implements transport.Conn
func (c *Conn) Query(ctx context.Context, query string) transport.Handle {
	return c.query(ctx, query)
}

func (c *Conn) query(ctx context.Context, query string) *Handle {
	if parser.Classify(query) == parser.QuerySelect {
		return c.queryRows(ctx, query)
	}

	result, err := c.db.ExecContext(ctx, query)
	if err != nil {
		return errorHandle(err)
	}
	h := &Handle{}
	h.affected, _ = result.RowsAffected()
	h.lastID, _ = result.LastInsertId()
	return h
}

func (c *Conn) queryRows(ctx context.Context, query string) *Handle {
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return errorHandle(err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return errorHandle(err)
	}

	h := &Handle{columns: columns}
	values := make([]sql.NullString, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return errorHandle(err)
		}
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = v.String
		}
		h.rows = append(h.rows, row)
	}
	if err := rows.Err(); err != nil {
		return errorHandle(err)
	}
	return h
}

// FormatStatement implements transport.StatementFormatter
func (c *Conn) FormatStatement(s statement.Statement) string {
	return s.Standard()
}

// QueryAsync implements transport.Conn
func (c *Conn) QueryAsync(query string, done transport.Completion) {
	if c.batcher != nil && parser.Parse(query).IsBatchable() {
		c.batcher.Enqueue(query, func(r writebatch.WriteResult) {
			h := &Handle{affected: r.AffectedRows, lastID: r.LastInsertID}
			if r.Error != nil {
				h = errorHandle(r.Error)
			}
			done(h, h.code)
		})
		return
	}

	c.running.Add(1)
	go func() {
		defer c.running.Done()
		h := c.query(context.Background(), query)
		done(h, h.code)
	}()
}

// Close flushes pending batches, waits for running queries and closes the
// database.
func (c *Conn) Close() error {
	var result *multierror.Error
	if c.batcher != nil {
		if err := c.batcher.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	c.running.Wait()
	if err := c.db.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
