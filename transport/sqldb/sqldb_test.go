package sqldb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/mevdschee/tqbulk/client"
	"github.com/mevdschee/tqbulk/latch"
	"github.com/mevdschee/tqbulk/statement"
	"github.com/mevdschee/tqbulk/transport"
)

func connect(t *testing.T, opts transport.BatchOptions) *Conn {
	t.Helper()
	tr := New(SQLite)
	tr.ConfigureBatching(opts)
	conn, err := tr.Connect(context.Background(), "", "", "", ":memory:", 0)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	c := conn.(*Conn)
	h := c.Query(context.Background(), "CREATE TABLE bw0001 (ts INTEGER, value TEXT)")
	if h.Code() != 0 {
		t.Fatalf("CREATE TABLE failed: %s", h.Message())
	}
	h.Release()
	return c
}

func asyncWait(c *Conn, query string) *Handle {
	ch := make(chan *Handle, 1)
	c.QueryAsync(query, func(h transport.Handle, code int) {
		ch <- h.(*Handle)
	})
	return <-ch
}

func TestConn_QueryExecAndSelect(t *testing.T) {
	c := connect(t, transport.BatchOptions{})
	defer c.Close()
	ctx := context.Background()

	h := c.Query(ctx, "INSERT INTO bw0001 VALUES (1, 'a'), (2, NULL)").(*Handle)
	if h.Code() != 0 {
		t.Fatalf("Expected code 0, got %d (%s)", h.Code(), h.Message())
	}
	if h.RowsAffected() != 2 {
		t.Errorf("Expected 2 affected rows, got %d", h.RowsAffected())
	}
	h.Release()

	h = c.Query(ctx, "SELECT ts, value FROM bw0001 ORDER BY ts").(*Handle)
	if h.Code() != 0 {
		t.Fatalf("Expected code 0, got %d (%s)", h.Code(), h.Message())
	}
	if cols := h.Columns(); len(cols) != 2 || cols[0] != "ts" || cols[1] != "value" {
		t.Errorf("Unexpected columns %v", cols)
	}
	rows := h.Rows()
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "1" || rows[0][1] != "a" {
		t.Errorf("Unexpected first row %v", rows[0])
	}
	if rows[1][1] != "" {
		t.Errorf("Expected NULL as empty string, got %q", rows[1][1])
	}
	h.Release()
	if !h.Released() {
		t.Error("Expected handle to be released")
	}
}

func TestConn_QueryError(t *testing.T) {
	c := connect(t, transport.BatchOptions{})
	defer c.Close()

	h := c.Query(context.Background(), "INSERT INTO missing VALUES (1)").(*Handle)
	defer h.Release()

	if h.Code() != int(sqlite3.ErrError) {
		t.Errorf("Expected code %d, got %d", sqlite3.ErrError, h.Code())
	}
	if h.Message() == "" {
		t.Error("Expected an error message")
	}
	if h.Err() == nil {
		t.Error("Expected Err() to return the driver error")
	}
}

func TestHandle_DoubleReleasePanics(t *testing.T) {
	h := &Handle{}
	h.Release()

	defer func() {
		if recover() == nil {
			t.Error("Expected second Release to panic")
		}
	}()
	h.Release()
}

func TestConn_QueryAsync(t *testing.T) {
	c := connect(t, transport.BatchOptions{})
	defer c.Close()

	h := asyncWait(c, "INSERT INTO bw0001 VALUES (1, 'async')")
	if h.Code() != 0 {
		t.Fatalf("Expected code 0, got %d (%s)", h.Code(), h.Message())
	}
	h.Release()

	h = asyncWait(c, "SELECT COUNT(*) FROM bw0001")
	if rows := h.Rows(); len(rows) != 1 || rows[0][0] != "1" {
		t.Errorf("Expected count 1, got %v", rows)
	}
	h.Release()
}

func TestConn_BatchedInserts(t *testing.T) {
	c := connect(t, transport.BatchOptions{
		Enabled:  true,
		Isolated: true,
		Size:     4,
		Timeout:  time.Hour,
	})
	if !c.Batching() {
		t.Fatal("Expected batching to be enabled")
	}

	var completed atomic.Int32
	for i := 0; i < 6; i++ {
		c.QueryAsync(fmt.Sprintf("INSERT INTO bw0001 VALUES (%d, 'batched')", i), func(h transport.Handle, code int) {
			if code != 0 {
				t.Errorf("Unexpected code %d: %s", code, h.Message())
			}
			h.Release()
			completed.Add(1)
		})
	}

	// Close flushes the partial batch left behind the full one
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if completed.Load() != 6 {
		t.Errorf("Expected 6 completions, got %d", completed.Load())
	}
}

func TestConn_BatchedMultiTableStatements(t *testing.T) {
	c := connect(t, transport.BatchOptions{
		Enabled:  true,
		Isolated: true,
		Size:     2,
		Timeout:  time.Hour,
	})
	defer c.Close()
	ctx := context.Background()

	for _, table := range []string{"a", "b"} {
		h := c.Query(ctx, "CREATE TABLE "+table+" (v INTEGER)")
		if h.Code() != 0 {
			t.Fatalf("CREATE TABLE %s failed: %s", table, h.Message())
		}
		h.Release()
	}

	s := statement.Builder()
	s.InsertInto("a").Value("1")
	s.InsertInto("b").Value("2")
	query := c.FormatStatement(s)

	// Two identical statements fill the batch group
	codes := make(chan int, 2)
	for i := 0; i < 2; i++ {
		c.QueryAsync(query, func(h transport.Handle, code int) {
			h.Release()
			codes <- code
		})
	}
	for i := 0; i < 2; i++ {
		select {
		case code := <-codes:
			if code != 0 {
				t.Errorf("Expected code 0, got %d", code)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Batch was not executed")
		}
	}

	for _, table := range []string{"a", "b"} {
		h := c.Query(ctx, "SELECT COUNT(*) FROM "+table).(*Handle)
		if rows := h.Rows(); len(rows) != 1 || rows[0][0] != "2" {
			t.Errorf("Expected 2 rows in %s, got %v", table, rows)
		}
		h.Release()
	}
}

func TestConn_BatchingOnlyGroupsInserts(t *testing.T) {
	c := connect(t, transport.BatchOptions{
		Enabled:  true,
		Isolated: true,
		Size:     128,
		Timeout:  time.Hour,
	})
	defer c.Close()

	// Only inserts wait for the batch timeout
	done := make(chan *Handle, 1)
	c.QueryAsync("UPDATE bw0001 SET value = 'x'", func(h transport.Handle, code int) {
		done <- h.(*Handle)
	})
	select {
	case h := <-done:
		if h.Code() != 0 {
			t.Errorf("Expected code 0, got %d (%s)", h.Code(), h.Message())
		}
		h.Release()
	case <-time.After(2 * time.Second):
		t.Fatal("UPDATE was held by the batcher")
	}
}

func TestConnect_Unsupported(t *testing.T) {
	conn, err := New("oracle").Connect(context.Background(), "localhost", "", "", "db", 1521)
	if !errors.Is(err, ErrUnsupportedDriver) {
		t.Errorf("Expected ErrUnsupportedDriver, got %v", err)
	}
	if conn != nil {
		t.Error("Expected nil connection")
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"mysql", &mysql.MySQLError{Number: 1146, Message: "Table doesn't exist"}, 1146},
		{"mysql wrapped", fmt.Errorf("exec: %w", &mysql.MySQLError{Number: 1062}), 1062},
		{"postgres numeric", &pq.Error{Code: "23505"}, 23505},
		{"postgres alphanumeric", &pq.Error{Code: "42P01"}, -1},
		{"sqlite", sqlite3.Error{Code: sqlite3.ErrConstraint}, int(sqlite3.ErrConstraint)},
		{"other", errors.New("boom"), -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorCode(tt.err); got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

// The client, the latch and a file-backed database together, the way the
// benchmark harness drives them.
func TestClientEndToEnd(t *testing.T) {
	policy := client.DefaultPolicy()
	policy.Batch.BatchSize = 8
	policy.Batch.TimeoutMs = 5
	policy.MaxSessions = 2

	c, err := client.New(policy, New(SQLite))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bench.db")
	if err := c.Connect(ctx, "", "", "", path, 0); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	r, err := c.Query(ctx, "CREATE TABLE bw0001 (ts INTEGER, value TEXT)")
	if err != nil || !r.OK() {
		t.Fatalf("CREATE TABLE failed: %v %s", err, r.Error())
	}
	r.Release()

	const statements = 20
	const rowsPer = 5
	l := latch.New(statements)
	var failures atomic.Int32
	for i := 0; i < statements; i++ {
		s := statement.Builder()
		ins := s.InsertInto("bw0001")
		for j := 0; j < rowsPer; j++ {
			ins.Values(i*rowsPer+j, "'v'")
		}
		err := c.QueryStatementAsync(s, func(r *client.Result) {
			if !r.OK() {
				failures.Add(1)
			}
			l.CountDown()
		})
		if err != nil {
			t.Fatalf("QueryStatementAsync failed: %v", err)
		}
	}

	if err := l.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if failures.Load() != 0 {
		t.Errorf("Expected no failures, got %d", failures.Load())
	}

	r, err = c.Query(ctx, "SELECT COUNT(*) FROM bw0001")
	if err != nil {
		t.Fatal(err)
	}
	h, _ := r.Handle()
	if rows := h.(*Handle).Rows(); len(rows) != 1 || rows[0][0] != fmt.Sprint(statements*rowsPer) {
		t.Errorf("Expected %d rows, got %v", statements*rowsPer, rows)
	}
	r.Release()

	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if c.InFlight() != 0 {
		t.Errorf("Expected 0 in flight after Close, got %d", c.InFlight())
	}
}
