package sqldb

import (
	"errors"
	"strconv"
	"sync/atomic"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Handle is the result of one query. Rows are only filled for queries that
// return rows; RowsAffected and LastInsertID only for the others.
type Handle struct {
	code     int
	message  string
	err      error
	columns  []string
	rows     [][]string
	affected int64
	lastID   int64
	released atomic.Bool
}

func errorHandle(err error) *Handle {
	return &Handle{code: ErrorCode(err), message: err.Error(), err: err}
}

// Code implements transport.Handle
func (h *Handle) Code() int { return h.code }

// Message implements transport.Handle
func (h *Handle) Message() string { return h.message }

// Err returns the driver error, nil on success.
func (h *Handle) Err() error { return h.err }

// Columns returns the column names of a row-returning query.
func (h *Handle) Columns() []string { return h.columns }

// Rows returns the rows of a row-returning query, NULL rendered as "".
func (h *Handle) Rows() [][]string { return h.rows }

// RowsAffected returns the number of rows changed by a write.
func (h *Handle) RowsAffected() int64 { return h.affected }

// LastInsertID returns the id generated by an insert, where supported.
func (h *Handle) LastInsertID() int64 { return h.lastID }

// Release implements transport.Handle. Releasing twice panics.
func (h *Handle) Release() {
	if !h.released.CompareAndSwap(false, true) {
		panic("sqldb: result released twice")
	}
	h.rows = nil
	h.columns = nil
}

// Released reports whether Release was called.
func (h *Handle) Released() bool { return h.released.Load() }

// ErrorCode maps a driver error to an integer status code: 0 for nil, the
// server error number for MySQL, the numeric SQLSTATE for PostgreSQL, the
// primary result code for SQLite and -1 otherwise.
func ErrorCode(err error) int {
	if err == nil {
		return 0
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return int(myErr.Number)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if code, convErr := strconv.Atoi(string(pqErr.Code)); convErr == nil {
			return code
		}
		return -1
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return int(liteErr.Code)
	}

	return -1
}
