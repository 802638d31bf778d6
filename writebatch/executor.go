package writebatch

import (
	"context"
	"database/sql"
	"time"

	"github.com/mevdschee/tqbulk/metrics"
	"github.com/mevdschee/tqbulk/parser"
)

// executeBatch runs one detached group and reports to every request
func (m *Manager) executeBatch(requests []*WriteRequest) {
	defer m.running.Done()

	start := time.Now()
	metrics.WriteBatchSize.Observe(float64(len(requests)))

	ctx := context.Background()
	switch {
	case len(requests) == 1:
		requests[0].Done(resultOf(m.db.ExecContext(ctx, requests[0].Query)))
	case sameQuery(requests) && !parser.MultiStatement(requests[0].Query):
		// A prepared statement only compiles the first of several statements
		m.execPrepared(ctx, requests)
	default:
		m.execTransaction(ctx, requests)
	}

	metrics.WriteBatchLatency.Observe(time.Since(start).Seconds())
}

// resultOf converts the outcome of an Exec into a WriteResult
func resultOf(res sql.Result, err error) WriteResult {
	if err != nil {
		return WriteResult{Error: err}
	}
	affected, _ := res.RowsAffected()
	lastID, _ := res.LastInsertId()
	return WriteResult{AffectedRows: affected, LastInsertID: lastID}
}

func failAll(requests []*WriteRequest, err error) {
	for _, req := range requests {
		req.Done(WriteResult{Error: err})
	}
}

func sameQuery(requests []*WriteRequest) bool {
	for _, req := range requests[1:] {
		if req.Query != requests[0].Query {
			return false
		}
	}
	return true
}

// execPrepared prepares the shared query once and executes it per request.
// Each request gets its own outcome.
func (m *Manager) execPrepared(ctx context.Context, requests []*WriteRequest) {
	stmt, err := m.db.PrepareContext(ctx, requests[0].Query)
	if err != nil {
		failAll(requests, err)
		return
	}
	defer stmt.Close()

	for _, req := range requests {
		req.Done(resultOf(stmt.ExecContext(ctx)))
	}
}

// execTransaction runs distinct queries in one transaction. The batch
// commits or fails as a whole; on failure every request gets the error.
func (m *Manager) execTransaction(ctx context.Context, requests []*WriteRequest) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		failAll(requests, err)
		return
	}

	results := make([]WriteResult, len(requests))
	for i, req := range requests {
		results[i] = resultOf(tx.ExecContext(ctx, req.Query))
		if err := results[i].Error; err != nil {
			tx.Rollback()
			failAll(requests, err)
			return
		}
	}

	if err := tx.Commit(); err != nil {
		failAll(requests, err)
		return
	}
	for i, req := range requests {
		req.Done(results[i])
	}
}
