package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mevdschee/tqbulk/client"
	"github.com/mevdschee/tqbulk/config"
	"github.com/mevdschee/tqbulk/latch"
	"github.com/mevdschee/tqbulk/metrics"
	"github.com/mevdschee/tqbulk/statement"
	"github.com/mevdschee/tqbulk/transport/sqldb"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (defaults when empty)")
	metricsAddr := flag.String("metrics", "", "Metrics endpoint address, e.g. :9090")
	interactive := flag.Bool("interactive", false, "Ask for benchmark and client settings on stdin")
	useStatement := flag.Bool("statement", false, "Insert batch_size rows per statement")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if *interactive {
		if err := config.Prompt(os.Stdin, os.Stdout, cfg); err != nil {
			log.Fatalf("Failed to read settings: %v", err)
		}
	}

	// Initialize metrics
	metrics.Init()

	if *metricsAddr != "" {
		// Start metrics HTTP server with pprof
		go func() {
			http.Handle("/metrics", metrics.Handler())
			log.Printf("Metrics endpoint at http://localhost%s/metrics", *metricsAddr)
			log.Printf("Pprof endpoints at http://localhost%s/debug/pprof/", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
				log.Printf("Metrics server error: %v", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *useStatement); err != nil {
		log.Fatalf("[Bench] %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, useStatement bool) error {
	c, err := client.New(cfg.Policy(), sqldb.New(cfg.Connection.Driver))
	if err != nil {
		return err
	}

	conn := cfg.Connection
	if err := c.Connect(ctx, conn.Host, conn.User, conn.Password, conn.Database, cfg.ConnectPort()); err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			log.Printf("[Bench] Close error: %v", err)
		}
	}()

	runID := uuid.New()
	log.Printf("[Bench] Run %s: driver %s, capacity %d, batching %t", runID, conn.Driver, c.Capacity(), cfg.Batch.Enabled)

	table := cfg.Benchmark.Table
	if err := exec(ctx, c, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (ts BIGINT, v INT)", table)); err != nil {
		return err
	}

	b := cfg.Benchmark
	if b.DataSize <= 0 {
		return fmt.Errorf("data_size must be positive, got %d", b.DataSize)
	}
	threads := max(b.Threads, 1)

	// Every inserted row counts down once, whatever the dispatch mode
	l := latch.New(b.DataSize)
	ts := time.Now().UnixNano() - int64(b.DataSize)
	blockSize := b.DataSize / threads

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < threads; i++ {
		offset := i * blockSize
		next := (i + 1) * blockSize
		if i+1 == threads {
			next = b.DataSize
		}
		w := &worker{client: c, latch: l, table: table, ts: ts}
		if useStatement {
			batch := max(cfg.Batch.BatchSize, 1)
			g.Go(func() error { return w.statements(gctx, offset, next, batch) })
		} else {
			g.Go(func() error { return w.inserts(gctx, offset, next) })
		}
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if err := l.Wait(ctx); err != nil {
		return err
	}

	elapsed := time.Since(start)
	log.Printf("[Bench] Run %s: inserted %d rows in %d ms with %d threads", runID, b.DataSize, elapsed.Milliseconds(), threads)
	return nil
}

// exec runs a statement synchronously and turns a driver error into an error
func exec(ctx context.Context, c *client.Client, sql string) error {
	r, err := c.Query(ctx, sql)
	if err != nil {
		return err
	}
	defer r.Release()
	if !r.OK() {
		return fmt.Errorf("%s: %s (code %d)", sql, r.Error(), r.Code())
	}
	return nil
}

type worker struct {
	client *client.Client
	latch  *latch.Latch
	table  string
	ts     int64
}

// inserts sends one single-row insert per row in [offset, next)
func (w *worker) inserts(ctx context.Context, offset, next int) error {
	for j := offset; j < next; j++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		sql := fmt.Sprintf("insert into %s values (%d, %d)", w.table, w.ts+int64(j), j)
		err := w.client.QueryAsync(sql, func(r *client.Result) {
			if !r.OK() {
				log.Printf("[Bench] sql: %s, error: %s", sql, r.Error())
			}
			w.latch.CountDown()
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// statements sends the rows in [offset, next) as statements of up to batch rows
func (w *worker) statements(ctx context.Context, offset, next, batch int) error {
	s := statement.Builder()
	for j := offset; j < next; {
		if err := ctx.Err(); err != nil {
			return err
		}
		ins := s.InsertInto(w.table)
		for end := min(j+batch, next); j < end; j++ {
			ins.Values(w.ts+int64(j), j)
		}

		rows := s.Rows()
		err := w.client.QueryStatementAsync(s, func(r *client.Result) {
			if !r.OK() {
				log.Printf("[Bench] statement of %d rows, error: %s", rows, r.Error())
			}
			for k := 0; k < rows; k++ {
				w.latch.CountDown()
			}
		})
		if err != nil {
			return err
		}
		s.Clear()
	}
	return nil
}
