package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// QueryTotal counts queries by mode (sync, async) and query_type
	QueryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tqbulk_query_total",
			Help: "Total number of queries dispatched",
		},
		[]string{"mode", "query_type"},
	)

	// QueryErrors counts queries whose result carried a non-zero code
	QueryErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tqbulk_query_errors_total",
			Help: "Total number of queries that returned an error code",
		},
		[]string{"mode"},
	)

	// QueryLatency tracks time from dispatch to result by mode
	QueryLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tqbulk_query_latency_seconds",
			Help:    "Query latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	// InFlight is the number of asynchronous queries holding an admission slot
	InFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tqbulk_in_flight",
			Help: "Asynchronous queries currently in flight",
		},
	)

	// AdmissionWait tracks how long async queries waited for a slot
	AdmissionWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tqbulk_admission_wait_seconds",
			Help:    "Time spent waiting for an admission slot",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
		},
	)

	// WriteBatchSize tracks the number of writes flushed together
	WriteBatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tqbulk_write_batch_size",
			Help:    "Number of writes per flushed batch",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	// WriteBatchLatency tracks the time to execute a flushed batch
	WriteBatchLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tqbulk_write_batch_latency_seconds",
			Help:    "Batch execution latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// StatementRows tracks rows per serialized multi-row statement
	StatementRows = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tqbulk_statement_rows",
			Help:    "Rows per dispatched insert statement",
			Buckets: []float64{1, 10, 100, 1000, 10000},
		},
	)

	once sync.Once
)

// Init registers all metrics with Prometheus
func Init() {
	once.Do(func() {
		prometheus.MustRegister(QueryTotal)
		prometheus.MustRegister(QueryErrors)
		prometheus.MustRegister(QueryLatency)
		prometheus.MustRegister(InFlight)
		prometheus.MustRegister(AdmissionWait)
		prometheus.MustRegister(WriteBatchSize)
		prometheus.MustRegister(WriteBatchLatency)
		prometheus.MustRegister(StatementRows)
	})
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
