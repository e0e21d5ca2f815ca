package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	// Operation metrics
	OperationsTotal     prometheus.Counter
	OperationsProcessed prometheus.Counter
	OperationsFailed    prometheus.Counter
	OperationLatency    prometheus.Histogram

	// Request batch metrics
	BatchesTotal  prometheus.Counter
	BatchRows     prometheus.Histogram
	BatchesByKind *prometheus.CounterVec

	// System metrics
	QueueDepth        prometheus.Gauge
	WorkerPoolActive  prometheus.Gauge
	WorkerPoolPending prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with the given namespace.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		OperationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total number of operations requested",
		}),
		OperationsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_processed_total",
			Help:      "Total number of operations successfully processed",
		}),
		OperationsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_failed_total",
			Help:      "Total number of failed operations",
		}),
		OperationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_latency_seconds",
			Help:      "Operation processing latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),

		BatchesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Total number of request batches received",
		}),
		BatchRows: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_rows",
			Help:      "Number of operand rows per request batch",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64},
		}),
		BatchesByKind: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_by_kind_total",
			Help:      "Request batches by operation kind",
		}, []string{"kind"}),

		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Current number of pending pipeline steps",
		}),
		WorkerPoolActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "worker_pool_active",
			Help:      "Number of active workers",
		}),
		WorkerPoolPending: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "worker_pool_pending",
			Help:      "Number of pending steps in worker pool",
		}),
	}
}

// RecordOperation records one operation outcome.
func (m *Metrics) RecordOperation(success bool, duration time.Duration) {
	m.OperationsTotal.Inc()
	m.OperationLatency.Observe(duration.Seconds())
	if success {
		m.OperationsProcessed.Inc()
	} else {
		m.OperationsFailed.Inc()
	}
}

// RecordBatch records a received request batch.
func (m *Metrics) RecordBatch(rows int, kind string) {
	m.BatchesTotal.Inc()
	m.BatchRows.Observe(float64(rows))
	m.BatchesByKind.WithLabelValues(kind).Inc()
}

// UpdateQueueDepth updates the step queue gauge.
func (m *Metrics) UpdateQueueDepth(size int) {
	m.QueueDepth.Set(float64(size))
}

// UpdateWorkerPool updates worker pool gauges.
func (m *Metrics) UpdateWorkerPool(active, pending int) {
	m.WorkerPoolActive.Set(float64(active))
	m.WorkerPoolPending.Set(float64(pending))
}

// MetricsServer runs an HTTP server exposing /metrics endpoint.
type MetricsServer struct {
	server *http.Server
}

// NewMetricsServer creates a new metrics server on the given address.
func NewMetricsServer(addr string) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &MetricsServer{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start starts the metrics server (blocking).
func (s *MetricsServer) Start() error {
	return s.server.ListenAndServe()
}

// StartAsync starts the metrics server in a goroutine.
func (s *MetricsServer) StartAsync() {
	go func() {
		_ = s.server.ListenAndServe()
	}()
}

// Stop gracefully stops the metrics server.
func (s *MetricsServer) Stop() error {
	return s.server.Close()
}
