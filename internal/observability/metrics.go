// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Scan metrics
	PairsEvaluated    *prometheus.CounterVec
	WindowsScanned    prometheus.Counter
	ScanRunsTotal     *prometheus.CounterVec
	ScanDuration      *prometheus.HistogramVec
	MetricErrors      prometheus.Counter

	// Hunt metrics
	HuntRunsTotal   *prometheus.CounterVec
	HuntDuration    prometheus.Histogram
	HuntWindowDepth prometheus.Histogram

	// Ingestion metrics
	QuotesIngested  prometheus.Counter
	IngestBatches   *prometheus.CounterVec

	// Job metrics
	JobsActive    prometheus.Gauge
	JobsTotal     *prometheus.CounterVec
	JobLogEntries prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulScan prometheus.Gauge
	LastSuccessfulHunt prometheus.Gauge
	UptimeSeconds      prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "pairs_lab"
	}

	return &Metrics{
		// Scan metrics
		PairsEvaluated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "pairs_evaluated_total",
			Help:      "Total number of pair evaluations by resulting status",
		}, []string{"status"}),
		WindowsScanned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "windows_scanned_total",
			Help:      "Total number of lookback windows evaluated",
		}),
		ScanRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "runs_total",
			Help:      "Total number of scan runs by kind and status",
		}, []string{"kind", "status"}),
		ScanDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "duration_seconds",
			Help:      "Scan run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"kind"}),
		MetricErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "metric_errors_total",
			Help:      "Total number of pair evaluations that errored",
		}),

		// Hunt metrics
		HuntRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hunt",
			Name:      "runs_total",
			Help:      "Total number of hunt runs by outcome",
		}, []string{"outcome"}),
		HuntDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "hunt",
			Name:      "duration_seconds",
			Help:      "Hunt run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		HuntWindowDepth: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "hunt",
			Name:      "window_depth",
			Help:      "Number of windows scanned before a hunt stopped",
			Buckets:   []float64{1, 2, 3, 4, 5, 6, 8, 10},
		}),

		// Ingestion metrics
		QuotesIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "quotes_ingested_total",
			Help:      "Total number of daily quote rows ingested",
		}),
		IngestBatches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "batches_total",
			Help:      "Total number of quote ingest batches by status",
		}, []string{"status"}),

		// Job metrics
		JobsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "active",
			Help:      "Number of background jobs currently running",
		}),
		JobsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "total",
			Help:      "Total number of background jobs by terminal state",
		}, []string{"state"}),
		JobLogEntries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "log_entries_total",
			Help:      "Total number of progress events appended to job logs",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulScan: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_scan_timestamp",
			Help:      "Unix timestamp of last successful scan run",
		}),
		LastSuccessfulHunt: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_hunt_timestamp",
			Help:      "Unix timestamp of last successful hunt run",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordPairEvaluated increments the pair evaluation counter for a status tag.
func RecordPairEvaluated(status string) {
	DefaultMetrics.PairsEvaluated.WithLabelValues(status).Inc()
	if status == "erro" {
		DefaultMetrics.MetricErrors.Inc()
	}
}

// RecordWindowScanned increments the windows scanned counter.
func RecordWindowScanned() {
	DefaultMetrics.WindowsScanned.Inc()
}

// RecordScanRun records a scan run.
func RecordScanRun(kind, status string, durationSeconds float64) {
	DefaultMetrics.ScanRunsTotal.WithLabelValues(kind, status).Inc()
	DefaultMetrics.ScanDuration.WithLabelValues(kind).Observe(durationSeconds)
}

// RecordHuntRun records a completed hunt run.
func RecordHuntRun(outcome string, durationSeconds float64, windowsScanned int) {
	DefaultMetrics.HuntRunsTotal.WithLabelValues(outcome).Inc()
	DefaultMetrics.HuntDuration.Observe(durationSeconds)
	DefaultMetrics.HuntWindowDepth.Observe(float64(windowsScanned))
}

// RecordQuotesIngested records an ingest batch.
func RecordQuotesIngested(rows int, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	} else {
		DefaultMetrics.QuotesIngested.Add(float64(rows))
	}
	DefaultMetrics.IngestBatches.WithLabelValues(status).Inc()
}

// JobStarted marks a background job as running.
func JobStarted() {
	DefaultMetrics.JobsActive.Inc()
}

// JobFinished marks a background job as finished in the given terminal state.
func JobFinished(state string) {
	DefaultMetrics.JobsActive.Dec()
	DefaultMetrics.JobsTotal.WithLabelValues(state).Inc()
}

// RecordJobLogEntry increments the job log entry counter.
func RecordJobLogEntry() {
	DefaultMetrics.JobLogEntries.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
