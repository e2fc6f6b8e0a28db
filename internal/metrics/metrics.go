package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "loyalty_analytics"

var (
	ChangeEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "change_events_total",
			Help:      "Change events handled by the aggregate updater",
		},
		[]string{"source", "kind", "outcome"},
	)

	AggregateWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregate_writes_total",
			Help:      "Delta updates applied to the aggregate table",
		},
		[]string{"aggregate_type"},
	)

	CacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregate_cache_requests_total",
			Help:      "Aggregate cache lookups by result",
		},
		[]string{"result"},
	)

	EtlRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "etl_rows_total",
			Help:      "Rows written per ETL stage and table",
		},
		[]string{"stage", "table"},
	)

	EtlTableFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "etl_table_failures_total",
			Help:      "Per-table ETL stage failures",
		},
		[]string{"stage", "table"},
	)

	EtlStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "etl_stage_duration_seconds",
			Help:      "ETL stage duration in seconds",
			Buckets:   []float64{1, 5, 15, 60, 300, 900},
		},
		[]string{"stage"},
	)

	LoadStatements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warehouse_load_statements_total",
			Help:      "Warehouse bulk-load statements by table and final status",
		},
		[]string{"table", "status"},
	)

	HttpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "path"},
	)
)

func init() {
	prometheus.MustRegister(
		ChangeEvents,
		AggregateWrites,
		CacheRequests,
		EtlRows,
		EtlTableFailures,
		EtlStageDuration,
		LoadStatements,
		HttpRequests,
		HttpRequestDuration,
	)
}

// CacheHit and CacheMiss match cache.Hooks.
func CacheHit(string)  { CacheRequests.WithLabelValues("hit").Inc() }
func CacheMiss(string) { CacheRequests.WithLabelValues("miss").Inc() }
