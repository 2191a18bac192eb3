package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRegistry holds all Prometheus metrics for the logbook service
type MetricsRegistry struct {
	// HTTP Metrics
	HTTPRequestsTotal    prometheus.CounterVec
	HTTPRequestDuration  prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.GaugeVec

	// Ingestion Metrics
	IngestionRunsTotal     prometheus.CounterVec
	IngestionDuration      prometheus.Histogram
	RowsProcessedTotal     prometheus.CounterVec
	FlightsProcessedTotal  prometheus.Counter
	PilotsInDocument       prometheus.Gauge
	LastSuccessfulIngest   prometheus.Gauge
	SlugCollisionsDetected prometheus.Counter

	// Document serving
	DocumentCacheTotal prometheus.CounterVec
	StoreOpsTotal      prometheus.CounterVec
	StoreOpDuration    prometheus.HistogramVec
}

// NewMetricsRegistry creates every metric on reg. A nil reg means the default
// Prometheus registerer, which is what /metrics serves.
func NewMetricsRegistry(reg prometheus.Registerer) *MetricsRegistry {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &MetricsRegistry{
		// HTTP Metrics
		HTTPRequestsTotal: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logbook_http_requests_total",
				Help: "Total HTTP requests processed by endpoint, method, and status code",
			},
			[]string{"endpoint", "method", "status_code"},
		),
		HTTPRequestDuration: *factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "logbook_http_request_duration_seconds",
				Help:    "HTTP request latency distribution in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint", "method"},
		),
		HTTPRequestsInFlight: *factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "logbook_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"endpoint"},
		),

		IngestionRunsTotal: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logbook_ingestion_runs_total",
				Help: "Ingestion runs by final status",
			},
			[]string{"status"},
		),
		IngestionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "logbook_ingestion_duration_seconds",
				Help:    "Ingestion run time from fetch to store in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),
		RowsProcessedTotal: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logbook_rows_processed_total",
				Help: "Source rows by outcome",
			},
			[]string{"outcome"},
		),
		FlightsProcessedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "logbook_flights_processed_total",
				Help: "Total flight records accepted into a document",
			},
		),
		PilotsInDocument: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "logbook_pilots_in_document",
				Help: "Pilots in the most recently built document",
			},
		),
		LastSuccessfulIngest: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "logbook_last_successful_ingest_timestamp_seconds",
				Help: "Unix time of the last ingestion that stored a document",
			},
		),
		SlugCollisionsDetected: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "logbook_slug_collisions_total",
				Help: "Pilot ids that were fed more than one distinct name or license",
			},
		),

		DocumentCacheTotal: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logbook_document_cache_total",
				Help: "Metrics document lookups by result",
			},
			[]string{"result"},
		),
		StoreOpsTotal: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logbook_store_operations_total",
				Help: "Document store operations by backend, operation and status",
			},
			[]string{"backend", "operation", "status"},
		),
		StoreOpDuration: *factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "logbook_store_operation_duration_seconds",
				Help:    "Document store operation time in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"backend", "operation"},
		),
	}
}
