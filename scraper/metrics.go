package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scraper.
type Metrics struct {
	Registry            *prometheus.Registry
	RequestsTotal       *prometheus.CounterVec
	RequestDuration     prometheus.Histogram
	PagesTotal          *prometheus.CounterVec
	RowsTotal           *prometheus.CounterVec
	RecordsWrittenTotal prometheus.Counter
	RecordsDroppedTotal *prometheus.CounterVec
	CacheHitsTotal      prometheus.Counter
	RetriesTotal        prometheus.Counter
	ErrorsTotal         *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astrokml_requests_total",
			Help: "Total HTTP requests issued against the catalog.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "astrokml_request_duration_seconds",
			Help:    "HTTP request latency for catalog requests.",
			Buckets: prometheus.DefBuckets,
		},
	)
	pages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astrokml_pages_total",
			Help: "Result pages handled, by outcome.",
		},
		[]string{"outcome"},
	)
	rows := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astrokml_rows_total",
			Help: "Result rows scanned, by outcome.",
		},
		[]string{"outcome"},
	)
	written := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "astrokml_records_written_total",
			Help: "Total number of placemarks written.",
		},
	)
	dropped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astrokml_records_dropped_total",
			Help: "Records dropped before output, by reason.",
		},
		[]string{"reason"},
	)
	cacheHits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "astrokml_detail_cache_hits_total",
			Help: "Placemark lookups served from the in-memory cache.",
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "astrokml_retries_total",
			Help: "Total number of retry attempts scheduled.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astrokml_errors_total",
			Help: "Total number of request errors by type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(requests, requestDuration, pages, rows, written, dropped, cacheHits, retries, errorsTotal)

	return &Metrics{
		Registry:            registry,
		RequestsTotal:       requests,
		RequestDuration:     requestDuration,
		PagesTotal:          pages,
		RowsTotal:           rows,
		RecordsWrittenTotal: written,
		RecordsDroppedTotal: dropped,
		CacheHitsTotal:      cacheHits,
		RetriesTotal:        retries,
		ErrorsTotal:         errorsTotal,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

func (m *Metrics) IncPage(outcome string) {
	if m == nil {
		return
	}
	m.PagesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AddRows(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RowsTotal.WithLabelValues(outcome).Add(float64(n))
}

func (m *Metrics) AddWritten(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RecordsWrittenTotal.Add(float64(n))
}

func (m *Metrics) AddDropped(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RecordsDroppedTotal.WithLabelValues(reason).Add(float64(n))
}

func (m *Metrics) IncCacheHit() {
	if m == nil {
		return
	}
	m.CacheHitsTotal.Inc()
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
