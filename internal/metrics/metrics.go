// Package metrics exposes Prometheus collectors for the paperstore service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ingestTotal               *prometheus.CounterVec
	searchQueriesTotal        prometheus.Counter
	enrichmentAppliedTotal    prometheus.Counter
	enrichmentSkippedTotal    *prometheus.CounterVec
	httpRequestsTotal         *prometheus.CounterVec
	httpRequestDurationSecond *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus collectors. It is safe to call multiple
// times.
func Init() {
	once.Do(func() {
		ingestTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paperstore_ingest_total",
				Help: "Total ingestion attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		searchQueriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "paperstore_search_queries_total",
				Help: "Total search queries served.",
			},
		)

		enrichmentAppliedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "paperstore_enrichment_applied_total",
				Help: "Total papers updated by the enrichment job.",
			},
		)

		enrichmentSkippedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paperstore_enrichment_skipped_total",
				Help: "Total enrichment candidates skipped, labeled by reason.",
			},
			[]string{"reason"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSecond = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler exposing the Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveIngest increments the ingest counter for the given outcome.
func ObserveIngest(outcome string) {
	Init()
	ingestTotal.WithLabelValues(outcome).Inc()
}

// ObserveSearch increments the search query counter.
func ObserveSearch() {
	Init()
	searchQueriesTotal.Inc()
}

// ObserveEnrichmentApplied increments the applied-update counter.
func ObserveEnrichmentApplied() {
	Init()
	enrichmentAppliedTotal.Inc()
}

// ObserveEnrichmentSkipped increments the skip counter for a reason.
func ObserveEnrichmentSkipped(reason string) {
	Init()
	enrichmentSkippedTotal.WithLabelValues(reason).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSecond.WithLabelValues(method, route).Observe(duration.Seconds())
}
