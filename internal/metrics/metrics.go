// Package metrics holds the gateway's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Generation outcome label values
const (
	OutcomeSuccess     = "success"
	OutcomeRateLimited = "rate_limited"
	OutcomeError       = "error"
)

var (
	GenerationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelgate",
			Name:      "generation_total",
			Help:      "Generation calls by classified outcome",
		},
		[]string{"outcome"},
	)

	CooldownsRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "modelgate",
			Name:      "cooldowns_recorded_total",
			Help:      "Rate-limit cooldowns written to caller preference stores",
		},
	)

	CatalogFetchFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "modelgate",
			Name:      "catalog_fetch_failures_total",
			Help:      "Catalog listings that failed and were treated as empty",
		},
	)

	// CatalogModels is the size of the last filtered catalog.
	CatalogModels = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "modelgate",
			Name:      "catalog_models",
			Help:      "Models in the most recent filtered catalog",
		},
	)

	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelgate",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "modelgate",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "route"},
	)
)
