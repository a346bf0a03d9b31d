package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Generations counts pipeline outcomes: ok, authority, validation,
	// parse, or error.
	Generations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "loom",
		Subsystem: "generate",
		Name:      "requests_total",
		Help:      "Generation requests by outcome.",
	}, []string{"outcome"})

	// GenerationSeconds tracks end-to-end pipeline latency including the
	// generator call and its retries.
	GenerationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "loom",
		Subsystem: "generate",
		Name:      "duration_seconds",
		Help:      "End-to-end generation latency.",
		Buckets:   prometheus.DefBuckets,
	})

	// CommittedArtifacts counts artifacts persisted through the pipeline.
	CommittedArtifacts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "loom",
		Subsystem: "state",
		Name:      "artifacts_committed_total",
		Help:      "Artifacts committed through the generation pipeline.",
	})

	// HTTPRequests counts requests by route pattern and status class.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "loom",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route, and status.",
	}, []string{"method", "route", "status"})

	// HTTPSeconds tracks request latency by route pattern.
	HTTPSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "loom",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// MetricsHandler serves the default Prometheus registry.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
