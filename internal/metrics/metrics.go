package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sourcesearch",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sourcesearch",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 20},
	}, []string{"method", "path"})

	AdapterRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sourcesearch",
		Name:      "adapter_requests_total",
		Help:      "Total source adapter invocations by adapter name and outcome kind.",
	}, []string{"adapter", "status"})

	AdapterRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sourcesearch",
		Name:      "adapter_request_duration_seconds",
		Help:      "Source adapter search duration in seconds.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60},
	}, []string{"adapter"})

	AdapterAvailable = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "sourcesearch",
		Name:      "adapter_available",
		Help:      "Whether an adapter is available (1) or blocked by its circuit breaker (0).",
	}, []string{"adapter"})

	AdapterResults = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sourcesearch",
		Name:      "adapter_results",
		Help:      "Raw result count per successful adapter invocation.",
		Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
	}, []string{"adapter"})

	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sourcesearch",
		Name:      "cache_hits_total",
		Help:      "Total number of ranked-response cache hits.",
	})

	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sourcesearch",
		Name:      "cache_misses_total",
		Help:      "Total number of ranked-response cache misses.",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		AdapterRequestsTotal,
		AdapterRequestDuration,
		AdapterAvailable,
		AdapterResults,
		CacheHitsTotal,
		CacheMissesTotal,
	)
}
