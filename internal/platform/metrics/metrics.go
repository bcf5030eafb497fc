// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "animehub_http_requests_total",
			Help: "HTTP requests by method, route pattern and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "animehub_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "animehub_upstream_requests_total",
			Help: "Calls to the anime metadata provider by operation and outcome",
		},
		[]string{"op", "outcome"}, // outcome: ok, unavailable, invalid
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "animehub_upstream_request_duration_seconds",
			Help:    "Latency of anime metadata provider calls in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"op"},
	)

	AnimeCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "animehub_anime_cache_lookups_total",
			Help: "Detail page cache lookups by result",
		},
		[]string{"result"}, // hit, miss, race
	)

	ReactionTogglesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "animehub_reaction_toggles_total",
			Help: "Vote and comment-like toggles by kind and resulting transition",
		},
		[]string{"kind", "transition"},
	)
)

func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func RecordUpstream(op, outcome string, d time.Duration) {
	UpstreamRequestsTotal.WithLabelValues(op, outcome).Inc()
	UpstreamRequestDuration.WithLabelValues(op).Observe(d.Seconds())
}

func RecordCacheLookup(result string) {
	AnimeCacheLookups.WithLabelValues(result).Inc()
}

func RecordReactionToggle(kind, transition string) {
	ReactionTogglesTotal.WithLabelValues(kind, transition).Inc()
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
