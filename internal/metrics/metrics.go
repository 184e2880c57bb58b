// package metrics defines the Prometheus collectors exported at /metrics
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP surface
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tempo_http_requests_total",
			Help: "Total HTTP requests handled by the token proxy",
		},
		[]string{"route", "method", "code"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tempo_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// Provider calls
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tempo_provider_requests_total",
			Help: "Outbound Spotify requests by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	TokenRefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tempo_token_refreshes_total",
			Help: "Refresh-token exchanges by result",
		},
		[]string{"result"},
	)

	// Palette
	PaletteCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tempo_palette_cache_hits_total",
			Help: "Album art color cache hits",
		},
	)

	PaletteCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tempo_palette_cache_misses_total",
			Help: "Album art color cache misses",
		},
	)

	PaletteFetchErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tempo_palette_fetch_errors_total",
			Help: "Album art fetches that failed or were rejected",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ProviderRequestsTotal,
		TokenRefreshesTotal,
		PaletteCacheHits,
		PaletteCacheMisses,
		PaletteFetchErrors,
	)
}

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveProvider counts one outbound request; status 0 records a transport error.
func ObserveProvider(endpoint string, status int) {
	label := "error"
	if status != 0 {
		label = strconv.Itoa(status)
	}
	ProviderRequestsTotal.WithLabelValues(endpoint, label).Inc()
}
