package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP front
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "celestix_http_requests_total",
			Help: "Total number of HTTP requests by route, method and status",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "celestix_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "celestix_http_active_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// Upstream API
	UpstreamFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "celestix_upstream_fetch_duration_seconds",
			Help:    "Duration of upstream state vector fetches in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	UpstreamFetchErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "celestix_upstream_fetch_errors_total",
			Help: "Total number of failed upstream state vector fetches",
		},
	)

	PlanesServed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "celestix_planes_last_response",
			Help: "Number of aircraft returned by the most recent successful /api/planes call",
		},
	)
)

// RecordAPIRequest records one completed HTTP request
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight request gauge
func TrackActiveRequest(start bool) {
	if start {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordUpstreamFetch records the outcome of one upstream call
func RecordUpstreamFetch(duration time.Duration, err error) {
	UpstreamFetchDuration.Observe(duration.Seconds())
	if err != nil {
		UpstreamFetchErrors.Inc()
	}
}

// RecordPlanesServed records how many aircraft the last response carried
func RecordPlanesServed(count int) {
	PlanesServed.Set(float64(count))
}
