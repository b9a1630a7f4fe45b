package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(outboundRequestsTotal, outboundDuration) }

var (
	// surface: protected|session
	outboundRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verify_outbound_requests_total",
			Help: "Outbound API calls by method, surface, auth and status code (0 = transport error).",
		},
		[]string{"method", "surface", "authenticated", "code"},
	)

	outboundDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "verify_outbound_request_duration_seconds",
			Help:    "Outbound API call latency in seconds.",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "surface"},
	)
)

func ObserveOutbound(method, surface string, authenticated bool, code int, seconds float64) {
	outboundRequestsTotal.WithLabelValues(norm(method), norm(surface), strconv.FormatBool(authenticated), strconv.Itoa(code)).Inc()
	outboundDuration.WithLabelValues(norm(method), norm(surface)).Observe(seconds)
}
