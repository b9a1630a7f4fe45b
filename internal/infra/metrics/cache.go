package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(cacheRequestsTotal, credentialHydrationsTotal) }

var cacheRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cache_requests_total",
		Help: "Tracks cache hits and misses for various caches.",
	},
	[]string{"cache", "result"}, // e.g., cache="job", result="hit"
)

var credentialHydrationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "verify_credential_hydrations_total",
		Help: "Credential store hydrations by source scope.",
	},
	[]string{"source"}, // ephemeral|durable|empty
)

func IncCacheRequest(cacheName, result string) {
	cacheRequestsTotal.WithLabelValues(norm(cacheName), norm(result)).Inc()
}

func IncCredentialHydration(source string) {
	credentialHydrationsTotal.WithLabelValues(norm(source)).Inc()
}
