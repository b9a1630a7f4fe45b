package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(creditsRemaining, creditsConsumed, creditRefreshTotal) }

var (
	creditsRemaining = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "verify_credits_remaining",
		Help: "Last server-reported remaining credits.",
	})

	creditsConsumed = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "verify_credits_consumed",
		Help: "Last server-reported consumed credits.",
	})

	creditRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verify_credit_refresh_total",
			Help: "Credit balance refreshes by result.",
		},
		[]string{"result"},
	)
)

func SetCredits(remaining, consumed int64) {
	creditsRemaining.Set(float64(remaining))
	creditsConsumed.Set(float64(consumed))
}

func IncCreditRefresh(result string) {
	creditRefreshTotal.WithLabelValues(norm(result)).Inc()
}
