package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		providerRequestsTotal,
		providerRequestDuration,
		providerBreakerState,
	)
}

var (
	providerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_requests_total",
			Help: "Payment provider API calls by operation and result (ok, api_error, transient, circuit_open).",
		},
		[]string{"op", "result"},
	)

	providerRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_request_duration_seconds",
			Help:    "Latency of payment provider API calls including retries.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20},
		},
		[]string{"op"},
	)

	providerBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "provider_breaker_state",
			Help: "Circuit breaker state per breaker (0 closed, 1 half-open, 2 open).",
		},
		[]string{"name"},
	)
)

func ObserveProviderRequest(op, result string, d time.Duration) {
	providerRequestsTotal.WithLabelValues(norm(op), norm(result)).Inc()
	providerRequestDuration.WithLabelValues(norm(op)).Observe(d.Seconds())
}

func SetProviderBreakerState(name string, state int) {
	providerBreakerState.WithLabelValues(norm(name)).Set(float64(state))
}
