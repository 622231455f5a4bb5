package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		webhookEventsTotal,
		webhookDuration,
		webhookRateLimitedTotal,
	)
}

var (
	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Webhook deliveries by result (ok, bad_request, not_found, provider_error, error, rate_limited).",
		},
		[]string{"result"},
	)

	webhookDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webhook_duration_seconds",
			Help:    "Time spent processing a webhook delivery.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)

	webhookRateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webhook_rate_limited_total",
			Help: "Webhook deliveries rejected by the per-address rate limit.",
		},
	)
)

func ObserveWebhook(result string, d time.Duration) {
	r := norm(result)
	webhookEventsTotal.WithLabelValues(r).Inc()
	webhookDuration.WithLabelValues(r).Observe(d.Seconds())
}

func IncWebhookRateLimited() {
	webhookRateLimitedTotal.Inc()
	webhookEventsTotal.WithLabelValues("rate_limited").Inc()
}
