package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		authorizationsTotal,
		authorizedAmountTotal,
		reconciledOrdersTotal,
	)
}

var (
	authorizationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authorizations_total",
			Help: "Authorize commands by result (authorized, pending, declined, errored).",
		},
		[]string{"result"},
	)

	authorizedAmountTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authorized_amount_minor_total",
			Help: "Sum of accepted authorization amounts in minor units, labeled by currency.",
		},
		[]string{"currency"},
	)

	reconciledOrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconciled_orders_total",
			Help: "Orders whose payment bookkeeping changed, labeled by source (webhook, sweeper).",
		},
		[]string{"source"},
	)
)

func IncAuthorization(result string) {
	authorizationsTotal.WithLabelValues(norm(result)).Inc()
}

func AddAuthorizedAmount(currency string, amount int64) {
	authorizedAmountTotal.WithLabelValues(strings.ToUpper(strings.TrimSpace(currency))).Add(float64(amount))
}

func IncReconciledOrder(source string) {
	reconciledOrdersTotal.WithLabelValues(norm(source)).Inc()
}
