package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		buildInfo,
		dbPoolConns,
		sweepOrdersTotal,
		sessionLookupsTotal,
	)
}

var (
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Constant 1, labeled by version and commit.",
		},
		[]string{"version", "commit"},
	)

	dbPoolConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "db_pool_connections",
			Help: "Postgres pool connections by state (total, idle, in_use).",
		},
		[]string{"state"},
	)

	sweepOrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_orders_total",
			Help: "Pending orders visited by the sweeper, labeled by outcome (changed, unchanged, failed).",
		},
		[]string{"outcome"},
	)

	sessionLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_session_lookups_total",
			Help: "Checkout session reads by result (hit, miss, error).",
		},
		[]string{"result"},
	)
)

func SetBuildInfo(version, commit string) {
	buildInfo.WithLabelValues(version, commit).Set(1)
}

func SetDBPoolConns(total, idle, inUse int32) {
	dbPoolConns.WithLabelValues("total").Set(float64(total))
	dbPoolConns.WithLabelValues("idle").Set(float64(idle))
	dbPoolConns.WithLabelValues("in_use").Set(float64(inUse))
}

func IncSweepOrder(outcome string) {
	sweepOrdersTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncSessionLookup(result string) {
	sessionLookupsTotal.WithLabelValues(norm(result)).Inc()
}
