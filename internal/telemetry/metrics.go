package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	upstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_upstream_requests_total",
			Help: "Requests made to the storefront API",
		},
		[]string{"method", "endpoint", "status"},
	)

	upstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_upstream_request_duration_seconds",
			Help:    "Storefront API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	cartActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_actions_total",
			Help: "Cart actions dispatched, by kind",
		},
		[]string{"action"},
	)

	ordersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_orders_total",
			Help: "Order placement attempts, by result",
		},
		[]string{"result"},
	)

	chatFragmentsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_chat_fragments_total",
			Help: "Chat fragments relayed to browsers",
		},
	)

	activeVisitors = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_active_visitors",
			Help: "Visitor workspaces currently held in memory",
		},
	)
)

// ObserveUpstream records one storefront API call. status 0 means the
// request never got a response.
func ObserveUpstream(method, endpoint string, status int, took time.Duration) {
	upstreamRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	upstreamRequestDuration.WithLabelValues(method, endpoint).Observe(took.Seconds())
}

func CartAction(kind string) {
	cartActionsTotal.WithLabelValues(kind).Inc()
}

// OrderResult is one of "placed", "rejected", "failed" or "duplicate".
func OrderResult(result string) {
	ordersTotal.WithLabelValues(result).Inc()
}

func ChatFragment() {
	chatFragmentsTotal.Inc()
}

func SetActiveVisitors(n int) {
	activeVisitors.Set(float64(n))
}
