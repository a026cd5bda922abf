package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for delivery and reconciliation health
var (
	DeliveriesResolvedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deliveries_resolved_total",
			Help: "Total number of delivery codes resolved, by item kind",
		},
		[]string{"kind"},
	)

	TokensIssuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tokens_issued_total",
			Help: "Total number of download tokens minted",
		},
	)

	TokensRedeemedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tokens_redeemed_total",
			Help: "Total number of successful token redemptions",
		},
	)

	RedemptionsRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redemptions_rejected_total",
			Help: "Total number of rejected redemption attempts, by reason",
		},
		[]string{"reason"},
	)

	ReconcileRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_runs_total",
			Help: "Total number of reconciliation runs, by outcome",
		},
		[]string{"outcome"},
	)

	ReconcileOrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_orders_total",
			Help: "Total number of orders seen by reconciliation, by result",
		},
		[]string{"result"},
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"handler", "method", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler"},
	)

	MarketplaceRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "marketplace_request_duration_seconds",
			Help:    "Duration of outbound marketplace API requests",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Register registers all Prometheus metrics
func Register() {
	prometheus.MustRegister(DeliveriesResolvedTotal)
	prometheus.MustRegister(TokensIssuedTotal)
	prometheus.MustRegister(TokensRedeemedTotal)
	prometheus.MustRegister(RedemptionsRejectedTotal)
	prometheus.MustRegister(ReconcileRunsTotal)
	prometheus.MustRegister(ReconcileOrdersTotal)
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(MarketplaceRequestDuration)
}
