package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RestoreOutcomes counts legacy-aware restores by how they ended
	RestoreOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "premium_restore_outcomes_total",
			Help: "Total number of premium restores by outcome",
		},
		[]string{"outcome"},
	)

	// ValidationResults counts purchase validations by purchase type and result
	ValidationResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "premium_validation_results_total",
			Help: "Total number of purchase validations",
		},
		[]string{"purchase_type", "result"},
	)

	// UpstreamLatency tracks calls to Google Play and the subscription platform
	UpstreamLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "premium_upstream_latency_seconds",
			Help:    "Upstream call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"upstream", "result"},
	)

	// RepairUsers counts users visited by the repair job
	RepairUsers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "premium_repair_users_total",
			Help: "Total number of users checked by the repair job",
		},
		[]string{"result"},
	)

	// BillingConnections is the number of open device billing connections
	BillingConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "premium_billing_connections_open",
			Help: "Whether the shared billing connection is open",
		},
	)

	// HTTPRequests counts API requests by route and status
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "premium_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
)

// Recorder adapts the package metrics to the narrow recorder interfaces the
// services accept.
type Recorder struct{}

func (Recorder) ObserveRestore(outcome string) {
	RestoreOutcomes.WithLabelValues(outcome).Inc()
}

func (Recorder) ObserveValidation(purchaseType, result string) {
	ValidationResults.WithLabelValues(purchaseType, result).Inc()
}

func (Recorder) ObserveUpstream(upstream string, started time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	UpstreamLatency.WithLabelValues(upstream, result).Observe(time.Since(started).Seconds())
}

func (Recorder) ObserveRepair(result string) {
	RepairUsers.WithLabelValues(result).Inc()
}
