package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pci_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pci_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	signUpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pci_signups_total",
		Help: "Count of profile registrations by role",
	}, []string{"role"})

	signInsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pci_signins_total",
		Help: "Count of successful sign-ins",
	})

	reportsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pci_reports_submitted_total",
		Help: "Count of waste reports submitted by category",
	}, []string{"category"})

	reportsDecided = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pci_reports_decided_total",
		Help: "Count of report decisions by outcome",
	}, []string{"decision"})

	pointsAwarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pci_points_awarded_total",
		Help: "Total points credited through report approvals",
	})

	agentsDecided = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pci_agents_decided_total",
		Help: "Count of agent approval decisions by outcome",
	}, []string{"decision"})

	redemptionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pci_redemptions_total",
		Help: "Count of completed reward redemptions",
	})

	pointsSpent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pci_points_spent_total",
		Help: "Total points debited through redemptions",
	})

	approvalSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pci_approval_subscribers",
		Help: "Number of connected approval websocket clients",
	})

	leaderboardRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pci_leaderboard_refreshes_total",
		Help: "Count of leaderboard cache refreshes by result",
	}, []string{"result"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveSignUp increments the registration counter for a role.
func ObserveSignUp(role string) {
	signUpsTotal.WithLabelValues(role).Inc()
}

// ObserveSignIn increments the sign-in counter.
func ObserveSignIn() {
	signInsTotal.Inc()
}

// ObserveReportSubmitted records a submitted report.
func ObserveReportSubmitted(category string) {
	reportsSubmitted.WithLabelValues(category).Inc()
}

// ObserveReportDecided records a report decision outcome.
func ObserveReportDecided(decision string) {
	reportsDecided.WithLabelValues(decision).Inc()
}

// ObservePointsAwarded adds to the awarded-points counter.
func ObservePointsAwarded(points int) {
	pointsAwarded.Add(float64(points))
}

// ObserveAgentDecided records an agent approval decision outcome.
func ObserveAgentDecided(decision string) {
	agentsDecided.WithLabelValues(decision).Inc()
}

// ObserveRedemption records a completed redemption and its cost.
func ObserveRedemption(spent int) {
	redemptionsTotal.Inc()
	pointsSpent.Add(float64(spent))
}

// IncApprovalSubscribers tracks websocket hub membership.
func IncApprovalSubscribers() {
	approvalSubscribers.Inc()
}

// DecApprovalSubscribers tracks websocket hub membership.
func DecApprovalSubscribers() {
	approvalSubscribers.Dec()
}

// ObserveLeaderboardRefresh records a cache refresh result.
func ObserveLeaderboardRefresh(result string) {
	leaderboardRefreshes.WithLabelValues(result).Inc()
}
