package services

import "github.com/prometheus/client_golang/prometheus"

var (
	sessionsIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bridge_sessions_issued_total",
		Help: "Sessions minted after a verified wallet signature",
	})
	authFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bridge_auth_failures_total",
		Help: "Rejected session confirmations",
	})
	progressReports = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bridge_progress_reports_total",
		Help: "Accepted progress reports",
	})
	challengesCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bridge_challenges_completed_total",
		Help: "Progress records that reached their target",
	})
	claimsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_claims_total",
			Help: "Claim attempts by outcome",
		},
		[]string{"result"},
	)
	pointsPaid = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bridge_points_paid_total",
		Help: "Reward points accepted by the reward service",
	})
	payoutDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bridge_payout_duration_seconds",
		Help:    "Time spent calling the reward service, retries included",
		Buckets: prometheus.DefBuckets,
	})
	rotations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bridge_catalog_rotations_total",
		Help: "Daily challenge rotations",
	})
)

// InitMetrics registers the domain metrics. Call this once from main.go.
func InitMetrics() {
	prometheus.MustRegister(
		sessionsIssued,
		authFailures,
		progressReports,
		challengesCompleted,
		claimsTotal,
		pointsPaid,
		payoutDuration,
		rotations,
	)
}
