package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	sessionPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "gamification_service",
		Subsystem: "persistence",
		Name:      "last_session_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent workout session persisted to Postgres.",
	})
	challengeCompletedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gamification_service",
		Subsystem: "challenges",
		Name:      "completions_total",
		Help:      "Number of challenge participations transitioned to completed.",
	})
	badgeAwardedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gamification_service",
		Subsystem: "badges",
		Name:      "awarded_total",
		Help:      "Number of badges granted, labeled by tier.",
	}, []string{"tier"})
)

func init() {
	prometheus.MustRegister(sessionPersistGauge, challengeCompletedCounter, badgeAwardedCounter)
}

// RecordSessionPersisted updates the persistence watermark gauge.
func RecordSessionPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	sessionPersistGauge.Set(float64(ts.Unix()))
}

// RecordChallengeCompleted counts a completed participation.
func RecordChallengeCompleted() {
	challengeCompletedCounter.Inc()
}

// RecordBadgeAwarded counts a badge grant.
func RecordBadgeAwarded(tier string) {
	badgeAwardedCounter.WithLabelValues(tier).Inc()
}
