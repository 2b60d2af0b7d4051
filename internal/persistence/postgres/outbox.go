package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Event type names recorded in the outbox; the dispatcher maps them to
// topics and schemas.
const (
	EventSessionRecorded    = "session.recorded"
	EventChallengeCompleted = "challenge.completed"
	EventBadgeAwarded       = "badge.awarded"
)

// eventRoute describes how an outbox event reaches Kafka. Partitioning by
// user keeps one user's achievement stream ordered.
type eventRoute struct {
	Topic         string
	SchemaSubject string
}

var eventRoutes = map[string]eventRoute{
	EventSessionRecorded: {
		Topic:         "gamification_sessions",
		SchemaSubject: "gamification_sessions-value",
	},
	EventChallengeCompleted: {
		Topic:         "gamification_achievements",
		SchemaSubject: "gamification_achievements-value",
	},
	EventBadgeAwarded: {
		Topic:         "gamification_achievements",
		SchemaSubject: "gamification_achievements-value",
	},
}

// sessionRecordedEvent is emitted for every persisted workout session.
type sessionRecordedEvent struct {
	SessionID     string    `json:"session_id"`
	UserID        string    `json:"user_id"`
	TotalCalories float64   `json:"total_calories"`
	DurationMin   int       `json:"duration_min"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// challengeCompletedEvent is emitted once per participant completion.
type challengeCompletedEvent struct {
	ChallengeID  string    `json:"challenge_id"`
	UserID       string    `json:"user_id"`
	RewardPoints int       `json:"reward_points"`
	CompletedAt  time.Time `json:"completed_at"`
}

// badgeAwardedEvent is emitted once per badge grant.
type badgeAwardedEvent struct {
	BadgeID   string    `json:"badge_id"`
	UserID    string    `json:"user_id"`
	Points    int       `json:"points"`
	AwardedAt time.Time `json:"awarded_at"`
}

// insertOutbox records a domain event in the same transaction as the state
// change it reports, so delivery is at-least-once once the change commits.
// The dedupe key keeps replayed transactions from duplicating rows.
func insertOutbox(ctx context.Context, tx pgx.Tx, eventType, aggregateType, aggregateID, userID string, payload any) error {
	route, ok := eventRoutes[eventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (dedupe_key) DO NOTHING`

	dedupeKey := fmt.Sprintf("%s:%s", aggregateID, eventType)
	_, err = tx.Exec(ctx, stmt,
		aggregateType, aggregateID, eventType,
		route.Topic, route.SchemaSubject, userID, body, dedupeKey,
	)
	return err
}

// creditXP atomically adds points to a user's experience and recomputes the
// cached level inside the caller's transaction. An increment, never a
// read-modify-write, so concurrent credits cannot lose updates.
func creditXP(ctx context.Context, tx pgx.Tx, userID string, points int) error {
	if points <= 0 {
		return nil
	}
	const stmt = `UPDATE user_progress SET
            experience_points = experience_points + $2,
            level = (experience_points + $2) / 500 + 1,
            version = version + 1,
            updated_at = NOW()
        WHERE user_id = $1`

	_, err := tx.Exec(ctx, stmt, userID, points)
	return err
}
