package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/gamification/internal/domain"
	"example.com/gamification/internal/observability"
)

// BadgeRepository persists badge definitions and grants.
type BadgeRepository struct {
	pool *pgxpool.Pool
}

// NewBadgeRepository constructs a BadgeRepository.
func NewBadgeRepository(pool *pgxpool.Pool) *BadgeRepository {
	return &BadgeRepository{pool: pool}
}

// conditionRow is the jsonb shape of a badge condition.
type conditionRow struct {
	Type  string  `json:"type"`
	Value float64 `json:"value"`
}

// ListBadges returns the badge catalogue.
func (r *BadgeRepository) ListBadges(ctx context.Context) ([]domain.Badge, error) {
	const query = `SELECT badge_id, name, description, category, tier, points, condition
        FROM badges
        ORDER BY badge_id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var badges []domain.Badge
	for rows.Next() {
		badge, err := scanBadge(rows)
		if err != nil {
			return nil, err
		}
		badges = append(badges, badge)
	}
	return badges, rows.Err()
}

func scanBadge(row pgx.Row) (domain.Badge, error) {
	var (
		b       domain.Badge
		rawCond []byte
	)
	if err := row.Scan(&b.ID, &b.Name, &b.Description, &b.Category, &b.Tier, &b.Points, &rawCond); err != nil {
		return domain.Badge{}, err
	}
	var cond conditionRow
	if err := json.Unmarshal(rawCond, &cond); err != nil {
		return domain.Badge{}, err
	}
	b.Condition = domain.BadgeCondition{Type: domain.ConditionType(cond.Type), Value: cond.Value}
	return b, nil
}

// EarnedBadgeIDs returns the set of badge IDs the user holds.
func (r *BadgeRepository) EarnedBadgeIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	const query = `SELECT badge_id FROM user_badges WHERE user_id=$1`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	earned := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		earned[id] = struct{}{}
	}
	return earned, rows.Err()
}

// Award grants a badge once. The (user_id, badge_id) key absorbs duplicate
// evaluations, and the XP credit plus the outbox event only happen on the
// transaction that actually inserted.
func (r *BadgeRepository) Award(ctx context.Context, userID string, badge domain.Badge, earnedAt time.Time) (bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	const insert = `INSERT INTO user_badges (user_id, badge_id, earned_at)
        VALUES ($1,$2,$3)
        ON CONFLICT (user_id, badge_id) DO NOTHING`

	tag, err := tx.Exec(ctx, insert, userID, badge.ID, earnedAt)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, tx.Rollback(ctx)
	}

	if err = creditXP(ctx, tx, userID, badge.Points); err != nil {
		return false, err
	}

	aggregateID := userID + ":" + badge.ID
	if err = insertOutbox(ctx, tx, EventBadgeAwarded, "user_badge", aggregateID, userID, badgeAwardedEvent{
		BadgeID:   badge.ID,
		UserID:    userID,
		Points:    badge.Points,
		AwardedAt: earnedAt,
	}); err != nil {
		return false, err
	}

	if err = tx.Commit(ctx); err != nil {
		return false, err
	}
	observability.RecordBadgeAwarded(badge.Tier)
	return true, nil
}

// ListUserBadges returns the user's earned badges, newest first.
func (r *BadgeRepository) ListUserBadges(ctx context.Context, userID string) ([]domain.EarnedBadge, error) {
	const query = `SELECT b.badge_id, b.name, b.description, b.category, b.tier, b.points, b.condition, ub.earned_at
        FROM user_badges ub
        JOIN badges b ON b.badge_id = ub.badge_id
        WHERE ub.user_id=$1
        ORDER BY ub.earned_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var earned []domain.EarnedBadge
	for rows.Next() {
		var (
			e       domain.EarnedBadge
			rawCond []byte
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.Category, &e.Tier, &e.Points, &rawCond, &e.EarnedAt); err != nil {
			return nil, err
		}
		var cond conditionRow
		if err := json.Unmarshal(rawCond, &cond); err != nil {
			return nil, err
		}
		e.Condition = domain.BadgeCondition{Type: domain.ConditionType(cond.Type), Value: cond.Value}
		earned = append(earned, e)
	}
	return earned, rows.Err()
}
