package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/gamification/internal/domain"
	"example.com/gamification/internal/observability"
)

// ChallengeRepository persists challenge participation. The participant
// write and the participant_count adjustment always share a transaction,
// and the counter moves via SQL increments only.
type ChallengeRepository struct {
	pool *pgxpool.Pool
}

// NewChallengeRepository constructs a ChallengeRepository.
func NewChallengeRepository(pool *pgxpool.Pool) *ChallengeRepository {
	return &ChallengeRepository{pool: pool}
}

const challengeColumns = `challenge_id, name, type, target_value, exercise_name,
        status, start_date, end_date, reward_points, reward_badges, participant_count, created_at`

// GetChallenge loads challenge metadata, or nil when absent.
func (r *ChallengeRepository) GetChallenge(ctx context.Context, challengeID string) (*domain.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE challenge_id=$1`

	challenge, err := scanChallenge(r.pool.QueryRow(ctx, query, challengeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return challenge, nil
}

// ListActiveChallenges returns active challenges, newest first.
func (r *ChallengeRepository) ListActiveChallenges(ctx context.Context) ([]domain.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE status='active' ORDER BY start_date DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var challenges []domain.Challenge
	for rows.Next() {
		challenge, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		challenges = append(challenges, *challenge)
	}
	return challenges, rows.Err()
}

func scanChallenge(row pgx.Row) (*domain.Challenge, error) {
	var (
		c            domain.Challenge
		exerciseName *string
	)
	err := row.Scan(
		&c.ID, &c.Name, &c.Type, &c.Goal.TargetValue, &exerciseName,
		&c.Status, &c.StartDate, &c.EndDate,
		&c.Rewards.Points, &c.Rewards.Badges, &c.ParticipantCount, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if exerciseName != nil {
		c.Goal.ExerciseName = *exerciseName
	}
	return &c, nil
}

const participantColumns = `user_id, challenge_id, progress, status, created_at, updated_at, completed_at`

// GetParticipant loads a participation record, or nil when the user never joined.
func (r *ChallengeRepository) GetParticipant(ctx context.Context, userID, challengeID string) (*domain.ChallengeParticipant, error) {
	query := `SELECT ` + participantColumns + ` FROM challenge_participants WHERE user_id=$1 AND challenge_id=$2`

	var p domain.ChallengeParticipant
	err := r.pool.QueryRow(ctx, query, userID, challengeID).
		Scan(&p.UserID, &p.ChallengeID, &p.Progress, &p.Status, &p.CreatedAt, &p.UpdatedAt, &p.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateParticipant inserts the record and increments participant_count in
// one transaction. The (user_id, challenge_id) key makes a racing double
// join fail as ErrAlreadyJoined instead of inserting twice.
func (r *ChallengeRepository) CreateParticipant(ctx context.Context, participant domain.ChallengeParticipant) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const insert = `INSERT INTO challenge_participants (user_id, challenge_id, progress, status, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6)`

	_, err = tx.Exec(ctx, insert,
		participant.UserID, participant.ChallengeID, participant.Progress,
		participant.Status, participant.CreatedAt, participant.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrAlreadyJoined
	}
	if err != nil {
		return err
	}

	if err = r.adjustParticipantCount(ctx, tx, participant.ChallengeID, 1); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ReactivateParticipant flips abandoned back to in_progress with progress
// reset, incrementing the counter in the same transaction.
func (r *ChallengeRepository) ReactivateParticipant(ctx context.Context, userID, challengeID string, at time.Time) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const update = `UPDATE challenge_participants
        SET status='in_progress', progress=0, completed_at=NULL, updated_at=$3
        WHERE user_id=$1 AND challenge_id=$2 AND status='abandoned'`

	tag, err := tx.Exec(ctx, update, userID, challengeID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotJoined
	}

	if err = r.adjustParticipantCount(ctx, tx, challengeID, 1); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// AbandonParticipant flips in_progress to abandoned, decrementing the
// counter in the same transaction.
func (r *ChallengeRepository) AbandonParticipant(ctx context.Context, userID, challengeID string, at time.Time) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const update = `UPDATE challenge_participants
        SET status='abandoned', updated_at=$3
        WHERE user_id=$1 AND challenge_id=$2 AND status='in_progress'`

	tag, err := tx.Exec(ctx, update, userID, challengeID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotJoined
	}

	if err = r.adjustParticipantCount(ctx, tx, challengeID, -1); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *ChallengeRepository) adjustParticipantCount(ctx context.Context, tx pgx.Tx, challengeID string, delta int) error {
	const stmt = `UPDATE challenges
        SET participant_count = GREATEST(participant_count + $2, 0)
        WHERE challenge_id=$1`
	_, err := tx.Exec(ctx, stmt, challengeID, delta)
	return err
}

// AdvanceParticipant adds progress to an in_progress participation. The
// status guard in both updates makes the completion transition and its
// reward credit fire at most once no matter how often this runs.
func (r *ChallengeRepository) AdvanceParticipant(ctx context.Context, userID, challengeID string, increment, target float64, rewardPoints int, at time.Time) (bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	const advance = `UPDATE challenge_participants
        SET progress = progress + $3, updated_at = $4
        WHERE user_id=$1 AND challenge_id=$2 AND status='in_progress'
        RETURNING progress`

	var progress float64
	err = tx.QueryRow(ctx, advance, userID, challengeID, increment, at).Scan(&progress)
	if errors.Is(err, pgx.ErrNoRows) {
		// Completed or abandoned since listing; nothing to advance.
		return false, tx.Rollback(ctx)
	}
	if err != nil {
		return false, err
	}

	if progress < target {
		return false, tx.Commit(ctx)
	}

	const complete = `UPDATE challenge_participants
        SET status='completed', completed_at=$3, updated_at=$3
        WHERE user_id=$1 AND challenge_id=$2 AND status='in_progress'`

	tag, err := tx.Exec(ctx, complete, userID, challengeID, at)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, tx.Commit(ctx)
	}

	if err = creditXP(ctx, tx, userID, rewardPoints); err != nil {
		return false, err
	}

	aggregateID := fmt.Sprintf("%s:%s", challengeID, userID)
	if err = insertOutbox(ctx, tx, EventChallengeCompleted, "challenge_participant", aggregateID, userID, challengeCompletedEvent{
		ChallengeID:  challengeID,
		UserID:       userID,
		RewardPoints: rewardPoints,
		CompletedAt:  at,
	}); err != nil {
		return false, err
	}

	if err = tx.Commit(ctx); err != nil {
		return false, err
	}
	observability.RecordChallengeCompleted()
	return true, nil
}

// ListInProgress returns the user's in_progress participations.
func (r *ChallengeRepository) ListInProgress(ctx context.Context, userID string) ([]domain.ChallengeParticipant, error) {
	query := `SELECT ` + participantColumns + ` FROM challenge_participants
        WHERE user_id=$1 AND status='in_progress'
        ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []domain.ChallengeParticipant
	for rows.Next() {
		var p domain.ChallengeParticipant
		if err := rows.Scan(&p.UserID, &p.ChallengeID, &p.Progress, &p.Status, &p.CreatedAt, &p.UpdatedAt, &p.CompletedAt); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// ListParticipations joins participations with challenge metadata, newest
// participation first. An empty status means all statuses.
func (r *ChallengeRepository) ListParticipations(ctx context.Context, userID string, status domain.ParticipantStatus) ([]domain.Participation, error) {
	query := `SELECT c.challenge_id, c.name, c.type, c.target_value, c.exercise_name,
            c.status, c.start_date, c.end_date, c.reward_points, c.reward_badges, c.participant_count, c.created_at,
            p.user_id, p.challenge_id, p.progress, p.status, p.created_at, p.updated_at, p.completed_at
        FROM challenge_participants p
        JOIN challenges c ON c.challenge_id = p.challenge_id
        WHERE p.user_id=$1`
	args := []any{userID}

	if status != "" {
		query += ` AND p.status=$2`
		args = append(args, status)
	}
	query += ` ORDER BY p.created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participations []domain.Participation
	for rows.Next() {
		var (
			entry        domain.Participation
			exerciseName *string
		)
		err := rows.Scan(
			&entry.Challenge.ID, &entry.Challenge.Name, &entry.Challenge.Type,
			&entry.Challenge.Goal.TargetValue, &exerciseName,
			&entry.Challenge.Status, &entry.Challenge.StartDate, &entry.Challenge.EndDate,
			&entry.Challenge.Rewards.Points, &entry.Challenge.Rewards.Badges,
			&entry.Challenge.ParticipantCount, &entry.Challenge.CreatedAt,
			&entry.Participant.UserID, &entry.Participant.ChallengeID,
			&entry.Participant.Progress, &entry.Participant.Status,
			&entry.Participant.CreatedAt, &entry.Participant.UpdatedAt, &entry.Participant.CompletedAt,
		)
		if err != nil {
			return nil, err
		}
		if exerciseName != nil {
			entry.Challenge.Goal.ExerciseName = *exerciseName
		}
		participations = append(participations, entry)
	}
	return participations, rows.Err()
}

// ListLeaderboard orders a challenge's participants by progress descending.
// Ties keep insertion order via the created_at/user_id suffix, so ranks are
// deterministic.
func (r *ChallengeRepository) ListLeaderboard(ctx context.Context, challengeID string, limit int) ([]domain.LeaderboardEntry, error) {
	const query = `SELECT user_id, progress, status, completed_at, created_at
        FROM challenge_participants
        WHERE challenge_id=$1
        ORDER BY progress DESC, created_at ASC, user_id ASC
        LIMIT $2`

	rows, err := r.pool.Query(ctx, query, challengeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.LeaderboardEntry, 0, limit)
	for rows.Next() {
		var entry domain.LeaderboardEntry
		if err := rows.Scan(&entry.UserID, &entry.Progress, &entry.Status, &entry.CompletedAt, &entry.JoinedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
