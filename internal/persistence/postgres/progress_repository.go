// Package postgres provides pgx-backed persistence for the progress and
// achievement engine. Every multi-document update in the engine (progress
// plus streak, participant plus challenge counter, badge grant plus XP
// credit) runs as a single transaction here.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/gamification/internal/domain"
	"example.com/gamification/internal/observability"
)

const uniqueViolation = "23505"

// ProgressRepository persists user progress, streaks, and workout sessions.
type ProgressRepository struct {
	pool *pgxpool.Pool
}

// NewProgressRepository constructs a ProgressRepository.
func NewProgressRepository(pool *pgxpool.Pool) *ProgressRepository {
	return &ProgressRepository{pool: pool}
}

const progressColumns = `user_id, total_workouts, total_calories, total_minutes,
        current_streak, longest_streak, level, experience_points,
        weekly_workouts, weekly_calories, weekly_minutes,
        monthly_workouts, monthly_calories, monthly_minutes,
        last_workout_date, version, updated_at`

// GetProgress loads the progress document, or nil when the user has none.
func (r *ProgressRepository) GetProgress(ctx context.Context, userID string) (*domain.UserProgress, error) {
	query := `SELECT ` + progressColumns + ` FROM user_progress WHERE user_id=$1`

	row := r.pool.QueryRow(ctx, query, userID)
	progress, err := scanProgress(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return progress, nil
}

func scanProgress(row pgx.Row) (*domain.UserProgress, error) {
	var p domain.UserProgress
	err := row.Scan(
		&p.UserID, &p.TotalWorkouts, &p.TotalCalories, &p.TotalMinutes,
		&p.CurrentStreak, &p.LongestStreak, &p.Level, &p.ExperiencePoints,
		&p.WeeklyStats.Workouts, &p.WeeklyStats.Calories, &p.WeeklyStats.Minutes,
		&p.MonthlyStats.Workouts, &p.MonthlyStats.Calories, &p.MonthlyStats.Minutes,
		&p.LastWorkoutDate, &p.Version, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ApplySession writes the session record, the progress document, and the
// streak document in one transaction. progress.Version must match the
// stored row (0 for a new user); a mismatch returns ErrVersionConflict.
func (r *ProgressRepository) ApplySession(ctx context.Context, session domain.WorkoutSession, progress domain.UserProgress, streak domain.WorkoutStreak) error {
	exercises, err := json.Marshal(exercisesToRows(session.Exercises))
	if err != nil {
		return err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const insertSession = `INSERT INTO workout_sessions
        (session_id, user_id, workout_plan_id, duration_minutes, total_calories, overall_form_score, exercises, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	if _, err = tx.Exec(ctx, insertSession,
		session.ID, session.UserID, nullIfEmpty(session.WorkoutPlanID),
		session.DurationMinutes, session.TotalCalories, session.OverallFormScore,
		exercises, session.CreatedAt,
	); err != nil {
		return err
	}

	if err = r.writeProgress(ctx, tx, progress); err != nil {
		return err
	}

	const upsertStreak = `INSERT INTO workout_streaks
        (user_id, current_streak_days, longest_streak_days, last_workout_date, streak_status)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (user_id) DO UPDATE SET
            current_streak_days = EXCLUDED.current_streak_days,
            longest_streak_days = EXCLUDED.longest_streak_days,
            last_workout_date = EXCLUDED.last_workout_date,
            streak_status = EXCLUDED.streak_status`

	if _, err = tx.Exec(ctx, upsertStreak,
		streak.UserID, streak.CurrentStreakDays, streak.LongestStreakDays,
		streak.LastWorkoutDate, streak.Status,
	); err != nil {
		return err
	}

	if err = insertOutbox(ctx, tx, EventSessionRecorded, "session", session.ID, session.UserID, sessionRecordedEvent{
		SessionID:     session.ID,
		UserID:        session.UserID,
		TotalCalories: session.TotalCalories,
		DurationMin:   session.DurationMinutes,
		RecordedAt:    session.CreatedAt,
	}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}
	observability.RecordSessionPersisted(session.CreatedAt)
	return nil
}

// writeProgress applies the optimistic-concurrency write: insert for a new
// document, conditional update otherwise. Both paths surface conflicts as
// ErrVersionConflict so the service retries from a fresh read.
func (r *ProgressRepository) writeProgress(ctx context.Context, tx pgx.Tx, p domain.UserProgress) error {
	if p.Version == 0 {
		const insert = `INSERT INTO user_progress (` + progressColumns + `)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,1,$16)`

		_, err := tx.Exec(ctx, insert,
			p.UserID, p.TotalWorkouts, p.TotalCalories, p.TotalMinutes,
			p.CurrentStreak, p.LongestStreak, p.Level, p.ExperiencePoints,
			p.WeeklyStats.Workouts, p.WeeklyStats.Calories, p.WeeklyStats.Minutes,
			p.MonthlyStats.Workouts, p.MonthlyStats.Calories, p.MonthlyStats.Minutes,
			p.LastWorkoutDate, p.UpdatedAt,
		)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrVersionConflict
		}
		return err
	}

	const update = `UPDATE user_progress SET
            total_workouts=$2, total_calories=$3, total_minutes=$4,
            current_streak=$5, longest_streak=$6, level=$7, experience_points=$8,
            weekly_workouts=$9, weekly_calories=$10, weekly_minutes=$11,
            monthly_workouts=$12, monthly_calories=$13, monthly_minutes=$14,
            last_workout_date=$15, version=version+1, updated_at=$16
        WHERE user_id=$1 AND version=$17`

	tag, err := tx.Exec(ctx, update,
		p.UserID, p.TotalWorkouts, p.TotalCalories, p.TotalMinutes,
		p.CurrentStreak, p.LongestStreak, p.Level, p.ExperiencePoints,
		p.WeeklyStats.Workouts, p.WeeklyStats.Calories, p.WeeklyStats.Minutes,
		p.MonthlyStats.Workouts, p.MonthlyStats.Calories, p.MonthlyStats.Minutes,
		p.LastWorkoutDate, p.UpdatedAt, p.Version,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVersionConflict
	}
	return nil
}

// ListSessions returns the user's sessions created at or after since,
// newest first.
func (r *ProgressRepository) ListSessions(ctx context.Context, userID string, since time.Time, limit int) ([]domain.WorkoutSession, error) {
	const query = `SELECT session_id, user_id, workout_plan_id, duration_minutes, total_calories, overall_form_score, exercises, created_at
        FROM workout_sessions
        WHERE user_id=$1 AND created_at >= $2
        ORDER BY created_at DESC
        LIMIT $3`

	rows, err := r.pool.Query(ctx, query, userID, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]domain.WorkoutSession, 0, limit)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func scanSession(row pgx.Row) (domain.WorkoutSession, error) {
	var (
		s       domain.WorkoutSession
		planID  *string
		rawExer []byte
	)
	if err := row.Scan(&s.ID, &s.UserID, &planID, &s.DurationMinutes, &s.TotalCalories, &s.OverallFormScore, &rawExer, &s.CreatedAt); err != nil {
		return domain.WorkoutSession{}, err
	}
	if planID != nil {
		s.WorkoutPlanID = *planID
	}
	var exercises []exerciseRow
	if err := json.Unmarshal(rawExer, &exercises); err != nil {
		return domain.WorkoutSession{}, err
	}
	s.Exercises = exercisesFromRows(exercises)
	return s, nil
}

// ListSessionHistory pages through the user's sessions newest first using
// keyset pagination on (created_at, session_id).
func (r *ProgressRepository) ListSessionHistory(ctx context.Context, userID string, cursor *domain.SessionCursor, limit int) ([]domain.WorkoutSession, *domain.SessionCursor, error) {
	args := []any{userID, limit}
	query := `SELECT session_id, user_id, workout_plan_id, duration_minutes, total_calories, overall_form_score, exercises, created_at
        FROM workout_sessions WHERE user_id=$1`

	if cursor != nil {
		query += ` AND (created_at, session_id) < ($3, $4)`
		args = append(args, cursor.CreatedAt, cursor.ID)
	}

	query += ` ORDER BY created_at DESC, session_id DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	sessions := make([]domain.WorkoutSession, 0, limit)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var next *domain.SessionCursor
	if len(sessions) == limit {
		last := sessions[len(sessions)-1]
		next = &domain.SessionCursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return sessions, next, nil
}

// exerciseRow is the jsonb shape of one exercise inside a session record.
type exerciseRow struct {
	ExerciseName     string  `json:"exercise_name"`
	TotalReps        int     `json:"total_reps"`
	CaloriesBurned   float64 `json:"calories_burned"`
	AverageFormScore float64 `json:"average_form_score"`
	DurationSeconds  int     `json:"duration_seconds,omitempty"`
}

func exercisesToRows(exercises []domain.Exercise) []exerciseRow {
	out := make([]exerciseRow, 0, len(exercises))
	for _, ex := range exercises {
		out = append(out, exerciseRow(ex))
	}
	return out
}

func exercisesFromRows(rows []exerciseRow) []domain.Exercise {
	out := make([]domain.Exercise, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Exercise(row))
	}
	return out
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
