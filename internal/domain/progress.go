package domain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// maxApplyRetries bounds optimistic-concurrency retries before the whole
// operation fails with ErrConflict.
const maxApplyRetries = 5

// historyLimit caps the workout history returned with a progress view.
const historyLimit = 50

// statisticsScanLimit caps how many sessions a statistics query aggregates.
const statisticsScanLimit = 500

// ProgressRepository persists the user progress aggregate, its paired
// streak document, and the append-only session log.
type ProgressRepository interface {
	// GetProgress returns the progress document, or nil when the user has
	// none yet.
	GetProgress(ctx context.Context, userID string) (*UserProgress, error)
	// ApplySession stores the session and writes progress and streak in one
	// transaction. progress.Version carries the version the update was
	// computed from (0 for a new document); a mismatch with the stored row
	// returns ErrVersionConflict and nothing is applied.
	ApplySession(ctx context.Context, session WorkoutSession, progress UserProgress, streak WorkoutStreak) error
	// ListSessions returns sessions for the user created at or after since,
	// newest first, capped at limit.
	ListSessions(ctx context.Context, userID string, since time.Time, limit int) ([]WorkoutSession, error)
	// ListSessionHistory pages through the user's sessions newest first,
	// resuming after cursor when non-nil. The returned cursor is nil on the
	// last page.
	ListSessionHistory(ctx context.Context, userID string, cursor *SessionCursor, limit int) ([]WorkoutSession, *SessionCursor, error)
}

// ProgressService is the progress aggregator: it owns UserProgress and
// WorkoutStreak and is the only writer of both.
type ProgressService struct {
	repo ProgressRepository
	log  logrus.FieldLogger
	now  func() time.Time
}

// NewProgressService constructs a ProgressService.
func NewProgressService(repo ProgressRepository, log logrus.FieldLogger) *ProgressService {
	return &ProgressService{repo: repo, log: log, now: time.Now}
}

// RecordSessionInput is the already-authorized payload for one session.
type RecordSessionInput struct {
	UserID          string
	WorkoutPlanID   string
	Exercises       []Exercise
	DurationMinutes int
}

// Validate defensively rejects input the upstream validation layer should
// have caught, so corrupt aggregates are never persisted.
func (in RecordSessionInput) Validate() error {
	if in.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidSession)
	}
	if in.DurationMinutes <= 0 {
		return fmt.Errorf("%w: duration must be positive", ErrInvalidSession)
	}
	if len(in.Exercises) == 0 {
		return fmt.Errorf("%w: exercises must not be empty", ErrInvalidSession)
	}
	for _, ex := range in.Exercises {
		if ex.ExerciseName == "" {
			return fmt.Errorf("%w: exercise name is required", ErrInvalidSession)
		}
		if ex.TotalReps < 0 || ex.CaloriesBurned < 0 || ex.AverageFormScore < 0 || ex.DurationSeconds < 0 {
			return fmt.Errorf("%w: negative metric for %q", ErrInvalidSession, ex.ExerciseName)
		}
	}
	return nil
}

// RecordSession persists an immutable session record and folds it into the
// user's cumulative statistics and streak atomically. Contention with a
// concurrent session for the same user retries the whole computation.
func (s *ProgressService) RecordSession(ctx context.Context, input RecordSessionInput) (*WorkoutSession, ProgressSnapshot, error) {
	if err := input.Validate(); err != nil {
		return nil, ProgressSnapshot{}, err
	}

	now := s.now().UTC()
	session := WorkoutSession{
		ID:               uuid.NewString(),
		UserID:           input.UserID,
		WorkoutPlanID:    input.WorkoutPlanID,
		Exercises:        input.Exercises,
		DurationMinutes:  input.DurationMinutes,
		TotalCalories:    TotalCalories(input.Exercises),
		OverallFormScore: Round2(AverageFormScore(input.Exercises)),
		CreatedAt:        now,
	}

	for attempt := 0; attempt < maxApplyRetries; attempt++ {
		current, err := s.repo.GetProgress(ctx, input.UserID)
		if err != nil {
			return nil, ProgressSnapshot{}, err
		}

		updated := nextProgress(current, session, now)
		streak := WorkoutStreak{
			UserID:            input.UserID,
			CurrentStreakDays: updated.CurrentStreak,
			LongestStreakDays: updated.LongestStreak,
			LastWorkoutDate:   updated.LastWorkoutDate,
			Status:            StreakActive,
		}

		err = s.repo.ApplySession(ctx, session, updated, streak)
		if errors.Is(err, ErrVersionConflict) {
			s.log.WithFields(logrus.Fields{"user_id": input.UserID, "attempt": attempt + 1}).
				Debug("progress version conflict, retrying session apply")
			continue
		}
		if err != nil {
			return nil, ProgressSnapshot{}, err
		}
		return &session, updated.Snapshot(), nil
	}

	return nil, ProgressSnapshot{}, fmt.Errorf("%w: recording session for user %s", ErrConflict, input.UserID)
}

// nextProgress computes the post-session progress document. current is nil
// for a user's first session.
func nextProgress(current *UserProgress, session WorkoutSession, now time.Time) UserProgress {
	prior := UserProgress{UserID: session.UserID}
	if current != nil {
		prior = *current
	}

	streak, longest := StreakTransition(prior.LastWorkoutDate, prior.CurrentStreak, prior.LongestStreak, now)
	xp := prior.ExperiencePoints + XPPerSession
	last := now

	updated := prior
	updated.TotalWorkouts++
	updated.TotalCalories += session.TotalCalories
	updated.TotalMinutes += float64(session.DurationMinutes)
	updated.CurrentStreak = streak
	updated.LongestStreak = longest
	updated.ExperiencePoints = xp
	updated.Level = LevelForXP(xp)
	updated.WeeklyStats.Workouts++
	updated.WeeklyStats.Calories += session.TotalCalories
	updated.WeeklyStats.Minutes += float64(session.DurationMinutes)
	updated.MonthlyStats.Workouts++
	updated.MonthlyStats.Calories += session.TotalCalories
	updated.MonthlyStats.Minutes += float64(session.DurationMinutes)
	updated.LastWorkoutDate = &last
	updated.UpdatedAt = now
	return updated
}

// Snapshot reads the current statistics snapshot for downstream consumers.
func (s *ProgressService) Snapshot(ctx context.Context, userID string) (ProgressSnapshot, error) {
	progress, err := s.repo.GetProgress(ctx, userID)
	if err != nil {
		return ProgressSnapshot{}, err
	}
	if progress == nil {
		return ProgressSnapshot{}, ErrProgressNotFound
	}
	return progress.Snapshot(), nil
}

// ProgressView bundles the progress document with recent workout history
// and a streak milestone hint.
type ProgressView struct {
	Progress       UserProgress
	WorkoutHistory []WorkoutSession
	Milestone      StreakMilestone
}

// GetProgress returns the user's progress and workout history for a period,
// or ErrProgressNotFound when no session was ever recorded.
func (s *ProgressService) GetProgress(ctx context.Context, userID string, period Period) (*ProgressView, error) {
	progress, err := s.repo.GetProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		return nil, ErrProgressNotFound
	}

	history, err := s.repo.ListSessions(ctx, userID, period.Start(s.now().UTC()), historyLimit)
	if err != nil {
		return nil, err
	}

	return &ProgressView{
		Progress:       *progress,
		WorkoutHistory: history,
		Milestone:      NextStreakMilestone(progress.CurrentStreak),
	}, nil
}

// SessionHistory pages through the user's full session log, newest first.
func (s *ProgressService) SessionHistory(ctx context.Context, userID string, cursor *SessionCursor, limit int) ([]WorkoutSession, *SessionCursor, error) {
	if limit <= 0 || limit > historyLimit {
		limit = historyLimit
	}
	return s.repo.ListSessionHistory(ctx, userID, cursor, limit)
}

// DailyActivity is one calendar day's workout totals.
type DailyActivity struct {
	Date     string
	Workouts int
	Calories float64
	Minutes  float64
}

// WorkoutStatistics aggregates the sessions of one period.
type WorkoutStatistics struct {
	TotalWorkouts     int
	TotalCalories     float64
	TotalMinutes      float64
	AvgFormScore      float64
	ExerciseBreakdown map[string]int
	DailyActivity     []DailyActivity
}

// GetStatistics aggregates session-level statistics over a period. Users
// with no sessions get zero-valued statistics, not an error.
func (s *ProgressService) GetStatistics(ctx context.Context, userID string, period Period) (WorkoutStatistics, error) {
	sessions, err := s.repo.ListSessions(ctx, userID, period.Start(s.now().UTC()), statisticsScanLimit)
	if err != nil {
		return WorkoutStatistics{}, err
	}

	stats := WorkoutStatistics{
		TotalWorkouts:     len(sessions),
		ExerciseBreakdown: make(map[string]int),
	}
	daily := make(map[string]*DailyActivity)

	var formSum float64
	for _, session := range sessions {
		stats.TotalCalories += session.TotalCalories
		stats.TotalMinutes += float64(session.DurationMinutes)
		formSum += session.OverallFormScore

		for _, ex := range session.Exercises {
			stats.ExerciseBreakdown[ex.ExerciseName]++
		}

		day := session.CreatedAt.UTC().Format("2006-01-02")
		entry, ok := daily[day]
		if !ok {
			entry = &DailyActivity{Date: day}
			daily[day] = entry
		}
		entry.Workouts++
		entry.Calories += session.TotalCalories
		entry.Minutes += float64(session.DurationMinutes)
	}

	if len(sessions) > 0 {
		stats.AvgFormScore = Round2(formSum / float64(len(sessions)))
	}

	stats.DailyActivity = make([]DailyActivity, 0, len(daily))
	for _, entry := range daily {
		stats.DailyActivity = append(stats.DailyActivity, *entry)
	}
	sort.Slice(stats.DailyActivity, func(i, j int) bool {
		return stats.DailyActivity[i].Date < stats.DailyActivity[j].Date
	})

	return stats, nil
}
