package domain

import "time"

// Exercise is one pre-scored exercise entry inside a workout session.
type Exercise struct {
	ExerciseName     string
	TotalReps        int
	CaloriesBurned   float64
	AverageFormScore float64
	DurationSeconds  int
}

// WorkoutSession is the immutable record of one recorded workout.
type WorkoutSession struct {
	ID               string
	UserID           string
	WorkoutPlanID    string
	Exercises        []Exercise
	DurationMinutes  int
	TotalCalories    float64
	OverallFormScore float64
	CreatedAt        time.Time
}

// PeriodStats accumulates workout counters for a rolling window.
type PeriodStats struct {
	Workouts int
	Calories float64
	Minutes  float64
}

// UserProgress is the cumulative statistics document, one per user.
// Level is persisted as a cache of LevelForXP(ExperiencePoints); every
// writer recomputes it, readers may trust it.
type UserProgress struct {
	UserID           string
	TotalWorkouts    int
	TotalCalories    float64
	TotalMinutes     float64
	CurrentStreak    int
	LongestStreak    int
	Level            int
	ExperiencePoints int
	WeeklyStats      PeriodStats
	MonthlyStats     PeriodStats
	LastWorkoutDate  *time.Time
	// Version guards optimistic concurrency; 0 means the document does
	// not exist yet.
	Version   int64
	UpdatedAt time.Time
}

// StreakStatus says whether a streak is still alive.
type StreakStatus string

const (
	StreakActive StreakStatus = "active"
	StreakBroken StreakStatus = "broken"
)

// WorkoutStreak is the denormalized streak view kept in lockstep with
// the streak fields of UserProgress.
type WorkoutStreak struct {
	UserID            string
	CurrentStreakDays int
	LongestStreakDays int
	LastWorkoutDate   *time.Time
	Status            StreakStatus
}

// ChallengeType selects how a session contributes to challenge progress.
type ChallengeType string

const (
	ChallengeExerciseCount ChallengeType = "exercise_count"
	ChallengeCalories      ChallengeType = "calories"
	ChallengeDuration      ChallengeType = "duration"
	ChallengeWorkoutCount  ChallengeType = "workout_count"
)

// ChallengeStatus is the lifecycle state of a challenge definition.
type ChallengeStatus string

const (
	ChallengeActive    ChallengeStatus = "active"
	ChallengeCompleted ChallengeStatus = "completed"
	ChallengeCancelled ChallengeStatus = "cancelled"
	ChallengeDeleted   ChallengeStatus = "deleted"
)

// ChallengeGoal is the target a participant works towards. ExerciseName
// filters contributing exercises for exercise_count and duration types.
type ChallengeGoal struct {
	TargetValue  float64
	ExerciseName string
}

// ChallengeRewards is credited once when a participant completes the goal.
type ChallengeRewards struct {
	Points int
	Badges []string
}

// Challenge is externally managed metadata, read-only for this engine.
type Challenge struct {
	ID               string
	Name             string
	Type             ChallengeType
	Goal             ChallengeGoal
	Status           ChallengeStatus
	StartDate        time.Time
	EndDate          time.Time
	Rewards          ChallengeRewards
	ParticipantCount int
	CreatedAt        time.Time
}

// ParticipantStatus is the per-user challenge state machine.
type ParticipantStatus string

const (
	ParticipantInProgress ParticipantStatus = "in_progress"
	ParticipantCompleted  ParticipantStatus = "completed"
	ParticipantAbandoned  ParticipantStatus = "abandoned"
)

// ChallengeParticipant tracks one user's progress toward one challenge.
// Keyed by (UserID, ChallengeID); never hard-deleted.
type ChallengeParticipant struct {
	UserID      string
	ChallengeID string
	Progress    float64
	Status      ParticipantStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// ConditionType names the statistic a badge condition reads.
type ConditionType string

const (
	ConditionWorkoutCount  ConditionType = "workout_count"
	ConditionTotalCalories ConditionType = "total_calories"
	ConditionStreakDays    ConditionType = "streak_days"
	ConditionLevel         ConditionType = "level"
	ConditionTotalMinutes  ConditionType = "total_minutes"
)

// BadgeCondition is the (type, threshold) pair defining when a badge is
// earned. Types outside the known set never evaluate true.
type BadgeCondition struct {
	Type  ConditionType
	Value float64
}

// Badge is externally managed metadata, read-only for this engine.
type Badge struct {
	ID          string
	Name        string
	Description string
	Category    string
	Tier        string
	Points      int
	Condition   BadgeCondition
}

// UserBadge records an earned badge; at most one per (user, badge).
type UserBadge struct {
	UserID   string
	BadgeID  string
	EarnedAt time.Time
	Progress int
}

// EarnedBadge pairs badge metadata with when the user earned it.
type EarnedBadge struct {
	Badge
	EarnedAt time.Time
}

// LockedBadge pairs badge metadata with the completion percentage toward
// its condition.
type LockedBadge struct {
	Badge
	Progress float64
}

// ProgressSnapshot is the subset of cumulative statistics handed to the
// challenge and badge managers after a session is recorded. It is a plain
// value; consumers never mutate the aggregate through it.
type ProgressSnapshot struct {
	TotalWorkouts    int
	TotalCalories    float64
	TotalMinutes     float64
	CurrentStreak    int
	LongestStreak    int
	Level            int
	ExperiencePoints int
}

// Snapshot extracts the snapshot view of the progress document.
func (p UserProgress) Snapshot() ProgressSnapshot {
	return ProgressSnapshot{
		TotalWorkouts:    p.TotalWorkouts,
		TotalCalories:    p.TotalCalories,
		TotalMinutes:     p.TotalMinutes,
		CurrentStreak:    p.CurrentStreak,
		LongestStreak:    p.LongestStreak,
		Level:            p.Level,
		ExperiencePoints: p.ExperiencePoints,
	}
}

// SessionCursor marks a position in a user's session history for keyset
// pagination.
type SessionCursor struct {
	CreatedAt time.Time
	ID        string
}

// LeaderboardEntry is one row of a challenge leaderboard.
type LeaderboardEntry struct {
	UserID      string
	Progress    float64
	Status      ParticipantStatus
	Rank        int
	CompletedAt *time.Time
	JoinedAt    time.Time
}
