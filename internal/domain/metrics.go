package domain

import (
	"math"
	"time"
)

const (
	// XPPerSession is the flat experience credit for every recorded session.
	XPPerSession = 50
	// XPPerLevel is the experience span of one level.
	XPPerLevel = 500
)

// TotalCalories sums per-exercise calories. Missing values arrive as zero.
func TotalCalories(exercises []Exercise) float64 {
	var sum float64
	for _, ex := range exercises {
		sum += ex.CaloriesBurned
	}
	return sum
}

// AverageFormScore is the arithmetic mean of per-exercise form scores,
// 0 for an empty list.
func AverageFormScore(exercises []Exercise) float64 {
	if len(exercises) == 0 {
		return 0
	}
	var sum float64
	for _, ex := range exercises {
		sum += ex.AverageFormScore
	}
	return sum / float64(len(exercises))
}

// StreakTransition applies one recorded workout to a streak. Both dates are
// truncated to day granularity before the diff: a same-day repeat leaves the
// streak unchanged, a consecutive day increments it, a gap of two or more
// days resets it to 1. The longest streak never decreases.
func StreakTransition(lastWorkoutDate *time.Time, currentStreak, longestStreak int, today time.Time) (int, int) {
	newStreak := 1
	if lastWorkoutDate != nil {
		switch daysBetween(*lastWorkoutDate, today) {
		case 0:
			newStreak = currentStreak
		case 1:
			newStreak = currentStreak + 1
		}
	}
	return newStreak, max(newStreak, longestStreak)
}

func daysBetween(from, to time.Time) int {
	fromDay := truncateToDay(from)
	toDay := truncateToDay(to)
	return int(math.Floor(toDay.Sub(fromDay).Hours() / 24))
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// LevelForXP maps experience points to a level: one level per 500 XP,
// starting at level 1.
func LevelForXP(xp int) int {
	if xp < 0 {
		return 1
	}
	return xp/XPPerLevel + 1
}

// CompletionPercentage reports current/target as a percentage rounded to
// two decimals, capped at 100. A non-positive target yields 0.
func CompletionPercentage(current, target float64) float64 {
	if target <= 0 {
		return 0
	}
	return math.Min(Round2(current/target*100), 100)
}

// Round2 rounds to two decimal places, the precision used at response edges.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// streakMilestones are the day counts surfaced as "next milestone" hints.
var streakMilestones = []int{7, 14, 30, 60, 100, 365}

// StreakMilestone describes progress toward the next streak milestone.
// Next is 0 once every milestone is passed.
type StreakMilestone struct {
	Next          int
	DaysRemaining int
	Progress      float64
}

// NextStreakMilestone finds the first milestone the streak has not reached.
func NextStreakMilestone(currentStreak int) StreakMilestone {
	for _, m := range streakMilestones {
		if currentStreak < m {
			return StreakMilestone{
				Next:          m,
				DaysRemaining: m - currentStreak,
				Progress:      CompletionPercentage(float64(currentStreak), float64(m)),
			}
		}
	}
	return StreakMilestone{Progress: 100}
}

// Period bounds history and statistics queries.
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
	PeriodAll   Period = "all"
)

// ParsePeriod normalizes a raw period string, defaulting to all time.
func ParsePeriod(raw string) Period {
	switch Period(raw) {
	case PeriodWeek, PeriodMonth, PeriodYear:
		return Period(raw)
	default:
		return PeriodAll
	}
}

// Start returns the inclusive lower bound of the period relative to now.
func (p Period) Start(now time.Time) time.Time {
	switch p {
	case PeriodWeek:
		return now.AddDate(0, 0, -7)
	case PeriodMonth:
		return now.AddDate(0, -1, 0)
	case PeriodYear:
		return now.AddDate(-1, 0, 0)
	default:
		return now.AddDate(-10, 0, 0)
	}
}
