package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLevelForXP(t *testing.T) {
	cases := []struct {
		xp    int
		level int
	}{
		{xp: -10, level: 1},
		{xp: 0, level: 1},
		{xp: 499, level: 1},
		{xp: 500, level: 2},
		{xp: 999, level: 2},
		{xp: 1000, level: 3},
		{xp: 4999, level: 10},
	}
	for _, tc := range cases {
		require.Equalf(t, tc.level, LevelForXP(tc.xp), "xp=%d", tc.xp)
	}
}

func TestStreakTransitionFirstWorkout(t *testing.T) {
	today := time.Date(2026, time.March, 10, 7, 0, 0, 0, time.UTC)

	streak, longest := StreakTransition(nil, 0, 0, today)
	require.Equal(t, 1, streak)
	require.Equal(t, 1, longest)

	// The longest streak survives a fresh start.
	streak, longest = StreakTransition(nil, 0, 12, today)
	require.Equal(t, 1, streak)
	require.Equal(t, 12, longest)
}

func TestStreakTransitionSameDayIsIdempotent(t *testing.T) {
	morning := time.Date(2026, time.March, 10, 7, 0, 0, 0, time.UTC)
	evening := time.Date(2026, time.March, 10, 22, 30, 0, 0, time.UTC)

	streak, longest := StreakTransition(&morning, 4, 9, evening)
	require.Equal(t, 4, streak)
	require.Equal(t, 9, longest)
}

func TestStreakTransitionConsecutiveDayIncrements(t *testing.T) {
	// Late evening followed by early morning is still one calendar day apart.
	yesterday := time.Date(2026, time.March, 9, 23, 30, 0, 0, time.UTC)
	today := time.Date(2026, time.March, 10, 6, 0, 0, 0, time.UTC)

	streak, longest := StreakTransition(&yesterday, 9, 9, today)
	require.Equal(t, 10, streak)
	require.Equal(t, 10, longest)
}

func TestStreakTransitionGapResets(t *testing.T) {
	lastWeek := time.Date(2026, time.March, 3, 7, 0, 0, 0, time.UTC)
	today := time.Date(2026, time.March, 10, 7, 0, 0, 0, time.UTC)

	streak, longest := StreakTransition(&lastWeek, 6, 6, today)
	require.Equal(t, 1, streak)
	require.Equal(t, 6, longest, "longest streak never decreases")
}

func TestCompletionPercentage(t *testing.T) {
	require.Equal(t, 0.0, CompletionPercentage(50, 0))
	require.Equal(t, 0.0, CompletionPercentage(50, -1))
	require.Equal(t, 50.0, CompletionPercentage(50, 100))
	require.Equal(t, 33.33, CompletionPercentage(1, 3))
	require.Equal(t, 100.0, CompletionPercentage(150, 100), "capped at 100")
}

func TestNextStreakMilestone(t *testing.T) {
	m := NextStreakMilestone(1)
	require.Equal(t, 7, m.Next)
	require.Equal(t, 6, m.DaysRemaining)
	require.Equal(t, 14.29, m.Progress)

	m = NextStreakMilestone(7)
	require.Equal(t, 14, m.Next)
	require.Equal(t, 7, m.DaysRemaining)

	m = NextStreakMilestone(400)
	require.Zero(t, m.Next, "all milestones passed")
	require.Equal(t, 100.0, m.Progress)
}

func TestSessionAggregates(t *testing.T) {
	exercises := []Exercise{
		{ExerciseName: "squat", CaloriesBurned: 120, AverageFormScore: 0.8},
		{ExerciseName: "pushup", CaloriesBurned: 80, AverageFormScore: 0.9},
	}

	require.Equal(t, 200.0, TotalCalories(exercises))
	require.InDelta(t, 0.85, AverageFormScore(exercises), 0.0001)
	require.Zero(t, AverageFormScore(nil))
}

func TestParsePeriod(t *testing.T) {
	require.Equal(t, PeriodWeek, ParsePeriod("week"))
	require.Equal(t, PeriodMonth, ParsePeriod("month"))
	require.Equal(t, PeriodYear, ParsePeriod("year"))
	require.Equal(t, PeriodAll, ParsePeriod(""))
	require.Equal(t, PeriodAll, ParsePeriod("fortnight"))
}

func TestPeriodStart(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

	require.Equal(t, now.AddDate(0, 0, -7), PeriodWeek.Start(now))
	require.Equal(t, now.AddDate(0, -1, 0), PeriodMonth.Start(now))
	require.Equal(t, now.AddDate(-1, 0, 0), PeriodYear.Start(now))
	require.True(t, PeriodAll.Start(now).Before(now.AddDate(-9, 0, 0)))
}
