package domain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestChallengeService(repo *fakeChallengeRepo, now time.Time) *ChallengeService {
	svc := NewChallengeService(repo, testLog())
	svc.now = func() time.Time { return now }
	return svc
}

func TestJoinUnknownChallenge(t *testing.T) {
	svc := newTestChallengeService(newFakeChallengeRepo(), time.Now())

	_, err := svc.Join(context.Background(), "user-1", "missing")
	require.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestJoinInactiveChallenge(t *testing.T) {
	repo := newFakeChallengeRepo()
	repo.seed(Challenge{ID: "ch-1", Status: ChallengeCancelled})
	svc := newTestChallengeService(repo, time.Now())

	_, err := svc.Join(context.Background(), "user-1", "ch-1")
	require.ErrorIs(t, err, ErrChallengeInactive)
}

func TestJoinLifecycle(t *testing.T) {
	repo := newFakeChallengeRepo()
	repo.seed(Challenge{ID: "ch-1", Status: ChallengeActive})
	svc := newTestChallengeService(repo, time.Now())

	result, err := svc.Join(context.Background(), "user-1", "ch-1")
	require.NoError(t, err)
	require.False(t, result.Rejoined)
	require.Equal(t, 1, repo.challenges["ch-1"].ParticipantCount)

	_, err = svc.Join(context.Background(), "user-1", "ch-1")
	require.ErrorIs(t, err, ErrAlreadyJoined)

	require.NoError(t, svc.Leave(context.Background(), "user-1", "ch-1"))
	require.Equal(t, 0, repo.challenges["ch-1"].ParticipantCount)

	// Rejoining an abandoned participation resets progress.
	repo.participants["user-1:ch-1"].Progress = 40
	result, err = svc.Join(context.Background(), "user-1", "ch-1")
	require.NoError(t, err)
	require.True(t, result.Rejoined)
	require.Zero(t, repo.participants["user-1:ch-1"].Progress)
	require.Equal(t, ParticipantInProgress, repo.participants["user-1:ch-1"].Status)
}

func TestJoinAfterCompletionIsRejected(t *testing.T) {
	repo := newFakeChallengeRepo()
	repo.seed(Challenge{ID: "ch-1", Status: ChallengeActive})
	repo.participants["user-1:ch-1"] = &ChallengeParticipant{
		UserID: "user-1", ChallengeID: "ch-1", Status: ParticipantCompleted,
	}
	svc := newTestChallengeService(repo, time.Now())

	_, err := svc.Join(context.Background(), "user-1", "ch-1")
	require.ErrorIs(t, err, ErrChallengeAlreadyCompleted)
}

func TestLeaveStateMachine(t *testing.T) {
	repo := newFakeChallengeRepo()
	repo.seed(Challenge{ID: "ch-1", Status: ChallengeActive})
	svc := newTestChallengeService(repo, time.Now())

	require.ErrorIs(t, svc.Leave(context.Background(), "user-1", "ch-1"), ErrNotJoined)

	repo.participants["user-1:ch-1"] = &ChallengeParticipant{
		UserID: "user-1", ChallengeID: "ch-1", Status: ParticipantAbandoned,
	}
	require.ErrorIs(t, svc.Leave(context.Background(), "user-1", "ch-1"), ErrNotJoined)

	repo.participants["user-1:ch-1"].Status = ParticipantCompleted
	require.ErrorIs(t, svc.Leave(context.Background(), "user-1", "ch-1"), ErrCannotLeaveCompleted)
}

func TestGetChallenge(t *testing.T) {
	repo := newFakeChallengeRepo()
	repo.seed(Challenge{ID: "ch-1", Name: "Burn", Status: ChallengeActive})
	svc := newTestChallengeService(repo, time.Now())

	challenge, err := svc.Get(context.Background(), "ch-1")
	require.NoError(t, err)
	require.Equal(t, "Burn", challenge.Name)

	_, err = svc.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestProgressIncrement(t *testing.T) {
	exercises := []Exercise{
		{ExerciseName: "squat", TotalReps: 20, CaloriesBurned: 120, DurationSeconds: 300},
		{ExerciseName: "pushup", TotalReps: 30, CaloriesBurned: 80, DurationSeconds: 200},
	}

	cases := []struct {
		name      string
		challenge Challenge
		want      float64
	}{
		{
			name:      "exercise count filters by name",
			challenge: Challenge{Type: ChallengeExerciseCount, Goal: ChallengeGoal{ExerciseName: "squat"}},
			want:      20,
		},
		{
			name:      "exercise count with no match",
			challenge: Challenge{Type: ChallengeExerciseCount, Goal: ChallengeGoal{ExerciseName: "plank"}},
			want:      0,
		},
		{
			name:      "calories sums the whole session",
			challenge: Challenge{Type: ChallengeCalories},
			want:      200,
		},
		{
			name:      "duration filters by name",
			challenge: Challenge{Type: ChallengeDuration, Goal: ChallengeGoal{ExerciseName: "pushup"}},
			want:      200,
		},
		{
			name:      "workout count contributes one",
			challenge: Challenge{Type: ChallengeWorkoutCount},
			want:      1,
		},
		{
			name:      "unknown type contributes nothing",
			challenge: Challenge{Type: "distance"},
			want:      0,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, progressIncrement(tc.challenge, exercises))
		})
	}
}

func TestApplyProgressCompletesChallenge(t *testing.T) {
	repo := newFakeChallengeRepo()
	repo.seed(Challenge{
		ID:      "ch-1",
		Name:    "Burn 1000",
		Type:    ChallengeCalories,
		Goal:    ChallengeGoal{TargetValue: 1000},
		Status:  ChallengeActive,
		Rewards: ChallengeRewards{Points: 200},
	})
	repo.participants["user-1:ch-1"] = &ChallengeParticipant{
		UserID: "user-1", ChallengeID: "ch-1", Progress: 950, Status: ParticipantInProgress,
	}
	svc := newTestChallengeService(repo, time.Now())

	completed, err := svc.ApplyProgress(context.Background(), "user-1",
		[]Exercise{{ExerciseName: "burpee", CaloriesBurned: 120}})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	require.Equal(t, "ch-1", completed[0].Challenge.ID)
	require.Equal(t, 200, completed[0].RewardPoints)
	require.Equal(t, ParticipantCompleted, repo.participants["user-1:ch-1"].Status)
}

func TestApplyProgressSkipsFailingChallenge(t *testing.T) {
	repo := newFakeChallengeRepo()
	repo.seed(Challenge{
		ID: "ch-broken", Type: ChallengeCalories, Goal: ChallengeGoal{TargetValue: 500},
		Status: ChallengeActive,
	})
	repo.seed(Challenge{
		ID: "ch-ok", Type: ChallengeWorkoutCount, Goal: ChallengeGoal{TargetValue: 10},
		Status: ChallengeActive,
	})
	repo.participants["user-1:ch-broken"] = &ChallengeParticipant{
		UserID: "user-1", ChallengeID: "ch-broken", Status: ParticipantInProgress,
	}
	repo.participants["user-1:ch-ok"] = &ChallengeParticipant{
		UserID: "user-1", ChallengeID: "ch-ok", Status: ParticipantInProgress,
	}
	repo.advanceErr["ch-broken"] = errors.New("write failed")
	svc := newTestChallengeService(repo, time.Now())

	completed, err := svc.ApplyProgress(context.Background(), "user-1",
		[]Exercise{{ExerciseName: "squat", CaloriesBurned: 100}})
	require.NoError(t, err, "one failing challenge must not fail the batch")
	require.Empty(t, completed)
	require.Equal(t, 1.0, repo.participants["user-1:ch-ok"].Progress)
	require.Zero(t, repo.participants["user-1:ch-broken"].Progress)
}

func TestLeaderboardAssignsRanks(t *testing.T) {
	repo := newFakeChallengeRepo()
	repo.seed(Challenge{ID: "ch-1", Status: ChallengeActive})
	repo.leaderboard["ch-1"] = []LeaderboardEntry{
		{UserID: "user-a", Progress: 90},
		{UserID: "user-b", Progress: 90},
		{UserID: "user-c", Progress: 50},
	}
	svc := newTestChallengeService(repo, time.Now())

	entries, err := svc.Leaderboard(context.Background(), "ch-1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, entry := range entries {
		require.Equal(t, i+1, entry.Rank)
	}
}

func TestLeaderboardUnknownChallenge(t *testing.T) {
	svc := newTestChallengeService(newFakeChallengeRepo(), time.Now())

	_, err := svc.Leaderboard(context.Background(), "missing", 10)
	require.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestUserChallengesFiltersByStatus(t *testing.T) {
	repo := newFakeChallengeRepo()
	repo.seed(Challenge{ID: "ch-1", Status: ChallengeActive, Goal: ChallengeGoal{TargetValue: 100}})
	repo.seed(Challenge{ID: "ch-2", Status: ChallengeActive, Goal: ChallengeGoal{TargetValue: 100}})
	repo.participants["user-1:ch-1"] = &ChallengeParticipant{
		UserID: "user-1", ChallengeID: "ch-1", Progress: 25, Status: ParticipantInProgress,
	}
	repo.participants["user-1:ch-2"] = &ChallengeParticipant{
		UserID: "user-1", ChallengeID: "ch-2", Progress: 100, Status: ParticipantCompleted,
	}
	svc := newTestChallengeService(repo, time.Now())

	all, err := svc.UserChallenges(context.Background(), "user-1", "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	completed, err := svc.UserChallenges(context.Background(), "user-1", "completed")
	require.NoError(t, err)
	require.Len(t, completed, 1)
	require.Equal(t, 100.0, completed[0].CompletionPercent())

	// An unrecognized filter falls back to all statuses.
	everything, err := svc.UserChallenges(context.Background(), "user-1", "bogus")
	require.NoError(t, err)
	require.Len(t, everything, 2)
}
