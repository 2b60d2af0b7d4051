package domain

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// ChallengeRepository persists challenge participation records and adjusts
// the shared participant counter. Every mutating call is one transaction:
// the participant write and the counter adjustment commit or roll back
// together.
type ChallengeRepository interface {
	// GetChallenge returns challenge metadata, or nil when absent.
	GetChallenge(ctx context.Context, challengeID string) (*Challenge, error)
	// ListActiveChallenges returns challenges in active status, newest first.
	ListActiveChallenges(ctx context.Context) ([]Challenge, error)
	// GetParticipant returns the participation record, or nil when the user
	// never joined.
	GetParticipant(ctx context.Context, userID, challengeID string) (*ChallengeParticipant, error)
	// CreateParticipant inserts a fresh in_progress record and increments the
	// challenge participant counter.
	CreateParticipant(ctx context.Context, participant ChallengeParticipant) error
	// ReactivateParticipant flips an abandoned record back to in_progress,
	// resets progress to zero, and increments the participant counter.
	ReactivateParticipant(ctx context.Context, userID, challengeID string, at time.Time) error
	// AbandonParticipant flips an in_progress record to abandoned and
	// decrements the participant counter.
	AbandonParticipant(ctx context.Context, userID, challengeID string, at time.Time) error
	// AdvanceParticipant adds increment to an in_progress participant. When
	// the new progress reaches target it transitions the record to completed,
	// stamps completedAt, and credits rewardPoints to the user's experience,
	// all in the same transaction, and only for the single transition out of
	// in_progress. Returns whether this call completed the challenge. A
	// participant no longer in_progress is left untouched.
	AdvanceParticipant(ctx context.Context, userID, challengeID string, increment, target float64, rewardPoints int, at time.Time) (bool, error)
	// ListInProgress returns the user's in_progress participations.
	ListInProgress(ctx context.Context, userID string) ([]ChallengeParticipant, error)
	// ListParticipations returns the user's participations joined with
	// challenge metadata, optionally filtered by status ("" means all).
	ListParticipations(ctx context.Context, userID string, status ParticipantStatus) ([]Participation, error)
	// ListLeaderboard returns participants of a challenge ordered by progress
	// descending with ties in stored insertion order, capped at limit.
	ListLeaderboard(ctx context.Context, challengeID string, limit int) ([]LeaderboardEntry, error)
}

// Participation joins a participant record with its challenge metadata.
type Participation struct {
	Challenge   Challenge
	Participant ChallengeParticipant
}

// CompletionPercent is the participant's progress toward the challenge goal.
func (p Participation) CompletionPercent() float64 {
	return CompletionPercentage(p.Participant.Progress, p.Challenge.Goal.TargetValue)
}

// CompletedChallenge reports one challenge completion triggered by a session.
type CompletedChallenge struct {
	Challenge    Challenge
	RewardPoints int
}

// ChallengeService is the participation manager: it owns the per-user
// per-challenge state machine and the shared participant counters.
type ChallengeService struct {
	repo ChallengeRepository
	log  logrus.FieldLogger
	now  func() time.Time
}

// NewChallengeService constructs a ChallengeService.
func NewChallengeService(repo ChallengeRepository, log logrus.FieldLogger) *ChallengeService {
	return &ChallengeService{repo: repo, log: log, now: time.Now}
}

// JoinResult reports whether a join created a fresh participation or
// reactivated an abandoned one.
type JoinResult struct {
	Rejoined bool
}

// Join enrolls the user in an active challenge. Rejoining after abandoning
// resets progress to zero; joining twice or after completing fails.
func (s *ChallengeService) Join(ctx context.Context, userID, challengeID string) (JoinResult, error) {
	challenge, err := s.repo.GetChallenge(ctx, challengeID)
	if err != nil {
		return JoinResult{}, err
	}
	if challenge == nil {
		return JoinResult{}, ErrChallengeNotFound
	}
	if challenge.Status != ChallengeActive {
		return JoinResult{}, ErrChallengeInactive
	}

	participant, err := s.repo.GetParticipant(ctx, userID, challengeID)
	if err != nil {
		return JoinResult{}, err
	}

	now := s.now().UTC()
	switch {
	case participant == nil:
		err = s.repo.CreateParticipant(ctx, ChallengeParticipant{
			UserID:      userID,
			ChallengeID: challengeID,
			Progress:    0,
			Status:      ParticipantInProgress,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return JoinResult{}, err
		}
		return JoinResult{}, nil
	case participant.Status == ParticipantInProgress:
		return JoinResult{}, ErrAlreadyJoined
	case participant.Status == ParticipantCompleted:
		return JoinResult{}, ErrChallengeAlreadyCompleted
	default:
		if err := s.repo.ReactivateParticipant(ctx, userID, challengeID, now); err != nil {
			return JoinResult{}, err
		}
		return JoinResult{Rejoined: true}, nil
	}
}

// Leave abandons an in_progress participation. The record is kept with
// abandoned status; a later Join reactivates it.
func (s *ChallengeService) Leave(ctx context.Context, userID, challengeID string) error {
	participant, err := s.repo.GetParticipant(ctx, userID, challengeID)
	if err != nil {
		return err
	}
	if participant == nil || participant.Status == ParticipantAbandoned {
		return ErrNotJoined
	}
	if participant.Status == ParticipantCompleted {
		return ErrCannotLeaveCompleted
	}
	return s.repo.AbandonParticipant(ctx, userID, challengeID, s.now().UTC())
}

// ApplyProgress propagates a recorded session to every in_progress
// participation of the user. One failing challenge is logged and skipped so
// it cannot block the session or the remaining challenges. Returns the
// challenges this session completed.
func (s *ChallengeService) ApplyProgress(ctx context.Context, userID string, exercises []Exercise) ([]CompletedChallenge, error) {
	participants, err := s.repo.ListInProgress(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var completed []CompletedChallenge
	for _, participant := range participants {
		challenge, err := s.repo.GetChallenge(ctx, participant.ChallengeID)
		if err != nil || challenge == nil {
			s.log.WithFields(logrus.Fields{
				"user_id":      userID,
				"challenge_id": participant.ChallengeID,
			}).WithError(err).Warn("skipping challenge with missing definition")
			continue
		}

		increment := progressIncrement(*challenge, exercises)
		if increment <= 0 {
			continue
		}

		done, err := s.repo.AdvanceParticipant(ctx, userID, challenge.ID, increment,
			challenge.Goal.TargetValue, challenge.Rewards.Points, now)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"user_id":      userID,
				"challenge_id": challenge.ID,
			}).WithError(err).Warn("skipping challenge progress update")
			continue
		}
		if done {
			s.log.WithFields(logrus.Fields{
				"user_id":      userID,
				"challenge_id": challenge.ID,
				"reward":       challenge.Rewards.Points,
			}).Info("challenge completed")
			completed = append(completed, CompletedChallenge{
				Challenge:    *challenge,
				RewardPoints: challenge.Rewards.Points,
			})
		}
	}
	return completed, nil
}

// progressIncrement computes how much one session contributes to a
// challenge. The switch is exhaustive over the challenge types; rows with
// unknown types contribute nothing.
func progressIncrement(challenge Challenge, exercises []Exercise) float64 {
	switch challenge.Type {
	case ChallengeExerciseCount:
		var reps int
		for _, ex := range exercises {
			if ex.ExerciseName == challenge.Goal.ExerciseName {
				reps += ex.TotalReps
			}
		}
		return float64(reps)
	case ChallengeCalories:
		return TotalCalories(exercises)
	case ChallengeDuration:
		var seconds int
		for _, ex := range exercises {
			if ex.ExerciseName == challenge.Goal.ExerciseName {
				seconds += ex.DurationSeconds
			}
		}
		return float64(seconds)
	case ChallengeWorkoutCount:
		return 1
	default:
		return 0
	}
}

// Get returns challenge metadata for the detail view.
func (s *ChallengeService) Get(ctx context.Context, challengeID string) (*Challenge, error) {
	challenge, err := s.repo.GetChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if challenge == nil {
		return nil, ErrChallengeNotFound
	}
	return challenge, nil
}

// ListActive returns challenges open for joining.
func (s *ChallengeService) ListActive(ctx context.Context) ([]Challenge, error) {
	return s.repo.ListActiveChallenges(ctx)
}

// UserChallenges lists the user's participations with challenge metadata,
// filtered by status ("" or "all" means every status).
func (s *ChallengeService) UserChallenges(ctx context.Context, userID string, status string) ([]Participation, error) {
	var filter ParticipantStatus
	switch ParticipantStatus(status) {
	case ParticipantInProgress, ParticipantCompleted, ParticipantAbandoned:
		filter = ParticipantStatus(status)
	}
	return s.repo.ListParticipations(ctx, userID, filter)
}

// Leaderboard ranks a challenge's participants by progress. Rank is the
// 1-based position in the stored ordering; equal progress values keep their
// insertion order and receive sequential ranks.
func (s *ChallengeService) Leaderboard(ctx context.Context, challengeID string, limit int) ([]LeaderboardEntry, error) {
	challenge, err := s.repo.GetChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if challenge == nil {
		return nil, ErrChallengeNotFound
	}

	if limit <= 0 {
		limit = 10
	}
	entries, err := s.repo.ListLeaderboard(ctx, challengeID, limit)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}
