package domain

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// Engine is the façade the transport layers call. It wires the session
// pipeline: progress aggregation, challenge propagation, badge evaluation.
type Engine struct {
	progress   *ProgressService
	challenges *ChallengeService
	badges     *BadgeService
	log        logrus.FieldLogger
}

// NewEngine constructs the engine from its three managers.
func NewEngine(progress *ProgressService, challenges *ChallengeService, badges *BadgeService, log logrus.FieldLogger) *Engine {
	return &Engine{progress: progress, challenges: challenges, badges: badges, log: log}
}

// SessionResult is the response assembled for a recorded session.
type SessionResult struct {
	Session             WorkoutSession
	Snapshot            ProgressSnapshot
	BadgesEarned        []Badge
	ChallengesCompleted []CompletedChallenge
}

// RecordSession runs the full pipeline for one workout session: update
// stats and streak, propagate to active challenge participations, then
// evaluate badges against the refreshed snapshot. Challenge and badge
// stages degrade gracefully: their failures are logged, never unrecording
// the session.
func (e *Engine) RecordSession(ctx context.Context, input RecordSessionInput) (*SessionResult, error) {
	session, snap, err := e.progress.RecordSession(ctx, input)
	if err != nil {
		return nil, err
	}

	completed, err := e.challenges.ApplyProgress(ctx, input.UserID, input.Exercises)
	if err != nil {
		e.log.WithField("user_id", input.UserID).WithError(err).
			Warn("challenge propagation failed for recorded session")
	}

	// Reward credits change XP and level, so re-read the snapshot before
	// evaluating level-based badge conditions.
	if len(completed) > 0 {
		if fresh, err := e.progress.Snapshot(ctx, input.UserID); err == nil {
			snap = fresh
		}
	}

	badges, err := e.badges.CheckAndAward(ctx, input.UserID, snap)
	if err != nil {
		e.log.WithField("user_id", input.UserID).WithError(err).
			Warn("badge evaluation failed for recorded session")
	}

	return &SessionResult{
		Session:             *session,
		Snapshot:            snap,
		BadgesEarned:        badges,
		ChallengesCompleted: completed,
	}, nil
}

// GetProgress exposes the progress aggregator's period view.
func (e *Engine) GetProgress(ctx context.Context, userID string, period Period) (*ProgressView, error) {
	return e.progress.GetProgress(ctx, userID, period)
}

// GetStatistics exposes period workout statistics.
func (e *Engine) GetStatistics(ctx context.Context, userID string, period Period) (WorkoutStatistics, error) {
	return e.progress.GetStatistics(ctx, userID, period)
}

// SessionHistory pages through the user's recorded sessions.
func (e *Engine) SessionHistory(ctx context.Context, userID string, cursor *SessionCursor, limit int) ([]WorkoutSession, *SessionCursor, error) {
	return e.progress.SessionHistory(ctx, userID, cursor, limit)
}

// JoinChallenge enrolls the user in a challenge.
func (e *Engine) JoinChallenge(ctx context.Context, userID, challengeID string) (JoinResult, error) {
	return e.challenges.Join(ctx, userID, challengeID)
}

// LeaveChallenge abandons a participation.
func (e *Engine) LeaveChallenge(ctx context.Context, userID, challengeID string) error {
	return e.challenges.Leave(ctx, userID, challengeID)
}

// ChallengeDetail returns one challenge's metadata.
func (e *Engine) ChallengeDetail(ctx context.Context, challengeID string) (*Challenge, error) {
	return e.challenges.Get(ctx, challengeID)
}

// ActiveChallenges lists joinable challenges.
func (e *Engine) ActiveChallenges(ctx context.Context) ([]Challenge, error) {
	return e.challenges.ListActive(ctx)
}

// UserChallenges lists the user's participations with challenge metadata.
func (e *Engine) UserChallenges(ctx context.Context, userID, status string) ([]Participation, error) {
	return e.challenges.UserChallenges(ctx, userID, status)
}

// Leaderboard ranks a challenge's participants.
func (e *Engine) Leaderboard(ctx context.Context, challengeID string, limit int) ([]LeaderboardEntry, error) {
	return e.challenges.Leaderboard(ctx, challengeID, limit)
}

// UserBadges returns earned and locked badges. A user with no progress yet
// sees everything locked at zero percent.
func (e *Engine) UserBadges(ctx context.Context, userID string) (BadgeCollection, error) {
	snap, err := e.progress.Snapshot(ctx, userID)
	if err != nil && !errors.Is(err, ErrProgressNotFound) {
		return BadgeCollection{}, err
	}
	return e.badges.Collection(ctx, userID, snap)
}
