// Package domain implements the progress and achievement engine: cumulative
// statistics, streaks, challenge participation, badge awards, and ranked
// leaderboards.
package domain

import "errors"

var (
	// ErrProgressNotFound is returned when a user has no recorded progress yet.
	ErrProgressNotFound = errors.New("user progress not found")
	// ErrChallengeNotFound is returned when a challenge definition is absent.
	ErrChallengeNotFound = errors.New("challenge not found")
	// ErrChallengeInactive rejects joining a challenge that is not active.
	ErrChallengeInactive = errors.New("challenge is not active")
	// ErrAlreadyJoined rejects joining a challenge twice.
	ErrAlreadyJoined = errors.New("already joined this challenge")
	// ErrChallengeAlreadyCompleted rejects rejoining a completed challenge.
	ErrChallengeAlreadyCompleted = errors.New("challenge already completed")
	// ErrNotJoined rejects leaving a challenge without an active participation.
	ErrNotJoined = errors.New("not participating in this challenge")
	// ErrCannotLeaveCompleted rejects abandoning a completed challenge.
	ErrCannotLeaveCompleted = errors.New("cannot leave a completed challenge")
	// ErrInvalidSession flags malformed session input rejected before any write.
	ErrInvalidSession = errors.New("invalid workout session")
	// ErrVersionConflict signals an optimistic concurrency clash; callers retry
	// the whole logical operation.
	ErrVersionConflict = errors.New("progress version conflict")
	// ErrConflict is surfaced once contention retries are exhausted.
	ErrConflict = errors.New("persistent write contention")
)
