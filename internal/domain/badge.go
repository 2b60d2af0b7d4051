package domain

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// BadgeRepository persists earned badges. Award must be race-safe: two
// concurrent evaluations of the same user never produce two grants for the
// same badge.
type BadgeRepository interface {
	// ListBadges returns all badge definitions.
	ListBadges(ctx context.Context) ([]Badge, error)
	// EarnedBadgeIDs returns the set of badge IDs the user already holds.
	EarnedBadgeIDs(ctx context.Context, userID string) (map[string]struct{}, error)
	// Award inserts the grant if absent and, on insert, credits the badge's
	// points to the user's experience in the same transaction. Returns false
	// when the badge was already held.
	Award(ctx context.Context, userID string, badge Badge, earnedAt time.Time) (bool, error)
	// ListUserBadges returns the user's earned badges, newest first.
	ListUserBadges(ctx context.Context, userID string) ([]EarnedBadge, error)
}

// BadgeService is the award manager: it owns the user's earned-badge set.
type BadgeService struct {
	repo BadgeRepository
	log  logrus.FieldLogger
	now  func() time.Time
}

// NewBadgeService constructs a BadgeService.
func NewBadgeService(repo BadgeRepository, log logrus.FieldLogger) *BadgeService {
	return &BadgeService{repo: repo, log: log, now: time.Now}
}

// CheckAndAward evaluates every unearned badge against the snapshot and
// awards the satisfied ones. The insert-if-absent in the repository makes
// repeated or concurrent evaluation award each badge at most once. A failed
// award is logged and skipped so it cannot block the remaining badges.
func (s *BadgeService) CheckAndAward(ctx context.Context, userID string, snap ProgressSnapshot) ([]Badge, error) {
	badges, err := s.repo.ListBadges(ctx)
	if err != nil {
		return nil, err
	}
	earned, err := s.repo.EarnedBadgeIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var awarded []Badge
	for _, badge := range badges {
		if _, ok := earned[badge.ID]; ok {
			continue
		}
		if !ConditionMet(badge.Condition, snap) {
			continue
		}

		inserted, err := s.repo.Award(ctx, userID, badge, now)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"user_id":  userID,
				"badge_id": badge.ID,
			}).WithError(err).Warn("skipping badge award")
			continue
		}
		if inserted {
			s.log.WithFields(logrus.Fields{
				"user_id":  userID,
				"badge_id": badge.ID,
				"points":   badge.Points,
			}).Info("badge awarded")
			awarded = append(awarded, badge)
		}
	}
	return awarded, nil
}

// BadgeCollection splits the badge catalogue into earned and locked views.
type BadgeCollection struct {
	Earned []EarnedBadge
	Locked []LockedBadge
}

// Collection returns the user's earned badges and the remaining locked ones
// with completion percentages toward their conditions, closest first.
func (s *BadgeService) Collection(ctx context.Context, userID string, snap ProgressSnapshot) (BadgeCollection, error) {
	earned, err := s.repo.ListUserBadges(ctx, userID)
	if err != nil {
		return BadgeCollection{}, err
	}

	earnedIDs := make(map[string]struct{}, len(earned))
	for _, b := range earned {
		earnedIDs[b.ID] = struct{}{}
	}

	badges, err := s.repo.ListBadges(ctx)
	if err != nil {
		return BadgeCollection{}, err
	}

	locked := make([]LockedBadge, 0, len(badges))
	for _, badge := range badges {
		if _, ok := earnedIDs[badge.ID]; ok {
			continue
		}
		locked = append(locked, LockedBadge{
			Badge:    badge,
			Progress: ConditionProgress(badge.Condition, snap),
		})
	}
	sort.SliceStable(locked, func(i, j int) bool {
		return locked[i].Progress > locked[j].Progress
	})

	return BadgeCollection{Earned: earned, Locked: locked}, nil
}
