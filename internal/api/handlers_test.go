package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"example.com/gamification/internal/auth"
	"example.com/gamification/internal/domain"
)

func quietLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type fixture struct {
	handler    http.Handler
	progress   *stubProgressRepo
	challenges *stubChallengeRepo
	badges     *stubBadgeRepo
}

func newFixture() *fixture {
	progress := &stubProgressRepo{
		progress: make(map[string]*domain.UserProgress),
		sessions: make(map[string][]domain.WorkoutSession),
	}
	challenges := &stubChallengeRepo{
		challenges:   make(map[string]*domain.Challenge),
		participants: make(map[string]*domain.ChallengeParticipant),
		leaderboard:  make(map[string][]domain.LeaderboardEntry),
	}
	badges := &stubBadgeRepo{earned: make(map[string]map[string]time.Time)}

	log := quietLogger()
	engine := domain.NewEngine(
		domain.NewProgressService(progress, log),
		domain.NewChallengeService(challenges, log),
		domain.NewBadgeService(badges, log),
		log,
	)

	mux := http.NewServeMux()
	NewHandler(engine).RegisterRoutes(mux)

	return &fixture{handler: mux, progress: progress, challenges: challenges, badges: badges}
}

func writerClaims(userID string) *auth.Claims {
	return &auth.Claims{
		Subject: userID,
		Scopes:  map[string]struct{}{auth.ScopeGamificationWrite: {}},
	}
}

func readerClaims(userID string) *auth.Claims {
	return &auth.Claims{
		Subject: userID,
		Scopes:  map[string]struct{}{auth.ScopeGamificationRead: {}},
	}
}

func (f *fixture) do(t *testing.T, method, target string, body interface{}, claims *auth.Claims) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, target, reader)
	if claims != nil {
		req = req.WithContext(auth.WithClaims(req.Context(), claims))
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func errorType(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload["type"]
}

func TestRecordSessionHappyPath(t *testing.T) {
	f := newFixture()
	f.badges.badges = []domain.Badge{{
		ID:        "first-workout",
		Name:      "First Workout",
		Points:    25,
		Condition: domain.BadgeCondition{Type: domain.ConditionWorkoutCount, Value: 1},
	}}

	rec := f.do(t, http.MethodPost, "/v1/sessions", RecordSessionRequest{
		DurationMinutes: 30,
		Exercises: []ExercisePayload{
			{ExerciseName: "squat", TotalReps: 20, CaloriesBurned: 120, AverageFormScore: 0.9},
		},
	}, writerClaims("user-1"))

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp RecordSessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Session.SessionID)
	require.Equal(t, 120.0, resp.Session.TotalCalories)
	require.Equal(t, 1, resp.Progress.TotalWorkouts)
	require.Equal(t, 1, resp.Progress.CurrentStreak)
	require.Equal(t, 50, resp.Progress.ExperiencePoints)
	require.Equal(t, 1, resp.Progress.Level)
	require.Len(t, resp.BadgesEarned, 1)
	require.Equal(t, "first-workout", resp.BadgesEarned[0].BadgeID)
}

func TestRecordSessionRejectsEmptyExercises(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/v1/sessions", RecordSessionRequest{
		DurationMinutes: 30,
	}, writerClaims("user-1"))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "validation_failed", errorType(t, rec))
}

func TestRecordSessionRequiresWriteScope(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/v1/sessions", RecordSessionRequest{
		DurationMinutes: 30,
		Exercises:       []ExercisePayload{{ExerciseName: "squat", TotalReps: 10}},
	}, readerClaims("user-1"))

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "forbidden", errorType(t, rec))
}

func TestMissingClaimsIsUnauthorized(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/v1/progress", nil, nil)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "unauthorized", errorType(t, rec))
}

func TestProgressNotFoundForNewUser(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/v1/progress", nil, readerClaims("nobody"))

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "not_found", errorType(t, rec))
}

func TestProgressReturnsMilestoneAndHistory(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/v1/sessions", RecordSessionRequest{
		DurationMinutes: 20,
		Exercises:       []ExercisePayload{{ExerciseName: "pushup", TotalReps: 30, CaloriesBurned: 80}},
	}, writerClaims("user-1"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/progress?period=week", nil, readerClaims("user-1"))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ProgressResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Progress.TotalWorkouts)
	require.Equal(t, 7, resp.NextMilestone.Days)
	require.Equal(t, 6, resp.NextMilestone.DaysRemaining)
	require.Len(t, resp.WorkoutHistory, 1)
}

func TestJoinChallengeStateMachine(t *testing.T) {
	f := newFixture()
	f.challenges.seedChallenge(domain.Challenge{
		ID:     "ch-1",
		Name:   "Calorie Burn",
		Type:   domain.ChallengeCalories,
		Goal:   domain.ChallengeGoal{TargetValue: 1000},
		Status: domain.ChallengeActive,
	})

	rec := f.do(t, http.MethodPost, "/v1/challenges/ch-1/join", nil, writerClaims("user-1"))
	require.Equal(t, http.StatusOK, rec.Code)

	var joined JoinChallengeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &joined))
	require.False(t, joined.Rejoined)
	require.Equal(t, string(domain.ParticipantInProgress), joined.Status)

	// Double join conflicts.
	rec = f.do(t, http.MethodPost, "/v1/challenges/ch-1/join", nil, writerClaims("user-1"))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "invalid_state", errorType(t, rec))

	// Leave, then rejoin reactivates the abandoned record.
	rec = f.do(t, http.MethodPost, "/v1/challenges/ch-1/leave", nil, writerClaims("user-1"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/challenges/ch-1/join", nil, writerClaims("user-1"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &joined))
	require.True(t, joined.Rejoined)
}

func TestChallengeDetail(t *testing.T) {
	f := newFixture()
	f.challenges.seedChallenge(domain.Challenge{
		ID:      "ch-1",
		Name:    "Calorie Burn",
		Type:    domain.ChallengeCalories,
		Goal:    domain.ChallengeGoal{TargetValue: 1000},
		Status:  domain.ChallengeActive,
		EndDate: time.Now().Add(72 * time.Hour),
	})

	rec := f.do(t, http.MethodGet, "/v1/challenges/ch-1", nil, readerClaims("viewer"))
	require.Equal(t, http.StatusOK, rec.Code)

	var view ChallengeView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, "ch-1", view.ChallengeID)
	require.Equal(t, "Calorie Burn", view.Name)
	require.GreaterOrEqual(t, view.DaysRemaining, 2)

	rec = f.do(t, http.MethodGet, "/v1/challenges/missing", nil, readerClaims("viewer"))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "not_found", errorType(t, rec))
}

func TestJoinUnknownChallengeIsNotFound(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/v1/challenges/missing/join", nil, writerClaims("user-1"))

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "not_found", errorType(t, rec))
}

func TestLeaveWithoutJoiningConflicts(t *testing.T) {
	f := newFixture()
	f.challenges.seedChallenge(domain.Challenge{ID: "ch-1", Status: domain.ChallengeActive})

	rec := f.do(t, http.MethodPost, "/v1/challenges/ch-1/leave", nil, writerClaims("user-1"))

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "invalid_state", errorType(t, rec))
}

func TestLeaderboardAssignsSequentialRanks(t *testing.T) {
	f := newFixture()
	f.challenges.seedChallenge(domain.Challenge{ID: "ch-1", Status: domain.ChallengeActive})
	f.challenges.leaderboard["ch-1"] = []domain.LeaderboardEntry{
		{UserID: "user-a", Progress: 90, Status: domain.ParticipantInProgress},
		{UserID: "user-b", Progress: 90, Status: domain.ParticipantInProgress},
		{UserID: "user-c", Progress: 50, Status: domain.ParticipantInProgress},
	}

	rec := f.do(t, http.MethodGet, "/v1/challenges/ch-1/leaderboard", nil, readerClaims("viewer"))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp LeaderboardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Entries, 3)
	require.Equal(t, []LeaderboardEntryView{
		{Rank: 1, UserID: "user-a", Progress: 90, Status: "in_progress"},
		{Rank: 2, UserID: "user-b", Progress: 90, Status: "in_progress"},
		{Rank: 3, UserID: "user-c", Progress: 50, Status: "in_progress"},
	}, resp.Entries)
}

func TestUserBadgesWithoutProgressShowsEverythingLocked(t *testing.T) {
	f := newFixture()
	f.badges.badges = []domain.Badge{
		{ID: "b-1", Name: "Ten Workouts", Condition: domain.BadgeCondition{Type: domain.ConditionWorkoutCount, Value: 10}},
		{ID: "b-2", Name: "Level Five", Condition: domain.BadgeCondition{Type: domain.ConditionLevel, Value: 5}},
	}

	rec := f.do(t, http.MethodGet, "/v1/users/me/badges", nil, readerClaims("new-user"))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp UserBadgesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.Earned)
	require.Len(t, resp.Locked, 2)
	for _, badge := range resp.Locked {
		require.Zero(t, badge.Progress)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodDelete, "/v1/progress", nil, writerClaims("user-1"))

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Equal(t, "method_not_allowed", errorType(t, rec))
}

type stubProgressRepo struct {
	progress map[string]*domain.UserProgress
	sessions map[string][]domain.WorkoutSession
}

func (r *stubProgressRepo) GetProgress(_ context.Context, userID string) (*domain.UserProgress, error) {
	stored, ok := r.progress[userID]
	if !ok {
		return nil, nil
	}
	copied := *stored
	return &copied, nil
}

func (r *stubProgressRepo) ApplySession(_ context.Context, session domain.WorkoutSession, progress domain.UserProgress, _ domain.WorkoutStreak) error {
	progress.Version++
	r.progress[progress.UserID] = &progress
	r.sessions[session.UserID] = append(r.sessions[session.UserID], session)
	return nil
}

func (r *stubProgressRepo) ListSessions(_ context.Context, userID string, since time.Time, limit int) ([]domain.WorkoutSession, error) {
	stored := r.sessions[userID]
	out := make([]domain.WorkoutSession, 0, len(stored))
	for i := len(stored) - 1; i >= 0 && len(out) < limit; i-- {
		if stored[i].CreatedAt.Before(since) {
			continue
		}
		out = append(out, stored[i])
	}
	return out, nil
}

func (r *stubProgressRepo) ListSessionHistory(_ context.Context, userID string, _ *domain.SessionCursor, limit int) ([]domain.WorkoutSession, *domain.SessionCursor, error) {
	sessions, err := r.ListSessions(context.Background(), userID, time.Time{}, limit)
	return sessions, nil, err
}

type stubChallengeRepo struct {
	challenges   map[string]*domain.Challenge
	participants map[string]*domain.ChallengeParticipant
	leaderboard  map[string][]domain.LeaderboardEntry
}

func (r *stubChallengeRepo) seedChallenge(challenge domain.Challenge) {
	r.challenges[challenge.ID] = &challenge
}

func participantKey(userID, challengeID string) string {
	return userID + ":" + challengeID
}

func (r *stubChallengeRepo) GetChallenge(_ context.Context, challengeID string) (*domain.Challenge, error) {
	stored, ok := r.challenges[challengeID]
	if !ok {
		return nil, nil
	}
	copied := *stored
	return &copied, nil
}

func (r *stubChallengeRepo) ListActiveChallenges(_ context.Context) ([]domain.Challenge, error) {
	out := make([]domain.Challenge, 0, len(r.challenges))
	for _, challenge := range r.challenges {
		if challenge.Status == domain.ChallengeActive {
			out = append(out, *challenge)
		}
	}
	return out, nil
}

func (r *stubChallengeRepo) GetParticipant(_ context.Context, userID, challengeID string) (*domain.ChallengeParticipant, error) {
	stored, ok := r.participants[participantKey(userID, challengeID)]
	if !ok {
		return nil, nil
	}
	copied := *stored
	return &copied, nil
}

func (r *stubChallengeRepo) CreateParticipant(_ context.Context, participant domain.ChallengeParticipant) error {
	key := participantKey(participant.UserID, participant.ChallengeID)
	if _, exists := r.participants[key]; exists {
		return domain.ErrAlreadyJoined
	}
	r.participants[key] = &participant
	if challenge, ok := r.challenges[participant.ChallengeID]; ok {
		challenge.ParticipantCount++
	}
	return nil
}

func (r *stubChallengeRepo) ReactivateParticipant(_ context.Context, userID, challengeID string, at time.Time) error {
	stored, ok := r.participants[participantKey(userID, challengeID)]
	if !ok || stored.Status != domain.ParticipantAbandoned {
		return domain.ErrNotJoined
	}
	stored.Status = domain.ParticipantInProgress
	stored.Progress = 0
	stored.CompletedAt = nil
	stored.UpdatedAt = at
	if challenge, ok := r.challenges[challengeID]; ok {
		challenge.ParticipantCount++
	}
	return nil
}

func (r *stubChallengeRepo) AbandonParticipant(_ context.Context, userID, challengeID string, at time.Time) error {
	stored, ok := r.participants[participantKey(userID, challengeID)]
	if !ok || stored.Status != domain.ParticipantInProgress {
		return domain.ErrNotJoined
	}
	stored.Status = domain.ParticipantAbandoned
	stored.UpdatedAt = at
	if challenge, ok := r.challenges[challengeID]; ok {
		challenge.ParticipantCount--
	}
	return nil
}

func (r *stubChallengeRepo) AdvanceParticipant(_ context.Context, userID, challengeID string, increment, target float64, _ int, at time.Time) (bool, error) {
	stored, ok := r.participants[participantKey(userID, challengeID)]
	if !ok || stored.Status != domain.ParticipantInProgress {
		return false, nil
	}
	stored.Progress += increment
	stored.UpdatedAt = at
	if stored.Progress < target {
		return false, nil
	}
	stored.Status = domain.ParticipantCompleted
	stored.CompletedAt = &at
	return true, nil
}

func (r *stubChallengeRepo) ListInProgress(_ context.Context, userID string) ([]domain.ChallengeParticipant, error) {
	out := make([]domain.ChallengeParticipant, 0)
	for _, participant := range r.participants {
		if participant.UserID == userID && participant.Status == domain.ParticipantInProgress {
			out = append(out, *participant)
		}
	}
	return out, nil
}

func (r *stubChallengeRepo) ListParticipations(_ context.Context, userID string, status domain.ParticipantStatus) ([]domain.Participation, error) {
	out := make([]domain.Participation, 0)
	for _, participant := range r.participants {
		if participant.UserID != userID {
			continue
		}
		if status != "" && participant.Status != status {
			continue
		}
		challenge, ok := r.challenges[participant.ChallengeID]
		if !ok {
			continue
		}
		out = append(out, domain.Participation{Challenge: *challenge, Participant: *participant})
	}
	return out, nil
}

func (r *stubChallengeRepo) ListLeaderboard(_ context.Context, challengeID string, limit int) ([]domain.LeaderboardEntry, error) {
	entries := r.leaderboard[challengeID]
	if len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]domain.LeaderboardEntry, len(entries))
	copy(out, entries)
	return out, nil
}

type stubBadgeRepo struct {
	badges []domain.Badge
	earned map[string]map[string]time.Time
}

func (r *stubBadgeRepo) ListBadges(_ context.Context) ([]domain.Badge, error) {
	out := make([]domain.Badge, len(r.badges))
	copy(out, r.badges)
	return out, nil
}

func (r *stubBadgeRepo) EarnedBadgeIDs(_ context.Context, userID string) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	for badgeID := range r.earned[userID] {
		out[badgeID] = struct{}{}
	}
	return out, nil
}

func (r *stubBadgeRepo) Award(_ context.Context, userID string, badge domain.Badge, earnedAt time.Time) (bool, error) {
	held, ok := r.earned[userID]
	if !ok {
		held = make(map[string]time.Time)
		r.earned[userID] = held
	}
	if _, exists := held[badge.ID]; exists {
		return false, nil
	}
	held[badge.ID] = earnedAt
	return true, nil
}

func (r *stubBadgeRepo) ListUserBadges(_ context.Context, userID string) ([]domain.EarnedBadge, error) {
	out := make([]domain.EarnedBadge, 0)
	for _, badge := range r.badges {
		if earnedAt, ok := r.earned[userID][badge.ID]; ok {
			out = append(out, domain.EarnedBadge{Badge: badge, EarnedAt: earnedAt})
		}
	}
	return out, nil
}
