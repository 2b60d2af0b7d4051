// Package api exposes HTTP handlers for the gamification service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"example.com/gamification/internal/auth"
	"example.com/gamification/internal/domain"
	"example.com/gamification/internal/persistence"
)

// Handler coordinates HTTP requests with the progress and achievement engine.
type Handler struct {
	engine *domain.Engine
}

// NewHandler builds a Handler.
func NewHandler(engine *domain.Engine) *Handler {
	return &Handler{engine: engine}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/sessions", h.sessions)
	mux.HandleFunc("/v1/progress", h.progress)
	mux.HandleFunc("/v1/statistics", h.statistics)
	mux.HandleFunc("/v1/challenges", h.challenges)
	mux.HandleFunc("/v1/challenges/", h.challengeAction)
	mux.HandleFunc("/v1/users/me/challenges", h.userChallenges)
	mux.HandleFunc("/v1/users/me/badges", h.userBadges)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) sessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.recordSession(w, r)
	case http.MethodGet:
		h.listSessions(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) recordSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeGamificationWrite)
	if !ok {
		return
	}

	var req RecordSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	result, err := h.engine.RecordSession(r.Context(), domain.RecordSessionInput{
		UserID:          claims.Subject,
		WorkoutPlanID:   req.WorkoutPlanID,
		Exercises:       toExercises(req.Exercises),
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := RecordSessionResponse{
		Session:  toSessionView(result.Session),
		Progress: toSnapshotView(result.Snapshot),
	}
	for _, badge := range result.BadgesEarned {
		resp.BadgesEarned = append(resp.BadgesEarned, toBadgeView(badge))
	}
	for _, completed := range result.ChallengesCompleted {
		resp.ChallengesCompleted = append(resp.ChallengesCompleted, CompletedChallengeView{
			ChallengeID:  completed.Challenge.ID,
			Name:         completed.Challenge.Name,
			RewardPoints: completed.RewardPoints,
		})
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeGamificationRead, auth.ScopeGamificationWrite)
	if !ok {
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	sessions, next, err := h.engine.SessionHistory(r.Context(), claims.Subject, cursor, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]SessionView, 0, len(sessions))
	for _, session := range sessions {
		items = append(items, toSessionView(session))
	}
	writeJSON(w, http.StatusOK, ListSessionsResponse{
		Items:      items,
		NextCursor: persistence.EncodeCursor(next),
	})
}

func (h *Handler) progress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := requireScope(w, r, auth.ScopeGamificationRead, auth.ScopeGamificationWrite)
	if !ok {
		return
	}

	period := domain.ParsePeriod(r.URL.Query().Get("period"))
	view, err := h.engine.GetProgress(r.Context(), claims.Subject, period)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := ProgressResponse{
		Progress: toProgressView(view.Progress),
		NextMilestone: MilestoneView{
			Days:          view.Milestone.Next,
			DaysRemaining: view.Milestone.DaysRemaining,
			Progress:      view.Milestone.Progress,
		},
		WorkoutHistory: make([]SessionView, 0, len(view.WorkoutHistory)),
	}
	for _, session := range view.WorkoutHistory {
		resp.WorkoutHistory = append(resp.WorkoutHistory, toSessionView(session))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) statistics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := requireScope(w, r, auth.ScopeGamificationRead, auth.ScopeGamificationWrite)
	if !ok {
		return
	}

	period := domain.ParsePeriod(r.URL.Query().Get("period"))
	stats, err := h.engine.GetStatistics(r.Context(), claims.Subject, period)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := StatisticsResponse{
		Period:            string(period),
		TotalWorkouts:     stats.TotalWorkouts,
		TotalCalories:     stats.TotalCalories,
		TotalMinutes:      stats.TotalMinutes,
		AvgFormScore:      stats.AvgFormScore,
		ExerciseBreakdown: stats.ExerciseBreakdown,
		DailyActivity:     make([]DailyActivityView, 0, len(stats.DailyActivity)),
	}
	for _, day := range stats.DailyActivity {
		resp.DailyActivity = append(resp.DailyActivity, DailyActivityView(day))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) challenges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if _, ok := requireScope(w, r, auth.ScopeGamificationRead, auth.ScopeGamificationWrite); !ok {
		return
	}

	challenges, err := h.engine.ActiveChallenges(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]ChallengeView, 0, len(challenges))
	for _, challenge := range challenges {
		items = append(items, toChallengeView(challenge))
	}
	writeJSON(w, http.StatusOK, ListChallengesResponse{Items: items})
}

// challengeAction handles /v1/challenges/{id} and
// /v1/challenges/{id}/{join|leave|leaderboard}.
func (h *Handler) challengeAction(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/challenges/")
	parts := strings.SplitN(rest, "/", 2)
	if parts[0] == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing challenge id")
		return
	}
	if len(parts) == 1 {
		h.challengeDetail(w, r, parts[0])
		return
	}
	challengeID, action := parts[0], parts[1]

	switch action {
	case "join":
		h.joinChallenge(w, r, challengeID)
	case "leave":
		h.leaveChallenge(w, r, challengeID)
	case "leaderboard":
		h.leaderboard(w, r, challengeID)
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown challenge action")
	}
}

func (h *Handler) challengeDetail(w http.ResponseWriter, r *http.Request, challengeID string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if _, ok := requireScope(w, r, auth.ScopeGamificationRead, auth.ScopeGamificationWrite); !ok {
		return
	}

	challenge, err := h.engine.ChallengeDetail(r.Context(), challengeID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChallengeView(*challenge))
}

func (h *Handler) joinChallenge(w http.ResponseWriter, r *http.Request, challengeID string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := requireScope(w, r, auth.ScopeGamificationWrite)
	if !ok {
		return
	}

	result, err := h.engine.JoinChallenge(r.Context(), claims.Subject, challengeID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, JoinChallengeResponse{
		ChallengeID: challengeID,
		Status:      string(domain.ParticipantInProgress),
		Rejoined:    result.Rejoined,
	})
}

func (h *Handler) leaveChallenge(w http.ResponseWriter, r *http.Request, challengeID string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := requireScope(w, r, auth.ScopeGamificationWrite)
	if !ok {
		return
	}

	if err := h.engine.LeaveChallenge(r.Context(), claims.Subject, challengeID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LeaveChallengeResponse{
		ChallengeID: challengeID,
		Status:      string(domain.ParticipantAbandoned),
	})
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request, challengeID string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if _, ok := requireScope(w, r, auth.ScopeGamificationRead, auth.ScopeGamificationWrite); !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			if parsed > 100 {
				parsed = 100
			}
			limit = parsed
		}
	}

	entries, err := h.engine.Leaderboard(r.Context(), challengeID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]LeaderboardEntryView, 0, len(entries))
	for _, entry := range entries {
		items = append(items, LeaderboardEntryView{
			Rank:        entry.Rank,
			UserID:      entry.UserID,
			Progress:    entry.Progress,
			Status:      string(entry.Status),
			CompletedAt: entry.CompletedAt,
		})
	}
	writeJSON(w, http.StatusOK, LeaderboardResponse{ChallengeID: challengeID, Entries: items})
}

func (h *Handler) userChallenges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := requireScope(w, r, auth.ScopeGamificationRead, auth.ScopeGamificationWrite)
	if !ok {
		return
	}

	participations, err := h.engine.UserChallenges(r.Context(), claims.Subject, r.URL.Query().Get("status"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]ParticipationView, 0, len(participations))
	for _, p := range participations {
		items = append(items, ParticipationView{
			Challenge:         toChallengeView(p.Challenge),
			Progress:          p.Participant.Progress,
			Status:            string(p.Participant.Status),
			CompletionPercent: p.CompletionPercent(),
			JoinedAt:          p.Participant.CreatedAt,
			CompletedAt:       p.Participant.CompletedAt,
		})
	}
	writeJSON(w, http.StatusOK, UserChallengesResponse{Items: items})
}

func (h *Handler) userBadges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := requireScope(w, r, auth.ScopeGamificationRead, auth.ScopeGamificationWrite)
	if !ok {
		return
	}

	collection, err := h.engine.UserBadges(r.Context(), claims.Subject)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := UserBadgesResponse{
		Earned: make([]EarnedBadgeView, 0, len(collection.Earned)),
		Locked: make([]LockedBadgeView, 0, len(collection.Locked)),
	}
	for _, badge := range collection.Earned {
		resp.Earned = append(resp.Earned, EarnedBadgeView{
			BadgeView: toBadgeView(badge.Badge),
			EarnedAt:  badge.EarnedAt,
		})
	}
	for _, badge := range collection.Locked {
		resp.Locked = append(resp.Locked, LockedBadgeView{
			BadgeView: toBadgeView(badge.Badge),
			Progress:  badge.Progress,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// requireScope resolves claims and checks that at least one scope is present.
func requireScope(w http.ResponseWriter, r *http.Request, scopes ...string) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	for _, scope := range scopes {
		if claims.HasScope(scope) {
			return claims, true
		}
	}
	writeError(w, http.StatusForbidden, "forbidden", "scope "+scopes[0]+" required")
	return nil, false
}

// writeDomainError maps domain sentinel errors onto HTTP responses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidSession):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrProgressNotFound):
		writeError(w, http.StatusNotFound, "not_found", "no recorded sessions for user")
	case errors.Is(err, domain.ErrChallengeNotFound):
		writeError(w, http.StatusNotFound, "not_found", "challenge not found")
	case errors.Is(err, domain.ErrChallengeInactive),
		errors.Is(err, domain.ErrAlreadyJoined),
		errors.Is(err, domain.ErrChallengeAlreadyCompleted),
		errors.Is(err, domain.ErrNotJoined),
		errors.Is(err, domain.ErrCannotLeaveCompleted):
		writeError(w, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

// RecordSessionRequest is the payload for POST /v1/sessions.
type RecordSessionRequest struct {
	WorkoutPlanID   string            `json:"workout_plan_id,omitempty"`
	DurationMinutes int               `json:"duration_minutes"`
	Exercises       []ExercisePayload `json:"exercises"`
}

// ExercisePayload is one pre-scored exercise entry in a session payload.
type ExercisePayload struct {
	ExerciseName     string  `json:"exercise_name"`
	TotalReps        int     `json:"total_reps"`
	CaloriesBurned   float64 `json:"calories_burned"`
	AverageFormScore float64 `json:"average_form_score"`
	DurationSeconds  int     `json:"duration_seconds,omitempty"`
}

// RecordSessionResponse reports everything one session triggered.
type RecordSessionResponse struct {
	Session             SessionView              `json:"session"`
	Progress            SnapshotView             `json:"progress"`
	BadgesEarned        []BadgeView              `json:"badges_earned,omitempty"`
	ChallengesCompleted []CompletedChallengeView `json:"challenges_completed,omitempty"`
}

// SessionView exposes a stored workout session.
type SessionView struct {
	SessionID        string            `json:"session_id"`
	WorkoutPlanID    string            `json:"workout_plan_id,omitempty"`
	DurationMinutes  int               `json:"duration_minutes"`
	TotalCalories    float64           `json:"total_calories"`
	OverallFormScore float64           `json:"overall_form_score"`
	Exercises        []ExercisePayload `json:"exercises"`
	CreatedAt        time.Time         `json:"created_at"`
}

// ListSessionsResponse packages a session history page.
type ListSessionsResponse struct {
	Items      []SessionView `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// SnapshotView is the cumulative statistics snapshot.
type SnapshotView struct {
	TotalWorkouts    int     `json:"total_workouts"`
	TotalCalories    float64 `json:"total_calories"`
	TotalMinutes     float64 `json:"total_minutes"`
	CurrentStreak    int     `json:"current_streak"`
	LongestStreak    int     `json:"longest_streak"`
	Level            int     `json:"level"`
	ExperiencePoints int     `json:"experience_points"`
}

// PeriodStatsView is one rolling window's totals.
type PeriodStatsView struct {
	Workouts int     `json:"workouts"`
	Calories float64 `json:"calories"`
	Minutes  float64 `json:"minutes"`
}

// ProgressView exposes the full progress document.
type ProgressView struct {
	SnapshotView
	WeeklyStats     PeriodStatsView `json:"weekly_stats"`
	MonthlyStats    PeriodStatsView `json:"monthly_stats"`
	LastWorkoutDate *time.Time      `json:"last_workout_date,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// MilestoneView describes the next streak milestone.
type MilestoneView struct {
	Days          int     `json:"days"`
	DaysRemaining int     `json:"days_remaining"`
	Progress      float64 `json:"progress"`
}

// ProgressResponse is the body of GET /v1/progress.
type ProgressResponse struct {
	Progress       ProgressView  `json:"progress"`
	NextMilestone  MilestoneView `json:"next_milestone"`
	WorkoutHistory []SessionView `json:"workout_history"`
}

// DailyActivityView is one day's totals inside statistics.
type DailyActivityView struct {
	Date     string  `json:"date"`
	Workouts int     `json:"workouts"`
	Calories float64 `json:"calories"`
	Minutes  float64 `json:"minutes"`
}

// StatisticsResponse is the body of GET /v1/statistics.
type StatisticsResponse struct {
	Period            string              `json:"period"`
	TotalWorkouts     int                 `json:"total_workouts"`
	TotalCalories     float64             `json:"total_calories"`
	TotalMinutes      float64             `json:"total_minutes"`
	AvgFormScore      float64             `json:"avg_form_score"`
	ExerciseBreakdown map[string]int      `json:"exercise_breakdown"`
	DailyActivity     []DailyActivityView `json:"daily_activity"`
}

// ChallengeView exposes challenge metadata.
type ChallengeView struct {
	ChallengeID      string    `json:"challenge_id"`
	Name             string    `json:"name"`
	Type             string    `json:"type"`
	TargetValue      float64   `json:"target_value"`
	ExerciseName     string    `json:"exercise_name,omitempty"`
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
	RewardPoints     int       `json:"reward_points"`
	RewardBadges     []string  `json:"reward_badges,omitempty"`
	ParticipantCount int       `json:"participant_count"`
	DaysRemaining    int       `json:"days_remaining"`
}

// ListChallengesResponse packages active challenges.
type ListChallengesResponse struct {
	Items []ChallengeView `json:"items"`
}

// JoinChallengeResponse confirms an enrollment.
type JoinChallengeResponse struct {
	ChallengeID string `json:"challenge_id"`
	Status      string `json:"status"`
	Rejoined    bool   `json:"rejoined"`
}

// LeaveChallengeResponse confirms an abandonment.
type LeaveChallengeResponse struct {
	ChallengeID string `json:"challenge_id"`
	Status      string `json:"status"`
}

// CompletedChallengeView reports one completion inside a session response.
type CompletedChallengeView struct {
	ChallengeID  string `json:"challenge_id"`
	Name         string `json:"name"`
	RewardPoints int    `json:"reward_points"`
}

// ParticipationView joins participation state with challenge metadata.
type ParticipationView struct {
	Challenge         ChallengeView `json:"challenge"`
	Progress          float64       `json:"progress"`
	Status            string        `json:"status"`
	CompletionPercent float64       `json:"completion_percent"`
	JoinedAt          time.Time     `json:"joined_at"`
	CompletedAt       *time.Time    `json:"completed_at,omitempty"`
}

// UserChallengesResponse packages the caller's participations.
type UserChallengesResponse struct {
	Items []ParticipationView `json:"items"`
}

// LeaderboardEntryView is one ranked leaderboard row.
type LeaderboardEntryView struct {
	Rank        int        `json:"rank"`
	UserID      string     `json:"user_id"`
	Progress    float64    `json:"progress"`
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// LeaderboardResponse packages a challenge leaderboard.
type LeaderboardResponse struct {
	ChallengeID string                 `json:"challenge_id"`
	Entries     []LeaderboardEntryView `json:"entries"`
}

// BadgeView exposes badge metadata.
type BadgeView struct {
	BadgeID     string  `json:"badge_id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category,omitempty"`
	Tier        string  `json:"tier,omitempty"`
	Points      int     `json:"points"`
	Condition   string  `json:"condition"`
	Threshold   float64 `json:"threshold"`
}

// EarnedBadgeView pairs a badge with when it was earned.
type EarnedBadgeView struct {
	BadgeView
	EarnedAt time.Time `json:"earned_at"`
}

// LockedBadgeView pairs a badge with progress toward its condition.
type LockedBadgeView struct {
	BadgeView
	Progress float64 `json:"progress"`
}

// UserBadgesResponse splits the catalogue into earned and locked badges.
type UserBadgesResponse struct {
	Earned []EarnedBadgeView `json:"earned"`
	Locked []LockedBadgeView `json:"locked"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toExercises(payload []ExercisePayload) []domain.Exercise {
	out := make([]domain.Exercise, 0, len(payload))
	for _, ex := range payload {
		out = append(out, domain.Exercise(ex))
	}
	return out
}

func toSessionView(session domain.WorkoutSession) SessionView {
	exercises := make([]ExercisePayload, 0, len(session.Exercises))
	for _, ex := range session.Exercises {
		exercises = append(exercises, ExercisePayload(ex))
	}
	return SessionView{
		SessionID:        session.ID,
		WorkoutPlanID:    session.WorkoutPlanID,
		DurationMinutes:  session.DurationMinutes,
		TotalCalories:    session.TotalCalories,
		OverallFormScore: session.OverallFormScore,
		Exercises:        exercises,
		CreatedAt:        session.CreatedAt,
	}
}

func toSnapshotView(snap domain.ProgressSnapshot) SnapshotView {
	return SnapshotView{
		TotalWorkouts:    snap.TotalWorkouts,
		TotalCalories:    snap.TotalCalories,
		TotalMinutes:     snap.TotalMinutes,
		CurrentStreak:    snap.CurrentStreak,
		LongestStreak:    snap.LongestStreak,
		Level:            snap.Level,
		ExperiencePoints: snap.ExperiencePoints,
	}
}

func toProgressView(p domain.UserProgress) ProgressView {
	return ProgressView{
		SnapshotView:    toSnapshotView(p.Snapshot()),
		WeeklyStats:     PeriodStatsView(p.WeeklyStats),
		MonthlyStats:    PeriodStatsView(p.MonthlyStats),
		LastWorkoutDate: p.LastWorkoutDate,
		UpdatedAt:       p.UpdatedAt,
	}
}

func toChallengeView(c domain.Challenge) ChallengeView {
	return ChallengeView{
		ChallengeID:      c.ID,
		Name:             c.Name,
		Type:             string(c.Type),
		TargetValue:      c.Goal.TargetValue,
		ExerciseName:     c.Goal.ExerciseName,
		StartDate:        c.StartDate,
		EndDate:          c.EndDate,
		RewardPoints:     c.Rewards.Points,
		RewardBadges:     c.Rewards.Badges,
		ParticipantCount: c.ParticipantCount,
		DaysRemaining:    daysRemaining(c.EndDate),
	}
}

func daysRemaining(endDate time.Time) int {
	remaining := int(time.Until(endDate).Hours() / 24)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func toBadgeView(b domain.Badge) BadgeView {
	return BadgeView{
		BadgeID:     b.ID,
		Name:        b.Name,
		Description: b.Description,
		Category:    b.Category,
		Tier:        b.Tier,
		Points:      b.Points,
		Condition:   string(b.Condition.Type),
		Threshold:   b.Condition.Value,
	}
}
