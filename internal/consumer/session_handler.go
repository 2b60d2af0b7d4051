package consumer

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/sirupsen/logrus"

	"example.com/gamification/internal/domain"
)

// EventSessionCompleted is the upstream event carrying a finished workout.
const EventSessionCompleted = "workout.session.completed"

type sessionRecorder interface {
	RecordSession(ctx context.Context, input domain.RecordSessionInput) (*domain.SessionResult, error)
}

// SessionIngestHandler feeds upstream workout session events into the engine.
type SessionIngestHandler struct {
	engine sessionRecorder
	log    logrus.FieldLogger
}

// NewSessionIngestHandler constructs a handler backed by the engine.
func NewSessionIngestHandler(engine sessionRecorder, log logrus.FieldLogger) *SessionIngestHandler {
	return &SessionIngestHandler{engine: engine, log: log}
}

// sessionCompletedPayload is the decoded upstream event body.
type sessionCompletedPayload struct {
	UserID          string `json:"user_id"`
	WorkoutPlanID   string `json:"workout_plan_id"`
	DurationMinutes int    `json:"duration_minutes"`
	Exercises       []struct {
		ExerciseName     string  `json:"exercise_name"`
		TotalReps        int     `json:"total_reps"`
		CaloriesBurned   float64 `json:"calories_burned"`
		AverageFormScore float64 `json:"average_form_score"`
		DurationSeconds  int     `json:"duration_seconds"`
	} `json:"exercises"`
}

// Handle records the session. Invalid payloads are logged and dropped so a
// bad upstream event cannot wedge the partition; transient errors are
// returned for redelivery.
func (h *SessionIngestHandler) Handle(ctx context.Context, msg Message) error {
	if msg.EventType != EventSessionCompleted {
		return nil
	}

	var payload sessionCompletedPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		h.log.WithFields(logrus.Fields{
			"topic":  msg.Topic,
			"offset": msg.Offset,
		}).WithError(err).Warn("dropping unparseable session event")
		return nil
	}

	input := domain.RecordSessionInput{
		UserID:          payload.UserID,
		WorkoutPlanID:   payload.WorkoutPlanID,
		DurationMinutes: payload.DurationMinutes,
	}
	for _, ex := range payload.Exercises {
		input.Exercises = append(input.Exercises, domain.Exercise{
			ExerciseName:     ex.ExerciseName,
			TotalReps:        ex.TotalReps,
			CaloriesBurned:   ex.CaloriesBurned,
			AverageFormScore: ex.AverageFormScore,
			DurationSeconds:  ex.DurationSeconds,
		})
	}

	result, err := h.engine.RecordSession(ctx, input)
	if errors.Is(err, domain.ErrInvalidSession) {
		h.log.WithFields(logrus.Fields{
			"user_id": payload.UserID,
			"offset":  msg.Offset,
		}).WithError(err).Warn("dropping invalid session event")
		return nil
	}
	if err != nil {
		return err
	}

	h.log.WithFields(logrus.Fields{
		"user_id":    payload.UserID,
		"session_id": result.Session.ID,
	}).Info("session ingested from stream")
	return nil
}
