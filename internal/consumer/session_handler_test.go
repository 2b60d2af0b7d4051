package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/gamification/internal/domain"
)

type stubRecorder struct {
	calls int
	last  domain.RecordSessionInput
	err   error
}

func (r *stubRecorder) RecordSession(_ context.Context, input domain.RecordSessionInput) (*domain.SessionResult, error) {
	r.calls++
	r.last = input
	if r.err != nil {
		return nil, r.err
	}
	return &domain.SessionResult{Session: domain.WorkoutSession{ID: "session-1", UserID: input.UserID}}, nil
}

func TestSessionIngestHandlerRecordsSession(t *testing.T) {
	recorder := &stubRecorder{}
	handler := NewSessionIngestHandler(recorder, quietLogger())

	payload := `{
        "user_id": "user-1",
        "workout_plan_id": "plan-9",
        "duration_minutes": 30,
        "exercises": [
            {"exercise_name": "squat", "total_reps": 20, "calories_burned": 55.5, "average_form_score": 88, "duration_seconds": 300}
        ]
    }`

	err := handler.Handle(context.Background(), Message{
		EventType: EventSessionCompleted,
		Payload:   json.RawMessage(payload),
	})
	require.NoError(t, err)
	require.Equal(t, 1, recorder.calls)
	require.Equal(t, "user-1", recorder.last.UserID)
	require.Equal(t, "plan-9", recorder.last.WorkoutPlanID)
	require.Equal(t, 30, recorder.last.DurationMinutes)
	require.Len(t, recorder.last.Exercises, 1)
	require.Equal(t, "squat", recorder.last.Exercises[0].ExerciseName)
}

func TestSessionIngestHandlerIgnoresOtherEvents(t *testing.T) {
	recorder := &stubRecorder{}
	handler := NewSessionIngestHandler(recorder, quietLogger())

	err := handler.Handle(context.Background(), Message{
		EventType: "workout.plan.updated",
		Payload:   json.RawMessage(`{}`),
	})
	require.NoError(t, err)
	require.Equal(t, 0, recorder.calls)
}

func TestSessionIngestHandlerDropsInvalidSessions(t *testing.T) {
	recorder := &stubRecorder{err: domain.ErrInvalidSession}
	handler := NewSessionIngestHandler(recorder, quietLogger())

	err := handler.Handle(context.Background(), Message{
		EventType: EventSessionCompleted,
		Payload:   json.RawMessage(`{"user_id":"user-1","duration_minutes":0,"exercises":[]}`),
	})
	require.NoError(t, err)
	require.Equal(t, 1, recorder.calls)
}

func TestSessionIngestHandlerReturnsTransientErrors(t *testing.T) {
	transient := errors.New("connection refused")
	recorder := &stubRecorder{err: transient}
	handler := NewSessionIngestHandler(recorder, quietLogger())

	err := handler.Handle(context.Background(), Message{
		EventType: EventSessionCompleted,
		Payload:   json.RawMessage(`{"user_id":"user-1","duration_minutes":10,"exercises":[{"exercise_name":"squat"}]}`),
	})
	require.ErrorIs(t, err, transient)
}
