package consumer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"example.com/fitchallenge/internal/challenge"
	"example.com/fitchallenge/internal/ledger"
	"example.com/fitchallenge/internal/platform/events"
	"example.com/fitchallenge/internal/scoring"
)

var fixedNow = time.Date(2026, time.October, 21, 10, 0, 0, 0, time.UTC)

func newHandler(t *testing.T) (*SubmissionHandler, *ledger.Store) {
	t.Helper()
	now := func() time.Time { return fixedNow }
	store := ledger.NewStore(ledger.WithClock(now), ledger.WithLogger(zaptest.NewLogger(t)))
	scorer, err := scoring.New(scoring.ModeCatalog, scoring.DefaultRules(), store)
	require.NoError(t, err)
	svc := challenge.NewService(store, scorer, challenge.WithClock(now), challenge.WithLogger(zaptest.NewLogger(t)))

	_, err = svc.CreateParticipant(context.Background(), challenge.CreateParticipantInput{
		ID: "p-1", EmployeeID: "E-1", Name: "Asha", Team: "Ops", Email: "asha@example.com",
	})
	require.NoError(t, err)
	return NewSubmissionHandler(svc, zaptest.NewLogger(t)), store
}

func submission(t *testing.T, sub events.ActivitySubmission) Message {
	t.Helper()
	payload, err := json.Marshal(sub)
	require.NoError(t, err)
	return Message{Topic: "activity_submissions", EventType: events.ActivitySubmissionType, Payload: payload}
}

func TestSubmissionHandlerRecordsActivityOnce(t *testing.T) {
	handler, store := newHandler(t)
	ctx := context.Background()

	msg := submission(t, events.ActivitySubmission{
		SubmissionID:    "watch-123",
		ParticipantID:   "p-1",
		Date:            "2026-10-20",
		WorkoutType:     "Gym Training",
		DurationMinutes: 45,
		Details:         "upper body",
		Source:          "watch",
	})

	require.NoError(t, handler.Handle(ctx, msg))
	require.NoError(t, handler.Handle(ctx, msg), "redelivery is acknowledged")

	p, err := store.Participant("p-1")
	require.NoError(t, err)
	assert.Equal(t, 200, p.TotalPoints)

	stmt, err := store.Statement("p-1")
	require.NoError(t, err)
	require.Len(t, stmt.Activities, 1)
	assert.Equal(t, "watch-123", stmt.Activities[0].IdempotencyKey)
}

func TestSubmissionHandlerRejectsPermanentFailures(t *testing.T) {
	handler, _ := newHandler(t)
	ctx := context.Background()

	cases := map[string]Message{
		"wrong event type": {EventType: "challenge.other", Payload: []byte(`{}`)},
		"bad json":         {EventType: events.ActivitySubmissionType, Payload: []byte(`[1,2]`)},
		"no submission id": submission(t, events.ActivitySubmission{ParticipantID: "p-1"}),
		"bad date":         submission(t, events.ActivitySubmission{SubmissionID: "s", ParticipantID: "p-1", Date: "20/10/2026"}),
		"unknown participant": submission(t, events.ActivitySubmission{
			SubmissionID: "s", ParticipantID: "ghost", WorkoutType: "Gym Training", DurationMinutes: 30, Details: "x",
		}),
		"unknown workout": submission(t, events.ActivitySubmission{
			SubmissionID: "s", ParticipantID: "p-1", WorkoutType: "Underwater Chess", DurationMinutes: 30, Details: "x",
		}),
		"future date": submission(t, events.ActivitySubmission{
			SubmissionID: "s", ParticipantID: "p-1", Date: "2026-10-30", WorkoutType: "Gym Training", DurationMinutes: 30, Details: "x",
		}),
	}

	for name, msg := range cases {
		t.Run(name, func(t *testing.T) {
			err := handler.Handle(ctx, msg)
			require.ErrorIs(t, err, ErrPoison)
		})
	}
}
