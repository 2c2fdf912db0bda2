package consistency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/fitchallenge/internal/domain"
	"example.com/fitchallenge/internal/ledger"
	"example.com/fitchallenge/internal/period"
	"example.com/fitchallenge/internal/scoring"
)

func day(s string) time.Time {
	d, err := period.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

func on(participantID string, days ...string) []domain.Activity {
	out := make([]domain.Activity, 0, len(days))
	for _, d := range days {
		out = append(out, domain.Activity{ParticipantID: participantID, Date: day(d), WorkoutType: "Steps Only"})
	}
	return out
}

func snapshot() ledger.Snapshot {
	snap := ledger.Snapshot{
		Participants: []domain.Participant{
			{ID: "p1", Name: "Asha", Status: domain.StatusActive},
			{ID: "p2", Name: "Ben", Status: domain.StatusActive},
			{ID: "p3", Name: "Chen", Status: domain.StatusInactive},
			{ID: "p4", Name: "Dana", Status: domain.StatusActive},
		},
	}
	// p1: five distinct days, one repeated. p2: every day. p3 inactive. p4 two days.
	snap.Activities = append(snap.Activities, on("p1", "2026-10-12", "2026-10-13", "2026-10-14", "2026-10-15", "2026-10-16", "2026-10-16")...)
	snap.Activities = append(snap.Activities, on("p2", "2026-10-12", "2026-10-13", "2026-10-14", "2026-10-15", "2026-10-16", "2026-10-17", "2026-10-18")...)
	snap.Activities = append(snap.Activities, on("p3", "2026-10-12", "2026-10-13", "2026-10-14")...)
	snap.Activities = append(snap.Activities, on("p4", "2026-10-11", "2026-10-12", "2026-10-19", "2026-10-13")...)
	snap.Bonuses = []domain.WeeklyBonus{{ParticipantID: "p2", WeekStart: day("2026-10-12"), Points: 1000}}
	return snap
}

func TestEvaluateWeek(t *testing.T) {
	week := period.WeekOf(day("2026-10-15"), 0)
	eval := Evaluate(snapshot(), week, scoring.DefaultRules().ConsistencyTiers)

	require.Len(t, eval.Standings, 3)

	ben := eval.Standings[0]
	assert.Equal(t, "p2", ben.ParticipantID)
	assert.Equal(t, 7, ben.ActiveDays)
	assert.Equal(t, 1000, ben.BonusPoints)
	assert.Equal(t, "Every day", ben.BonusLabel)
	assert.True(t, ben.AlreadyAwarded)

	asha := eval.Standings[1]
	assert.Equal(t, 5, asha.ActiveDays)
	assert.Equal(t, 800, asha.BonusPoints)
	assert.Equal(t, "5 days/week", asha.BonusLabel)
	assert.False(t, asha.AlreadyAwarded)

	dana := eval.Standings[2]
	assert.Equal(t, 2, dana.ActiveDays)
	assert.Equal(t, scoring.NoBonusLabel, dana.BonusLabel)

	awards := eval.Awards()
	require.Len(t, awards, 1)
	assert.Equal(t, "p1", awards[0].ParticipantID)
	assert.Equal(t, 800, awards[0].Points)
	assert.Equal(t, "2026-10-12", period.FormatDay(awards[0].WeekStart))
	assert.Equal(t, "2026-10-18", period.FormatDay(awards[0].WeekEnd))
}

func TestEvaluatorOffsets(t *testing.T) {
	store := ledger.NewStore()
	require.NoError(t, store.Restore(snapshot()))
	now := func() time.Time { return time.Date(2026, time.October, 21, 12, 0, 0, 0, time.UTC) }
	ev := NewEvaluator(store, scoring.DefaultRules().ConsistencyTiers, now)

	current, err := ev.Evaluate(0)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-19..2026-10-25", current.Week.String())
	assert.Equal(t, "p4", current.Standings[0].ParticipantID)

	previous, err := ev.Evaluate(1)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-12..2026-10-18", previous.Week.String())
	assert.Equal(t, "p2", previous.Standings[0].ParticipantID)

	_, err = ev.Evaluate(-1)
	require.True(t, domain.IsValidation(err))
}
