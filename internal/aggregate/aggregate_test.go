package aggregate

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/fitchallenge/internal/domain"
	"example.com/fitchallenge/internal/ledger"
	"example.com/fitchallenge/internal/period"
)

func day(s string) time.Time {
	d, err := period.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

func fixture() ledger.Snapshot {
	return ledger.Snapshot{
		Participants: []domain.Participant{
			{ID: "p1", Name: "Asha", Team: "Blue"},
			{ID: "p2", Name: "Ben", Team: "Red"},
		},
		Categories: []domain.Category{
			{ID: "run", Name: "Running", PointsPerMinute: 7},
			{ID: "yoga", Name: "Yoga", PointsPerMinute: 4},
		},
		Activities: []domain.Activity{
			{ID: "a1", ParticipantID: "p1", Date: day("2026-10-12"), CategoryID: "yoga", WorkoutType: "Yoga", DurationMinutes: 20, Points: 80},
			{ID: "a2", ParticipantID: "p2", Date: day("2026-10-13"), CategoryID: "run", WorkoutType: "Running", DurationMinutes: 60, Points: 420},
			{ID: "a3", ParticipantID: "p1", Date: day("2026-10-14"), CategoryID: "run", WorkoutType: "Running", DurationMinutes: 30, Points: 210, StepsCount: 5000},
			{ID: "a4", ParticipantID: "p1", Date: day("2026-10-20"), CategoryID: "yoga", WorkoutType: "Yoga", DurationMinutes: 45, Points: 180},
			{ID: "a5", ParticipantID: "ghost", Date: day("2026-10-14"), CategoryID: "gone", WorkoutType: "Rowing", DurationMinutes: 15, Points: 75},
		},
	}
}

func TestSummarizeGroupsAndSorts(t *testing.T) {
	r := period.Range{Start: day("2026-10-12"), End: day("2026-10-18")}
	report := Summarize(fixture(), r, Filter{})

	assert.Equal(t, Totals{Minutes: 125, Points: 785, Steps: 5000, Activities: 4, Participants: 3}, report.Totals)

	require.Len(t, report.ByCategory, 3)
	assert.Equal(t, "Running", report.ByCategory[0].Label)
	assert.Equal(t, 90, report.ByCategory[0].Minutes)
	assert.Equal(t, 2, report.ByCategory[0].Activities)
	assert.InDelta(t, 45.0, report.ByCategory[0].AverageMinutes, 1e-9)
	assert.Equal(t, "Yoga", report.ByCategory[1].Label)
	assert.Equal(t, "Rowing", report.ByCategory[2].Label, "deleted category falls back to the workout type")

	require.Len(t, report.ByParticipant, 3)
	assert.Equal(t, "Ben", report.ByParticipant[0].Label)
	assert.Equal(t, "Red", report.ByParticipant[0].Team)
	assert.Equal(t, "Asha", report.ByParticipant[1].Label)
	assert.Equal(t, 50, report.ByParticipant[1].Minutes)
	assert.Equal(t, "ghost", report.ByParticipant[2].Label)
}

func TestSummarizeTiesKeepFirstEncounterOrder(t *testing.T) {
	snap := ledger.Snapshot{Activities: []domain.Activity{
		{ParticipantID: "p1", Date: day("2026-10-12"), WorkoutType: "Gym Training", DurationMinutes: 30},
		{ParticipantID: "p1", Date: day("2026-10-12"), WorkoutType: "Any Sport", DurationMinutes: 30},
		{ParticipantID: "p1", Date: day("2026-10-12"), WorkoutType: "Steps Only", StepsCount: 9000},
	}}
	report := Summarize(snap, period.Range{Start: day("2026-10-12"), End: day("2026-10-12")}, Filter{})

	require.Len(t, report.ByCategory, 3)
	assert.Equal(t, []string{"Gym Training", "Any Sport", "Steps Only"},
		[]string{report.ByCategory[0].Key, report.ByCategory[1].Key, report.ByCategory[2].Key})
	assert.Zero(t, report.ByCategory[2].AverageMinutes)
}

func TestFiltersAreConjunctive(t *testing.T) {
	r := period.Range{Start: day("2026-10-01"), End: day("2026-10-31")}

	report := Summarize(fixture(), r, Filter{CategoryID: "yoga", ParticipantID: "p1"})
	assert.Equal(t, 2, report.Totals.Activities)
	assert.Equal(t, 65, report.Totals.Minutes)

	report = Summarize(fixture(), r, Filter{CategoryID: "yoga", ParticipantID: "p2"})
	assert.Zero(t, report.Totals.Activities)
	assert.Empty(t, report.ByCategory)
	assert.Empty(t, report.ByParticipant)

	catalog := ledger.Snapshot{Activities: []domain.Activity{
		{ParticipantID: "p1", Date: day("2026-10-12"), WorkoutType: "Gym Training", DurationMinutes: 30},
		{ParticipantID: "p1", Date: day("2026-10-12"), WorkoutType: "Any Sport", DurationMinutes: 40},
	}}
	report = Summarize(catalog, r, Filter{CategoryID: "gym training"})
	assert.Equal(t, 30, report.Totals.Minutes)
}

func TestRangeBoundsAreInclusive(t *testing.T) {
	r := period.Range{Start: day("2026-10-12"), End: day("2026-10-13")}
	acts := Select(fixture(), r, Filter{})
	require.Len(t, acts, 2)
	assert.Equal(t, "a2", acts[0].ID)
	assert.Equal(t, "a1", acts[1].ID)
}

func TestTotalsReconcileWithBreakdowns(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	people := []string{"p1", "p2", "p3", "unknown"}
	cats := []string{"run", "yoga", ""}
	snap := fixture()
	snap.Activities = nil
	for i := 0; i < 300; i++ {
		snap.Activities = append(snap.Activities, domain.Activity{
			ParticipantID:   people[rng.Intn(len(people))],
			Date:            day("2026-10-01").AddDate(0, 0, rng.Intn(31)),
			CategoryID:      cats[rng.Intn(len(cats))],
			WorkoutType:     []string{"Gym Training", "Any Sport"}[rng.Intn(2)],
			DurationMinutes: rng.Intn(90),
			StepsCount:      rng.Intn(20000),
			Points:          rng.Intn(500),
		})
	}

	filters := []Filter{{}, {CategoryID: "run"}, {ParticipantID: "p2"}, {CategoryID: "yoga", ParticipantID: "unknown"}, {CategoryID: "Any Sport"}}
	ranges := []period.Range{
		{Start: day("2026-10-01"), End: day("2026-10-31")},
		{Start: day("2026-10-05"), End: day("2026-10-11")},
		{Start: day("2026-10-19"), End: day("2026-10-19")},
	}
	for _, f := range filters {
		for _, r := range ranges {
			report := Summarize(snap, r, f)
			for _, groups := range [][]Group{report.ByCategory, report.ByParticipant} {
				var sum Totals
				for _, g := range groups {
					sum.Minutes += g.Minutes
					sum.Points += g.Points
					sum.Steps += g.Steps
					sum.Activities += g.Activities
				}
				assert.Equal(t, report.Totals.Minutes, sum.Minutes)
				assert.Equal(t, report.Totals.Points, sum.Points)
				assert.Equal(t, report.Totals.Steps, sum.Steps)
				assert.Equal(t, report.Totals.Activities, sum.Activities)
			}
			assert.Len(t, report.ByParticipant, report.Totals.Participants)
		}
	}
}

func TestAggregatorReadsLiveStore(t *testing.T) {
	snap := fixture()
	snap.Activities = snap.Activities[:4] // a5 belongs to an unregistered participant
	store := ledger.NewStore()
	require.NoError(t, store.Restore(snap))

	agg := New(store)
	report := agg.Aggregate(period.Range{Start: day("2026-10-20"), End: day("2026-10-20")}, Filter{})
	assert.Equal(t, 180, report.Totals.Points)
	assert.Len(t, agg.Activities(period.Range{Start: day("2026-10-01"), End: day("2026-10-31")}, Filter{ParticipantID: "p2"}), 1)
}
