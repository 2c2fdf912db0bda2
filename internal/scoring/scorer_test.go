package scoring

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/fitchallenge/internal/domain"
)

type stubCategories map[string]domain.Category

func (s stubCategories) Category(id string) (domain.Category, error) {
	cat, ok := s[id]
	if !ok {
		return domain.Category{}, domain.ErrCategoryNotFound
	}
	return cat, nil
}

func newCatalogScorer(t *testing.T) *Scorer {
	t.Helper()
	s, err := New(ModeCatalog, DefaultRules(), nil)
	require.NoError(t, err)
	return s
}

func TestCatalogBelowMinimumDurationEarnsNothing(t *testing.T) {
	s := newCatalogScorer(t)

	res, err := s.Score(Submission{WorkoutType: "Simple Cardio", DurationMinutes: 10})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Total)
	assert.Equal(t, "Simple Cardio", res.WorkoutType)
}

func TestCatalogAddsStepSlab(t *testing.T) {
	s := newCatalogScorer(t)

	res, err := s.Score(Submission{WorkoutType: "simple cardio", DurationMinutes: 20, StepsCount: 9000})
	require.NoError(t, err)
	assert.Equal(t, 100, res.WorkoutPoints)
	assert.Equal(t, 80, res.StepPoints)
	assert.Equal(t, 180, res.Total)
	assert.Equal(t, "Simple Cardio", res.WorkoutType)
}

func TestStepsOnlyIgnoresDuration(t *testing.T) {
	s := newCatalogScorer(t)

	res, err := s.Score(Submission{WorkoutType: StepsOnlyWorkout, DurationMinutes: 120, StepsCount: 21000})
	require.NoError(t, err)
	assert.Equal(t, 0, res.WorkoutPoints)
	assert.Equal(t, 500, res.Total)
}

func TestStepPointsHighestSlabWins(t *testing.T) {
	slabs := DefaultRules().StepSlabs
	cases := map[int]int{0: 0, 7999: 0, 8000: 80, 10000: 150, 14999: 150, 15000: 300, 19999: 300, 20000: 500, 50000: 500}
	for steps, want := range cases {
		assert.Equal(t, want, StepPoints(slabs, steps), "steps=%d", steps)
	}
}

func TestRulesAreOrderedHighestFirst(t *testing.T) {
	rules := Rules{
		StepSlabs:        []StepSlab{{MinSteps: 8000, Points: 80}, {MinSteps: 20000, Points: 500}},
		ConsistencyTiers: []ConsistencyTier{{Days: 3, Points: 500, Label: "3"}, {Days: 7, Points: 1000, Label: "7"}},
	}
	s, err := New(ModeCatalog, rules, nil)
	require.NoError(t, err)

	assert.Equal(t, 500, StepPoints(s.Rules().StepSlabs, 25000))
	points, label := ConsistencyBonus(s.Rules().ConsistencyTiers, 7)
	assert.Equal(t, 1000, points)
	assert.Equal(t, "7", label)
}

func TestConsistencyBonusTiers(t *testing.T) {
	tiers := DefaultRules().ConsistencyTiers
	cases := []struct {
		days   int
		points int
		label  string
	}{
		{0, 0, NoBonusLabel},
		{2, 0, NoBonusLabel},
		{3, 500, "3 days/week"},
		{4, 500, "3 days/week"},
		{5, 800, "5 days/week"},
		{6, 800, "5 days/week"},
		{7, 1000, "Every day"},
	}
	for _, tc := range cases {
		points, label := ConsistencyBonus(tiers, tc.days)
		assert.Equal(t, tc.points, points, "days=%d", tc.days)
		assert.Equal(t, tc.label, label, "days=%d", tc.days)
	}
}

func TestCatalogRejectsUnknownAndMismatchedInput(t *testing.T) {
	s := newCatalogScorer(t)

	_, err := s.Score(Submission{WorkoutType: "Underwater Chess", DurationMinutes: 30})
	require.ErrorIs(t, err, domain.ErrUnknownWorkoutType)
	require.True(t, domain.IsValidation(err))

	_, err = s.Score(Submission{WorkoutType: "Gym Training", CategoryID: "cat-1", DurationMinutes: 30})
	require.ErrorIs(t, err, domain.ErrVariantMismatch)
}

func TestNegativeInputsAreRejected(t *testing.T) {
	s := newCatalogScorer(t)

	_, err := s.Score(Submission{WorkoutType: "Gym Training", DurationMinutes: -5})
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "duration_minutes", verr.Field)

	_, err = s.Score(Submission{WorkoutType: StepsOnlyWorkout, StepsCount: -1})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "steps_count", verr.Field)
}

func TestRateModeMultipliesMinutes(t *testing.T) {
	cats := stubCategories{"run": {ID: "run", Name: "Running", PointsPerMinute: 7}}
	s, err := New(ModeRate, DefaultRules(), cats)
	require.NoError(t, err)

	res, err := s.Score(Submission{CategoryID: "run", DurationMinutes: 60, StepsCount: 25000})
	require.NoError(t, err)
	assert.Equal(t, 420, res.Total)
	assert.Equal(t, 0, res.StepPoints)
	assert.Equal(t, "Running", res.WorkoutType)

	_, err = s.Score(Submission{CategoryID: "swim", DurationMinutes: 10})
	require.ErrorIs(t, err, domain.ErrCategoryNotFound)
	assert.Equal(t, "category_id: category not found", err.Error())

	_, err = s.Score(Submission{WorkoutType: "Gym Training", DurationMinutes: 10})
	require.ErrorIs(t, err, domain.ErrVariantMismatch)
}

func TestOversizedInputsAreRejected(t *testing.T) {
	cats := stubCategories{
		"run":  {ID: "run", Name: "Running", PointsPerMinute: 7},
		"rich": {ID: "rich", Name: "Rich", PointsPerMinute: math.MaxInt32},
	}
	rate, err := New(ModeRate, DefaultRules(), cats)
	require.NoError(t, err)

	var verr *domain.ValidationError
	_, err = rate.Score(Submission{CategoryID: "run", DurationMinutes: math.MaxInt64 / 4})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "duration_minutes", verr.Field)

	_, err = rate.Score(Submission{CategoryID: "run", DurationMinutes: MaxDurationMinutes + 1})
	require.True(t, domain.IsValidation(err))

	res, err := rate.Score(Submission{CategoryID: "run", DurationMinutes: MaxDurationMinutes})
	require.NoError(t, err)
	assert.Equal(t, 7*MaxDurationMinutes, res.Total)

	_, err = rate.Score(Submission{CategoryID: "rich", DurationMinutes: 2})
	require.True(t, domain.IsValidation(err))

	catalog := newCatalogScorer(t)
	_, err = catalog.Score(Submission{WorkoutType: StepsOnlyWorkout, StepsCount: MaxStepsCount + 1})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "steps_count", verr.Field)

	_, err = catalog.Score(Submission{WorkoutType: "Gym Training", DurationMinutes: math.MaxInt64})
	require.True(t, domain.IsValidation(err))
}

func TestScoreNeverNegative(t *testing.T) {
	s := newCatalogScorer(t)
	for _, wt := range DefaultRules().WorkoutTypes {
		for _, minutes := range []int{0, 1, 14, 15, 29, 30, 300} {
			for _, steps := range []int{0, 8000, 30000} {
				res, err := s.Score(Submission{WorkoutType: wt.Name, DurationMinutes: minutes, StepsCount: steps})
				require.NoError(t, err)
				require.GreaterOrEqual(t, res.Total, 0)
			}
		}
	}
}

func TestNewValidatesConfiguration(t *testing.T) {
	_, err := New("hybrid", DefaultRules(), nil)
	require.Error(t, err)

	_, err = New(ModeRate, DefaultRules(), nil)
	require.Error(t, err)

	rules := DefaultRules()
	rules.WorkoutTypes = append(rules.WorkoutTypes, WorkoutType{Name: "gym training", Points: 10})
	_, err = New(ModeCatalog, rules, nil)
	require.Error(t, err)

	mode, err := ParseMode(" Rate ")
	require.NoError(t, err)
	assert.Equal(t, ModeRate, mode)
}
