// Package scoring turns activity submissions into points using the rule
// tables configured for the deployment.
package scoring

import (
	"fmt"
	"sort"
	"strings"
)

// StepsOnlyWorkout is the catalog selector for submissions that carry steps
// and no workout.
const StepsOnlyWorkout = "Steps Only"

// NoBonusLabel is reported when a week falls below the lowest consistency tier.
const NoBonusLabel = "No bonus"

// WorkoutType is a fixed catalog entry worth a flat number of points once
// MinDuration is reached.
type WorkoutType struct {
	Name        string `json:"name"`
	Points      int    `json:"points"`
	MinDuration int    `json:"min_duration"`
	StepsOnly   bool   `json:"steps_only"`
}

// StepSlab awards Points for a daily step count of at least MinSteps.
type StepSlab struct {
	MinSteps int `json:"min_steps"`
	Points   int `json:"points"`
}

// ConsistencyTier awards Points for at least Days distinct active days in a week.
type ConsistencyTier struct {
	Days   int    `json:"days"`
	Points int    `json:"points"`
	Label  string `json:"label"`
}

// Rules bundles the static tables used for scoring and bonuses.
type Rules struct {
	WorkoutTypes     []WorkoutType
	StepSlabs        []StepSlab
	ConsistencyTiers []ConsistencyTier
}

// DefaultRules returns the challenge's standard tables.
func DefaultRules() Rules {
	return Rules{
		WorkoutTypes: []WorkoutType{
			{Name: "Any Sport", Points: 150, MinDuration: 30},
			{Name: "Simple Cardio", Points: 100, MinDuration: 15},
			{Name: "Intense Cardio", Points: 180, MinDuration: 30},
			{Name: "Bodyweight / Functional Training", Points: 200, MinDuration: 30},
			{Name: "Gym Training", Points: 200, MinDuration: 30},
			{Name: "Yoga / Meditation / Stretching", Points: 120, MinDuration: 30},
			{Name: "Bodyweight Challenge", Points: 150, MinDuration: 15},
			{Name: StepsOnlyWorkout, StepsOnly: true},
		},
		StepSlabs: []StepSlab{
			{MinSteps: 20000, Points: 500},
			{MinSteps: 15000, Points: 300},
			{MinSteps: 10000, Points: 150},
			{MinSteps: 8000, Points: 80},
		},
		ConsistencyTiers: []ConsistencyTier{
			{Days: 7, Points: 1000, Label: "Every day"},
			{Days: 5, Points: 800, Label: "5 days/week"},
			{Days: 3, Points: 500, Label: "3 days/week"},
		},
	}
}

// normalize validates the tables and orders slabs and tiers highest first.
func (r Rules) normalize() (Rules, error) {
	seen := make(map[string]struct{}, len(r.WorkoutTypes))
	workouts := make([]WorkoutType, 0, len(r.WorkoutTypes))
	for _, wt := range r.WorkoutTypes {
		name := strings.TrimSpace(wt.Name)
		if name == "" {
			return Rules{}, fmt.Errorf("workout type name is required")
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return Rules{}, fmt.Errorf("duplicate workout type %q", name)
		}
		if wt.Points < 0 || wt.MinDuration < 0 {
			return Rules{}, fmt.Errorf("workout type %q: points and min duration must be non-negative", name)
		}
		seen[key] = struct{}{}
		wt.Name = name
		workouts = append(workouts, wt)
	}

	slabs := append([]StepSlab(nil), r.StepSlabs...)
	for _, s := range slabs {
		if s.MinSteps <= 0 || s.Points < 0 {
			return Rules{}, fmt.Errorf("invalid step slab %d/%d", s.MinSteps, s.Points)
		}
	}
	sort.SliceStable(slabs, func(i, j int) bool { return slabs[i].MinSteps > slabs[j].MinSteps })

	tiers := append([]ConsistencyTier(nil), r.ConsistencyTiers...)
	for _, t := range tiers {
		if t.Days <= 0 || t.Days > 7 || t.Points < 0 {
			return Rules{}, fmt.Errorf("invalid consistency tier %d/%d", t.Days, t.Points)
		}
	}
	sort.SliceStable(tiers, func(i, j int) bool { return tiers[i].Days > tiers[j].Days })

	return Rules{WorkoutTypes: workouts, StepSlabs: slabs, ConsistencyTiers: tiers}, nil
}

// StepPoints scans slabs highest threshold first and returns the first
// reward met, or zero.
func StepPoints(slabs []StepSlab, steps int) int {
	for _, s := range slabs {
		if steps >= s.MinSteps {
			return s.Points
		}
	}
	return 0
}

// ConsistencyBonus resolves the tier for a number of active days. Below the
// lowest tier it returns zero points and NoBonusLabel.
func ConsistencyBonus(tiers []ConsistencyTier, activeDays int) (int, string) {
	for _, t := range tiers {
		if activeDays >= t.Days {
			return t.Points, t.Label
		}
	}
	return 0, NoBonusLabel
}
