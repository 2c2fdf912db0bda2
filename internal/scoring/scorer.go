package scoring

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"example.com/fitchallenge/internal/domain"
)

// Mode selects which catalog shape is authoritative for a deployment.
type Mode string

const (
	// ModeCatalog scores against the fixed workout-type table plus step slabs.
	ModeCatalog Mode = "catalog"
	// ModeRate scores admin-managed categories at points per minute.
	ModeRate Mode = "rate"
)

// ParseMode validates a configured mode name.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeCatalog:
		return ModeCatalog, nil
	case ModeRate:
		return ModeRate, nil
	}
	return "", fmt.Errorf("unknown scoring mode %q (want catalog or rate)", value)
}

// Input ceilings. Scores derived from them fit the int4 columns activities
// are stored in.
const (
	MaxDurationMinutes = 24 * 60
	MaxStepsCount      = 1_000_000
	MaxPointsPerMinute = 1_000
)

// CategoryLookup resolves rate categories by ID. Implementations return
// domain.ErrCategoryNotFound when the ID is unknown.
type CategoryLookup interface {
	Category(id string) (domain.Category, error)
}

// Submission is the scoring input for one activity.
type Submission struct {
	WorkoutType     string
	CategoryID      string
	DurationMinutes int
	StepsCount      int
}

// Result breaks a score into its components.
type Result struct {
	// WorkoutType is the canonical catalog name, or the category name in rate mode.
	WorkoutType   string `json:"workout_type"`
	CategoryID    string `json:"category_id,omitempty"`
	WorkoutPoints int    `json:"workout_points"`
	StepPoints    int    `json:"step_points"`
	Total         int    `json:"total"`
}

// Scorer is the pure scoring function for one configured mode.
type Scorer struct {
	mode       Mode
	rules      Rules
	workouts   map[string]WorkoutType
	categories CategoryLookup
}

// New validates rules and builds a Scorer. categories is required in rate mode.
func New(mode Mode, rules Rules, categories CategoryLookup) (*Scorer, error) {
	if mode != ModeCatalog && mode != ModeRate {
		return nil, fmt.Errorf("unknown scoring mode %q", mode)
	}
	if mode == ModeRate && categories == nil {
		return nil, errors.New("rate mode requires a category lookup")
	}
	normalized, err := rules.normalize()
	if err != nil {
		return nil, fmt.Errorf("scoring rules: %w", err)
	}
	workouts := make(map[string]WorkoutType, len(normalized.WorkoutTypes))
	for _, wt := range normalized.WorkoutTypes {
		workouts[strings.ToLower(wt.Name)] = wt
	}
	return &Scorer{mode: mode, rules: normalized, workouts: workouts, categories: categories}, nil
}

// Mode reports the configured mode.
func (s *Scorer) Mode() Mode { return s.mode }

// Rules returns the normalized tables.
func (s *Scorer) Rules() Rules { return s.rules }

// WorkoutType resolves a catalog selector, ignoring case and surrounding space.
func (s *Scorer) WorkoutType(name string) (WorkoutType, bool) {
	wt, ok := s.workouts[strings.ToLower(strings.TrimSpace(name))]
	return wt, ok
}

// Score computes the points for a submission. The result is never negative.
func (s *Scorer) Score(sub Submission) (Result, error) {
	if sub.DurationMinutes < 0 {
		return Result{}, domain.Invalid("duration_minutes", "must not be negative")
	}
	if sub.DurationMinutes > MaxDurationMinutes {
		return Result{}, domain.Invalid("duration_minutes", "must not exceed %d", MaxDurationMinutes)
	}
	if sub.StepsCount < 0 {
		return Result{}, domain.Invalid("steps_count", "must not be negative")
	}
	if sub.StepsCount > MaxStepsCount {
		return Result{}, domain.Invalid("steps_count", "must not exceed %d", MaxStepsCount)
	}
	if s.mode == ModeRate {
		return s.scoreRate(sub)
	}
	return s.scoreCatalog(sub)
}

func (s *Scorer) scoreCatalog(sub Submission) (Result, error) {
	if strings.TrimSpace(sub.CategoryID) != "" {
		return Result{}, domain.InvalidWith("category_id", domain.ErrVariantMismatch)
	}
	wt, ok := s.WorkoutType(sub.WorkoutType)
	if !ok {
		return Result{}, domain.InvalidWith("workout_type", domain.ErrUnknownWorkoutType)
	}

	res := Result{WorkoutType: wt.Name}
	if !wt.StepsOnly && sub.DurationMinutes >= wt.MinDuration {
		res.WorkoutPoints = wt.Points
	}
	res.StepPoints = StepPoints(s.rules.StepSlabs, sub.StepsCount)
	res.Total = res.WorkoutPoints + res.StepPoints
	return res, nil
}

func (s *Scorer) scoreRate(sub Submission) (Result, error) {
	id := strings.TrimSpace(sub.CategoryID)
	if id == "" {
		if strings.TrimSpace(sub.WorkoutType) != "" {
			return Result{}, domain.InvalidWith("workout_type", domain.ErrVariantMismatch)
		}
		return Result{}, domain.Invalid("category_id", "is required")
	}
	cat, err := s.categories.Category(id)
	if err != nil {
		if errors.Is(err, domain.ErrCategoryNotFound) {
			return Result{}, domain.InvalidWith("category_id", domain.ErrCategoryNotFound)
		}
		return Result{}, fmt.Errorf("lookup category: %w", err)
	}

	if cat.PointsPerMinute < 0 || cat.PointsPerMinute > math.MaxInt32/max(sub.DurationMinutes, 1) {
		return Result{}, domain.Invalid("duration_minutes", "scores out of range for category %q", cat.Name)
	}
	points := cat.PointsPerMinute * sub.DurationMinutes
	return Result{
		WorkoutType:   cat.Name,
		CategoryID:    cat.ID,
		WorkoutPoints: points,
		Total:         points,
	}, nil
}
