package challenge

import (
	"context"

	"example.com/fitchallenge/internal/domain"
	"example.com/fitchallenge/internal/scoring"
)

// CategoryInput captures a category create or update.
type CategoryInput struct {
	Name            string
	PointsPerMinute int
}

func (s *Service) requireRateMode() error {
	if s.scorer.Mode() != scoring.ModeRate {
		return domain.ErrVariantMismatch
	}
	return nil
}

func (s *Service) validateCategory(input CategoryInput) (domain.Category, error) {
	name := s.cleanText(input.Name)
	if name == "" {
		return domain.Category{}, domain.Invalid("name", "is required")
	}
	if input.PointsPerMinute < 1 {
		return domain.Category{}, domain.Invalid("points_per_minute", "must be at least 1")
	}
	if input.PointsPerMinute > scoring.MaxPointsPerMinute {
		return domain.Category{}, domain.Invalid("points_per_minute", "must not exceed %d", scoring.MaxPointsPerMinute)
	}
	return domain.Category{Name: name, PointsPerMinute: input.PointsPerMinute}, nil
}

// ListCategories returns the rate categories ordered by name.
func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	if err := s.requireRateMode(); err != nil {
		return nil, err
	}
	return s.store.Categories(), nil
}

// CreateCategory adds a rate category.
func (s *Service) CreateCategory(ctx context.Context, input CategoryInput) (domain.Category, error) {
	if err := s.requireRateMode(); err != nil {
		return domain.Category{}, err
	}
	c, err := s.validateCategory(input)
	if err != nil {
		return domain.Category{}, err
	}
	return s.store.SaveCategory(ctx, c)
}

// UpdateCategory renames or re-rates a category. Already stored activities
// keep the points they were scored with.
func (s *Service) UpdateCategory(ctx context.Context, id string, input CategoryInput) (domain.Category, error) {
	if err := s.requireRateMode(); err != nil {
		return domain.Category{}, err
	}
	c, err := s.validateCategory(input)
	if err != nil {
		return domain.Category{}, err
	}
	c.ID = id
	saved, err := s.store.SaveCategory(ctx, c)
	if err != nil {
		return domain.Category{}, err
	}
	s.invalidateReports(ctx)
	return saved, nil
}

// DeleteCategory removes a category.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if err := s.requireRateMode(); err != nil {
		return err
	}
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.invalidateReports(ctx)
	return nil
}

// WorkoutTypes lists the fixed catalog.
func (s *Service) WorkoutTypes(ctx context.Context) ([]scoring.WorkoutType, error) {
	if s.scorer.Mode() != scoring.ModeCatalog {
		return nil, domain.ErrVariantMismatch
	}
	return s.scorer.Rules().WorkoutTypes, nil
}

// StepSlabs lists the step bonus table, highest threshold first.
func (s *Service) StepSlabs() []scoring.StepSlab {
	return s.scorer.Rules().StepSlabs
}
