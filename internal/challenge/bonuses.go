package challenge

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"example.com/fitchallenge/internal/consistency"
	"example.com/fitchallenge/internal/domain"
	"example.com/fitchallenge/internal/observability"
	"example.com/fitchallenge/internal/period"
)

// EvaluateConsistency returns standings for the week weekOffset weeks back.
func (s *Service) EvaluateConsistency(ctx context.Context, weekOffset int) (consistency.Evaluation, error) {
	return s.evaluator.Evaluate(weekOffset)
}

// AwardInput requests a consistency bonus run.
type AwardInput struct {
	WeekOffset int
	Confirm    bool
}

// AwardResult lists the bonuses created by a run.
type AwardResult struct {
	Week    period.Range
	Awarded []domain.WeeklyBonus
	Points  int
}

// AwardConsistencyBonuses awards every eligible participant for the week.
// An empty eligible set yields domain.ErrNothingToAward and changes nothing.
func (s *Service) AwardConsistencyBonuses(ctx context.Context, input AwardInput) (AwardResult, error) {
	if !input.Confirm {
		return AwardResult{}, domain.Invalid("confirm", "must be true to award bonuses")
	}
	eval, err := s.evaluator.Evaluate(input.WeekOffset)
	if err != nil {
		return AwardResult{}, err
	}
	result := AwardResult{Week: eval.Week}

	candidates := eval.Awards()
	if len(candidates) == 0 {
		observability.RecordBonusBatch(observability.OutcomeNothingToAward, 0)
		return result, domain.ErrNothingToAward
	}

	awarded, err := s.store.AwardBonuses(ctx, candidates)
	if errors.Is(err, domain.ErrNothingToAward) {
		observability.RecordBonusBatch(observability.OutcomeNothingToAward, 0)
		return result, err
	}
	if err != nil {
		observability.RecordBonusBatch(observability.OutcomeFailed, 0)
		s.logger.Error("bonus award failed", zap.String("week", eval.Week.String()), zap.Error(err))
		return AwardResult{}, err
	}

	for _, b := range awarded {
		result.Points += b.Points
	}
	result.Awarded = awarded
	observability.RecordBonusBatch(observability.OutcomeAwarded, result.Points)
	s.invalidateReports(ctx)
	s.logger.Info("consistency bonuses awarded",
		zap.String("week", eval.Week.String()),
		zap.Int("participants", len(awarded)),
		zap.Int("points", result.Points),
	)
	return result, nil
}
