package challenge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"example.com/fitchallenge/internal/aggregate"
	"example.com/fitchallenge/internal/domain"
	"example.com/fitchallenge/internal/observability"
	"example.com/fitchallenge/internal/period"
	"example.com/fitchallenge/internal/scoring"
)

// SubmitActivityInput captures one activity submission.
type SubmitActivityInput struct {
	ParticipantID   string
	Date            time.Time
	WorkoutType     string
	CategoryID      string
	DurationMinutes int
	StepsCount      int
	Details         string
	ProofRef        string
	IdempotencyKey  string
}

// SubmitActivity scores the submission and appends it to the ledger. The
// boolean reports an idempotent replay of an earlier submission.
func (s *Service) SubmitActivity(ctx context.Context, input SubmitActivityInput) (domain.Activity, bool, error) {
	participantID := strings.TrimSpace(input.ParticipantID)
	if participantID == "" {
		return domain.Activity{}, false, domain.Invalid("participant_id", "is required")
	}

	today := s.today()
	date := today
	if !input.Date.IsZero() {
		date = period.Day(input.Date)
	}
	if date.After(today) {
		return domain.Activity{}, false, domain.Invalid("date", "cannot be in the future")
	}

	result, err := s.scorer.Score(scoring.Submission{
		WorkoutType:     input.WorkoutType,
		CategoryID:      input.CategoryID,
		DurationMinutes: input.DurationMinutes,
		StepsCount:      input.StepsCount,
	})
	if err != nil {
		return domain.Activity{}, false, err
	}

	stepsOnly := false
	if s.scorer.Mode() == scoring.ModeCatalog {
		wt, _ := s.scorer.WorkoutType(result.WorkoutType)
		stepsOnly = wt.StepsOnly
	}
	details := s.cleanText(input.Details)
	switch {
	case stepsOnly && input.StepsCount < 1:
		return domain.Activity{}, false, domain.Invalid("steps_count", "must be at least 1 for %s", scoring.StepsOnlyWorkout)
	case !stepsOnly && input.DurationMinutes < 1:
		return domain.Activity{}, false, domain.Invalid("duration_minutes", "must be at least 1")
	case !stepsOnly && details == "":
		return domain.Activity{}, false, domain.Invalid("details", "is required")
	}

	stored, replay, err := s.store.Append(ctx, domain.Activity{
		ParticipantID:   participantID,
		Date:            date,
		WorkoutType:     result.WorkoutType,
		CategoryID:      result.CategoryID,
		Details:         details,
		DurationMinutes: input.DurationMinutes,
		StepsCount:      input.StepsCount,
		Points:          result.Total,
		ProofRef:        strings.TrimSpace(input.ProofRef),
		IdempotencyKey:  strings.TrimSpace(input.IdempotencyKey),
	})
	if err != nil {
		return domain.Activity{}, false, err
	}
	if replay {
		return stored, true, nil
	}

	observability.RecordActivity(string(s.scorer.Mode()), stored.Points, stored.CreatedAt)
	s.invalidateReports(ctx)
	s.logger.Info("activity recorded",
		zap.String("participant_id", stored.ParticipantID),
		zap.String("activity_id", stored.ID),
		zap.String("workout_type", stored.WorkoutType),
		zap.Int("points", stored.Points),
	)
	return stored, false, nil
}

// Query selects activities by reporting window and filters.
type Query struct {
	Period period.Query
	Filter aggregate.Filter
}

// Resolve turns the query's window into concrete dates at the current time.
func (s *Service) Resolve(q Query) (period.Range, error) {
	r, err := period.ResolveQuery(q.Period, s.now(), s.epoch)
	if err != nil {
		return period.Range{}, domain.Invalid("period", "%s", err.Error())
	}
	return r, nil
}

// QueryActivities lists matching activities newest first.
func (s *Service) QueryActivities(ctx context.Context, q Query) ([]domain.Activity, error) {
	r, err := s.Resolve(q)
	if err != nil {
		return nil, err
	}
	return s.aggregator.Activities(r, q.Filter), nil
}

// ListParticipantActivities pages through one participant's activities.
func (s *Service) ListParticipantActivities(ctx context.Context, participantID string, cursor *domain.Cursor, limit int) ([]domain.Activity, *domain.Cursor, error) {
	return s.store.ActivitiesByParticipant(participantID, cursor, limit)
}

func reportKey(r period.Range, f aggregate.Filter) string {
	return fmt.Sprintf("summary:%s:%s:%s:%s",
		period.FormatDay(r.Start), period.FormatDay(r.End), f.CategoryID, f.ParticipantID)
}

// Report rolls up matching activities, serving from the report cache when
// an entry for the same window and filters survives.
func (s *Service) Report(ctx context.Context, q Query) (aggregate.Report, error) {
	r, err := s.Resolve(q)
	if err != nil {
		return aggregate.Report{}, err
	}
	key := reportKey(r, q.Filter)

	entry, err := s.reports.Get(ctx, key)
	switch {
	case err != nil:
		observability.RecordReportCache("error")
		s.logger.Warn("report cache read failed", zap.String("key", key), zap.Error(err))
	case entry.Hit:
		var cached aggregate.Report
		if err := json.Unmarshal(entry.Value, &cached); err == nil {
			observability.RecordReportCache("hit")
			return cached, nil
		}
		observability.RecordReportCache("error")
	default:
		observability.RecordReportCache("miss")
	}

	report := s.aggregator.Aggregate(r, q.Filter)
	if err != nil {
		// generation unknown; writing could shadow a newer invalidation
		return report, nil
	}
	if encoded, err := json.Marshal(report); err == nil {
		if err := s.reports.Set(ctx, key, entry.Generation, encoded); err != nil {
			s.logger.Warn("report cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return report, nil
}
