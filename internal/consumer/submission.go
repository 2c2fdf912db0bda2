package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"example.com/fitchallenge/internal/challenge"
	"example.com/fitchallenge/internal/domain"
	"example.com/fitchallenge/internal/period"
	"example.com/fitchallenge/internal/platform/events"
)

// Submitter records a scored activity.
type Submitter interface {
	SubmitActivity(ctx context.Context, input challenge.SubmitActivityInput) (domain.Activity, bool, error)
}

// SubmissionHandler feeds activity submissions from device syncs and partner
// integrations through the same scoring path as the HTTP API.
type SubmissionHandler struct {
	submitter Submitter
	logger    *zap.Logger
}

// NewSubmissionHandler constructs a SubmissionHandler.
func NewSubmissionHandler(submitter Submitter, logger *zap.Logger) *SubmissionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionHandler{submitter: submitter, logger: logger}
}

// Handle implements Handler.
func (h *SubmissionHandler) Handle(ctx context.Context, msg Message) error {
	if msg.EventType != events.ActivitySubmissionType {
		recordSubmission(outcomeRejected)
		return fmt.Errorf("%w: unsupported event type %q", ErrPoison, msg.EventType)
	}

	var sub events.ActivitySubmission
	if err := json.Unmarshal(msg.Payload, &sub); err != nil {
		recordSubmission(outcomeRejected)
		return fmt.Errorf("%w: decode submission: %v", ErrPoison, err)
	}
	if strings.TrimSpace(sub.SubmissionID) == "" {
		recordSubmission(outcomeRejected)
		return fmt.Errorf("%w: submission_id is required", ErrPoison)
	}

	var date time.Time
	if sub.Date != "" {
		d, err := period.ParseDay(sub.Date)
		if err != nil {
			recordSubmission(outcomeRejected)
			return fmt.Errorf("%w: %v", ErrPoison, err)
		}
		date = d
	}

	activity, replay, err := h.submitter.SubmitActivity(ctx, challenge.SubmitActivityInput{
		ParticipantID:   sub.ParticipantID,
		Date:            date,
		WorkoutType:     sub.WorkoutType,
		CategoryID:      sub.CategoryID,
		DurationMinutes: sub.DurationMinutes,
		StepsCount:      sub.StepsCount,
		Details:         sub.Details,
		ProofRef:        sub.ProofRef,
		IdempotencyKey:  sub.SubmissionID,
	})
	if err != nil {
		if permanent(err) {
			recordSubmission(outcomeRejected)
			return fmt.Errorf("%w: %v", ErrPoison, err)
		}
		return err
	}

	if replay {
		recordSubmission(outcomeDuplicate)
		h.logger.Debug("duplicate submission ignored",
			zap.String("submission_id", sub.SubmissionID),
			zap.String("activity_id", activity.ID),
		)
		return nil
	}

	recordSubmission(outcomeRecorded)
	h.logger.Info("submission recorded",
		zap.String("submission_id", sub.SubmissionID),
		zap.String("participant_id", activity.ParticipantID),
		zap.String("source", sub.Source),
		zap.Int("points", activity.Points),
	)
	return nil
}

func permanent(err error) bool {
	return domain.IsValidation(err) ||
		errors.Is(err, domain.ErrParticipantNotFound) ||
		errors.Is(err, domain.ErrCategoryNotFound) ||
		errors.Is(err, domain.ErrUnknownWorkoutType) ||
		errors.Is(err, domain.ErrVariantMismatch)
}
