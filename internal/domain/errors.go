// Package domain defines the records the challenge engine operates on.
package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrParticipantNotFound is returned when a participant cannot be located.
	ErrParticipantNotFound = errors.New("participant not found")
	// ErrCategoryNotFound is returned when a workout category cannot be located.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrUnknownWorkoutType is returned for selectors missing from the workout catalog.
	ErrUnknownWorkoutType = errors.New("unknown workout type")
	// ErrVariantMismatch signals a request shaped for the scoring mode that is not configured.
	ErrVariantMismatch = errors.New("not supported by the configured scoring mode")
	// ErrNothingToAward reports an award run with no eligible participants.
	ErrNothingToAward = errors.New("no bonuses to award for this week")
	// ErrParticipantExists is returned when creating a participant with a taken ID.
	ErrParticipantExists = errors.New("participant already exists")
)

// ValidationError describes a rejected input field. Err optionally links a
// sentinel so callers can still match it with errors.Is.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Invalid builds a ValidationError for field.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// InvalidWith builds a ValidationError wrapping a sentinel error.
func InvalidWith(field string, err error) error {
	return &ValidationError{Field: field, Message: err.Error(), Err: err}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
