// Package events defines the payloads the challenge services exchange over Kafka.
package events

import "time"

// Event type names carried in the outbox and on the wire.
const (
	ActivityRecordedType        = "challenge.activity_recorded"
	BonusAwardedType            = "challenge.bonus_awarded"
	ParticipantTotalChangedType = "challenge.participant_total_changed"
	ActivitySubmissionType      = "challenge.activity_submission"
)

// ActivityRecorded is emitted when a scored activity is appended to the ledger.
type ActivityRecorded struct {
	ActivityID      string    `json:"activity_id"`
	ParticipantID   string    `json:"participant_id"`
	Date            string    `json:"date"`
	WorkoutType     string    `json:"workout_type"`
	CategoryID      string    `json:"category_id,omitempty"`
	DurationMinutes int       `json:"duration_minutes"`
	StepsCount      int       `json:"steps_count"`
	Points          int       `json:"points"`
	RecordedAt      time.Time `json:"recorded_at"`
}

// BonusAwarded is emitted for every weekly consistency bonus created.
type BonusAwarded struct {
	BonusID       string    `json:"bonus_id"`
	ParticipantID string    `json:"participant_id"`
	WeekStart     string    `json:"week_start"`
	WeekEnd       string    `json:"week_end"`
	DaysActive    int       `json:"days_active"`
	Points        int       `json:"points"`
	AwardedAt     time.Time `json:"awarded_at"`
}

// ParticipantTotalChanged carries a participant's recomputed total so
// leaderboards can follow without reading the ledger.
type ParticipantTotalChanged struct {
	ParticipantID string    `json:"participant_id"`
	TotalPoints   int       `json:"total_points"`
	Reason        string    `json:"reason"`
	OccurredAt    time.Time `json:"occurred_at"`
}
