package domain

import "time"

// Activity is one logged workout or steps submission. Points are fixed at
// submission time and never rewritten; a correction is a new record.
type Activity struct {
	ID              string
	ParticipantID   string
	Date            time.Time
	WorkoutType     string
	CategoryID      string
	Details         string
	DurationMinutes int
	StepsCount      int
	Points          int
	ProofRef        string
	IdempotencyKey  string
	CreatedAt       time.Time
}

// WeeklyBonus records a consistency bonus awarded for one Monday-Sunday week.
type WeeklyBonus struct {
	ID            string
	ParticipantID string
	WeekStart     time.Time
	WeekEnd       time.Time
	DaysActive    int
	Points        int
	CreatedAt     time.Time
}

// Category is an admin-managed workout category scored per minute.
type Category struct {
	ID              string
	Name            string
	PointsPerMinute int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Cursor models the pagination token for activity listings.
type Cursor struct {
	Date      time.Time
	CreatedAt time.Time
	ID        string
}
