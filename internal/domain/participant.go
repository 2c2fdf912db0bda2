package domain

import "time"

// ParticipantStatus marks whether a participant still takes part in the challenge.
type ParticipantStatus string

const (
	StatusActive   ParticipantStatus = "Active"
	StatusInactive ParticipantStatus = "Inactive"
)

// Role distinguishes challenge administrators from regular participants.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleParticipant Role = "participant"
)

// Participant is a challenge member. TotalPoints is derived from the ledger
// and only ever written by a recompute.
type Participant struct {
	ID          string
	EmployeeID  string
	Name        string
	Team        string
	Email       string
	Status      ParticipantStatus
	Role        Role
	TotalPoints int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsActive reports whether the participant is currently active.
func (p Participant) IsActive() bool {
	return p.Status == StatusActive
}

// ParseStatus validates a textual status.
func ParseStatus(value string) (ParticipantStatus, bool) {
	switch ParticipantStatus(value) {
	case StatusActive, StatusInactive:
		return ParticipantStatus(value), true
	}
	return "", false
}

// ParseRole validates a textual role.
func ParseRole(value string) (Role, bool) {
	switch Role(value) {
	case RoleAdmin, RoleParticipant:
		return Role(value), true
	}
	return "", false
}
