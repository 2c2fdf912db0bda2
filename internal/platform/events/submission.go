package events

// ActivitySubmission is an inbound activity from a device sync or partner
// integration. SubmissionID doubles as the idempotency key.
type ActivitySubmission struct {
	SubmissionID    string `json:"submission_id"`
	ParticipantID   string `json:"participant_id"`
	Date            string `json:"date,omitempty"`
	WorkoutType     string `json:"workout_type,omitempty"`
	CategoryID      string `json:"category_id,omitempty"`
	DurationMinutes int    `json:"duration_minutes"`
	StepsCount      int    `json:"steps_count"`
	Details         string `json:"details,omitempty"`
	ProofRef        string `json:"proof_ref,omitempty"`
	Source          string `json:"source,omitempty"`
}
