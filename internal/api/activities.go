package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"example.com/fitchallenge/internal/aggregate"
	"example.com/fitchallenge/internal/auth"
	"example.com/fitchallenge/internal/challenge"
	"example.com/fitchallenge/internal/period"
	"example.com/fitchallenge/internal/persistence"
)

// SubmitActivityRequest is the payload for POST /v1/activities.
type SubmitActivityRequest struct {
	ParticipantID   string `json:"participant_id"`
	Date            string `json:"date"`
	WorkoutType     string `json:"workout_type"`
	CategoryID      string `json:"category_id"`
	DurationMinutes int    `json:"duration_minutes"`
	StepsCount      int    `json:"steps_count"`
	Details         string `json:"details"`
	ProofRef        string `json:"proof_ref"`
}

// Validate checks the request shape. Scoring rules are enforced by the engine.
func (r SubmitActivityRequest) Validate() error {
	if strings.TrimSpace(r.Date) != "" {
		if _, err := period.ParseDay(strings.TrimSpace(r.Date)); err != nil {
			return errors.New("date must be YYYY-MM-DD")
		}
	}
	if strings.TrimSpace(r.WorkoutType) == "" && strings.TrimSpace(r.CategoryID) == "" {
		return errors.New("workout_type or category_id is required")
	}
	return nil
}

// SubmitActivityResponse describes the response body for submit.
type SubmitActivityResponse struct {
	Activity ActivityView `json:"activity"`
	Total    int          `json:"total_points"`
	Replay   bool         `json:"idempotent_replay"`
}

// ListActivitiesResponse packages list results.
type ListActivitiesResponse struct {
	Range      *RangeView     `json:"range,omitempty"`
	Items      []ActivityView `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

func (h *Handler) activities(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.submitActivity(w, r)
	case http.MethodGet:
		h.listActivities(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) submitActivity(w http.ResponseWriter, r *http.Request) {
	claims, ok := authorize(w, r, auth.ScopeActivitiesWrite)
	if !ok {
		return
	}

	var req SubmitActivityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	participantID := strings.TrimSpace(req.ParticipantID)
	if participantID == "" {
		participantID = claims.Subject
	}
	if !auth.ActsFor(claims, participantID) {
		writeError(w, http.StatusForbidden, "forbidden", "cannot submit activities for another participant")
		return
	}

	var date time.Time
	if raw := strings.TrimSpace(req.Date); raw != "" {
		date, _ = period.ParseDay(raw)
	}

	activity, replay, err := h.service.SubmitActivity(r.Context(), challenge.SubmitActivityInput{
		ParticipantID:   participantID,
		Date:            date,
		WorkoutType:     req.WorkoutType,
		CategoryID:      req.CategoryID,
		DurationMinutes: req.DurationMinutes,
		StepsCount:      req.StepsCount,
		Details:         req.Details,
		ProofRef:        req.ProofRef,
		IdempotencyKey:  r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	p, err := h.service.GetParticipant(r.Context(), participantID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	status := http.StatusCreated
	if replay {
		status = http.StatusOK
	}
	writeJSON(w, status, SubmitActivityResponse{
		Activity: toActivityView(activity),
		Total:    p.TotalPoints,
		Replay:   replay,
	})
}

// listActivities serves two shapes: a period query across the challenge, or,
// when only participant_id is given, a cursor-paginated history of that
// participant newest first.
func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	if _, ok := authorize(w, r, auth.ScopeActivitiesRead); !ok {
		return
	}

	q := parseQuery(r)
	if q.Filter.ParticipantID != "" && q.Period == (period.Query{}) && q.Filter.CategoryID == "" {
		h.pageParticipantActivities(w, r, q.Filter.ParticipantID)
		return
	}

	rng, err := h.service.Resolve(q)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	items, err := h.service.QueryActivities(r.Context(), q)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	view := toRangeView(rng)
	writeJSON(w, http.StatusOK, ListActivitiesResponse{Range: &view, Items: toActivityViews(items)})
}

func (h *Handler) pageParticipantActivities(w http.ResponseWriter, r *http.Request, participantID string) {
	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if limit > 200 {
		limit = 200
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	items, next, err := h.service.ListParticipantActivities(r.Context(), participantID, cursor, limit)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListActivitiesResponse{
		Items:      toActivityViews(items),
		NextCursor: persistence.EncodeCursor(next),
	})
}

func (h *Handler) reportSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if _, ok := authorize(w, r, auth.ScopeReportsRead); !ok {
		return
	}

	report, err := h.service.Report(r.Context(), parseQuery(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func parseQuery(r *http.Request) challenge.Query {
	values := r.URL.Query()
	return challenge.Query{
		Period: period.Query{
			Shortcut:    period.Shortcut(strings.ToLower(strings.TrimSpace(values.Get("period")))),
			CustomStart: strings.TrimSpace(values.Get("start")),
			CustomEnd:   strings.TrimSpace(values.Get("end")),
		},
		Filter: aggregate.Filter{
			CategoryID:    strings.TrimSpace(values.Get("category_id")),
			ParticipantID: strings.TrimSpace(values.Get("participant_id")),
		},
	}
}

