package api

import (
	"errors"
	"net/http"
	"strings"

	"example.com/fitchallenge/internal/auth"
	"example.com/fitchallenge/internal/challenge"
	"example.com/fitchallenge/internal/domain"
)

// CreateParticipantRequest is the payload for POST /v1/participants.
type CreateParticipantRequest struct {
	ParticipantID string `json:"participant_id"`
	EmployeeID    string `json:"employee_id"`
	Name          string `json:"name"`
	Team          string `json:"team"`
	Email         string `json:"email"`
	Role          string `json:"role"`
}

// Validate ensures request correctness.
func (r CreateParticipantRequest) Validate() error {
	if strings.TrimSpace(r.EmployeeID) == "" {
		return errors.New("employee_id is required")
	}
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	return nil
}

// UpdateParticipantRequest is the payload for PATCH /v1/participants/{id}.
// Absent fields are left unchanged.
type UpdateParticipantRequest struct {
	Name   *string `json:"name"`
	Team   *string `json:"team"`
	Email  *string `json:"email"`
	Status *string `json:"status"`
	Role   *string `json:"role"`
}

// Validate ensures at least one field is present.
func (r UpdateParticipantRequest) Validate() error {
	if r.Name == nil && r.Team == nil && r.Email == nil && r.Status == nil && r.Role == nil {
		return errors.New("no fields to update")
	}
	return nil
}

// ListParticipantsResponse packages participant listings.
type ListParticipantsResponse struct {
	Items []ParticipantView `json:"items"`
}

func (h *Handler) participants(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listParticipants(w, r)
	case http.MethodPost:
		h.createParticipant(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) participantByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/participants/"), "/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing participant id")
		return
	}

	switch {
	case sub == "" && r.Method == http.MethodGet:
		h.getParticipant(w, r, id)
	case sub == "" && r.Method == http.MethodPatch:
		h.updateParticipant(w, r, id)
	case sub == "dashboard" && r.Method == http.MethodGet:
		h.participantDashboard(w, r, id)
	case sub == "" || sub == "dashboard":
		methodNotAllowed(w)
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
	}
}

func (h *Handler) listParticipants(w http.ResponseWriter, r *http.Request) {
	if _, ok := authorize(w, r, auth.ScopeActivitiesRead); !ok {
		return
	}

	var status domain.ParticipantStatus
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		parsed, ok := domain.ParseStatus(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "validation_failed", "status must be Active or Inactive")
			return
		}
		status = parsed
	}

	items := h.service.ListParticipants(r.Context(), challenge.ParticipantFilter{
		Search: r.URL.Query().Get("search"),
		Status: status,
	})
	writeJSON(w, http.StatusOK, ListParticipantsResponse{Items: toParticipantViews(items)})
}

func (h *Handler) createParticipant(w http.ResponseWriter, r *http.Request) {
	if _, ok := authorize(w, r, auth.ScopeParticipantsWrite); !ok {
		return
	}

	var req CreateParticipantRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	p, err := h.service.CreateParticipant(r.Context(), challenge.CreateParticipantInput{
		ID:         req.ParticipantID,
		EmployeeID: req.EmployeeID,
		Name:       req.Name,
		Team:       req.Team,
		Email:      req.Email,
		Role:       req.Role,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toParticipantView(p))
}

func (h *Handler) getParticipant(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := authorize(w, r, auth.ScopeActivitiesRead); !ok {
		return
	}
	p, err := h.service.GetParticipant(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toParticipantView(p))
}

func (h *Handler) updateParticipant(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := authorize(w, r, auth.ScopeParticipantsWrite); !ok {
		return
	}

	var req UpdateParticipantRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	p, err := h.service.UpdateParticipant(r.Context(), id, challenge.UpdateParticipantInput{
		Name:   req.Name,
		Team:   req.Team,
		Email:  req.Email,
		Status: req.Status,
		Role:   req.Role,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toParticipantView(p))
}

func (h *Handler) participantDashboard(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := authorize(w, r, auth.ScopeActivitiesRead); !ok {
		return
	}
	d, err := h.service.ParticipantDashboard(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardView(d))
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if _, ok := authorize(w, r, auth.ScopeReportsRead); !ok {
		return
	}
	limit, err := queryInt(r, "limit", 10)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	board := h.service.Leaderboard(r.Context(), limit)
	writeJSON(w, http.StatusOK, ListParticipantsResponse{Items: toParticipantViews(board)})
}

func (h *Handler) dashboardMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if _, ok := authorize(w, r, auth.ScopeReportsRead); !ok {
		return
	}
	m := h.service.DashboardMetrics(r.Context())
	writeJSON(w, http.StatusOK, MetricsView{
		TotalParticipants: m.TotalParticipants,
		ActiveToday:       m.ActiveToday,
		WorkoutMinutes:    m.WorkoutMinutes,
		Steps:             m.Steps,
		PointsToday:       m.PointsToday,
	})
}
