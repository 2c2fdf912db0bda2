package api

import (
	"errors"
	"net/http"
	"strings"

	"example.com/fitchallenge/internal/auth"
	"example.com/fitchallenge/internal/challenge"
	"example.com/fitchallenge/internal/scoring"
)

// CategoryRequest is the payload for creating or updating a category.
type CategoryRequest struct {
	Name            string `json:"name"`
	PointsPerMinute int    `json:"points_per_minute"`
}

// Validate ensures request correctness.
func (r CategoryRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	if r.PointsPerMinute < 1 {
		return errors.New("points_per_minute must be >= 1")
	}
	return nil
}

// ListCategoriesResponse packages rate-mode categories.
type ListCategoriesResponse struct {
	Items []CategoryView `json:"items"`
}

// WorkoutTypesResponse describes the catalog-mode scoring tables.
type WorkoutTypesResponse struct {
	Mode         string                `json:"mode"`
	WorkoutTypes []scoring.WorkoutType `json:"workout_types"`
	StepSlabs    []scoring.StepSlab    `json:"step_slabs"`
}

func (h *Handler) categories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := authorize(w, r, auth.ScopeActivitiesRead); !ok {
			return
		}
		items, err := h.service.ListCategories(r.Context())
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		resp := ListCategoriesResponse{Items: make([]CategoryView, 0, len(items))}
		for _, c := range items {
			resp.Items = append(resp.Items, toCategoryView(c))
		}
		writeJSON(w, http.StatusOK, resp)
	case http.MethodPost:
		if _, ok := authorize(w, r, auth.ScopeCategoriesWrite); !ok {
			return
		}
		req, ok := decodeCategory(w, r)
		if !ok {
			return
		}
		c, err := h.service.CreateCategory(r.Context(), challenge.CategoryInput{Name: req.Name, PointsPerMinute: req.PointsPerMinute})
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toCategoryView(c))
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) categoryByID(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/categories/"), "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing category id")
		return
	}

	switch r.Method {
	case http.MethodPut:
		if _, ok := authorize(w, r, auth.ScopeCategoriesWrite); !ok {
			return
		}
		req, ok := decodeCategory(w, r)
		if !ok {
			return
		}
		c, err := h.service.UpdateCategory(r.Context(), id, challenge.CategoryInput{Name: req.Name, PointsPerMinute: req.PointsPerMinute})
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toCategoryView(c))
	case http.MethodDelete:
		if _, ok := authorize(w, r, auth.ScopeCategoriesWrite); !ok {
			return
		}
		if err := h.service.DeleteCategory(r.Context(), id); err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

func decodeCategory(w http.ResponseWriter, r *http.Request) (CategoryRequest, bool) {
	var req CategoryRequest
	if !decodeBody(w, r, &req) {
		return req, false
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return req, false
	}
	return req, true
}

func (h *Handler) workoutTypes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if _, ok := authorize(w, r, auth.ScopeActivitiesRead); !ok {
		return
	}
	types, err := h.service.WorkoutTypes(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, WorkoutTypesResponse{
		Mode:         string(h.service.Mode()),
		WorkoutTypes: types,
		StepSlabs:    h.service.StepSlabs(),
	})
}
