package api

import (
	"errors"
	"net/http"

	"example.com/fitchallenge/internal/auth"
	"example.com/fitchallenge/internal/challenge"
	"example.com/fitchallenge/internal/consistency"
	"example.com/fitchallenge/internal/domain"
)

// Award run statuses.
const (
	statusAwarded        = "awarded"
	statusNothingToAward = "nothing_to_award"
)

// ConsistencyResponse lists weekly standings.
type ConsistencyResponse struct {
	Week      RangeView              `json:"week"`
	Standings []consistency.Standing `json:"standings"`
}

// AwardRequest is the payload for POST /v1/bonuses/consistency/award.
type AwardRequest struct {
	WeekOffset int  `json:"week_offset"`
	Confirm    bool `json:"confirm"`
}

// Validate ensures request correctness.
func (r AwardRequest) Validate() error {
	if r.WeekOffset < 0 {
		return errors.New("week_offset must be >= 0")
	}
	if !r.Confirm {
		return errors.New("confirm must be true to award bonuses")
	}
	return nil
}

// AwardResponse reports the outcome of an award run.
type AwardResponse struct {
	Status  string      `json:"status"`
	Week    RangeView   `json:"week"`
	Awarded []BonusView `json:"awarded"`
	Points  int         `json:"points"`
}

func (h *Handler) consistencyStandings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if _, ok := authorize(w, r, auth.ScopeBonusesRead); !ok {
		return
	}
	offset, err := queryInt(r, "week_offset", 0)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	eval, err := h.service.EvaluateConsistency(r.Context(), offset)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	standings := eval.Standings
	if standings == nil {
		standings = []consistency.Standing{}
	}
	writeJSON(w, http.StatusOK, ConsistencyResponse{Week: toRangeView(eval.Week), Standings: standings})
}

func (h *Handler) awardConsistency(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if _, ok := authorize(w, r, auth.ScopeBonusesAward); !ok {
		return
	}

	var req AwardRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	result, err := h.service.AwardConsistencyBonuses(r.Context(), challenge.AwardInput{
		WeekOffset: req.WeekOffset,
		Confirm:    req.Confirm,
	})
	if errors.Is(err, domain.ErrNothingToAward) {
		writeJSON(w, http.StatusOK, AwardResponse{
			Status:  statusNothingToAward,
			Week:    toRangeView(result.Week),
			Awarded: []BonusView{},
		})
		return
	}
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, AwardResponse{
		Status:  statusAwarded,
		Week:    toRangeView(result.Week),
		Awarded: toBonusViews(result.Awarded),
		Points:  result.Points,
	})
}
