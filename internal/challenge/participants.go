package challenge

import (
	"context"
	"net/mail"
	"sort"
	"strings"

	"example.com/fitchallenge/internal/domain"
)

// GetParticipant returns the participant with its current total.
func (s *Service) GetParticipant(ctx context.Context, id string) (domain.Participant, error) {
	return s.store.Participant(id)
}

// ParticipantFilter narrows ListParticipants.
type ParticipantFilter struct {
	// Search matches name, email or employee ID, ignoring case.
	Search string
	Status domain.ParticipantStatus
}

// ListParticipants returns participants newest registration first.
func (s *Service) ListParticipants(ctx context.Context, f ParticipantFilter) []domain.Participant {
	all := s.store.Participants()
	needle := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]domain.Participant, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		p := all[i]
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(p.Name), needle) &&
			!strings.Contains(strings.ToLower(p.Email), needle) &&
			!strings.Contains(strings.ToLower(p.EmployeeID), needle) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Leaderboard ranks active participants by total points, then name.
func (s *Service) Leaderboard(ctx context.Context, limit int) []domain.Participant {
	board := s.ListParticipants(ctx, ParticipantFilter{Status: domain.StatusActive})
	sort.SliceStable(board, func(i, j int) bool {
		if board[i].TotalPoints != board[j].TotalPoints {
			return board[i].TotalPoints > board[j].TotalPoints
		}
		return board[i].Name < board[j].Name
	})
	if limit > 0 && len(board) > limit {
		board = board[:limit]
	}
	return board
}

// CreateParticipantInput captures a new participant.
type CreateParticipantInput struct {
	ID         string
	EmployeeID string
	Name       string
	Team       string
	Email      string
	Role       string
}

// CreateParticipant validates and registers a participant.
func (s *Service) CreateParticipant(ctx context.Context, input CreateParticipantInput) (domain.Participant, error) {
	p := domain.Participant{
		ID:         strings.TrimSpace(input.ID),
		EmployeeID: s.cleanText(input.EmployeeID),
		Name:       s.cleanText(input.Name),
		Team:       s.cleanText(input.Team),
		Email:      strings.TrimSpace(input.Email),
		Status:     domain.StatusActive,
		Role:       domain.RoleParticipant,
	}
	switch {
	case p.EmployeeID == "":
		return domain.Participant{}, domain.Invalid("employee_id", "is required")
	case p.Name == "":
		return domain.Participant{}, domain.Invalid("name", "is required")
	case p.Team == "":
		return domain.Participant{}, domain.Invalid("team", "is required")
	}
	if err := validateEmail(p.Email); err != nil {
		return domain.Participant{}, err
	}
	if input.Role != "" {
		role, ok := domain.ParseRole(input.Role)
		if !ok {
			return domain.Participant{}, domain.Invalid("role", "must be admin or participant")
		}
		p.Role = role
	}
	return s.store.CreateParticipant(ctx, p)
}

// UpdateParticipantInput carries optional changes; nil fields are kept.
type UpdateParticipantInput struct {
	Name   *string
	Team   *string
	Email  *string
	Status *string
	Role   *string
}

// UpdateParticipant applies profile or status changes. Totals are never
// accepted from callers.
func (s *Service) UpdateParticipant(ctx context.Context, id string, input UpdateParticipantInput) (domain.Participant, error) {
	updated, err := s.store.UpdateParticipant(ctx, id, func(p *domain.Participant) error {
		if input.Name != nil {
			name := s.cleanText(*input.Name)
			if name == "" {
				return domain.Invalid("name", "must not be empty")
			}
			p.Name = name
		}
		if input.Team != nil {
			team := s.cleanText(*input.Team)
			if team == "" {
				return domain.Invalid("team", "must not be empty")
			}
			p.Team = team
		}
		if input.Email != nil {
			email := strings.TrimSpace(*input.Email)
			if err := validateEmail(email); err != nil {
				return err
			}
			p.Email = email
		}
		if input.Status != nil {
			status, ok := domain.ParseStatus(*input.Status)
			if !ok {
				return domain.Invalid("status", "must be Active or Inactive")
			}
			p.Status = status
		}
		if input.Role != nil {
			role, ok := domain.ParseRole(*input.Role)
			if !ok {
				return domain.Invalid("role", "must be admin or participant")
			}
			p.Role = role
		}
		return nil
	})
	if err != nil {
		return domain.Participant{}, err
	}
	s.invalidateReports(ctx)
	return updated, nil
}

func validateEmail(email string) error {
	if email == "" {
		return domain.Invalid("email", "is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return domain.Invalid("email", "is not a valid address")
	}
	return nil
}
