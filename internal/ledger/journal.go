package ledger

import (
	"context"

	"example.com/fitchallenge/internal/domain"
)

// Journal persists ledger mutations. The store calls it before touching
// memory; an error aborts the mutation. Totals passed alongside records are
// the participant totals after the mutation is applied.
type Journal interface {
	CreateParticipant(ctx context.Context, participant domain.Participant) error
	UpdateParticipant(ctx context.Context, participant domain.Participant) error
	AppendActivity(ctx context.Context, activity domain.Activity, total int) error
	AppendBonuses(ctx context.Context, bonuses []domain.WeeklyBonus, totals map[string]int) error
	SaveCategory(ctx context.Context, category domain.Category) error
	DeleteCategory(ctx context.Context, id string) error
}

// Loader hydrates a store at boot.
type Loader interface {
	Load(ctx context.Context) (Snapshot, error)
}

// NopJournal discards every mutation. It backs purely in-memory deployments.
type NopJournal struct{}

func (NopJournal) CreateParticipant(context.Context, domain.Participant) error { return nil }
func (NopJournal) UpdateParticipant(context.Context, domain.Participant) error { return nil }
func (NopJournal) AppendActivity(context.Context, domain.Activity, int) error  { return nil }
func (NopJournal) AppendBonuses(context.Context, []domain.WeeklyBonus, map[string]int) error {
	return nil
}
func (NopJournal) SaveCategory(context.Context, domain.Category) error { return nil }
func (NopJournal) DeleteCategory(context.Context, string) error        { return nil }
