// Package consistency computes weekly active-day standings and the bonus
// each participant qualifies for.
package consistency

import (
	"sort"
	"time"

	"example.com/fitchallenge/internal/domain"
	"example.com/fitchallenge/internal/ledger"
	"example.com/fitchallenge/internal/period"
	"example.com/fitchallenge/internal/scoring"
)

// Standing is one participant's result for the evaluated week.
type Standing struct {
	Participant    domain.Participant `json:"-"`
	ParticipantID  string             `json:"participant_id"`
	Name           string             `json:"name"`
	Team           string             `json:"team"`
	ActiveDays     int                `json:"active_days"`
	BonusPoints    int                `json:"bonus_points"`
	BonusLabel     string             `json:"bonus_label"`
	AlreadyAwarded bool               `json:"already_awarded"`
}

// Eligible reports whether an award run should create a bonus for s.
func (s Standing) Eligible() bool {
	return s.BonusPoints > 0 && !s.AlreadyAwarded
}

// Evaluation is the standings for one Monday-Sunday week.
type Evaluation struct {
	Week      period.Range `json:"week"`
	Standings []Standing   `json:"standings"`
}

// Awards converts eligible standings into bonus records for the week.
func (e Evaluation) Awards() []domain.WeeklyBonus {
	out := make([]domain.WeeklyBonus, 0)
	for _, s := range e.Standings {
		if !s.Eligible() {
			continue
		}
		out = append(out, domain.WeeklyBonus{
			ParticipantID: s.ParticipantID,
			WeekStart:     e.Week.Start,
			WeekEnd:       e.Week.End,
			DaysActive:    s.ActiveDays,
			Points:        s.BonusPoints,
		})
	}
	return out
}

// Evaluate computes standings over snap for week. Only active participants
// are listed, ordered by active days descending and then by name.
func Evaluate(snap ledger.Snapshot, week period.Range, tiers []scoring.ConsistencyTier) Evaluation {
	days := make(map[string]map[time.Time]struct{})
	for _, a := range snap.Activities {
		if !week.Contains(a.Date) {
			continue
		}
		set, ok := days[a.ParticipantID]
		if !ok {
			set = make(map[time.Time]struct{})
			days[a.ParticipantID] = set
		}
		set[period.Day(a.Date)] = struct{}{}
	}

	weekKey := period.FormatDay(week.Start)
	awarded := make(map[string]struct{})
	for _, b := range snap.Bonuses {
		if period.FormatDay(b.WeekStart) == weekKey {
			awarded[b.ParticipantID] = struct{}{}
		}
	}

	standings := make([]Standing, 0, len(snap.Participants))
	for _, p := range snap.Participants {
		if !p.IsActive() {
			continue
		}
		active := len(days[p.ID])
		points, label := scoring.ConsistencyBonus(tiers, active)
		_, done := awarded[p.ID]
		standings = append(standings, Standing{
			Participant:    p,
			ParticipantID:  p.ID,
			Name:           p.Name,
			Team:           p.Team,
			ActiveDays:     active,
			BonusPoints:    points,
			BonusLabel:     label,
			AlreadyAwarded: done,
		})
	}
	sort.SliceStable(standings, func(i, j int) bool {
		if standings[i].ActiveDays != standings[j].ActiveDays {
			return standings[i].ActiveDays > standings[j].ActiveDays
		}
		return standings[i].Name < standings[j].Name
	})
	return Evaluation{Week: week, Standings: standings}
}

// Source supplies consistent ledger snapshots.
type Source interface {
	Snapshot() ledger.Snapshot
}

// Evaluator evaluates weeks relative to the current clock.
type Evaluator struct {
	source Source
	tiers  []scoring.ConsistencyTier
	now    func() time.Time
}

// NewEvaluator builds an Evaluator. tiers must already be ordered highest
// first, as scoring.Scorer.Rules returns them.
func NewEvaluator(source Source, tiers []scoring.ConsistencyTier, now func() time.Time) *Evaluator {
	if now == nil {
		now = time.Now
	}
	return &Evaluator{source: source, tiers: tiers, now: now}
}

// Evaluate computes standings for the week weekOffset weeks before the
// current one.
func (e *Evaluator) Evaluate(weekOffset int) (Evaluation, error) {
	if weekOffset < 0 {
		return Evaluation{}, domain.Invalid("week_offset", "must not be negative")
	}
	return Evaluate(e.source.Snapshot(), period.WeekOf(e.now(), weekOffset), e.tiers), nil
}
