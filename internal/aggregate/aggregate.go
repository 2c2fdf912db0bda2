// Package aggregate rolls ledger activity up by time window, category and
// participant for reports and dashboards.
package aggregate

import (
	"sort"
	"strings"

	"example.com/fitchallenge/internal/domain"
	"example.com/fitchallenge/internal/ledger"
	"example.com/fitchallenge/internal/period"
)

// Filter narrows a rollup. Empty fields match everything.
type Filter struct {
	// CategoryID matches the activity's category. Catalog activities carry
	// no category and match on their workout type instead.
	CategoryID    string `json:"category_id,omitempty"`
	ParticipantID string `json:"participant_id,omitempty"`
}

// Totals are the sums over every included activity.
type Totals struct {
	Minutes      int `json:"minutes"`
	Points       int `json:"points"`
	Steps        int `json:"steps"`
	Activities   int `json:"activities"`
	Participants int `json:"participants"`
}

// Group is one row of a breakdown.
type Group struct {
	Key            string  `json:"key"`
	Label          string  `json:"label"`
	Team           string  `json:"team,omitempty"`
	Minutes        int     `json:"minutes"`
	Points         int     `json:"points"`
	Steps          int     `json:"steps"`
	Activities     int     `json:"activities"`
	AverageMinutes float64 `json:"average_minutes"`
}

// Report is the result of one rollup.
type Report struct {
	Range         period.Range `json:"range"`
	Filter        Filter       `json:"filter"`
	Totals        Totals       `json:"totals"`
	ByCategory    []Group      `json:"by_category"`
	ByParticipant []Group      `json:"by_participant"`
}

// Matches reports whether a falls inside r and passes f.
func Matches(a domain.Activity, r period.Range, f Filter) bool {
	if !r.Contains(a.Date) {
		return false
	}
	if f.ParticipantID != "" && a.ParticipantID != f.ParticipantID {
		return false
	}
	if f.CategoryID != "" {
		if a.CategoryID != "" {
			return a.CategoryID == f.CategoryID
		}
		return strings.EqualFold(a.WorkoutType, f.CategoryID)
	}
	return true
}

// Select returns the activities of snap matching r and f, newest first.
func Select(snap ledger.Snapshot, r period.Range, f Filter) []domain.Activity {
	out := make([]domain.Activity, 0)
	for _, a := range snap.Activities {
		if Matches(a, r, f) {
			out = append(out, a)
		}
	}
	ledger.SortNewestFirst(out)
	return out
}

type accumulator struct {
	order  []string
	groups map[string]*Group
}

func newAccumulator() *accumulator {
	return &accumulator{groups: make(map[string]*Group)}
}

func (acc *accumulator) add(key, label, team string, a domain.Activity) {
	g, ok := acc.groups[key]
	if !ok {
		g = &Group{Key: key, Label: label, Team: team}
		acc.groups[key] = g
		acc.order = append(acc.order, key)
	}
	g.Minutes += a.DurationMinutes
	g.Points += a.Points
	g.Steps += a.StepsCount
	g.Activities++
}

// rows returns groups in first-encounter order, stable-sorted by minutes.
func (acc *accumulator) rows() []Group {
	out := make([]Group, 0, len(acc.order))
	for _, key := range acc.order {
		g := *acc.groups[key]
		g.AverageMinutes = average(g.Minutes, g.Activities)
		out = append(out, g)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Minutes > out[j].Minutes })
	return out
}

func average(minutes, count int) float64 {
	if count == 0 {
		return 0
	}
	return float64(minutes) / float64(count)
}

// Summarize computes the rollup of snap over r and f. Activities are visited
// in ledger order so first-encounter ordering is deterministic.
func Summarize(snap ledger.Snapshot, r period.Range, f Filter) Report {
	categoryNames := make(map[string]string, len(snap.Categories))
	for _, c := range snap.Categories {
		categoryNames[c.ID] = c.Name
	}
	people := make(map[string]domain.Participant, len(snap.Participants))
	for _, p := range snap.Participants {
		people[p.ID] = p
	}

	report := Report{Range: r, Filter: f}
	byCategory := newAccumulator()
	byParticipant := newAccumulator()
	seen := make(map[string]struct{})

	for _, a := range snap.Activities {
		if !Matches(a, r, f) {
			continue
		}
		report.Totals.Minutes += a.DurationMinutes
		report.Totals.Points += a.Points
		report.Totals.Steps += a.StepsCount
		report.Totals.Activities++
		seen[a.ParticipantID] = struct{}{}

		label := a.WorkoutType
		if name, ok := categoryNames[a.CategoryID]; ok && a.CategoryID != "" {
			label = name
		}
		if label == "" {
			label = "Uncategorized"
		}
		byCategory.add(label, label, "", a)

		name, team := a.ParticipantID, ""
		if p, ok := people[a.ParticipantID]; ok {
			name, team = p.Name, p.Team
		}
		byParticipant.add(a.ParticipantID, name, team, a)
	}

	report.Totals.Participants = len(seen)
	report.ByCategory = byCategory.rows()
	report.ByParticipant = byParticipant.rows()
	return report
}

// Source supplies consistent ledger snapshots.
type Source interface {
	Snapshot() ledger.Snapshot
}

// Aggregator answers rollup queries against a live ledger.
type Aggregator struct {
	source Source
}

// New builds an Aggregator.
func New(source Source) *Aggregator {
	return &Aggregator{source: source}
}

// Aggregate rolls up activities within r matching f.
func (a *Aggregator) Aggregate(r period.Range, f Filter) Report {
	return Summarize(a.source.Snapshot(), r, f)
}

// Activities lists activities within r matching f, newest first.
func (a *Aggregator) Activities(r period.Range, f Filter) []domain.Activity {
	return Select(a.source.Snapshot(), r, f)
}
