package challenge

import (
	"context"
	"time"

	"example.com/fitchallenge/internal/domain"
	"example.com/fitchallenge/internal/ledger"
	"example.com/fitchallenge/internal/period"
)

const recentActivities = 10

// DayBreakdown sums one day of a participant's week.
type DayBreakdown struct {
	Date       time.Time
	Points     int
	Minutes    int
	Activities int
}

// ParticipantDashboard is a participant's progress overview.
type ParticipantDashboard struct {
	Participant      domain.Participant
	TodayPoints      int
	WeeklyActiveDays int
	ActivityCount    int
	Streak           int
	Week             []DayBreakdown
	Recent           []domain.Activity
}

// ParticipantDashboard builds the overview for one participant as of today.
func (s *Service) ParticipantDashboard(ctx context.Context, participantID string) (ParticipantDashboard, error) {
	st, err := s.store.Statement(participantID)
	if err != nil {
		return ParticipantDashboard{}, err
	}
	today := s.today()
	week := period.WeekOf(today, 0)

	days := make(map[time.Time]*DayBreakdown, 7)
	breakdown := make([]DayBreakdown, 0, 7)
	for _, d := range week.Days() {
		breakdown = append(breakdown, DayBreakdown{Date: d})
	}
	for i := range breakdown {
		days[breakdown[i].Date] = &breakdown[i]
	}

	dash := ParticipantDashboard{
		Participant:   st.Participant,
		ActivityCount: len(st.Activities),
	}
	active := make(map[time.Time]struct{}, len(st.Activities))
	for _, a := range st.Activities {
		d := period.Day(a.Date)
		active[d] = struct{}{}
		if d.Equal(today) {
			dash.TodayPoints += a.Points
		}
		if row, ok := days[d]; ok {
			row.Points += a.Points
			row.Minutes += a.DurationMinutes
			row.Activities++
		}
	}
	for _, row := range breakdown {
		if row.Activities > 0 {
			dash.WeeklyActiveDays++
		}
	}
	dash.Week = breakdown
	dash.Streak = streak(active, today)

	recent := st.Activities
	ledger.SortNewestFirst(recent)
	if len(recent) > recentActivities {
		recent = recent[:recentActivities]
	}
	dash.Recent = recent
	return dash, nil
}

// streak counts consecutive active days ending today; zero when today has
// no activity.
func streak(active map[time.Time]struct{}, today time.Time) int {
	n := 0
	for d := today; ; d = d.AddDate(0, 0, -1) {
		if _, ok := active[d]; !ok {
			return n
		}
		n++
	}
}

// DashboardMetrics is the admin overview for today.
type DashboardMetrics struct {
	TotalParticipants int
	ActiveToday       int
	WorkoutMinutes    int
	Steps             int
	PointsToday       int
}

// DashboardMetrics summarizes today's activity across every participant.
func (s *Service) DashboardMetrics(ctx context.Context) DashboardMetrics {
	snap := s.store.Snapshot()
	today := s.today()

	m := DashboardMetrics{TotalParticipants: len(snap.Participants)}
	seen := make(map[string]struct{})
	for _, a := range snap.Activities {
		if !period.Day(a.Date).Equal(today) {
			continue
		}
		seen[a.ParticipantID] = struct{}{}
		m.WorkoutMinutes += a.DurationMinutes
		m.Steps += a.StepsCount
		m.PointsToday += a.Points
	}
	m.ActiveToday = len(seen)
	return m
}
