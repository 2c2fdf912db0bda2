package api

import (
	"time"

	"example.com/fitchallenge/internal/challenge"
	"example.com/fitchallenge/internal/domain"
	"example.com/fitchallenge/internal/period"
)

// ActivityView is the wire shape of a stored activity.
type ActivityView struct {
	ActivityID      string    `json:"activity_id"`
	ParticipantID   string    `json:"participant_id"`
	Date            string    `json:"date"`
	WorkoutType     string    `json:"workout_type,omitempty"`
	CategoryID      string    `json:"category_id,omitempty"`
	Details         string    `json:"details,omitempty"`
	DurationMinutes int       `json:"duration_minutes"`
	StepsCount      int       `json:"steps_count"`
	Points          int       `json:"points"`
	ProofRef        string    `json:"proof_ref,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// ParticipantView is the wire shape of a participant.
type ParticipantView struct {
	ParticipantID string    `json:"participant_id"`
	EmployeeID    string    `json:"employee_id"`
	Name          string    `json:"name"`
	Team          string    `json:"team"`
	Email         string    `json:"email"`
	Status        string    `json:"status"`
	Role          string    `json:"role"`
	TotalPoints   int       `json:"total_points"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CategoryView is the wire shape of a rate-mode category.
type CategoryView struct {
	CategoryID      string    `json:"category_id"`
	Name            string    `json:"name"`
	PointsPerMinute int       `json:"points_per_minute"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BonusView is the wire shape of an awarded weekly bonus.
type BonusView struct {
	BonusID       string `json:"bonus_id"`
	ParticipantID string `json:"participant_id"`
	WeekStart     string `json:"week_start"`
	WeekEnd       string `json:"week_end"`
	DaysActive    int    `json:"days_active"`
	Points        int    `json:"points"`
}

// RangeView renders a period as calendar dates.
type RangeView struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DayView is one day of the participant dashboard week.
type DayView struct {
	Date       string `json:"date"`
	Points     int    `json:"points"`
	Minutes    int    `json:"minutes"`
	Activities int    `json:"activities"`
}

// DashboardView is the participant dashboard payload.
type DashboardView struct {
	Participant      ParticipantView `json:"participant"`
	TodayPoints      int             `json:"today_points"`
	WeeklyActiveDays int             `json:"weekly_active_days"`
	ActivityCount    int             `json:"activity_count"`
	Streak           int             `json:"streak"`
	Week             []DayView       `json:"week"`
	Recent           []ActivityView  `json:"recent"`
}

// MetricsView is the admin dashboard payload.
type MetricsView struct {
	TotalParticipants int `json:"total_participants"`
	ActiveToday       int `json:"active_today"`
	WorkoutMinutes    int `json:"workout_minutes"`
	Steps             int `json:"steps"`
	PointsToday       int `json:"points_today"`
}

func toActivityView(a domain.Activity) ActivityView {
	return ActivityView{
		ActivityID:      a.ID,
		ParticipantID:   a.ParticipantID,
		Date:            period.FormatDay(a.Date),
		WorkoutType:     a.WorkoutType,
		CategoryID:      a.CategoryID,
		Details:         a.Details,
		DurationMinutes: a.DurationMinutes,
		StepsCount:      a.StepsCount,
		Points:          a.Points,
		ProofRef:        a.ProofRef,
		CreatedAt:       a.CreatedAt,
	}
}

func toActivityViews(items []domain.Activity) []ActivityView {
	out := make([]ActivityView, 0, len(items))
	for _, a := range items {
		out = append(out, toActivityView(a))
	}
	return out
}

func toParticipantView(p domain.Participant) ParticipantView {
	return ParticipantView{
		ParticipantID: p.ID,
		EmployeeID:    p.EmployeeID,
		Name:          p.Name,
		Team:          p.Team,
		Email:         p.Email,
		Status:        string(p.Status),
		Role:          string(p.Role),
		TotalPoints:   p.TotalPoints,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func toParticipantViews(items []domain.Participant) []ParticipantView {
	out := make([]ParticipantView, 0, len(items))
	for _, p := range items {
		out = append(out, toParticipantView(p))
	}
	return out
}

func toCategoryView(c domain.Category) CategoryView {
	return CategoryView{
		CategoryID:      c.ID,
		Name:            c.Name,
		PointsPerMinute: c.PointsPerMinute,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func toBonusViews(items []domain.WeeklyBonus) []BonusView {
	out := make([]BonusView, 0, len(items))
	for _, b := range items {
		out = append(out, BonusView{
			BonusID:       b.ID,
			ParticipantID: b.ParticipantID,
			WeekStart:     period.FormatDay(b.WeekStart),
			WeekEnd:       period.FormatDay(b.WeekEnd),
			DaysActive:    b.DaysActive,
			Points:        b.Points,
		})
	}
	return out
}

func toRangeView(r period.Range) RangeView {
	return RangeView{Start: period.FormatDay(r.Start), End: period.FormatDay(r.End)}
}

func toDashboardView(d challenge.ParticipantDashboard) DashboardView {
	week := make([]DayView, 0, len(d.Week))
	for _, day := range d.Week {
		week = append(week, DayView{
			Date:       period.FormatDay(day.Date),
			Points:     day.Points,
			Minutes:    day.Minutes,
			Activities: day.Activities,
		})
	}
	return DashboardView{
		Participant:      toParticipantView(d.Participant),
		TodayPoints:      d.TodayPoints,
		WeeklyActiveDays: d.WeeklyActiveDays,
		ActivityCount:    d.ActivityCount,
		Streak:           d.Streak,
		Week:             week,
		Recent:           toActivityViews(d.Recent),
	}
}
