// Package period resolves calendar days, Monday-start weeks and reporting
// shortcuts into inclusive date ranges.
package period

import (
	"fmt"
	"strings"
	"time"
)

// Layout is the wire format for calendar days.
const Layout = "2006-01-02"

// Shortcut names a relative reporting period.
type Shortcut string

const (
	Today Shortcut = "today"
	Week  Shortcut = "week"
	Month Shortcut = "month"
	All   Shortcut = "all"
)

// DefaultEpoch is the start of the "all" period when none is configured.
var DefaultEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Range is an inclusive span of calendar days.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether day falls within the range, bounds included.
func (r Range) Contains(day time.Time) bool {
	d := Day(day)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Days lists every calendar day in the range in ascending order.
func (r Range) Days() []time.Time {
	if r.End.Before(r.Start) {
		return nil
	}
	out := make([]time.Time, 0, int(r.End.Sub(r.Start).Hours()/24)+1)
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// String renders the range as "start..end".
func (r Range) String() string {
	return FormatDay(r.Start) + ".." + FormatDay(r.End)
}

// Day truncates t to its calendar date, expressed as midnight UTC. The date
// is read in t's own location so local clocks keep their notion of "today".
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(value string) (time.Time, error) {
	t, err := time.Parse(Layout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", value)
	}
	return t, nil
}

// FormatDay renders a day as YYYY-MM-DD.
func FormatDay(t time.Time) string {
	return t.Format(Layout)
}

// WeekStart returns the Monday of the week containing t.
func WeekStart(t time.Time) time.Time {
	d := Day(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// WeekOf returns the Monday-Sunday week containing t shifted back by offset
// whole weeks.
func WeekOf(t time.Time, offset int) Range {
	start := WeekStart(t).AddDate(0, 0, -7*offset)
	return Range{Start: start, End: start.AddDate(0, 0, 6)}
}

// Resolve turns a shortcut into a concrete range relative to now. Unknown
// shortcuts resolve to today.
func Resolve(s Shortcut, now, epoch time.Time) Range {
	today := Day(now)
	switch s {
	case Week:
		return WeekOf(now, 0)
	case Month:
		start := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		return Range{Start: start, End: start.AddDate(0, 1, -1)}
	case All:
		if epoch.IsZero() {
			epoch = DefaultEpoch
		}
		return Range{Start: Day(epoch), End: today}
	default:
		return Range{Start: today, End: today}
	}
}

// Query captures the reporting window as sent by a caller: a shortcut plus
// optional custom bounds.
type Query struct {
	Shortcut    Shortcut
	CustomStart string
	CustomEnd   string
}

// ResolveQuery resolves q at now. Custom bounds win only when both are set.
func ResolveQuery(q Query, now, epoch time.Time) (Range, error) {
	start := strings.TrimSpace(q.CustomStart)
	end := strings.TrimSpace(q.CustomEnd)
	if start == "" || end == "" {
		return Resolve(q.Shortcut, now, epoch), nil
	}
	from, err := ParseDay(start)
	if err != nil {
		return Range{}, err
	}
	to, err := ParseDay(end)
	if err != nil {
		return Range{}, err
	}
	if to.Before(from) {
		return Range{}, fmt.Errorf("start %s is after end %s", start, end)
	}
	return Range{Start: from, End: to}, nil
}
