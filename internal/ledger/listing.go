package ledger

import (
	"sort"

	"example.com/fitchallenge/internal/domain"
)

// ActivitiesByParticipant lists a participant's activities newest date
// first, then newest creation time, resuming after cursor when set. The
// returned cursor is nil on the last page.
func (s *Store) ActivitiesByParticipant(participantID string, cursor *domain.Cursor, limit int) ([]domain.Activity, *domain.Cursor, error) {
	st, err := s.Statement(participantID)
	if err != nil {
		return nil, nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	items := st.Activities
	SortNewestFirst(items)

	start := 0
	if cursor != nil {
		start = sort.Search(len(items), func(i int) bool {
			return after(items[i], *cursor)
		})
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	page := items[start:end]

	var next *domain.Cursor
	if end < len(items) && len(page) > 0 {
		last := page[len(page)-1]
		next = &domain.Cursor{Date: last.Date, CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return page, next, nil
}

// SortNewestFirst orders activities by date, creation time and ID, all descending.
func SortNewestFirst(items []domain.Activity) {
	sort.SliceStable(items, func(i, j int) bool {
		return newer(items[i], items[j])
	})
}

func newer(a, b domain.Activity) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.After(b.Date)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// after reports whether a sorts strictly after the cursor position.
func after(a domain.Activity, c domain.Cursor) bool {
	return newer(domain.Activity{Date: c.Date, CreatedAt: c.CreatedAt, ID: c.ID}, a)
}
