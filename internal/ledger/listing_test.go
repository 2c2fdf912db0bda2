package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/fitchallenge/internal/domain"
)

func TestActivitiesByParticipantPagesNewestFirst(t *testing.T) {
	s := newTestStore(t)
	mustParticipant(t, s, "p1", "Asha")
	for _, day := range []string{"2026-10-14", "2026-10-16", "2026-10-15", "2026-10-16", "2026-10-13"} {
		_, _, err := s.Append(context.Background(), activity("p1", day, 100))
		require.NoError(t, err)
	}

	page, next, err := s.ActivitiesByParticipant("p1", nil, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.NotNil(t, next)
	require.Equal(t, "id-004", page[0].ID) // second 10-16 entry was created later
	require.Equal(t, "id-002", page[1].ID)

	var seen []string
	for _, a := range page {
		seen = append(seen, a.ID)
	}
	for next != nil {
		page, next, err = s.ActivitiesByParticipant("p1", next, 2)
		require.NoError(t, err)
		for _, a := range page {
			seen = append(seen, a.ID)
		}
	}
	require.Equal(t, []string{"id-004", "id-002", "id-003", "id-001", "id-005"}, seen)

	_, _, err = s.ActivitiesByParticipant("ghost", nil, 10)
	require.ErrorIs(t, err, domain.ErrParticipantNotFound)
}

func TestCategoryLifecycle(t *testing.T) {
	s := newTestStore(t)

	run, err := s.SaveCategory(context.Background(), domain.Category{Name: " Running ", PointsPerMinute: 7})
	require.NoError(t, err)
	require.Equal(t, "Running", run.Name)

	_, err = s.SaveCategory(context.Background(), domain.Category{Name: "running", PointsPerMinute: 3})
	require.True(t, domain.IsValidation(err))

	run.PointsPerMinute = 8
	updated, err := s.SaveCategory(context.Background(), run)
	require.NoError(t, err)
	require.Equal(t, 8, updated.PointsPerMinute)
	require.Equal(t, run.CreatedAt, updated.CreatedAt)

	_, err = s.SaveCategory(context.Background(), domain.Category{ID: "missing", Name: "Swim"})
	require.ErrorIs(t, err, domain.ErrCategoryNotFound)

	_, err = s.SaveCategory(context.Background(), domain.Category{Name: "Cycling", PointsPerMinute: 5})
	require.NoError(t, err)
	cats := s.Categories()
	require.Len(t, cats, 2)
	require.Equal(t, "Cycling", cats[0].Name)

	require.NoError(t, s.DeleteCategory(context.Background(), run.ID))
	require.ErrorIs(t, s.DeleteCategory(context.Background(), run.ID), domain.ErrCategoryNotFound)
	_, err = s.Category(run.ID)
	require.ErrorIs(t, err, domain.ErrCategoryNotFound)
}
