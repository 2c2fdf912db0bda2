package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"example.com/fitchallenge/internal/domain"
)

// Category implements scoring.CategoryLookup.
func (s *Store) Category(id string) (domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok {
		return domain.Category{}, domain.ErrCategoryNotFound
	}
	return c, nil
}

// Categories lists categories ordered by name.
func (s *Store) Categories() []domain.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.categoriesLocked()
}

func (s *Store) categoriesLocked() []domain.Category {
	out := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// SaveCategory creates a category when c.ID is empty and replaces the
// existing one otherwise. Names are unique ignoring case.
func (s *Store) SaveCategory(ctx context.Context, c domain.Category) (domain.Category, error) {
	s.catMu.Lock()
	defer s.catMu.Unlock()

	c.Name = strings.TrimSpace(c.Name)
	now := s.now()

	s.mu.RLock()
	var (
		existing domain.Category
		found    bool
	)
	if c.ID != "" {
		existing, found = s.categories[c.ID]
	}
	conflict := false
	for _, other := range s.categories {
		if other.ID != c.ID && strings.EqualFold(other.Name, c.Name) {
			conflict = true
			break
		}
	}
	s.mu.RUnlock()

	if c.ID != "" && !found {
		return domain.Category{}, domain.ErrCategoryNotFound
	}
	if conflict {
		return domain.Category{}, domain.Invalid("name", "category %q already exists", c.Name)
	}

	if found {
		c.CreatedAt = existing.CreatedAt
	} else {
		c.ID = s.newID()
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	if err := s.journal.SaveCategory(ctx, c); err != nil {
		return domain.Category{}, fmt.Errorf("journal category: %w", err)
	}

	s.mu.Lock()
	s.categories[c.ID] = c
	s.mu.Unlock()
	return c, nil
}

// DeleteCategory removes a category. Stored activities keep their points and
// the category name captured at submission.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	s.catMu.Lock()
	defer s.catMu.Unlock()

	s.mu.RLock()
	_, ok := s.categories[id]
	s.mu.RUnlock()
	if !ok {
		return domain.ErrCategoryNotFound
	}

	if err := s.journal.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("journal category delete: %w", err)
	}

	s.mu.Lock()
	delete(s.categories, id)
	s.mu.Unlock()
	return nil
}
