package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/ledgr/internal/apperr"
	"github.com/dvloznov/ledgr/internal/categories"
	"github.com/dvloznov/ledgr/internal/domain"
)

var _ categories.Lister = (*Service)(nil)

// GetAllCategories lists every category in id order.
func (s *Service) GetAllCategories(ctx context.Context) ([]domain.Category, error) {
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetAllCategories: %w", err)
	}
	return cats, nil
}

// GetCategory retrieves one category.
func (s *Service) GetCategory(ctx context.Context, id int64) (domain.Category, error) {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return domain.Category{}, notFound(err, "category", fmt.Sprint(id))
	}
	return c, nil
}

// AddCategory creates a user-defined category.
func (s *Service) AddCategory(ctx context.Context, c domain.Category) (domain.Category, error) {
	c.Value = strings.TrimSpace(c.Value)
	if c.Value == "" {
		return domain.Category{}, fmt.Errorf("AddCategory: %w", apperr.Invalid("category value is empty"))
	}
	if c.Value == domain.Untagged {
		return domain.Category{}, fmt.Errorf("AddCategory: %w", apperr.Duplicate("AddCategory", c.Value))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return domain.Category{}, fmt.Errorf("AddCategory: %w", err)
	}
	if err := categories.NewValidatorFrom(cats).ValidateParent(0, c.ParentID); err != nil {
		return domain.Category{}, fmt.Errorf("AddCategory: %w", err)
	}

	c.ID = 0
	c.IsDefault = false
	var created domain.Category
	err = s.mutateLocked(ctx, func(tx Store) error {
		var err error
		created, err = tx.AddCategory(ctx, c)
		return err
	})
	if err != nil {
		return domain.Category{}, fmt.Errorf("AddCategory: %w", err)
	}
	return created, nil
}

// UpdateCategory merges patch into the category with id. The value of a
// category never changes, since transactions refer to it.
func (s *Service) UpdateCategory(ctx context.Context, id int64, patch domain.CategoryPatch) (domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return domain.Category{}, notFound(err, "category", fmt.Sprint(id))
	}

	updated := patch.Apply(existing)
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return domain.Category{}, fmt.Errorf("UpdateCategory: %w", err)
	}
	if err := categories.NewValidatorFrom(cats).ValidateParent(id, updated.ParentID); err != nil {
		return domain.Category{}, fmt.Errorf("UpdateCategory: %w", err)
	}

	err = s.mutateLocked(ctx, func(tx Store) error {
		return tx.PutCategory(ctx, updated)
	})
	if err != nil {
		return domain.Category{}, fmt.Errorf("UpdateCategory: %w", err)
	}
	return updated, nil
}

// DeleteCategory removes a category. Transactions tagged with it fall back
// to untagged and its children become roots. It returns the ids of the
// transactions that were retagged.
func (s *Service) DeleteCategory(ctx context.Context, id int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return nil, notFound(err, "category", fmt.Sprint(id))
	}
	if existing.Value == domain.Untagged {
		return nil, fmt.Errorf("DeleteCategory: %w", apperr.Invalid("the untagged category cannot be deleted"))
	}

	// Retagging, orphaning and the delete land together or not at all.
	var retagged []string
	err = s.mutateLocked(ctx, func(tx Store) error {
		var err error
		retagged, err = tx.ReassignCategory(ctx, existing.Value, domain.Untagged)
		if err != nil {
			return fmt.Errorf("reassign: %w", err)
		}

		cats, err := tx.ListCategories(ctx)
		if err != nil {
			return err
		}
		for _, c := range cats {
			if c.ParentID == nil || *c.ParentID != id {
				continue
			}
			c.ParentID = nil
			if err := tx.PutCategory(ctx, c); err != nil {
				return fmt.Errorf("orphan %s: %w", c.Value, err)
			}
		}
		return tx.DeleteCategory(ctx, id)
	})
	if err != nil {
		return nil, fmt.Errorf("DeleteCategory: %w", err)
	}

	s.log.Info().
		Str("category", existing.Value).
		Int("retagged", len(retagged)).
		Msg("Category deleted")
	return retagged, nil
}
