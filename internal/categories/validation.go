package categories

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dvloznov/ledgr/internal/apperr"
	"github.com/dvloznov/ledgr/internal/domain"
)

// Lister lists the current categories.
type Lister interface {
	GetAllCategories(ctx context.Context) ([]domain.Category, error)
}

// Validator checks category values and parent links against a taxonomy.
type Validator struct {
	byValue map[string]domain.Category // normalized value -> category
	byID    map[int64]domain.Category
}

// NewValidator builds a validator from the categories returned by lister.
func NewValidator(ctx context.Context, lister Lister) (*Validator, error) {
	cats, err := lister.GetAllCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewValidator: list categories: %w", err)
	}
	return NewValidatorFrom(cats), nil
}

// NewValidatorFrom builds a validator over cats.
func NewValidatorFrom(cats []domain.Category) *Validator {
	v := &Validator{
		byValue: make(map[string]domain.Category, len(cats)),
		byID:    make(map[int64]domain.Category, len(cats)),
	}
	for _, c := range cats {
		v.byValue[normalizeValue(c.Value)] = c
		v.byID[c.ID] = c
	}
	return v
}

// ValidateValue checks that value names an existing category. The untagged
// sentinel and the empty value are always valid.
func (v *Validator) ValidateValue(value string) error {
	norm := normalizeValue(value)
	if norm == "" || norm == domain.Untagged {
		return nil
	}
	if _, ok := v.byValue[norm]; !ok {
		return apperr.Missing("category", value)
	}
	return nil
}

// ValidateParent checks that giving category id the parent parentID keeps
// the taxonomy a forest. id is 0 for a category that does not exist yet.
func (v *Validator) ValidateParent(id int64, parentID *int64) error {
	if parentID == nil {
		return nil
	}
	if _, ok := v.byID[*parentID]; !ok {
		return apperr.Missing("category", strconv.FormatInt(*parentID, 10))
	}

	seen := map[int64]bool{}
	for cur := parentID; cur != nil; {
		if *cur == id && id != 0 {
			return apperr.Invalid("category %d cannot be its own ancestor", id)
		}
		if seen[*cur] {
			return apperr.Invalid("category parent chain of %d is cyclic", *cur)
		}
		seen[*cur] = true
		cur = v.byID[*cur].ParentID
	}
	return nil
}

// CheckForest validates a whole taxonomy: values are non-empty and unique
// (case-insensitively), every parent exists, and no parent chain loops.
func CheckForest(cats []domain.Category) error {
	v := &Validator{
		byValue: make(map[string]domain.Category, len(cats)),
		byID:    make(map[int64]domain.Category, len(cats)),
	}
	for _, c := range cats {
		norm := normalizeValue(c.Value)
		if norm == "" {
			return apperr.Invalid("category %d has an empty value", c.ID)
		}
		if _, dup := v.byValue[norm]; dup {
			return apperr.Invalid("duplicate category value %q", c.Value)
		}
		if _, dup := v.byID[c.ID]; dup {
			return apperr.Invalid("duplicate category id %d", c.ID)
		}
		v.byValue[norm] = c
		v.byID[c.ID] = c
	}

	for _, c := range cats {
		if err := v.ValidateParent(c.ID, c.ParentID); err != nil {
			return fmt.Errorf("category %q: %w", c.Value, err)
		}
	}
	return nil
}

// normalizeValue trims and lowercases a category value for comparison.
func normalizeValue(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
