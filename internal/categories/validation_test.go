package categories

import (
	"context"
	"errors"
	"testing"

	"github.com/dvloznov/ledgr/internal/apperr"
	"github.com/dvloznov/ledgr/internal/domain"
)

// mockLister is a mock for testing category validation
type mockLister struct {
	categories []domain.Category
	err        error
}

func (m *mockLister) GetAllCategories(ctx context.Context) ([]domain.Category, error) {
	return m.categories, m.err
}

func ptr(id int64) *int64 { return &id }

func testTaxonomy() []domain.Category {
	return []domain.Category{
		{ID: 1, Value: "housing"},
		{ID: 2, Value: "rent", ParentID: ptr(1)},
		{ID: 3, Value: "utilities", ParentID: ptr(1)},
		{ID: 4, Value: "food"},
		{ID: 5, Value: "groceries", ParentID: ptr(4)},
	}
}

func TestValidator_ValidateValue(t *testing.T) {
	validator, err := NewValidator(context.Background(), &mockLister{categories: testTaxonomy()})
	if err != nil {
		t.Fatalf("NewValidator failed: %v", err)
	}

	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{name: "known value", value: "rent", wantErr: false},
		{name: "different case", value: "RENT", wantErr: false},
		{name: "extra spaces", value: "  groceries  ", wantErr: false},
		{name: "untagged sentinel", value: "untagged", wantErr: false},
		{name: "empty", value: "", wantErr: false},
		{name: "unknown", value: "casino", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateValue(tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateValue(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, apperr.ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestValidator_ValidateParent(t *testing.T) {
	validator := NewValidatorFrom(testTaxonomy())

	tests := []struct {
		name     string
		id       int64
		parentID *int64
		wantErr  bool
	}{
		{name: "no parent", id: 2, parentID: nil},
		{name: "new category under root", id: 0, parentID: ptr(1)},
		{name: "move under another root", id: 2, parentID: ptr(4)},
		{name: "missing parent", id: 2, parentID: ptr(99), wantErr: true},
		{name: "self parent", id: 1, parentID: ptr(1), wantErr: true},
		{name: "parent under own child", id: 1, parentID: ptr(2), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateParent(tt.id, tt.parentID)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateParent(%d) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestCheckForest(t *testing.T) {
	tests := []struct {
		name    string
		cats    []domain.Category
		wantErr bool
	}{
		{name: "valid taxonomy", cats: testTaxonomy()},
		{name: "defaults", cats: Defaults()},
		{
			name:    "duplicate value",
			cats:    []domain.Category{{ID: 1, Value: "rent"}, {ID: 2, Value: "Rent"}},
			wantErr: true,
		},
		{
			name:    "empty value",
			cats:    []domain.Category{{ID: 1, Value: " "}},
			wantErr: true,
		},
		{
			name:    "dangling parent",
			cats:    []domain.Category{{ID: 1, Value: "rent", ParentID: ptr(7)}},
			wantErr: true,
		},
		{
			name: "two node cycle",
			cats: []domain.Category{
				{ID: 1, Value: "a", ParentID: ptr(2)},
				{ID: 2, Value: "b", ParentID: ptr(1)},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckForest(tt.cats)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckForest() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewValidator_ListError(t *testing.T) {
	_, err := NewValidator(context.Background(), &mockLister{err: errors.New("boom")})
	if err == nil {
		t.Fatal("expected error when listing fails")
	}
}
