package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFilters_Match(t *testing.T) {
	txn := Transaction{
		ID:          "0000abcd",
		Date:        time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC),
		Amount:      499,
		Description: "NETFLIX.COM Mumbai",
		Direction:   Debit,
	}

	tests := []struct {
		name    string
		filters Filters
		want    bool
	}{
		{name: "zero value matches", filters: Filters{}, want: true},
		{name: "search is case insensitive", filters: Filters{Search: "netflix"}, want: true},
		{name: "search miss", filters: Filters{Search: "swiggy"}, want: false},
		{
			name: "date inside range",
			filters: Filters{DateRange: &DateRange{
				Start: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
				End:   time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC),
			}},
			want: true,
		},
		{
			name: "date outside range",
			filters: Filters{DateRange: &DateRange{
				Start: time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC),
				End:   time.Date(2024, time.April, 30, 0, 0, 0, 0, time.UTC),
			}},
			want: false,
		},
		{name: "direction match", filters: Filters{Direction: Debit}, want: true},
		{name: "direction miss", filters: Filters{Direction: Credit}, want: false},
		{name: "absent category counts as untagged", filters: Filters{Categories: []string{Untagged}}, want: true},
		{name: "category miss", filters: Filters{Categories: []string{"rent"}}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filters.Match(txn))
		})
	}
}

func TestTransactionPatch_Apply(t *testing.T) {
	cat := "streaming_services"
	exclude := true
	txn := Transaction{ID: "1", Description: "NETFLIX"}

	got := TransactionPatch{Category: &cat, ExcludeFromCashFlow: &exclude}.Apply(txn)

	assert.Equal(t, "1", got.ID)
	assert.Equal(t, "streaming_services", got.Category)
	assert.True(t, got.ExcludeFromCashFlow)
	assert.Empty(t, txn.Category, "original must be untouched")
}

func TestCategoryPatch_ClearParent(t *testing.T) {
	parent := int64(4)
	c := Category{ID: 9, Value: "rent", ParentID: &parent}

	got := CategoryPatch{ClearParent: true}.Apply(c)

	assert.Nil(t, got.ParentID)
	assert.Equal(t, "rent", got.Value)
}
