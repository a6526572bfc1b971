package categories

import (
	"testing"

	"github.com/dvloznov/ledgr/internal/cashflow"
	"github.com/dvloznov/ledgr/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cats := Defaults()
	require.Len(t, cats, len(SpecialSeeds)+len(SuperSeeds)+len(SubSeeds))

	byValue := make(map[string]domain.Category, len(cats))
	for _, c := range cats {
		byValue[c.Value] = c
		assert.True(t, c.IsDefault, c.Value)
		assert.True(t, c.IsEnabled, c.Value)
	}

	untagged := byValue[domain.Untagged]
	assert.Equal(t, int64(1), untagged.ID)
	assert.Nil(t, untagged.ParentID)

	rent := byValue["rent"]
	require.NotNil(t, rent.ParentID)
	assert.Equal(t, byValue["housing"].ID, *rent.ParentID)

	// Every tagger default rule must target a seeded category.
	for _, v := range []string{"streaming_services", "food_delivery", "rent"} {
		assert.Contains(t, byValue, v)
	}
}

func TestDefaults_ExclusionFlagsMatchCashFlow(t *testing.T) {
	byValue := make(map[string]domain.Category)
	for _, c := range Defaults() {
		byValue[c.Value] = c
	}

	for _, v := range cashflow.ExcludedCategories() {
		c, ok := byValue[v]
		require.True(t, ok, v)
		assert.True(t, c.ExcludeFromCashFlow, v)
	}
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build([]Seed{{Value: "rent", ParentValue: "housing"}, {Value: "housing"}})
	assert.Error(t, err, "parent after child")

	_, err = Build([]Seed{{Value: "rent"}, {Value: "rent"}})
	assert.Error(t, err, "duplicate")
}

func TestMapLegacy(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{in: "dining", want: "restaurants"},
		{in: "netflix", want: "streaming_services"},
		{in: "swiggy", want: "food_delivery"},
		{in: "shopping", want: domain.Untagged},
		{in: "groceries", want: "groceries"},
		{in: "cafes", want: "cafes"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, MapLegacy(tt.in))
		})
	}
}

func TestMigrateSnapshot(t *testing.T) {
	legacy := domain.Snapshot{
		Version: 3,
		Transactions: []domain.Transaction{
			{ID: "a", Category: "dining"},
			{ID: "b"},
		},
	}

	got := MigrateSnapshot(legacy)
	assert.Equal(t, "restaurants", got.Transactions[0].Category)
	assert.Equal(t, "", got.Transactions[1].Category)
	assert.Equal(t, "dining", legacy.Transactions[0].Category, "input must not be mutated")

	current := domain.Snapshot{
		Transactions: []domain.Transaction{{ID: "a", Category: "dining"}},
		Categories:   []domain.Category{{ID: 1, Value: "dining"}},
	}
	assert.Equal(t, "dining", MigrateSnapshot(current).Transactions[0].Category)
}
