package identity

import (
	"regexp"
	"testing"
	"time"

	"github.com/dvloznov/ledgr/internal/domain"
	"github.com/stretchr/testify/assert"
)

var hexID = regexp.MustCompile(`^[0-9a-f]{8}$`)

func baseKey() domain.TransactionKey {
	return domain.TransactionKey{
		Date:        time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC),
		Amount:      499,
		Description: "NETFLIX",
		Direction:   domain.Debit,
	}
}

func withDescription(desc string) domain.TransactionKey {
	k := baseKey()
	k.Description = desc
	return k
}

func TestHash_KnownValues(t *testing.T) {
	tests := []struct {
		name string
		key  domain.TransactionKey
		want string
	}{
		{name: "debit", key: baseKey(), want: "fd7206d6"},
		{
			name: "credit",
			key: func() domain.TransactionKey {
				k := baseKey()
				k.Direction = domain.Credit
				return k
			}(),
			want: "fd72e6e5",
		},
		{
			name: "fractional amount with time of day",
			key: domain.TransactionKey{
				Date:        time.Date(2023, time.December, 31, 18, 30, 0, 0, time.UTC),
				Amount:      235.5,
				Description: "UPI/SWIGGY/REF 9988776655",
				Direction:   domain.Debit,
			},
			want: "9ec786cc",
		},
		{name: "line separator", key: withDescription("a\u2028b"), want: "32faa28d"},
		{name: "paragraph separator", key: withDescription("a\u2029b"), want: "99d3624e"},
		{name: "escaped backslash is not a separator", key: withDescription(`a\u2028b`), want: "53139f9e"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Hash(tt.key))
		})
	}
}

func TestHash_Deterministic(t *testing.T) {
	k := baseKey()
	first := Hash(k)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Hash(k))
	}
	assert.Regexp(t, hexID, first)
}

func TestHash_EachFieldMatters(t *testing.T) {
	base := Hash(baseKey())

	mutations := map[string]func(*domain.TransactionKey){
		"date":        func(k *domain.TransactionKey) { k.Date = k.Date.AddDate(0, 0, 1) },
		"amount":      func(k *domain.TransactionKey) { k.Amount = 500 },
		"description": func(k *domain.TransactionKey) { k.Description = "NETFLIX.COM" },
		"direction":   func(k *domain.TransactionKey) { k.Direction = domain.Credit },
	}

	for field, mutate := range mutations {
		t.Run(field, func(t *testing.T) {
			k := baseKey()
			mutate(&k)
			assert.NotEqual(t, base, Hash(k))
		})
	}
}

func TestHash_TimeZoneNormalized(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	k := baseKey()
	local := k
	local.Date = k.Date.In(ist)

	assert.Equal(t, Hash(k), Hash(local))
}

func TestAssign(t *testing.T) {
	txn := domain.Transaction{
		Date:        baseKey().Date,
		Amount:      499,
		Description: "NETFLIX",
		Direction:   domain.Debit,
		AccountID:   3,
	}

	got := Assign(txn)

	assert.Equal(t, "fd7206d6", got.ID)
	assert.Equal(t, int64(3), got.AccountID)
}
