package postgres

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/ledgr/internal/apperr"
	"github.com/dvloznov/ledgr/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, isUniqueViolation(fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
	assert.False(t, isUniqueViolation(nil))
}

func TestMigrationFiles_Paired(t *testing.T) {
	entries, err := fs.ReadDir(migrationFiles, "migrations")
	require.NoError(t, err)

	ups, downs := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected migration file %s", name)
		}
	}
	require.NotEmpty(t, ups)
	assert.Equal(t, ups, downs)
}

// testStore connects to LEDGR_TEST_DATABASE_URL, migrates it and empties
// the ledger tables. Tests that need it are skipped without that variable.
func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("LEDGR_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("LEDGR_TEST_DATABASE_URL not set")
	}

	_, err := Migrate(dsn, zerolog.Nop())
	require.NoError(t, err)

	ctx := context.Background()
	store, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	require.NoError(t, store.ReplaceAll(ctx, domain.Snapshot{}))
	_, err = store.pool.Exec(ctx, `DELETE FROM ledger_metadata`)
	require.NoError(t, err)
	return store
}

func TestStore_Integration(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	day := time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC)
	txns := []domain.Transaction{
		{ID: "aaaa0001", Date: day, Amount: 12.5, Description: "TEA", Direction: domain.Debit, AccountID: 1},
		{ID: "aaaa0002", Date: day.AddDate(0, 0, 1), Amount: 100, Description: "REFUND", Direction: domain.Credit, AccountID: 1},
	}
	require.NoError(t, store.AddTransactions(ctx, txns))

	err := store.AddTransactions(ctx, txns[:1])
	var storeErr *apperr.StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, []string{"aaaa0001"}, storeErr.IDs)

	all, err := store.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "aaaa0002", all[0].ID)
	assert.True(t, all[1].Date.Equal(day))

	acct, err := store.CreateAccount(ctx, domain.Account{Name: "Main", Institution: domain.HDFC, Kind: domain.BankAccount})
	require.NoError(t, err)
	_, err = store.CreateAccount(ctx, domain.Account{Name: "MAIN", Institution: domain.SBI, Kind: domain.BankAccount})
	assert.True(t, errors.Is(err, apperr.ErrAlreadyExists))

	root, err := store.AddCategory(ctx, domain.Category{Value: "food", Name: "Food", IsEnabled: true})
	require.NoError(t, err)
	child, err := store.AddCategory(ctx, domain.Category{Value: "tea", Name: "Tea", ParentID: &root.ID})
	require.NoError(t, err)

	got, err := store.GetCategory(ctx, child.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ParentID)
	assert.Equal(t, root.ID, *got.ParentID)

	require.NoError(t, store.SetMetadata(ctx, domain.Metadata{Version: 9, LastSync: 3}))
	meta, err := store.GetMetadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Metadata{Version: 9, LastSync: 3}, meta)

	stats := domain.CashFlowStats{MonthlyCashFlow: []domain.GroupedCashFlow{{GroupKey: "Feb 2024"}}}
	require.NoError(t, store.SaveStats(ctx, stats))
	cached, err := store.GetStats(ctx)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "Feb 2024", cached.MonthlyCashFlow[0].GroupKey)

	require.NoError(t, store.ReplaceAll(ctx, domain.Snapshot{
		Accounts:   []domain.Account{{ID: acct.ID + 10, Name: "Imported", Institution: domain.ICICI, Kind: domain.CreditCard}},
		Categories: []domain.Category{{ID: 40, Value: "rent"}},
	}))
	next, err := store.CreateAccount(ctx, domain.Account{Institution: domain.SBI, Kind: domain.BankAccount})
	require.NoError(t, err)
	assert.Equal(t, acct.ID+11, next.ID)

	all, err = store.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
