package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/ledgr/internal/apperr"
	"github.com/dvloznov/ledgr/internal/categories"
	"github.com/dvloznov/ledgr/internal/domain"
	"github.com/dvloznov/ledgr/internal/identity"
	"github.com/dvloznov/ledgr/internal/ledger"
	"github.com/dvloznov/ledgr/internal/ledger/inmemory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var frozen = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T) *ledger.Service {
	t.Helper()
	svc := ledger.NewService(inmemory.NewStore(), ledger.WithClock(func() time.Time { return frozen }))
	require.NoError(t, svc.Init(context.Background()))
	return svc
}

func txn(day int, amount float64, desc string, dir domain.Direction) domain.Transaction {
	return identity.Assign(domain.Transaction{
		Date:        time.Date(2024, time.January, day, 0, 0, 0, 0, time.UTC),
		Amount:      amount,
		Description: desc,
		Direction:   dir,
		AccountID:   1,
	})
}

func sampleBatch() []domain.Transaction {
	return []domain.Transaction{
		txn(3, 499, "NETFLIX SUBSCRIPTION", domain.Debit),
		txn(5, 50000, "SALARY JAN", domain.Credit),
		txn(9, 320, "SWIGGY ORDER 1", domain.Debit),
	}
}

func TestInit_SeedsOnce(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	n, err := svc.SeedCategories(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "second seeding must be a no-op")

	cats, err := svc.GetAllCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, len(categories.Defaults()))
	assert.NoError(t, categories.CheckForest(cats))
}

func TestAddTransactions_ReimportIsRejected(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	ids, err := svc.AddTransactions(ctx, sampleBatch())
	require.NoError(t, err)
	assert.Len(t, ids, 3)

	_, err = svc.AddTransactions(ctx, sampleBatch())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrAlreadyExists))
	assert.Equal(t, apperr.KindStore, apperr.KindOf(err))

	all, err := svc.GetTransactions(ctx, domain.Filters{}, 0, -1)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestAddTransactions_PartialOverlapAddsNothing(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	_, err := svc.AddTransactions(ctx, sampleBatch()[:1])
	require.NoError(t, err)

	_, err = svc.AddTransactions(ctx, sampleBatch())
	require.Error(t, err)

	var storeErr *apperr.StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, []string{sampleBatch()[0].ID}, storeErr.IDs)

	all, err := svc.GetTransactions(ctx, domain.Filters{}, 0, -1)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAddTransactions_CollapsesRepeatsInBatch(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	batch := append(sampleBatch(), sampleBatch()[0])
	ids, err := svc.AddTransactions(ctx, batch)
	require.NoError(t, err)
	assert.Len(t, ids, 3)
}

func TestAddTransactions_RejectsInvalid(t *testing.T) {
	svc := newService(t)

	bad := txn(1, 10, "X", domain.Debit)
	bad.Amount = -10
	_, err := svc.AddTransactions(context.Background(), []domain.Transaction{bad})
	assert.True(t, errors.Is(err, apperr.ErrInvalid))
}

func TestVersion_StrictlyIncreases(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	_, err := svc.AddTransactions(ctx, sampleBatch()[:1])
	require.NoError(t, err)
	meta, err := svc.Metadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, frozen.UnixMilli(), meta.Version)

	require.NoError(t, svc.TagTransaction(ctx, sampleBatch()[0].ID, "streaming_services"))
	meta, err = svc.Metadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, frozen.UnixMilli()+1, meta.Version, "stalled clock must still advance the version")
}

func TestGetTransactions_OrderAndPaging(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	_, err := svc.AddTransactions(ctx, sampleBatch())
	require.NoError(t, err)

	all, err := svc.GetTransactions(ctx, domain.Filters{}, 0, -1)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "SWIGGY ORDER 1", all[0].Description)
	assert.Equal(t, "NETFLIX SUBSCRIPTION", all[2].Description)

	page, err := svc.GetTransactions(ctx, domain.Filters{}, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "SALARY JAN", page[0].Description)

	debits, err := svc.GetTransactions(ctx, domain.Filters{Direction: domain.Debit}, 1, -1)
	require.NoError(t, err)
	require.Len(t, debits, 1)
	assert.Equal(t, "NETFLIX SUBSCRIPTION", debits[0].Description)
}

func TestGetCashFlow(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	_, err := svc.AddTransactions(ctx, sampleBatch())
	require.NoError(t, err)

	cf, err := svc.GetCashFlow(ctx, domain.Filters{})
	require.NoError(t, err)
	assert.Equal(t, 3, cf.Count)
	assert.Equal(t, 2, cf.OutgoingCount)
	assert.InDelta(t, 819, cf.Outgoing, 1e-9)
	assert.InDelta(t, 50000, cf.Incoming, 1e-9)
}

func TestTagTransactions(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	_, err := svc.AddTransactions(ctx, sampleBatch())
	require.NoError(t, err)

	ids, err := svc.TagTransactions(ctx, domain.Filters{Search: "swiggy"}, "food_delivery")
	require.NoError(t, err)
	assert.Equal(t, []string{sampleBatch()[2].ID}, ids)

	got, err := svc.GetTransaction(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "food_delivery", got.Category)

	_, err = svc.TagTransactions(ctx, domain.Filters{}, "no_such_category")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	stats, err := svc.GetStats(ctx)
	require.NoError(t, err)
	var sawFood bool
	for _, g := range stats.CategoryCashFlow {
		if g.GroupKey == "food_delivery" {
			sawFood = true
			assert.Equal(t, 1, g.CashFlow.Count)
		}
	}
	assert.True(t, sawFood, "stats must be recomputed after tagging")
}

func TestTagTransactionIDs_UntaggedGroups(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	batch := append(sampleBatch(), txn(20, 210, "SWIGGY ORDER 2", domain.Debit))
	_, err := svc.AddTransactions(ctx, batch)
	require.NoError(t, err)

	groups, err := svc.GetUntaggedGroups(ctx, 0)
	require.NoError(t, err)

	var swiggy *domain.TransactionGroup
	for i := range groups {
		if groups[i].Signature == "order swiggy" {
			swiggy = &groups[i]
		}
	}
	require.NotNil(t, swiggy)
	assert.Equal(t, 2, swiggy.Count)

	var ids []string
	for _, m := range swiggy.Transactions {
		ids = append(ids, m.ID)
	}
	changed, err := svc.TagTransactionIDs(ctx, ids, "food_delivery")
	require.NoError(t, err)
	assert.ElementsMatch(t, ids, changed)

	groups, err = svc.GetUntaggedGroups(ctx, 0)
	require.NoError(t, err)
	for _, g := range groups {
		assert.NotEqual(t, "order swiggy", g.Signature)
	}
}

func TestUpdateTransaction_Missing(t *testing.T) {
	svc := newService(t)

	category := "rent"
	_, err := svc.UpdateTransaction(context.Background(), "deadbeef", domain.TransactionPatch{Category: &category})
	require.Error(t, err)
	assert.Equal(t, apperr.KindReferential, apperr.KindOf(err))
}

func TestCreateAccount(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	a, err := svc.CreateAccount(ctx, domain.Account{Name: "Salary", Institution: domain.HDFC, Kind: domain.BankAccount})
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.ID)

	_, err = svc.CreateAccount(ctx, domain.Account{Name: "salary", Institution: domain.ICICI, Kind: domain.CreditCard})
	assert.True(t, errors.Is(err, apperr.ErrAlreadyExists))

	_, err = svc.CreateAccount(ctx, domain.Account{Name: "Other", Institution: "axis", Kind: domain.BankAccount})
	assert.True(t, errors.Is(err, apperr.ErrInvalid))

	accounts, err := svc.GetAllAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestCategoryLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	hobbies, err := svc.AddCategory(ctx, domain.Category{Value: "hobbies", Name: "Hobbies", IsEnabled: true})
	require.NoError(t, err)
	games, err := svc.AddCategory(ctx, domain.Category{Value: "board_games", Name: "Board games", ParentID: &hobbies.ID})
	require.NoError(t, err)
	assert.False(t, games.IsDefault)

	_, err = svc.AddCategory(ctx, domain.Category{Value: "rent"})
	assert.True(t, errors.Is(err, apperr.ErrAlreadyExists))

	_, err = svc.UpdateCategory(ctx, hobbies.ID, domain.CategoryPatch{ParentID: &games.ID})
	assert.True(t, errors.Is(err, apperr.ErrInvalid), "cycle must be rejected")

	name := "Leisure"
	renamed, err := svc.UpdateCategory(ctx, hobbies.ID, domain.CategoryPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Leisure", renamed.Name)

	_, err = svc.AddTransactions(ctx, sampleBatch())
	require.NoError(t, err)
	tagged, err := svc.TagTransactions(ctx, domain.Filters{Search: "netflix"}, "hobbies")
	require.NoError(t, err)

	retagged, err := svc.DeleteCategory(ctx, hobbies.ID)
	require.NoError(t, err)
	assert.Equal(t, tagged, retagged)

	got, err := svc.GetTransaction(ctx, tagged[0])
	require.NoError(t, err)
	assert.Equal(t, domain.Untagged, got.Category)

	child, err := svc.GetCategory(ctx, games.ID)
	require.NoError(t, err)
	assert.Nil(t, child.ParentID)

	_, err = svc.GetCategory(ctx, hobbies.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

var errInjected = errors.New("injected failure")

// failingStore fails one named write, including inside Atomic.
type failingStore struct {
	ledger.Store
	failOn string
}

func (f *failingStore) Atomic(ctx context.Context, fn func(tx ledger.Store) error) error {
	return f.Store.Atomic(ctx, func(tx ledger.Store) error {
		return fn(&failingStore{Store: tx, failOn: f.failOn})
	})
}

func (f *failingStore) DeleteCategory(ctx context.Context, id int64) error {
	if f.failOn == "DeleteCategory" {
		return errInjected
	}
	return f.Store.DeleteCategory(ctx, id)
}

func (f *failingStore) SetMetadata(ctx context.Context, meta domain.Metadata) error {
	if f.failOn == "SetMetadata" {
		return errInjected
	}
	return f.Store.SetMetadata(ctx, meta)
}

func TestMutations_FailureLeavesLedgerUnchanged(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: inmemory.NewStore()}
	svc := ledger.NewService(store, ledger.WithClock(func() time.Time { return frozen }))
	require.NoError(t, svc.Init(ctx))

	hobbies, err := svc.AddCategory(ctx, domain.Category{Value: "hobbies", Name: "Hobbies", IsEnabled: true})
	require.NoError(t, err)
	games, err := svc.AddCategory(ctx, domain.Category{Value: "board_games", Name: "Board games", ParentID: &hobbies.ID})
	require.NoError(t, err)
	_, err = svc.AddTransactions(ctx, sampleBatch())
	require.NoError(t, err)
	tagged, err := svc.TagTransactions(ctx, domain.Filters{Search: "netflix"}, "hobbies")
	require.NoError(t, err)
	require.Len(t, tagged, 1)

	before, err := svc.Metadata(ctx)
	require.NoError(t, err)

	t.Run("delete category", func(t *testing.T) {
		store.failOn = "DeleteCategory"
		defer func() { store.failOn = "" }()

		_, err := svc.DeleteCategory(ctx, hobbies.ID)
		require.ErrorIs(t, err, errInjected)

		got, err := svc.GetTransaction(ctx, tagged[0])
		require.NoError(t, err)
		assert.Equal(t, "hobbies", got.Category, "retag must roll back")

		child, err := svc.GetCategory(ctx, games.ID)
		require.NoError(t, err)
		require.NotNil(t, child.ParentID, "orphaning must roll back")
		assert.Equal(t, hobbies.ID, *child.ParentID)

		_, err = svc.GetCategory(ctx, hobbies.ID)
		assert.NoError(t, err)
	})

	t.Run("update transaction", func(t *testing.T) {
		store.failOn = "SetMetadata"
		defer func() { store.failOn = "" }()

		dining := "food_and_dining"
		_, err := svc.UpdateTransaction(ctx, tagged[0], domain.TransactionPatch{Category: &dining})
		require.ErrorIs(t, err, errInjected)

		got, err := svc.GetTransaction(ctx, tagged[0])
		require.NoError(t, err)
		assert.Equal(t, "hobbies", got.Category)
	})

	after, err := svc.Metadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.Version, after.Version)

	retagged, err := svc.DeleteCategory(ctx, hobbies.ID)
	require.NoError(t, err)
	assert.Equal(t, tagged, retagged)
	after, err = svc.Metadata(ctx)
	require.NoError(t, err)
	assert.Greater(t, after.Version, before.Version)
}

func TestDeleteCategory_UntaggedIsProtected(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	cats, err := svc.GetAllCategories(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.Untagged, cats[0].Value)

	_, err = svc.DeleteCategory(ctx, cats[0].ID)
	assert.True(t, errors.Is(err, apperr.ErrInvalid))
}

func TestExportImport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newService(t)
	_, err := src.CreateAccount(ctx, domain.Account{Name: "Card", Institution: domain.ICICI, Kind: domain.CreditCard})
	require.NoError(t, err)
	_, err = src.AddTransactions(ctx, sampleBatch())
	require.NoError(t, err)

	snap, err := src.Export(ctx)
	require.NoError(t, err)

	dst := newService(t)
	require.NoError(t, dst.SetLastSync(ctx, 42))
	require.NoError(t, dst.Import(ctx, snap))

	meta, err := dst.Metadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.Version, meta.Version)
	assert.Equal(t, int64(42), meta.LastSync)

	again, err := dst.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap, again)

	// Ids continue after the imported ones.
	a, err := dst.CreateAccount(ctx, domain.Account{Name: "Second", Institution: domain.SBI, Kind: domain.BankAccount})
	require.NoError(t, err)
	assert.Equal(t, int64(2), a.ID)
}

func TestImport_LegacySnapshot(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	legacyTxn := txn(2, 900, "DOMINOS", domain.Debit)
	legacyTxn.ID = ""
	legacyTxn.Category = "dining"

	snap := domain.Snapshot{
		Version:      7,
		Accounts:     []domain.Account{{ID: 1, Institution: domain.HDFC, Kind: domain.BankAccount}},
		Transactions: []domain.Transaction{legacyTxn},
	}
	require.NoError(t, svc.Import(ctx, snap))

	all, err := svc.GetTransactions(ctx, domain.Filters{}, 0, -1)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "restaurants", all[0].Category)
	assert.Equal(t, identity.Hash(legacyTxn.Key()), all[0].ID)

	cats, err := svc.GetAllCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, len(categories.Defaults()), "local taxonomy is kept")
}

func TestImport_RejectsBrokenTaxonomy(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	_, err := svc.AddTransactions(ctx, sampleBatch())
	require.NoError(t, err)

	parent := int64(9)
	err = svc.Import(ctx, domain.Snapshot{
		Version:    3,
		Categories: []domain.Category{{ID: 1, Value: "orphan", ParentID: &parent}},
	})
	require.Error(t, err)

	all, err := svc.GetTransactions(ctx, domain.Filters{}, 0, -1)
	require.NoError(t, err)
	assert.Len(t, all, 3, "failed import must leave the ledger untouched")
}
