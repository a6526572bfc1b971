// Package ledger is the data-access layer over a user's transactions,
// accounts and categories. Service wraps a Store with the ledger rules:
// version bumps, stats recomputation, category seeding and validation.
package ledger

import (
	"context"

	"github.com/dvloznov/ledgr/internal/domain"
)

// Store defines the persistence capability the ledger needs.
// Implementations return apperr.ErrNotFound (wrapped) for missing keys and
// apperr.ErrAlreadyExists (wrapped in *apperr.StoreError) for duplicate keys.
type Store interface {
	// AddTransactions inserts txns atomically. If any id already exists,
	// nothing is inserted and the error lists the conflicting ids.
	AddTransactions(ctx context.Context, txns []domain.Transaction) error

	// PutTransactions upserts txns.
	PutTransactions(ctx context.Context, txns []domain.Transaction) error

	// GetTransaction retrieves a transaction by id.
	GetTransaction(ctx context.Context, id string) (domain.Transaction, error)

	// ListTransactions returns every transaction, most recent date first.
	ListTransactions(ctx context.Context) ([]domain.Transaction, error)

	// ListTransactionsByAccount returns the transactions of one account,
	// most recent date first.
	ListTransactionsByAccount(ctx context.Context, accountID int64) ([]domain.Transaction, error)

	// DeleteTransaction removes a transaction.
	DeleteTransaction(ctx context.Context, id string) error

	// ReassignCategory moves every transaction tagged from to to and
	// returns the ids it changed.
	ReassignCategory(ctx context.Context, from, to string) ([]string, error)

	// CreateAccount stores a new account and assigns its id. Names are unique.
	CreateAccount(ctx context.Context, account domain.Account) (domain.Account, error)

	// GetAccount retrieves an account by id.
	GetAccount(ctx context.Context, id int64) (domain.Account, error)

	// ListAccounts returns all accounts in id order.
	ListAccounts(ctx context.Context) ([]domain.Account, error)

	// AddCategory stores a new category and assigns its id. Values are unique.
	AddCategory(ctx context.Context, category domain.Category) (domain.Category, error)

	// PutCategory replaces an existing category.
	PutCategory(ctx context.Context, category domain.Category) error

	// GetCategory retrieves a category by id.
	GetCategory(ctx context.Context, id int64) (domain.Category, error)

	// ListCategories returns all categories in id order.
	ListCategories(ctx context.Context) ([]domain.Category, error)

	// DeleteCategory removes a category.
	DeleteCategory(ctx context.Context, id int64) error

	// GetMetadata returns the sync metadata, zero-valued before first use.
	GetMetadata(ctx context.Context) (domain.Metadata, error)

	// SetMetadata replaces the sync metadata.
	SetMetadata(ctx context.Context, meta domain.Metadata) error

	// GetStats returns the cached stats, or nil when none were saved.
	GetStats(ctx context.Context) (*domain.CashFlowStats, error)

	// SaveStats replaces the cached stats.
	SaveStats(ctx context.Context, stats domain.CashFlowStats) error

	// ReplaceAll clears accounts, transactions and categories and loads
	// the snapshot's content in their place, atomically.
	ReplaceAll(ctx context.Context, snap domain.Snapshot) error

	// Atomic runs fn against a view of the store whose writes land together
	// when fn returns nil and not at all when it returns an error. Callers
	// serialize Atomic calls with their other writes.
	Atomic(ctx context.Context, fn func(tx Store) error) error
}
