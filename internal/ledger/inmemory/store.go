// Package inmemory provides a map-backed ledger.Store for the CLI, tests and
// single-process deployments.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dvloznov/ledgr/internal/apperr"
	"github.com/dvloznov/ledgr/internal/domain"
	"github.com/dvloznov/ledgr/internal/ledger"
)

// Store is an in-memory implementation of ledger.Store.
// It is safe for concurrent use. Data is lost on restart; use the postgres
// store for persistence.
type Store struct {
	mu sync.RWMutex
	// txMu serializes Atomic calls.
	txMu sync.Mutex

	txns       map[string]domain.Transaction
	accounts   map[int64]domain.Account
	categories map[int64]domain.Category
	meta       domain.Metadata
	stats      *domain.CashFlowStats

	nextAccountID  int64
	nextCategoryID int64
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	s := &Store{}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.txns = make(map[string]domain.Transaction)
	s.accounts = make(map[int64]domain.Account)
	s.categories = make(map[int64]domain.Category)
	s.stats = nil
	s.nextAccountID = 1
	s.nextCategoryID = 1
}

// AddTransactions implements ledger.Store.
func (s *Store) AddTransactions(ctx context.Context, txns []domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var conflicts []string
	for _, t := range txns {
		if _, exists := s.txns[t.ID]; exists {
			conflicts = append(conflicts, t.ID)
		}
	}
	if len(conflicts) > 0 {
		return apperr.Duplicate("AddTransactions", conflicts...)
	}

	for _, t := range txns {
		s.txns[t.ID] = t
	}
	return nil
}

// PutTransactions implements ledger.Store.
func (s *Store) PutTransactions(ctx context.Context, txns []domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range txns {
		s.txns[t.ID] = t
	}
	return nil
}

// GetTransaction implements ledger.Store.
func (s *Store) GetTransaction(ctx context.Context, id string) (domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.txns[id]
	if !ok {
		return domain.Transaction{}, fmt.Errorf("transaction %s: %w", id, apperr.ErrNotFound)
	}
	return t, nil
}

// ListTransactions implements ledger.Store.
func (s *Store) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Transaction, 0, len(s.txns))
	for _, t := range s.txns {
		out = append(out, t)
	}
	sortByDateDesc(out)
	return out, nil
}

// ListTransactionsByAccount implements ledger.Store.
func (s *Store) ListTransactionsByAccount(ctx context.Context, accountID int64) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Transaction, 0)
	for _, t := range s.txns {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	sortByDateDesc(out)
	return out, nil
}

// DeleteTransaction implements ledger.Store.
func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.txns[id]; !ok {
		return fmt.Errorf("transaction %s: %w", id, apperr.ErrNotFound)
	}
	delete(s.txns, id)
	return nil
}

// ReassignCategory implements ledger.Store.
func (s *Store) ReassignCategory(ctx context.Context, from, to string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0)
	for id, t := range s.txns {
		if t.Category != from {
			continue
		}
		t.Category = to
		s.txns[id] = t
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// CreateAccount implements ledger.Store.
func (s *Store) CreateAccount(ctx context.Context, account domain.Account) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if account.Name != "" {
		for _, a := range s.accounts {
			if strings.EqualFold(a.Name, account.Name) {
				return domain.Account{}, apperr.Duplicate("CreateAccount", account.Name)
			}
		}
	}

	account.ID = s.nextAccountID
	s.nextAccountID++
	s.accounts[account.ID] = account
	return account, nil
}

// GetAccount implements ledger.Store.
func (s *Store) GetAccount(ctx context.Context, id int64) (domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return domain.Account{}, fmt.Errorf("account %d: %w", id, apperr.ErrNotFound)
	}
	return a, nil
}

// ListAccounts implements ledger.Store.
func (s *Store) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// AddCategory implements ledger.Store.
func (s *Store) AddCategory(ctx context.Context, category domain.Category) (domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.categories {
		if c.Value == category.Value {
			return domain.Category{}, apperr.Duplicate("AddCategory", category.Value)
		}
	}

	category.ID = s.nextCategoryID
	s.nextCategoryID++
	s.categories[category.ID] = copyCategory(category)
	return copyCategory(category), nil
}

// PutCategory implements ledger.Store.
func (s *Store) PutCategory(ctx context.Context, category domain.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[category.ID]; !ok {
		return fmt.Errorf("category %d: %w", category.ID, apperr.ErrNotFound)
	}
	s.categories[category.ID] = copyCategory(category)
	return nil
}

// GetCategory implements ledger.Store.
func (s *Store) GetCategory(ctx context.Context, id int64) (domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[id]
	if !ok {
		return domain.Category{}, fmt.Errorf("category %d: %w", id, apperr.ErrNotFound)
	}
	return copyCategory(c), nil
}

// ListCategories implements ledger.Store.
func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, copyCategory(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteCategory implements ledger.Store.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[id]; !ok {
		return fmt.Errorf("category %d: %w", id, apperr.ErrNotFound)
	}
	delete(s.categories, id)
	return nil
}

// GetMetadata implements ledger.Store.
func (s *Store) GetMetadata(ctx context.Context) (domain.Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta, nil
}

// SetMetadata implements ledger.Store.
func (s *Store) SetMetadata(ctx context.Context, meta domain.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta = meta
	return nil
}

// GetStats implements ledger.Store.
func (s *Store) GetStats(ctx context.Context) (*domain.CashFlowStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.stats == nil {
		return nil, nil
	}
	// Stats are replaced wholesale and never mutated, so sharing slices is safe.
	statsCopy := *s.stats
	return &statsCopy, nil
}

// SaveStats implements ledger.Store.
func (s *Store) SaveStats(ctx context.Context, stats domain.CashFlowStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = &stats
	return nil
}

// ReplaceAll implements ledger.Store.
func (s *Store) ReplaceAll(ctx context.Context, snap domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta := s.meta
	s.reset()
	s.meta = meta

	for _, a := range snap.Accounts {
		s.accounts[a.ID] = a
		if a.ID >= s.nextAccountID {
			s.nextAccountID = a.ID + 1
		}
	}
	for _, c := range snap.Categories {
		s.categories[c.ID] = copyCategory(c)
		if c.ID >= s.nextCategoryID {
			s.nextCategoryID = c.ID + 1
		}
	}
	for _, t := range snap.Transactions {
		s.txns[t.ID] = t
	}
	return nil
}

// Atomic implements ledger.Store. fn works on a private copy of the store
// that replaces the live state only when fn succeeds. Writes made outside
// Atomic while fn runs are overwritten.
func (s *Store) Atomic(ctx context.Context, fn func(tx ledger.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	work := s.clone()
	if err := fn(work); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.txns = work.txns
	s.accounts = work.accounts
	s.categories = work.categories
	s.meta = work.meta
	s.stats = work.stats
	s.nextAccountID = work.nextAccountID
	s.nextCategoryID = work.nextCategoryID
	return nil
}

func (s *Store) clone() *Store {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := &Store{
		txns:           make(map[string]domain.Transaction, len(s.txns)),
		accounts:       make(map[int64]domain.Account, len(s.accounts)),
		categories:     make(map[int64]domain.Category, len(s.categories)),
		meta:           s.meta,
		stats:          s.stats,
		nextAccountID:  s.nextAccountID,
		nextCategoryID: s.nextCategoryID,
	}
	for id, t := range s.txns {
		c.txns[id] = t
	}
	for id, a := range s.accounts {
		c.accounts[id] = a
	}
	for id, cat := range s.categories {
		c.categories[id] = copyCategory(cat)
	}
	return c
}

// copyCategory detaches the ParentID pointer from the caller's copy.
func copyCategory(c domain.Category) domain.Category {
	if c.ParentID != nil {
		parent := *c.ParentID
		c.ParentID = &parent
	}
	return c
}

func sortByDateDesc(txns []domain.Transaction) {
	sort.SliceStable(txns, func(i, j int) bool {
		if !txns[i].Date.Equal(txns[j].Date) {
			return txns[i].Date.After(txns[j].Date)
		}
		return txns[i].ID < txns[j].ID
	})
}

// Ensure Store implements ledger.Store interface.
var _ ledger.Store = (*Store)(nil)
