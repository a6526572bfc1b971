package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/ledgr/internal/apperr"
	"github.com/dvloznov/ledgr/internal/cashflow"
	"github.com/dvloznov/ledgr/internal/categories"
	"github.com/dvloznov/ledgr/internal/domain"
	"github.com/dvloznov/ledgr/internal/grouping"
	"github.com/rs/zerolog"
)

// Service applies the ledger rules on top of a Store.
//
// Every mutating operation bumps the ledger version and recomputes the
// cached stats wholesale, in the same store transaction as its writes. Mutations are serialized by the service; reads
// go straight to the store.
type Service struct {
	store Store
	log   zerolog.Logger
	now   func() time.Time
	mu    sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock used for version stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the service logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// NewService creates a ledger service over store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		log:   zerolog.Nop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init seeds the default categories on first run.
func (s *Service) Init(ctx context.Context) error {
	if _, err := s.SeedCategories(ctx); err != nil {
		return fmt.Errorf("Init: %w", err)
	}
	return nil
}

// SeedCategories loads the default taxonomy when the store has no
// categories. It reports how many categories were created.
func (s *Service) SeedCategories(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.ListCategories(ctx)
	if err != nil {
		return 0, fmt.Errorf("SeedCategories: list categories: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	// Ids are assigned by the store, so parents are re-linked as they land.
	ids := make(map[string]int64)
	err = s.store.Atomic(ctx, func(tx Store) error {
		for _, seed := range categories.DefaultSeeds() {
			c := domain.Category{
				Value:               seed.Value,
				Name:                seed.Name,
				IconName:            seed.IconName,
				Color:               seed.Color,
				Emoji:               seed.Emoji,
				IsDefault:           true,
				IsEnabled:           true,
				ExcludeFromCashFlow: seed.ExcludeFromCashFlow,
			}
			if seed.ParentValue != "" {
				parent := ids[seed.ParentValue]
				c.ParentID = &parent
			}
			created, err := tx.AddCategory(ctx, c)
			if err != nil {
				return fmt.Errorf("add %s: %w", seed.Value, err)
			}
			ids[created.Value] = created.ID
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("SeedCategories: %w", err)
	}

	s.log.Info().Int("categories", len(ids)).Msg("Seeded default categories")
	return len(ids), nil
}

// AddTransactions inserts a batch of new transactions. Rows repeated within
// the batch are collapsed to their first occurrence. If any id is already in
// the ledger the whole batch is rejected with an "already exists" StoreError,
// which makes re-importing a statement a no-op.
func (s *Service) AddTransactions(ctx context.Context, txns []domain.Transaction) ([]string, error) {
	batch, collisions := dedupe(txns)
	for _, id := range collisions {
		s.log.Warn().Str("txn_id", id).Msg("Identical transaction repeated in batch, keeping the first")
	}
	if len(batch) == 0 {
		return nil, nil
	}

	for _, t := range batch {
		if err := validateTransaction(t); err != nil {
			return nil, fmt.Errorf("AddTransactions: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.mutateLocked(ctx, func(tx Store) error {
		return tx.AddTransactions(ctx, batch)
	})
	if err != nil {
		return nil, fmt.Errorf("AddTransactions: %w", err)
	}

	ids := make([]string, len(batch))
	for i, t := range batch {
		ids[i] = t.ID
	}
	return ids, nil
}

// GetTransactions returns matching transactions, most recent first,
// skipping offset matches. A negative limit returns every match.
func (s *Service) GetTransactions(ctx context.Context, filters domain.Filters, offset, limit int) ([]domain.Transaction, error) {
	all, err := s.store.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetTransactions: %w", err)
	}

	out := make([]domain.Transaction, 0)
	for _, t := range all {
		if !filters.Match(t) {
			continue
		}
		if offset > 0 {
			offset--
			continue
		}
		if limit >= 0 && len(out) >= limit {
			break
		}
		out = append(out, t)
	}
	return out, nil
}

// GetCashFlow totals every transaction matching filters. Unlike the cached
// stats it does not apply the cash-flow exclusion rule.
func (s *Service) GetCashFlow(ctx context.Context, filters domain.Filters) (domain.CashFlow, error) {
	matched, err := s.GetTransactions(ctx, filters, 0, -1)
	if err != nil {
		return domain.CashFlow{}, fmt.Errorf("GetCashFlow: %w", err)
	}
	return cashflow.Sum(matched), nil
}

// GetTransaction retrieves one transaction.
func (s *Service) GetTransaction(ctx context.Context, id string) (domain.Transaction, error) {
	t, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return domain.Transaction{}, notFound(err, "transaction", id)
	}
	return t, nil
}

// GetTransactionsByAccount returns the transactions of one account.
func (s *Service) GetTransactionsByAccount(ctx context.Context, accountID int64) ([]domain.Transaction, error) {
	txns, err := s.store.ListTransactionsByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("GetTransactionsByAccount: %w", err)
	}
	return txns, nil
}

// UpdateTransaction merges patch into the transaction with id.
func (s *Service) UpdateTransaction(ctx context.Context, id string, patch domain.TransactionPatch) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return domain.Transaction{}, notFound(err, "transaction", id)
	}
	if patch.Category != nil {
		if err := s.validateCategoryLocked(ctx, *patch.Category); err != nil {
			return domain.Transaction{}, fmt.Errorf("UpdateTransaction: %w", err)
		}
	}
	if patch.AccountID != nil {
		if _, err := s.store.GetAccount(ctx, *patch.AccountID); err != nil {
			return domain.Transaction{}, notFound(err, "account", fmt.Sprint(*patch.AccountID))
		}
	}

	updated := patch.Apply(existing)
	err = s.mutateLocked(ctx, func(tx Store) error {
		return tx.PutTransactions(ctx, []domain.Transaction{updated})
	})
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("UpdateTransaction: %w", err)
	}
	return updated, nil
}

// TagTransaction sets the category of one transaction.
func (s *Service) TagTransaction(ctx context.Context, id, category string) error {
	_, err := s.UpdateTransaction(ctx, id, domain.TransactionPatch{Category: &category})
	return err
}

// TagTransactions sets category on every transaction matching filters and
// returns the ids it changed.
func (s *Service) TagTransactions(ctx context.Context, filters domain.Filters, category string) ([]string, error) {
	return s.tagWhere(ctx, category, filters.Match)
}

// TagTransactionIDs sets category on the listed transactions, typically
// the members of one description cluster. Unknown ids are ignored.
func (s *Service) TagTransactionIDs(ctx context.Context, ids []string, category string) ([]string, error) {
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	return s.tagWhere(ctx, category, func(t domain.Transaction) bool {
		_, ok := wanted[t.ID]
		return ok
	})
}

func (s *Service) tagWhere(ctx context.Context, category string, match func(domain.Transaction) bool) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validateCategoryLocked(ctx, category); err != nil {
		return nil, fmt.Errorf("TagTransactions: %w", err)
	}

	all, err := s.store.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("TagTransactions: %w", err)
	}

	var (
		changed []domain.Transaction
		ids     = make([]string, 0)
	)
	for _, t := range all {
		if !match(t) {
			continue
		}
		ids = append(ids, t.ID)
		t.Category = category
		changed = append(changed, t)
	}
	if len(changed) == 0 {
		return ids, nil
	}

	err = s.mutateLocked(ctx, func(tx Store) error {
		return tx.PutTransactions(ctx, changed)
	})
	if err != nil {
		return nil, fmt.Errorf("TagTransactions: %w", err)
	}
	return ids, nil
}

// DeleteTransaction removes one transaction.
func (s *Service) DeleteTransaction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.mutateLocked(ctx, func(tx Store) error {
		return tx.DeleteTransaction(ctx, id)
	})
	if err != nil {
		return notFound(err, "transaction", id)
	}
	return nil
}

// GetUntaggedGroups clusters the untagged backlog by description signature.
// A limit of zero or less returns every group.
func (s *Service) GetUntaggedGroups(ctx context.Context, limit int) ([]domain.TransactionGroup, error) {
	all, err := s.store.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetUntaggedGroups: %w", err)
	}
	return grouping.Untagged(all, limit), nil
}

// CreateAccount registers a new account.
func (s *Service) CreateAccount(ctx context.Context, account domain.Account) (domain.Account, error) {
	switch account.Institution {
	case domain.HDFC, domain.ICICI, domain.SBI:
	default:
		return domain.Account{}, fmt.Errorf("CreateAccount: %w", apperr.Invalid("unsupported bank %q", account.Institution))
	}
	if account.Kind != domain.BankAccount && account.Kind != domain.CreditCard {
		return domain.Account{}, fmt.Errorf("CreateAccount: %w", apperr.Invalid("unsupported account type %q", account.Kind))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	account.ID = 0
	var created domain.Account
	err := s.mutateLocked(ctx, func(tx Store) error {
		var err error
		created, err = tx.CreateAccount(ctx, account)
		return err
	})
	if err != nil {
		return domain.Account{}, fmt.Errorf("CreateAccount: %w", err)
	}
	return created, nil
}

// GetAccount retrieves one account.
func (s *Service) GetAccount(ctx context.Context, id int64) (domain.Account, error) {
	a, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return domain.Account{}, notFound(err, "account", fmt.Sprint(id))
	}
	return a, nil
}

// GetAllAccounts lists every account.
func (s *Service) GetAllAccounts(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetAllAccounts: %w", err)
	}
	return accounts, nil
}

// GetStats returns the cached stats, computing them if none are cached yet.
func (s *Service) GetStats(ctx context.Context) (domain.CashFlowStats, error) {
	cached, err := s.store.GetStats(ctx)
	if err != nil {
		return domain.CashFlowStats{}, fmt.Errorf("GetStats: %w", err)
	}
	if cached != nil {
		return *cached, nil
	}
	return s.ComputeStats(ctx)
}

// ComputeStats recomputes and caches the cash-flow summaries.
func (s *Service) ComputeStats(ctx context.Context) (domain.CashFlowStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return computeStats(ctx, s.store)
}

func computeStats(ctx context.Context, st Store) (domain.CashFlowStats, error) {
	all, err := st.ListTransactions(ctx)
	if err != nil {
		return domain.CashFlowStats{}, fmt.Errorf("ComputeStats: %w", err)
	}
	stats := cashflow.Compute(all)
	if err := st.SaveStats(ctx, stats); err != nil {
		return domain.CashFlowStats{}, fmt.Errorf("ComputeStats: save: %w", err)
	}
	return stats, nil
}

// Metadata returns the current version and last sync time.
func (s *Service) Metadata(ctx context.Context) (domain.Metadata, error) {
	meta, err := s.store.GetMetadata(ctx)
	if err != nil {
		return domain.Metadata{}, fmt.Errorf("Metadata: %w", err)
	}
	return meta, nil
}

// SetLastSync records the time of the last successful sync, in Unix
// milliseconds. It does not bump the version.
func (s *Service) SetLastSync(ctx context.Context, ms int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.store.GetMetadata(ctx)
	if err != nil {
		return fmt.Errorf("SetLastSync: %w", err)
	}
	meta.LastSync = ms
	if err := s.store.SetMetadata(ctx, meta); err != nil {
		return fmt.Errorf("SetLastSync: %w", err)
	}
	return nil
}

// mutateLocked runs write and the version bump in one store transaction, so
// a failure part way leaves neither the data nor the version changed.
func (s *Service) mutateLocked(ctx context.Context, write func(tx Store) error) error {
	var version int64
	err := s.store.Atomic(ctx, func(tx Store) error {
		if err := write(tx); err != nil {
			return err
		}
		var err error
		version, err = s.commit(ctx, tx)
		return err
	})
	if err != nil {
		return err
	}
	s.log.Debug().Int64("version", version).Msg("Ledger version bumped")
	return nil
}

// commit bumps the version and recomputes stats after a mutation.
// The version is the wall clock in milliseconds, or the previous version
// plus one when the clock has not moved past it.
func (s *Service) commit(ctx context.Context, st Store) (int64, error) {
	meta, err := st.GetMetadata(ctx)
	if err != nil {
		return 0, fmt.Errorf("bump version: %w", err)
	}
	next := s.now().UnixMilli()
	if next <= meta.Version {
		next = meta.Version + 1
	}
	meta.Version = next
	if err := st.SetMetadata(ctx, meta); err != nil {
		return 0, fmt.Errorf("bump version: %w", err)
	}

	if _, err := computeStats(ctx, st); err != nil {
		return 0, err
	}
	return next, nil
}

func (s *Service) validateCategoryLocked(ctx context.Context, value string) error {
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return err
	}
	return categories.NewValidatorFrom(cats).ValidateValue(value)
}

// dedupe keeps the first transaction per id and reports repeated ids.
func dedupe(txns []domain.Transaction) ([]domain.Transaction, []string) {
	seen := make(map[string]struct{}, len(txns))
	out := make([]domain.Transaction, 0, len(txns))
	var collisions []string
	for _, t := range txns {
		if _, dup := seen[t.ID]; dup {
			collisions = append(collisions, t.ID)
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out, collisions
}

func validateTransaction(t domain.Transaction) error {
	switch {
	case t.ID == "":
		return apperr.Invalid("transaction has no id")
	case t.Amount < 0:
		return apperr.Invalid("transaction %s has a negative amount", t.ID)
	case !t.Direction.Valid():
		return apperr.Invalid("transaction %s has unknown direction %q", t.ID, t.Direction)
	case t.Date.IsZero():
		return apperr.Invalid("transaction %s has no date", t.ID)
	}
	return nil
}

// notFound turns a store miss into a ReferentialError and wraps anything
// else unchanged.
func notFound(err error, entity, id string) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.Missing(entity, id)
	}
	return err
}
