package ledger

import (
	"context"
	"fmt"

	"github.com/dvloznov/ledgr/internal/apperr"
	"github.com/dvloznov/ledgr/internal/categories"
	"github.com/dvloznov/ledgr/internal/domain"
	"github.com/dvloznov/ledgr/internal/identity"
)

// Export captures the whole ledger as a snapshot stamped with the current
// version.
func (s *Service) Export(ctx context.Context) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.store.GetMetadata(ctx)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("Export: %w", err)
	}
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("Export: accounts: %w", err)
	}
	txns, err := s.store.ListTransactions(ctx)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("Export: transactions: %w", err)
	}
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("Export: categories: %w", err)
	}

	return domain.Snapshot{
		Version:      meta.Version,
		Accounts:     accounts,
		Transactions: txns,
		Categories:   cats,
	}, nil
}

// Import replaces the local ledger with snap and adopts its version. The
// last sync time is kept. Snapshots written before categories were synced
// have their legacy category values migrated and keep the local taxonomy.
func (s *Service) Import(ctx context.Context, snap domain.Snapshot) error {
	snap = categories.MigrateSnapshot(snap)

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(snap.Categories) == 0 {
		local, err := s.store.ListCategories(ctx)
		if err != nil {
			return fmt.Errorf("Import: %w", err)
		}
		snap.Categories = local
	}

	prepared, err := prepareSnapshot(snap)
	if err != nil {
		return fmt.Errorf("Import: %w", err)
	}

	err = s.store.Atomic(ctx, func(tx Store) error {
		if err := tx.ReplaceAll(ctx, prepared); err != nil {
			return err
		}
		meta, err := tx.GetMetadata(ctx)
		if err != nil {
			return err
		}
		meta.Version = prepared.Version
		if err := tx.SetMetadata(ctx, meta); err != nil {
			return err
		}
		_, err = computeStats(ctx, tx)
		return err
	})
	if err != nil {
		return fmt.Errorf("Import: %w", err)
	}

	s.log.Info().
		Int64("version", prepared.Version).
		Int("transactions", len(prepared.Transactions)).
		Int("accounts", len(prepared.Accounts)).
		Msg("Snapshot imported")
	return nil
}

// prepareSnapshot validates snap and fills in transaction ids that older
// writers left out. Repeated transactions are collapsed.
func prepareSnapshot(snap domain.Snapshot) (domain.Snapshot, error) {
	if err := categories.CheckForest(snap.Categories); err != nil {
		return domain.Snapshot{}, err
	}

	accounts := make(map[int64]struct{}, len(snap.Accounts))
	for _, a := range snap.Accounts {
		if _, dup := accounts[a.ID]; dup {
			return domain.Snapshot{}, apperr.Invalid("duplicate account id %d", a.ID)
		}
		accounts[a.ID] = struct{}{}
	}

	txns := make([]domain.Transaction, 0, len(snap.Transactions))
	for _, t := range snap.Transactions {
		if t.ID == "" {
			t = identity.Assign(t)
		}
		if err := validateTransaction(t); err != nil {
			return domain.Snapshot{}, err
		}
		txns = append(txns, t)
	}
	txns, _ = dedupe(txns)

	out := snap
	out.Transactions = txns
	return out, nil
}
