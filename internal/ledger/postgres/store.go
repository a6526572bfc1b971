// Package postgres implements ledger.Store on PostgreSQL through pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/dvloznov/ledgr/internal/apperr"
	"github.com/dvloznov/ledgr/internal/domain"
	"github.com/dvloznov/ledgr/internal/ledger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

var (
	transactionColumns = []string{
		"id", "date", "amount", "description", "direction",
		"account_id", "category", "exclude_from_cash_flow",
	}
	accountColumns  = []string{"id", "name", "institution", "kind"}
	categoryColumns = []string{
		"id", "value", "name", "icon_name", "color", "emoji",
		"is_default", "is_enabled", "parent_id", "exclude_from_cash_flow",
	}
)

const selectTransactions = `
	SELECT id, date, amount, description, direction, account_id, category, exclude_from_cash_flow
	FROM transactions`

const selectCategories = `
	SELECT id, value, name, icon_name, color, emoji, is_default, is_enabled, parent_id, exclude_from_cash_flow
	FROM categories`

// conn is satisfied by both the pool and an open transaction.
type conn interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is a PostgreSQL-backed ledger store.
type Store struct {
	pool *pgxpool.Pool
	db   conn
}

// NewStore wraps an open connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, db: pool}
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("Open: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("Open: ping: %w", err)
	}
	return NewStore(pool), nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// AddTransactions implements ledger.Store.
func (s *Store) AddTransactions(ctx context.Context, txns []domain.Transaction) error {
	if len(txns) == 0 {
		return nil
	}
	ids := make([]string, len(txns))
	for i, t := range txns {
		ids[i] = t.ID
	}

	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT id FROM transactions WHERE id = ANY($1) ORDER BY id`, ids)
		if err != nil {
			return fmt.Errorf("AddTransactions: check existing: %w", err)
		}
		existing, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return fmt.Errorf("AddTransactions: check existing: %w", err)
		}
		if len(existing) > 0 {
			return apperr.Duplicate("AddTransactions", existing...)
		}

		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"transactions"}, transactionColumns, transactionRows(txns)); err != nil {
			if isUniqueViolation(err) {
				return apperr.Duplicate("AddTransactions", ids...)
			}
			return fmt.Errorf("AddTransactions: copy: %w", err)
		}
		return nil
	})
}

// PutTransactions implements ledger.Store.
func (s *Store) PutTransactions(ctx context.Context, txns []domain.Transaction) error {
	if len(txns) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, t := range txns {
		batch.Queue(`
			INSERT INTO transactions (id, date, amount, description, direction, account_id, category, exclude_from_cash_flow)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET
				date = EXCLUDED.date,
				amount = EXCLUDED.amount,
				description = EXCLUDED.description,
				direction = EXCLUDED.direction,
				account_id = EXCLUDED.account_id,
				category = EXCLUDED.category,
				exclude_from_cash_flow = EXCLUDED.exclude_from_cash_flow`,
			t.ID, t.Date, t.Amount, t.Description, string(t.Direction), t.AccountID, t.Category, t.ExcludeFromCashFlow)
	}

	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("PutTransactions: %w", err)
		}
		return nil
	})
}

// GetTransaction implements ledger.Store.
func (s *Store) GetTransaction(ctx context.Context, id string) (domain.Transaction, error) {
	rows, err := s.db.Query(ctx, selectTransactions+` WHERE id = $1`, id)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("GetTransaction: %w", err)
	}
	t, err := pgx.CollectExactlyOneRow(rows, scanTransaction)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Transaction{}, fmt.Errorf("transaction %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("GetTransaction: %w", err)
	}
	return t, nil
}

// ListTransactions implements ledger.Store.
func (s *Store) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	rows, err := s.db.Query(ctx, selectTransactions+` ORDER BY date DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}
	txns, err := pgx.CollectRows(rows, scanTransaction)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}
	return txns, nil
}

// ListTransactionsByAccount implements ledger.Store.
func (s *Store) ListTransactionsByAccount(ctx context.Context, accountID int64) ([]domain.Transaction, error) {
	rows, err := s.db.Query(ctx, selectTransactions+` WHERE account_id = $1 ORDER BY date DESC, id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("ListTransactionsByAccount: %w", err)
	}
	txns, err := pgx.CollectRows(rows, scanTransaction)
	if err != nil {
		return nil, fmt.Errorf("ListTransactionsByAccount: %w", err)
	}
	return txns, nil
}

// DeleteTransaction implements ledger.Store.
func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// ReassignCategory implements ledger.Store.
func (s *Store) ReassignCategory(ctx context.Context, from, to string) ([]string, error) {
	rows, err := s.db.Query(ctx, `UPDATE transactions SET category = $2 WHERE category = $1 RETURNING id`, from, to)
	if err != nil {
		return nil, fmt.Errorf("ReassignCategory: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("ReassignCategory: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// CreateAccount implements ledger.Store.
func (s *Store) CreateAccount(ctx context.Context, account domain.Account) (domain.Account, error) {
	err := s.db.QueryRow(ctx,
		`INSERT INTO accounts (name, institution, kind) VALUES ($1, $2, $3) RETURNING id`,
		account.Name, string(account.Institution), string(account.Kind),
	).Scan(&account.ID)
	if isUniqueViolation(err) {
		return domain.Account{}, apperr.Duplicate("CreateAccount", account.Name)
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("CreateAccount: %w", err)
	}
	return account, nil
}

// GetAccount implements ledger.Store.
func (s *Store) GetAccount(ctx context.Context, id int64) (domain.Account, error) {
	var a domain.Account
	err := s.db.QueryRow(ctx,
		`SELECT id, name, institution, kind FROM accounts WHERE id = $1`, id,
	).Scan(&a.ID, &a.Name, &a.Institution, &a.Kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Account{}, fmt.Errorf("account %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("GetAccount: %w", err)
	}
	return a, nil
}

// ListAccounts implements ledger.Store.
func (s *Store) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name, institution, kind FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("ListAccounts: %w", err)
	}
	accounts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Account, error) {
		var a domain.Account
		err := row.Scan(&a.ID, &a.Name, &a.Institution, &a.Kind)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("ListAccounts: %w", err)
	}
	return accounts, nil
}

// AddCategory implements ledger.Store.
func (s *Store) AddCategory(ctx context.Context, c domain.Category) (domain.Category, error) {
	err := s.db.QueryRow(ctx, `
		INSERT INTO categories (value, name, icon_name, color, emoji, is_default, is_enabled, parent_id, exclude_from_cash_flow)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		c.Value, c.Name, c.IconName, c.Color, c.Emoji, c.IsDefault, c.IsEnabled, c.ParentID, c.ExcludeFromCashFlow,
	).Scan(&c.ID)
	if isUniqueViolation(err) {
		return domain.Category{}, apperr.Duplicate("AddCategory", c.Value)
	}
	if err != nil {
		return domain.Category{}, fmt.Errorf("AddCategory: %w", err)
	}
	return c, nil
}

// PutCategory implements ledger.Store.
func (s *Store) PutCategory(ctx context.Context, c domain.Category) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE categories SET
			value = $2, name = $3, icon_name = $4, color = $5, emoji = $6,
			is_default = $7, is_enabled = $8, parent_id = $9, exclude_from_cash_flow = $10
		WHERE id = $1`,
		c.ID, c.Value, c.Name, c.IconName, c.Color, c.Emoji, c.IsDefault, c.IsEnabled, c.ParentID, c.ExcludeFromCashFlow,
	)
	if isUniqueViolation(err) {
		return apperr.Duplicate("PutCategory", c.Value)
	}
	if err != nil {
		return fmt.Errorf("PutCategory: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("category %d: %w", c.ID, apperr.ErrNotFound)
	}
	return nil
}

// GetCategory implements ledger.Store.
func (s *Store) GetCategory(ctx context.Context, id int64) (domain.Category, error) {
	rows, err := s.db.Query(ctx, selectCategories+` WHERE id = $1`, id)
	if err != nil {
		return domain.Category{}, fmt.Errorf("GetCategory: %w", err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCategory)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Category{}, fmt.Errorf("category %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return domain.Category{}, fmt.Errorf("GetCategory: %w", err)
	}
	return c, nil
}

// ListCategories implements ledger.Store.
func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.Query(ctx, selectCategories+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("ListCategories: %w", err)
	}
	cats, err := pgx.CollectRows(rows, scanCategory)
	if err != nil {
		return nil, fmt.Errorf("ListCategories: %w", err)
	}
	return cats, nil
}

// DeleteCategory implements ledger.Store.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("DeleteCategory: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("category %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// GetMetadata implements ledger.Store.
func (s *Store) GetMetadata(ctx context.Context) (domain.Metadata, error) {
	var meta domain.Metadata
	err := s.db.QueryRow(ctx, `SELECT version, last_sync FROM ledger_metadata WHERE id = 1`).
		Scan(&meta.Version, &meta.LastSync)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Metadata{}, nil
	}
	if err != nil {
		return domain.Metadata{}, fmt.Errorf("GetMetadata: %w", err)
	}
	return meta, nil
}

// SetMetadata implements ledger.Store.
func (s *Store) SetMetadata(ctx context.Context, meta domain.Metadata) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO ledger_metadata (id, version, last_sync) VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET version = EXCLUDED.version, last_sync = EXCLUDED.last_sync`,
		meta.Version, meta.LastSync)
	if err != nil {
		return fmt.Errorf("SetMetadata: %w", err)
	}
	return nil
}

// GetStats implements ledger.Store.
func (s *Store) GetStats(ctx context.Context) (*domain.CashFlowStats, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, `SELECT stats FROM ledger_stats WHERE id = 1`).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetStats: %w", err)
	}

	var stats domain.CashFlowStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, fmt.Errorf("GetStats: decode: %w", err)
	}
	return &stats, nil
}

// SaveStats implements ledger.Store.
func (s *Store) SaveStats(ctx context.Context, stats domain.CashFlowStats) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("SaveStats: encode: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO ledger_stats (id, stats) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET stats = EXCLUDED.stats`, raw)
	if err != nil {
		return fmt.Errorf("SaveStats: %w", err)
	}
	return nil
}

// ReplaceAll implements ledger.Store.
func (s *Store) ReplaceAll(ctx context.Context, snap domain.Snapshot) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		for _, table := range []string{"transactions", "accounts", "categories", "ledger_stats"} {
			if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("ReplaceAll: clear %s: %w", table, err)
			}
		}

		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"accounts"}, accountColumns, accountRows(snap.Accounts)); err != nil {
			return fmt.Errorf("ReplaceAll: accounts: %w", err)
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"categories"}, categoryColumns, categoryRows(snap.Categories)); err != nil {
			return fmt.Errorf("ReplaceAll: categories: %w", err)
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"transactions"}, transactionColumns, transactionRows(snap.Transactions)); err != nil {
			return fmt.Errorf("ReplaceAll: transactions: %w", err)
		}

		// Explicit ids bypass the sequences, so move them past the loaded rows.
		for _, table := range []string{"accounts", "categories"} {
			_, err := tx.Exec(ctx, fmt.Sprintf(
				`SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE((SELECT MAX(id) FROM %[1]s), 0) + 1, false)`,
				table))
			if err != nil {
				return fmt.Errorf("ReplaceAll: reset %s sequence: %w", table, err)
			}
		}
		return nil
	})
}

func scanTransaction(row pgx.CollectableRow) (domain.Transaction, error) {
	var t domain.Transaction
	err := row.Scan(&t.ID, &t.Date, &t.Amount, &t.Description, &t.Direction, &t.AccountID, &t.Category, &t.ExcludeFromCashFlow)
	t.Date = t.Date.UTC()
	return t, err
}

func scanCategory(row pgx.CollectableRow) (domain.Category, error) {
	var c domain.Category
	err := row.Scan(&c.ID, &c.Value, &c.Name, &c.IconName, &c.Color, &c.Emoji, &c.IsDefault, &c.IsEnabled, &c.ParentID, &c.ExcludeFromCashFlow)
	return c, err
}

func transactionRows(txns []domain.Transaction) pgx.CopyFromSource {
	return pgx.CopyFromSlice(len(txns), func(i int) ([]any, error) {
		t := txns[i]
		return []any{t.ID, t.Date, t.Amount, t.Description, string(t.Direction), t.AccountID, t.Category, t.ExcludeFromCashFlow}, nil
	})
}

func accountRows(accounts []domain.Account) pgx.CopyFromSource {
	return pgx.CopyFromSlice(len(accounts), func(i int) ([]any, error) {
		a := accounts[i]
		return []any{a.ID, a.Name, string(a.Institution), string(a.Kind)}, nil
	})
}

func categoryRows(cats []domain.Category) pgx.CopyFromSource {
	return pgx.CopyFromSlice(len(cats), func(i int) ([]any, error) {
		c := cats[i]
		return []any{c.ID, c.Value, c.Name, c.IconName, c.Color, c.Emoji, c.IsDefault, c.IsEnabled, c.ParentID, c.ExcludeFromCashFlow}, nil
	})
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Atomic implements ledger.Store. Nested transactional writes inside fn
// become savepoints of the outer transaction.
func (s *Store) Atomic(ctx context.Context, fn func(tx ledger.Store) error) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		return fn(&Store{pool: s.pool, db: tx})
	})
}

// Ensure Store implements ledger.Store interface.
var _ ledger.Store = (*Store)(nil)
