package domain

import (
	"time"
)

// Untagged is the sentinel category value for transactions with no category.
const Untagged = "untagged"

// Direction tells whether money left or entered the account.
type Direction string

const (
	Debit  Direction = "debit"
	Credit Direction = "credit"
)

// Valid reports whether d is one of the known directions.
func (d Direction) Valid() bool {
	return d == Debit || d == Credit
}

// Transaction is one canonical money movement in the ledger.
// Amount is always a non-negative magnitude; Direction carries the sign.
// JSON names follow the snapshot wire format.
type Transaction struct {
	ID                  string    `json:"id"`
	Date                time.Time `json:"date"`
	Amount              float64   `json:"amount"`
	Description         string    `json:"description"`
	Direction           Direction `json:"txnType"`
	AccountID           int64     `json:"accountId"`
	Category            string    `json:"expenseCategory,omitempty"`
	ExcludeFromCashFlow bool      `json:"excludeFromCashFlow,omitempty"`
}

// TransactionKey holds the fields that define a transaction's identity.
type TransactionKey struct {
	Date        time.Time
	Amount      float64
	Description string
	Direction   Direction
}

// Key returns the identity-defining fields of t.
func (t Transaction) Key() TransactionKey {
	return TransactionKey{
		Date:        t.Date,
		Amount:      t.Amount,
		Description: t.Description,
		Direction:   t.Direction,
	}
}

// CategoryOrUntagged returns the category, or Untagged when none is set.
func (t Transaction) CategoryOrUntagged() string {
	if t.Category == "" {
		return Untagged
	}
	return t.Category
}

// IsUntagged reports whether the transaction is in the untagged backlog.
func (t Transaction) IsUntagged() bool {
	return t.Category == "" || t.Category == Untagged
}

// TransactionPatch is a partial update. Nil fields are left unchanged.
// The id and identity fields are deliberately absent.
type TransactionPatch struct {
	Category            *string `json:"expenseCategory,omitempty"`
	ExcludeFromCashFlow *bool   `json:"excludeFromCashFlow,omitempty"`
	AccountID           *int64  `json:"accountId,omitempty"`
}

// Apply merges p into t.
func (p TransactionPatch) Apply(t Transaction) Transaction {
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.ExcludeFromCashFlow != nil {
		t.ExcludeFromCashFlow = *p.ExcludeFromCashFlow
	}
	if p.AccountID != nil {
		t.AccountID = *p.AccountID
	}
	return t
}
