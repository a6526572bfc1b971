package domain

// Institution identifies the bank that issued a statement.
type Institution string

const (
	HDFC  Institution = "hdfc"
	ICICI Institution = "icici"
	SBI   Institution = "sbi"
)

// AccountKind distinguishes savings/current accounts from credit cards.
type AccountKind string

const (
	BankAccount AccountKind = "bank"
	CreditCard  AccountKind = "credit_card"
)

// Account is a source of transactions. ID is assigned by the store.
type Account struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name,omitempty"`
	Institution Institution `json:"bank"`
	Kind        AccountKind `json:"type"`
}
