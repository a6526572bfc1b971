package domain

// CashFlow aggregates incoming (credit) and outgoing (debit) money over a set
// of transactions. Count always equals IncomingCount + OutgoingCount.
type CashFlow struct {
	Count         int     `json:"count"`
	IncomingCount int     `json:"incomingCount"`
	Incoming      float64 `json:"incoming"`
	OutgoingCount int     `json:"outgoingCount"`
	Outgoing      float64 `json:"outgoing"`
}

// GroupedCashFlow is a CashFlow bucket keyed by one dimension.
type GroupedCashFlow struct {
	GroupKey string   `json:"groupKey"`
	CashFlow CashFlow `json:"cashFlow"`
}

// AggregatedCashFlow is a CashFlow bucket keyed by (month, category).
type AggregatedCashFlow struct {
	AggKey   [2]string `json:"aggKey"`
	CashFlow CashFlow  `json:"cashFlow"`
}

// CashFlowStats is the cached set of summaries recomputed after every
// ledger mutation.
type CashFlowStats struct {
	MonthlyCashFlow  []GroupedCashFlow    `json:"monthlyCashFlow"`
	CategoryCashFlow []GroupedCashFlow    `json:"categoryCashFlow"`
	AggCashFlow      []AggregatedCashFlow `json:"aggCashFlow"`
}

// TransactionGroup is a cluster of transactions sharing a description signature.
type TransactionGroup struct {
	Signature    string        `json:"signature"`
	Display      string        `json:"display"`
	Transactions []Transaction `json:"transactions"`
	TotalValue   float64       `json:"totalValue"`
	Count        int           `json:"count"`
}
