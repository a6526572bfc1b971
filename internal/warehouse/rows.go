package warehouse

import (
	"fmt"
	"math/big"
	"strconv"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/ledgr/internal/domain"
	"github.com/shopspring/decimal"
)

// monthLayout is how monthly cash-flow group keys are written.
const monthLayout = "Jan 2006"

// TransactionRow is one ledger transaction in the transactions table.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	UserID        string `bigquery:"user_id"`        // REQUIRED
	AccountID     int64  `bigquery:"account_id"`     // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED, partition column
	Amount          *big.Rat   `bigquery:"amount"`           // REQUIRED NUMERIC
	Direction       string     `bigquery:"direction"`        // REQUIRED, "credit" or "debit"

	Description string              `bigquery:"description"`
	Category    bigquery.NullString `bigquery:"category"` // NULL when untagged

	ExcludeFromCashFlow bool `bigquery:"exclude_from_cash_flow"`

	LedgerVersion int64     `bigquery:"ledger_version"`
	MirroredTS    time.Time `bigquery:"mirrored_ts"`
}

// MonthlyCashFlowRow is one month of the cash-flow summary.
type MonthlyCashFlowRow struct {
	UserID string     `bigquery:"user_id"`
	Month  civil.Date `bigquery:"month"` // first day of the month
	Label  string     `bigquery:"label"`

	Count         int64    `bigquery:"count"`
	IncomingCount int64    `bigquery:"incoming_count"`
	Incoming      *big.Rat `bigquery:"incoming"`
	OutgoingCount int64    `bigquery:"outgoing_count"`
	Outgoing      *big.Rat `bigquery:"outgoing"`

	LedgerVersion int64     `bigquery:"ledger_version"`
	MirroredTS    time.Time `bigquery:"mirrored_ts"`
}

// TransactionRows converts a snapshot into table rows.
func TransactionRows(userID string, snap domain.Snapshot, at time.Time) []*TransactionRow {
	rows := make([]*TransactionRow, 0, len(snap.Transactions))
	for _, t := range snap.Transactions {
		row := &TransactionRow{
			TransactionID:       t.ID,
			UserID:              userID,
			AccountID:           t.AccountID,
			TransactionDate:     civil.DateOf(t.Date),
			Amount:              numeric(t.Amount),
			Direction:           string(t.Direction),
			Description:         t.Description,
			ExcludeFromCashFlow: t.ExcludeFromCashFlow,
			LedgerVersion:       snap.Version,
			MirroredTS:          at,
		}
		if t.Category != "" {
			row.Category = bigquery.NullString{StringVal: t.Category, Valid: true}
		}
		rows = append(rows, row)
	}
	return rows
}

// MonthlyRows converts the monthly cash-flow summary into table rows.
func MonthlyRows(userID string, version int64, stats domain.CashFlowStats, at time.Time) ([]*MonthlyCashFlowRow, error) {
	rows := make([]*MonthlyCashFlowRow, 0, len(stats.MonthlyCashFlow))
	for _, g := range stats.MonthlyCashFlow {
		month, err := time.Parse(monthLayout, g.GroupKey)
		if err != nil {
			return nil, fmt.Errorf("MonthlyRows: month %q: %w", g.GroupKey, err)
		}
		rows = append(rows, &MonthlyCashFlowRow{
			UserID:        userID,
			Month:         civil.DateOf(month),
			Label:         g.GroupKey,
			Count:         int64(g.CashFlow.Count),
			IncomingCount: int64(g.CashFlow.IncomingCount),
			Incoming:      numeric(g.CashFlow.Incoming),
			OutgoingCount: int64(g.CashFlow.OutgoingCount),
			Outgoing:      numeric(g.CashFlow.Outgoing),
			LedgerVersion: version,
			MirroredTS:    at,
		})
	}
	return rows, nil
}

// Save implements bigquery.ValueSaver. The insert id makes a retried insert
// of the same ledger version a no-op within BigQuery's dedup window.
func (r *TransactionRow) Save() (map[string]bigquery.Value, string, error) {
	saver := &bigquery.StructSaver{
		Struct:   r,
		Schema:   transactionSchema,
		InsertID: r.TransactionID + "@" + strconv.FormatInt(r.LedgerVersion, 10),
	}
	return saver.Save()
}

// Save implements bigquery.ValueSaver.
func (r *MonthlyCashFlowRow) Save() (map[string]bigquery.Value, string, error) {
	saver := &bigquery.StructSaver{
		Struct:   r,
		Schema:   monthlySchema,
		InsertID: r.UserID + "/" + r.Month.String() + "@" + strconv.FormatInt(r.LedgerVersion, 10),
	}
	return saver.Save()
}

// numeric converts an amount to BigQuery NUMERIC without float noise.
func numeric(v float64) *big.Rat {
	return decimal.NewFromFloat(v).Round(9).Rat()
}
