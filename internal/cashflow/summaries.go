package cashflow

import (
	"fmt"
	"time"

	"github.com/dvloznov/ledgr/internal/domain"
)

var monthNames = [...]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// month is the first-of-month grouping key.
type month struct {
	year  int
	month time.Month
}

func monthOf(txn domain.Transaction) month {
	return month{year: txn.Date.Year(), month: txn.Date.Month()}
}

func (m month) after(o month) bool {
	if m.year != o.year {
		return m.year > o.year
	}
	return m.month > o.month
}

// String renders the month as "Jan 2024".
func (m month) String() string {
	return fmt.Sprintf("%s %d", monthNames[m.month-1], m.year)
}

type monthCategory struct {
	month    month
	category string
}

// ByMonth buckets by calendar month, most recent first.
func ByMonth(txns []domain.Transaction) []domain.GroupedCashFlow {
	buckets := GroupBy(txns, monthOf,
		func(a, b month) bool { return a.after(b) },
		month.String,
	)
	return grouped(buckets)
}

// ByCategory buckets by category value in ascending order.
func ByCategory(txns []domain.Transaction) []domain.GroupedCashFlow {
	buckets := GroupBy(txns, domain.Transaction.CategoryOrUntagged,
		func(a, b string) bool { return a < b },
		func(c string) string { return c },
	)
	return grouped(buckets)
}

// ByMonthAndCategory buckets by (month, category): month descending, then
// category ascending.
func ByMonthAndCategory(txns []domain.Transaction) []domain.AggregatedCashFlow {
	buckets := GroupBy(txns,
		func(t domain.Transaction) monthCategory {
			return monthCategory{month: monthOf(t), category: t.CategoryOrUntagged()}
		},
		func(a, b monthCategory) bool {
			if a.month != b.month {
				return a.month.after(b.month)
			}
			return a.category < b.category
		},
		func(k monthCategory) [2]string { return [2]string{k.month.String(), k.category} },
	)

	out := make([]domain.AggregatedCashFlow, len(buckets))
	for i, b := range buckets {
		out[i] = domain.AggregatedCashFlow{AggKey: b.Key, CashFlow: b.CashFlow}
	}
	return out
}

// Compute builds the full stats cache from txns.
func Compute(txns []domain.Transaction) domain.CashFlowStats {
	return domain.CashFlowStats{
		MonthlyCashFlow:  ByMonth(txns),
		CategoryCashFlow: ByCategory(txns),
		AggCashFlow:      ByMonthAndCategory(txns),
	}
}

func grouped(buckets []Bucket[string]) []domain.GroupedCashFlow {
	out := make([]domain.GroupedCashFlow, len(buckets))
	for i, b := range buckets {
		out[i] = domain.GroupedCashFlow{GroupKey: b.Key, CashFlow: b.CashFlow}
	}
	return out
}
