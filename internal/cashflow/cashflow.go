// Package cashflow groups transactions into incoming/outgoing summaries.
//
// The engine is generic over the grouping key: callers supply a key
// extractor, an ordering and a formatter, and get back ordered buckets.
// Money is accumulated as decimals so that bucket totals do not depend on
// summation order.
package cashflow

import (
	"sort"

	"github.com/dvloznov/ledgr/internal/domain"
	"github.com/shopspring/decimal"
)

// excluded holds categories that never count as consumption or income.
var excluded = map[string]struct{}{
	"self_transfer":           {},
	"credit_card_payment":     {},
	"stocks":                  {},
	"mutual_funds":            {},
	"bonds":                   {},
	"cryptocurrency":          {},
	"real_estate_investments": {},
}

// IsExcluded reports whether txn is left out of every summary.
func IsExcluded(txn domain.Transaction) bool {
	if txn.ExcludeFromCashFlow {
		return true
	}
	_, skip := excluded[txn.Category]
	return skip
}

// ExcludedCategories lists the category values skipped by the summaries.
func ExcludedCategories() []string {
	out := make([]string, 0, len(excluded))
	for c := range excluded {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Bucket is one group of the generic engine.
type Bucket[F any] struct {
	Key      F
	CashFlow domain.CashFlow
}

type accumulator struct {
	count, inCount, outCount int
	in, out                  decimal.Decimal
}

func (a *accumulator) add(txn domain.Transaction) {
	a.count++
	amt := decimal.NewFromFloat(txn.Amount)
	if txn.Direction == domain.Credit {
		a.inCount++
		a.in = a.in.Add(amt)
	} else {
		a.outCount++
		a.out = a.out.Add(amt)
	}
}

func (a *accumulator) cashFlow() domain.CashFlow {
	return domain.CashFlow{
		Count:         a.count,
		IncomingCount: a.inCount,
		Incoming:      a.in.InexactFloat64(),
		OutgoingCount: a.outCount,
		Outgoing:      a.out.InexactFloat64(),
	}
}

// GroupBy buckets the non-excluded transactions by key, orders buckets with
// less and renders each key with format. Every transaction is visited once.
func GroupBy[K comparable, F any](
	txns []domain.Transaction,
	key func(domain.Transaction) K,
	less func(a, b K) bool,
	format func(K) F,
) []Bucket[F] {
	accs := make(map[K]*accumulator)
	var keys []K

	for _, txn := range txns {
		if IsExcluded(txn) {
			continue
		}
		k := key(txn)
		acc, ok := accs[k]
		if !ok {
			acc = &accumulator{}
			accs[k] = acc
			keys = append(keys, k)
		}
		acc.add(txn)
	}

	sort.SliceStable(keys, func(i, j int) bool { return less(keys[i], keys[j]) })

	out := make([]Bucket[F], 0, len(keys))
	for _, k := range keys {
		out = append(out, Bucket[F]{Key: format(k), CashFlow: accs[k].cashFlow()})
	}
	return out
}

// Sum totals txns without applying the exclusion rule. It backs filtered
// ledger views where the user asked for exactly those rows.
func Sum(txns []domain.Transaction) domain.CashFlow {
	var acc accumulator
	for _, txn := range txns {
		acc.add(txn)
	}
	return acc.cashFlow()
}
