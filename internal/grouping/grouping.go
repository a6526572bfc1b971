// Package grouping clusters transactions by a normalized description
// signature so recurring merchants can be tagged in bulk.
package grouping

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf16"

	"github.com/dvloznov/ledgr/internal/domain"
)

// maxDisplayLen bounds the representative description of a group.
const maxDisplayLen = 60

var (
	nonAlnum   = regexp.MustCompile(`[^a-z0-9\s]`)
	longDigits = regexp.MustCompile(`\d{4,}`)
	spaces     = regexp.MustCompile(`\s+`)
)

// stopWords are dropped from signatures: payment rails, bank names, and
// generic transaction and month vocabulary.
var stopWords = toSet(
	// payment rails
	"upi", "neft", "imps", "rtgs", "ach", "ecs", "nach",
	// generic transaction words
	"transfer", "txn", "ref", "no", "payment", "paid", "pay", "to", "from", "for",
	"the", "a", "an", "of", "in", "on", "at", "by",
	// banks
	"hdfc", "icici", "sbi", "axis", "kotak", "yes", "pnb", "bob", "canara", "union",
	"idbi", "rbl", "federal", "indusind", "bandhan", "au", "idfc",
	// account vocabulary
	"debit", "credit", "card", "account", "ac", "bank", "ltd", "pvt", "private",
	"limited", "india", "inr", "rs",
	// months
	"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec",
	// fillers
	"via", "through", "using", "with", "and", "or",
)

func toSet(words ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

// Normalize lowercases description, replaces punctuation with spaces, drops
// runs of four or more digits and collapses whitespace.
func Normalize(description string) string {
	s := strings.ToLower(description)
	s = nonAlnum.ReplaceAllString(s, " ")
	s = longDigits.ReplaceAllString(s, "")
	s = spaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Signature returns the sorted, stop-word-filtered tokens of description.
// An empty signature means the description is unclassifiable.
func Signature(description string) string {
	tokens := strings.Fields(Normalize(description))
	kept := tokens[:0]
	for _, tok := range tokens {
		if len(tok) <= 2 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		kept = append(kept, tok)
	}
	sort.Strings(kept)
	return strings.Join(kept, " ")
}

// Group clusters txns by signature. Groups are ordered by total absolute
// amount, largest first; equal totals keep discovery order. A limit > 0
// truncates the result.
func Group(txns []domain.Transaction, limit int) []domain.TransactionGroup {
	index := make(map[string]int)
	var groups []domain.TransactionGroup

	for _, txn := range txns {
		sig := Signature(txn.Description)
		if sig == "" {
			continue
		}

		i, ok := index[sig]
		if !ok {
			i = len(groups)
			index[sig] = i
			groups = append(groups, domain.TransactionGroup{
				Signature: sig,
				Display:   txn.Description,
			})
		}

		g := &groups[i]
		g.Transactions = append(g.Transactions, txn)
		g.Count++
		g.TotalValue += math.Abs(txn.Amount)
		if displayLen(txn.Description) < displayLen(g.Display) {
			g.Display = txn.Description
		}
	}

	for i := range groups {
		groups[i].Display = truncate(groups[i].Display)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].TotalValue > groups[j].TotalValue
	})

	if limit > 0 && limit < len(groups) {
		groups = groups[:limit]
	}
	return groups
}

// Untagged clusters only the transactions in the untagged backlog.
func Untagged(txns []domain.Transaction, limit int) []domain.TransactionGroup {
	backlog := make([]domain.Transaction, 0, len(txns))
	for _, txn := range txns {
		if txn.IsUntagged() {
			backlog = append(backlog, txn)
		}
	}
	return Group(backlog, limit)
}

// displayLen measures s in UTF-16 code units, the unit existing clients
// compare display candidates by.
func displayLen(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxDisplayLen {
		return s
	}
	return string(r[:maxDisplayLen]) + "..."
}
