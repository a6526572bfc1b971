// Package identity derives the content-based primary key of a transaction.
//
// The id is a 32-bit rolling hash (h = h*31 + c over UTF-16 code units) of the
// JSON encoding of {date, description, amount, txnType}, printed as eight hex
// digits. It is an idempotency key, not a security boundary: two distinct
// transactions with identical date, amount, description and direction (two
// identical coffees on the same day) produce the same id and cannot be told
// apart. That collision is a known limitation.
package identity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/dvloznov/ledgr/internal/domain"
)

// isoMillis matches the millisecond ISO-8601 form used by existing snapshots.
const isoMillis = "2006-01-02T15:04:05.000Z"

// hashInput fixes the field order of the hashed JSON document.
type hashInput struct {
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	TxnType     string  `json:"txnType"`
}

// Hash returns the eight-character hex id for key.
func Hash(key domain.TransactionKey) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(hashInput{
		Date:        key.Date.UTC().Format(isoMillis),
		Description: key.Description,
		Amount:      key.Amount,
		TxnType:     string(key.Direction),
	})
	doc := unescapeLineSeparators(strings.TrimSuffix(buf.String(), "\n"))
	if err != nil {
		// Only NaN or Inf amounts fail to encode; hash their text form instead.
		doc = fmt.Sprintf("%s|%s|%v|%s", key.Date.UTC().Format(time.RFC3339Nano), key.Description, key.Amount, key.Direction)
	}
	return fmt.Sprintf("%08x", rolling(doc))
}

// Assign sets txn.ID from its identity fields and returns it.
func Assign(txn domain.Transaction) domain.Transaction {
	txn.ID = Hash(txn.Key())
	return txn
}

// unescapeLineSeparators turns the \u2028 and \u2029 escapes encoding/json
// always emits back into raw runes, which is how existing ids were hashed.
// Escaped backslashes are skipped as pairs so a literal "\\u2028" survives.
func unescapeLineSeparators(doc string) string {
	if !strings.Contains(doc, `\u202`) {
		return doc
	}
	var b strings.Builder
	b.Grow(len(doc))
	for i := 0; i < len(doc); i++ {
		if doc[i] != '\\' || i+1 == len(doc) {
			b.WriteByte(doc[i])
			continue
		}
		switch seq := doc[i:min(i+6, len(doc))]; seq {
		case `\u2028`:
			b.WriteRune('\u2028')
			i += 5
		case `\u2029`:
			b.WriteRune('\u2029')
			i += 5
		default:
			b.WriteString(doc[i : i+2])
			i++
		}
	}
	return b.String()
}

func rolling(s string) uint32 {
	var h int32
	for _, unit := range utf16.Encode([]rune(s)) {
		h = (h << 5) - h + int32(unit)
	}
	return uint32(h)
}
