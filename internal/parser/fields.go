package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/ledgr/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	errZeroAmount = errors.New("neither debit nor credit amount is set")
)

// pivotYear expands two-digit years: below 50 is 20xx, 50 to 99 is 19xx.
// Years of three or more digits are returned unchanged.
func pivotYear(y int) int {
	switch {
	case y < 50:
		return y + 2000
	case y < 100:
		return y + 1900
	default:
		return y
	}
}

// parseDMY parses a DD/MM/YY or DD/MM/YYYY date at midnight in loc.
func parseDMY(s string, loc *time.Location) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("expected date as DD/MM/YYYY, got %q", s)
	}

	var nums [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			return time.Time{}, fmt.Errorf("expected date as DD/MM/YYYY, got %q", s)
		}
		nums[i] = n
	}

	return civilTime(pivotYear(nums[2]), nums[1], nums[0], 0, 0, 0, loc, s)
}

// parseDMYTime parses "DD/MM/YYYY" with an optional " HH:MM:SS" suffix.
func parseDMYTime(s string, loc *time.Location) (time.Time, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return time.Time{}, fmt.Errorf("empty date")
	}

	date, err := parseDMY(fields[0], loc)
	if err != nil || len(fields) == 1 {
		return date, err
	}

	clock := strings.Split(fields[1], ":")
	if len(clock) != 3 {
		return time.Time{}, fmt.Errorf("expected time as HH:MM:SS, got %q", fields[1])
	}
	var hms [3]int
	for i, part := range clock {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return time.Time{}, fmt.Errorf("expected time as HH:MM:SS, got %q", fields[1])
		}
		hms[i] = n
	}
	if hms[0] > 23 || hms[1] > 59 || hms[2] > 59 {
		return time.Time{}, fmt.Errorf("time out of range: %q", fields[1])
	}

	return time.Date(date.Year(), date.Month(), date.Day(), hms[0], hms[1], hms[2], 0, loc), nil
}

// civilTime rejects dates such as 31/02 that time.Date would normalize.
func civilTime(year, month, day, hour, minute, sec int, loc *time.Location, raw string) (time.Time, error) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("date out of range: %q", raw)
	}
	t := time.Date(year, time.Month(month), day, hour, minute, sec, 0, loc)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, fmt.Errorf("date out of range: %q", raw)
	}
	return t, nil
}

// parseAmount reads a money string such as "1,234.50". Blank or non-numeric
// input yields zero and ok=false.
func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// debitOrCredit infers direction from separate debit and credit columns.
// A non-zero debit wins; both zero or blank is an error.
func debitOrCredit(debitStr, creditStr string) (float64, domain.Direction, error) {
	debit, _ := parseAmount(debitStr)
	credit, _ := parseAmount(creditStr)

	switch {
	case !debit.IsZero():
		return debit.Abs().InexactFloat64(), domain.Debit, nil
	case !credit.IsZero():
		return credit.Abs().InexactFloat64(), domain.Credit, nil
	default:
		return 0, "", errZeroAmount
	}
}
