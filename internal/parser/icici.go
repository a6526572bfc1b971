package parser

import (
	"strings"

	"github.com/dvloznov/ledgr/internal/apperr"
	"github.com/dvloznov/ledgr/internal/domain"
)

// ICICI statements are workbooks. SBI exports share the same layouts.
const iciciMinCells = 8

// parseICICIBank parses the ICICI savings account workbook:
// S No., Value Date, Transaction Date, Cheque Number, Transaction Remarks,
// Withdrawal Amount, Deposit Amount, Balance.
func (p *Parser) parseICICIBank(f File, accountID int64) ([]domain.Transaction, error) {
	rows, err := readRows(f)
	if err != nil {
		return nil, err
	}

	headerFound := false
	var txns []domain.Transaction

	for _, raw := range rows {
		row := trimLeading(raw)
		if len(row) < iciciMinCells {
			continue
		}

		if !headerFound {
			headerFound = hasCells(row, "Transaction Date", "Transaction Remarks")
			continue
		}

		date, err := parseDMY(row[2], p.loc)
		if err != nil {
			return nil, parseErr(f, rowText(row), apperr.ReasonBadDate, err.Error())
		}

		description := strings.TrimSpace(row[4])
		if description == "" {
			return nil, parseErr(f, rowText(row), apperr.ReasonBadDescription, "description could not be read")
		}

		amount, dir, err := debitOrCredit(row[5], row[6])
		if err != nil {
			return nil, parseErr(f, rowText(row), apperr.ReasonBadAmount, err.Error())
		}

		txns = append(txns, p.newTransaction(accountID, date, description, amount, dir))
	}

	if !headerFound {
		return nil, headerNotFound(f)
	}
	return txns, nil
}

// parseICICICard parses the ICICI credit card workbook. The amount cell
// carries its direction: "1,234.50 Dr." or "99.00 Cr.".
func (p *Parser) parseICICICard(f File, accountID int64) ([]domain.Transaction, error) {
	rows, err := readRows(f)
	if err != nil {
		return nil, err
	}

	headerFound := false
	var txns []domain.Transaction

	for _, raw := range rows {
		row := trimLeading(raw)
		if len(row) < iciciMinCells {
			continue
		}

		if !headerFound {
			headerFound = hasCells(row, "Transaction Date", "Details")
			continue
		}

		date, err := parseDMY(row[0], p.loc)
		if err != nil {
			return nil, parseErr(f, rowText(row), apperr.ReasonBadDate, err.Error())
		}

		description := strings.TrimSpace(row[1])
		if description == "" {
			return nil, parseErr(f, rowText(row), apperr.ReasonBadDescription, "description could not be read")
		}

		amountParts := strings.Fields(row[5])
		if len(amountParts) != 2 {
			return nil, parseErr(f, rowText(row), apperr.ReasonBadAmount, "expected amount as '123.45 Dr.' or '123.45 Cr.'")
		}
		amount, ok := parseAmount(amountParts[0])
		if !ok {
			return nil, parseErr(f, rowText(row), apperr.ReasonBadAmount, "amount could not be read")
		}

		dir := domain.Credit
		if amountParts[1] == "Dr." {
			dir = domain.Debit
		}

		txns = append(txns, p.newTransaction(accountID, date, description, amount.Abs().InexactFloat64(), dir))
	}

	if !headerFound {
		return nil, headerNotFound(f)
	}
	return txns, nil
}
