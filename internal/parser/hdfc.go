package parser

import (
	"strings"

	"github.com/dvloznov/ledgr/internal/apperr"
	"github.com/dvloznov/ledgr/internal/domain"
)

// HDFC bank CSV export: Date,Narration,Value Dat,Debit Amount,Credit Amount,...
const hdfcBankCSVMinFields = 5

// parseHDFCBankCSV parses the comma-delimited HDFC savings account export.
// Every non-blank line must have at least five fields, header lines included.
func (p *Parser) parseHDFCBankCSV(f File, accountID int64) ([]domain.Transaction, error) {
	headerFound := false
	var txns []domain.Transaction

	for _, line := range strings.Split(string(f.Data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) < hdfcBankCSVMinFields {
			return nil, parseErr(f, line, apperr.ReasonTooFewFields, "invalid transaction line")
		}

		dateStr := strings.TrimSpace(parts[0])
		if !headerFound {
			headerFound = strings.ToLower(dateStr) == "date"
			continue
		}

		date, err := parseDMY(dateStr, p.loc)
		if err != nil {
			return nil, parseErr(f, line, apperr.ReasonBadDate, err.Error())
		}

		description := strings.TrimSpace(parts[1])
		if description == "" {
			return nil, parseErr(f, line, apperr.ReasonBadDescription, "description could not be read")
		}

		amount, dir, err := debitOrCredit(parts[3], parts[4])
		if err != nil {
			return nil, parseErr(f, line, apperr.ReasonBadAmount, err.Error())
		}

		txns = append(txns, p.newTransaction(accountID, date, description, amount, dir))
	}

	if !headerFound {
		return nil, headerNotFound(f)
	}
	return txns, nil
}

// HDFC bank spreadsheet export columns after leading blanks are dropped:
// Date, Narration, Chq./Ref.No., Value Dt, Withdrawal Amt., Deposit Amt., Closing Balance.
const hdfcBankSheetMinCells = 7

// parseHDFCBankSheet parses the HDFC savings account workbook. Rows whose
// first cell is not a date (separators, footers) are skipped.
func (p *Parser) parseHDFCBankSheet(f File, accountID int64) ([]domain.Transaction, error) {
	rows, err := readRows(f)
	if err != nil {
		return nil, err
	}

	headerFound := false
	var txns []domain.Transaction

	for _, raw := range rows {
		row := trimLeading(raw)
		if len(row) < hdfcBankSheetMinCells {
			continue
		}

		if !headerFound {
			headerFound = hasCells(row, "Date", "Narration", "Withdrawal Amt.", "Deposit Amt.")
			continue
		}

		if len(strings.Split(strings.TrimSpace(row[0]), "/")) != 3 {
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

		amount, dir, err := debitOrCredit(row[4], row[5])
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

// cardLayout is the column mapping of one HDFC card export generation.
type cardLayout struct {
	delimiter                     string
	date, description, amount, dr int
	minFields                     int
}

var (
	// Exports since September 2025: Type, Name, Date, Description, Amount, Debit/Credit, Rewards.
	hdfcCardCurrent = cardLayout{delimiter: "~|~", date: 2, description: 3, amount: 4, dr: 5, minFields: 6}
	// Older exports: Type, Name, Date, Description, RewardPoints, Amount, Debit/Credit.
	hdfcCardLegacy = cardLayout{delimiter: "~", date: 2, description: 3, amount: 5, dr: 6, minFields: 7}
)

// parseHDFCCard parses the tilde-delimited HDFC credit card export. The
// layout is chosen once per file by the presence of the "~|~" delimiter.
// Data rows start with "Domestic" or "International"; the first row that
// does not ends the transaction table.
func (p *Parser) parseHDFCCard(f File, accountID int64) ([]domain.Transaction, error) {
	text := string(f.Data)
	layout := hdfcCardLegacy
	if strings.Contains(text, hdfcCardCurrent.delimiter) {
		layout = hdfcCardCurrent
	}

	headerFound := false
	var txns []domain.Transaction

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.Split(line, layout.delimiter)
		kind := strings.ToLower(strings.TrimSpace(parts[0]))
		if !headerFound {
			headerFound = kind == "transaction type"
			continue
		}
		if kind != "domestic" && kind != "international" {
			break
		}

		if len(parts) < layout.minFields {
			return nil, parseErr(f, line, apperr.ReasonTooFewFields, "failed to parse transaction from line")
		}

		date, err := parseDMYTime(parts[layout.date], p.loc)
		if err != nil {
			return nil, parseErr(f, line, apperr.ReasonBadDate, err.Error())
		}

		description := strings.TrimSpace(parts[layout.description])
		if description == "" {
			return nil, parseErr(f, line, apperr.ReasonBadDescription, "description could not be read")
		}

		amount, ok := parseAmount(parts[layout.amount])
		if !ok {
			return nil, parseErr(f, line, apperr.ReasonBadAmount, "amount could not be read")
		}

		dir := domain.Debit
		if strings.TrimSpace(parts[layout.dr]) == "Cr" {
			dir = domain.Credit
		}

		txns = append(txns, p.newTransaction(accountID, date, description, amount.Abs().InexactFloat64(), dir))
	}

	if !headerFound {
		return nil, headerNotFound(f)
	}
	return txns, nil
}
