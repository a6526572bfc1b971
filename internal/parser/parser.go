// Package parser turns raw bank and card statement files into canonical
// transactions.
//
// There is one parser per (institution, account kind). Every produced
// transaction gets its id from the identity package and a first-pass category
// from the tagger. Failures are reported as *apperr.ParseError carrying the
// file name and, where one applies, the offending raw line or row.
package parser

import (
	"time"

	"github.com/dvloznov/ledgr/internal/apperr"
	"github.com/dvloznov/ledgr/internal/domain"
	"github.com/dvloznov/ledgr/internal/identity"
	"github.com/dvloznov/ledgr/internal/tagger"
)

// File is an uploaded statement.
type File struct {
	Name      string
	MediaType string
	Data      []byte
}

// Parser dispatches statements to the format-specific parsers.
// A Parser holds no per-file state and is safe for concurrent use.
type Parser struct {
	tagger *tagger.Tagger
	loc    *time.Location
}

// Option configures a Parser.
type Option func(*Parser)

// WithLocation sets the time zone statement dates are interpreted in.
// The default is UTC.
func WithLocation(loc *time.Location) Option {
	return func(p *Parser) {
		if loc != nil {
			p.loc = loc
		}
	}
}

// New creates a parser that categorizes with t. A nil t uses the default rules.
func New(t *tagger.Tagger, opts ...Option) *Parser {
	if t == nil {
		t = tagger.Default()
	}
	p := &Parser{tagger: t, loc: time.UTC}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse parses f as a statement of account. When f carries no media type it
// is sniffed from the content first.
func (p *Parser) Parse(f File, account domain.Account) ([]domain.Transaction, error) {
	if f.MediaType == "" {
		f.MediaType = DetectMediaType(f.Data)
	}
	if !IsSupported(f) {
		return nil, &apperr.ParseError{
			File:   f.Name,
			Reason: apperr.ReasonUnsupportedFile,
			Msg:    "file is not a text, CSV or spreadsheet file",
		}
	}

	switch account.Institution {
	case domain.HDFC:
		switch account.Kind {
		case domain.BankAccount:
			if isSpreadsheetType(f.MediaType) {
				return p.parseHDFCBankSheet(f, account.ID)
			}
			return p.parseHDFCBankCSV(f, account.ID)
		case domain.CreditCard:
			return p.parseHDFCCard(f, account.ID)
		}
	case domain.ICICI, domain.SBI:
		switch account.Kind {
		case domain.BankAccount:
			return p.parseICICIBank(f, account.ID)
		case domain.CreditCard:
			return p.parseICICICard(f, account.ID)
		}
	}

	return nil, &apperr.ParseError{
		File:   f.Name,
		Reason: apperr.ReasonUnsupportedFormat,
		Msg:    "no parser for " + string(account.Institution) + " " + string(account.Kind),
	}
}

// newTransaction builds a canonical transaction with identity and category.
func (p *Parser) newTransaction(accountID int64, date time.Time, description string, amount float64, dir domain.Direction) domain.Transaction {
	return identity.Assign(domain.Transaction{
		Date:        date,
		Amount:      amount,
		Description: description,
		Direction:   dir,
		AccountID:   accountID,
		Category:    p.tagger.Categorize(description),
	})
}

func parseErr(f File, line string, reason apperr.ParseReason, msg string) error {
	return &apperr.ParseError{File: f.Name, Line: line, Reason: reason, Msg: msg}
}

func headerNotFound(f File) error {
	return parseErr(f, "", apperr.ReasonHeaderNotFound, "statement header row not found")
}
