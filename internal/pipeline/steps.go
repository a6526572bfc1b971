package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/ledgr/internal/domain"
	"github.com/dvloznov/ledgr/internal/parser"
)

// Step represents a single step in the import pipeline.
type Step interface {
	Execute(ctx context.Context, state *State) error
}

// State holds what the steps share while importing one file.
type State struct {
	File         parser.File
	Account      domain.Account
	Transactions []domain.Transaction
	Added        []string
}

// TransactionAdder is the ledger capability the store step needs.
type TransactionAdder interface {
	AddTransactions(ctx context.Context, txns []domain.Transaction) ([]string, error)
}

// Step 1: DetectStep fills in the media type when the caller declared none.
type DetectStep struct{}

func (s *DetectStep) Execute(ctx context.Context, state *State) error {
	if state.File.MediaType == "" && len(state.File.Data) > 0 {
		state.File.MediaType = parser.DetectMediaType(state.File.Data)
	}
	return nil
}

// Step 2: ParseStep turns the file into transactions.
type ParseStep struct {
	Parser *parser.Parser
}

func (s *ParseStep) Execute(ctx context.Context, state *State) error {
	txns, err := s.Parser.Parse(state.File, state.Account)
	if err != nil {
		return err
	}
	state.Transactions = txns
	return nil
}

// Step 3: StoreStep adds the parsed transactions to the ledger.
type StoreStep struct {
	Ledger TransactionAdder
}

func (s *StoreStep) Execute(ctx context.Context, state *State) error {
	if len(state.Transactions) == 0 {
		return nil
	}
	ids, err := s.Ledger.AddTransactions(ctx, state.Transactions)
	if err != nil {
		return err
	}
	state.Added = ids
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []Step
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *State) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("import step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// NewFileImportPipeline creates the standard detect, parse, store pipeline.
func NewFileImportPipeline(p *parser.Parser, ledger TransactionAdder) *Pipeline {
	return NewPipeline(
		&DetectStep{},
		&ParseStep{Parser: p},
		&StoreStep{Ledger: ledger},
	)
}
