// Package pipeline imports batches of statement files into the ledger, one
// file at a time, and records each batch as an import job.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/ledgr/internal/apperr"
	"github.com/dvloznov/ledgr/internal/domain"
	"github.com/dvloznov/ledgr/internal/jobs"
	"github.com/dvloznov/ledgr/internal/parser"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Ledger is what the importer needs from the ledger service.
type Ledger interface {
	TransactionAdder
	GetAccount(ctx context.Context, id int64) (domain.Account, error)
}

// Importer runs the file import pipeline over a batch and keeps job history.
type Importer struct {
	pipeline *Pipeline
	ledger   Ledger
	jobs     jobs.JobStore
	log      zerolog.Logger
	now      func() time.Time
}

// NewImporter creates an importer. A nil job store disables job history.
func NewImporter(p *parser.Parser, ledger Ledger, store jobs.JobStore, log zerolog.Logger) *Importer {
	return &Importer{
		pipeline: NewFileImportPipeline(p, ledger),
		ledger:   ledger,
		jobs:     store,
		log:      log,
		now:      time.Now,
	}
}

// Import processes files sequentially into accountID. One failing file does
// not stop the batch; its failure is recorded in its FileResult. The
// returned error is reserved for failures outside any single file, such as
// an unknown account.
func (im *Importer) Import(ctx context.Context, accountID int64, files []parser.File) (*jobs.ImportJob, error) {
	account, err := im.ledger.GetAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("Import: %w", err)
	}

	job := &jobs.ImportJob{
		JobID:     uuid.New().String(),
		AccountID: accountID,
		Status:    jobs.JobStatusRunning,
		Results:   make([]jobs.FileResult, 0, len(files)),
		CreatedAt: im.now(),
	}
	for _, f := range files {
		job.Files = append(job.Files, f.Name)
	}
	im.save(ctx, job)

	log := im.log.With().Str("job_id", job.JobID).Int64("account_id", accountID).Logger()

	for _, f := range files {
		job.Results = append(job.Results, im.importFile(ctx, log, f, account))
	}

	job.Finish(im.now())
	im.save(ctx, job)

	log.Info().
		Str("status", string(job.Status)).
		Int("files", len(files)).
		Int("transactions", job.Imported()).
		Msg("Import finished")
	return job, nil
}

func (im *Importer) importFile(ctx context.Context, log zerolog.Logger, f parser.File, account domain.Account) jobs.FileResult {
	state := &State{File: f, Account: account}
	if err := im.pipeline.Execute(ctx, state); err != nil {
		log.Warn().Err(err).Str("file", f.Name).Msg("File import failed")
		return jobs.FileResult{File: f.Name, Error: apperr.ToPayload(err)}
	}

	log.Debug().
		Str("file", f.Name).
		Str("media_type", state.File.MediaType).
		Int("transactions", len(state.Added)).
		Msg("File imported")
	return jobs.FileResult{File: f.Name, NumTransactions: len(state.Added), Success: true}
}

func (im *Importer) save(ctx context.Context, job *jobs.ImportJob) {
	if im.jobs == nil {
		return
	}
	if err := im.jobs.SaveJob(ctx, job); err != nil {
		im.log.Error().Err(err).Str("job_id", job.JobID).Msg("Failed to record import job")
	}
}

// History lists recorded import jobs.
func (im *Importer) History(ctx context.Context, filter jobs.JobFilter) ([]*jobs.ImportJob, error) {
	if im.jobs == nil {
		return []*jobs.ImportJob{}, nil
	}
	list, err := im.jobs.ListJobs(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("History: %w", err)
	}
	return list, nil
}
