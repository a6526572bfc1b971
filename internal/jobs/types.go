package jobs

import (
	"context"
	"time"

	"github.com/dvloznov/ledgr/internal/apperr"
)

// JobStatus represents the current status of an import job.
type JobStatus string

const (
	// JobStatusRunning indicates the files are being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates every file was imported.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusPartiallyFailed indicates some files were imported and some failed.
	JobStatusPartiallyFailed JobStatus = "partially_failed"
	// JobStatusFailed indicates no file was imported.
	JobStatusFailed JobStatus = "failed"
)

// FileResult is the outcome of importing one statement file.
type FileResult struct {
	// File is the file name as submitted.
	File string `json:"file"`

	// NumTransactions is the number of transactions added to the ledger.
	NumTransactions int `json:"numTransactions"`

	// Success reports whether the file was parsed and stored.
	Success bool `json:"success"`

	// Error is the flattened failure when Success is false.
	Error *apperr.Payload `json:"error,omitempty"`
}

// ImportJob records one batch of statement files imported into an account.
type ImportJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// AccountID is the account the files were imported into.
	AccountID int64 `json:"account_id"`

	// Files lists the submitted file names in order.
	Files []string `json:"files"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	// Results holds one entry per processed file.
	Results []FileResult `json:"results"`

	// CreatedAt is when the job was created.
	CreatedAt time.Time `json:"created_at"`

	// CompletedAt is when the last file finished.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Imported returns the total number of transactions the job added.
func (j *ImportJob) Imported() int {
	n := 0
	for _, r := range j.Results {
		n += r.NumTransactions
	}
	return n
}

// Finish derives the final status from the per-file results and stamps the
// completion time.
func (j *ImportJob) Finish(at time.Time) {
	ok := 0
	for _, r := range j.Results {
		if r.Success {
			ok++
		}
	}

	switch {
	case ok == len(j.Results):
		j.Status = JobStatusCompleted
	case ok == 0:
		j.Status = JobStatusFailed
	default:
		j.Status = JobStatusPartiallyFailed
	}
	j.CompletedAt = &at
}

// JobStore defines the interface for storing and retrieving import jobs.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *ImportJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*ImportJob, error)

	// ListJobs retrieves jobs with optional filtering, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ImportJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// AccountID filters jobs by account. Zero means any account.
	AccountID int64

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
