// Package warehouse mirrors the ledger into BigQuery for ad-hoc analysis.
// The mirror is append-only: every run writes rows tagged with the ledger
// version, and readers pick the latest version per user.
package warehouse

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/ledgr/internal/domain"
	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	transactionsTable = "transactions"
	monthlyTable      = "monthly_cash_flow"

	// insertBatchSize keeps each streaming insert request well under the
	// API's request size limit.
	insertBatchSize = 500
)

var (
	transactionSchema = mustInferSchema(TransactionRow{})
	monthlySchema     = mustInferSchema(MonthlyCashFlowRow{})
)

func mustInferSchema(st any) bigquery.Schema {
	schema, err := bigquery.InferSchema(st)
	if err != nil {
		panic(fmt.Sprintf("warehouse: infer schema for %T: %v", st, err))
	}
	return schema
}

// Result summarizes one mirror run.
type Result struct {
	Version      int64 `json:"version"`
	Transactions int   `json:"transactions"`
	Months       int   `json:"months"`
}

// Mirror writes ledger snapshots into one BigQuery dataset.
type Mirror struct {
	client  *bigquery.Client
	dataset *bigquery.Dataset
	userID  string
	log     zerolog.Logger
	now     func() time.Time
}

// New creates a mirror for userID writing to projectID.datasetID.
func New(ctx context.Context, projectID, datasetID, userID string, log zerolog.Logger, opts ...option.ClientOption) (*Mirror, error) {
	if projectID == "" || datasetID == "" {
		return nil, errors.New("warehouse: project and dataset are required")
	}
	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("New: bigquery client: %w", err)
	}
	return &Mirror{
		client:  client,
		dataset: client.DatasetInProject(projectID, datasetID),
		userID:  userID,
		log:     log,
		now:     time.Now,
	}, nil
}

// Close closes the BigQuery client connection.
func (m *Mirror) Close() error {
	return m.client.Close()
}

// EnsureTables creates the mirror tables that do not exist yet.
func (m *Mirror) EnsureTables(ctx context.Context) error {
	tables := []struct {
		name string
		meta *bigquery.TableMetadata
	}{
		{
			name: transactionsTable,
			meta: &bigquery.TableMetadata{
				Schema: transactionSchema,
				TimePartitioning: &bigquery.TimePartitioning{
					Type:  bigquery.MonthPartitioningType,
					Field: "transaction_date",
				},
				Clustering: &bigquery.Clustering{Fields: []string{"user_id", "account_id"}},
			},
		},
		{
			name: monthlyTable,
			meta: &bigquery.TableMetadata{Schema: monthlySchema},
		},
	}

	for _, t := range tables {
		table := m.dataset.Table(t.name)
		_, err := table.Metadata(ctx)
		if err == nil {
			continue
		}
		if !isNotFound(err) {
			return fmt.Errorf("EnsureTables: %s metadata: %w", t.name, err)
		}
		if err := table.Create(ctx, t.meta); err != nil {
			return fmt.Errorf("EnsureTables: create %s: %w", t.name, err)
		}
		m.log.Info().Str("table", t.name).Msg("Created warehouse table")
	}
	return nil
}

// Mirror appends snap and its monthly cash flow to the warehouse.
func (m *Mirror) Mirror(ctx context.Context, snap domain.Snapshot, stats domain.CashFlowStats) (Result, error) {
	at := m.now().UTC()

	txRows := TransactionRows(m.userID, snap, at)
	monthRows, err := MonthlyRows(m.userID, snap.Version, stats, at)
	if err != nil {
		return Result{}, err
	}

	if err := putBatches(ctx, m.dataset.Table(transactionsTable).Inserter(), txRows); err != nil {
		return Result{}, fmt.Errorf("Mirror: transactions: %w", err)
	}
	if err := putBatches(ctx, m.dataset.Table(monthlyTable).Inserter(), monthRows); err != nil {
		return Result{}, fmt.Errorf("Mirror: monthly cash flow: %w", err)
	}

	m.log.Info().
		Str("user_id", m.userID).
		Int64("version", snap.Version).
		Int("transactions", len(txRows)).
		Int("months", len(monthRows)).
		Msg("Ledger mirrored to warehouse")

	return Result{Version: snap.Version, Transactions: len(txRows), Months: len(monthRows)}, nil
}

func putBatches[T bigquery.ValueSaver](ctx context.Context, ins *bigquery.Inserter, rows []T) error {
	for start := 0; start < len(rows); start += insertBatchSize {
		end := min(start+insertBatchSize, len(rows))
		if err := ins.Put(ctx, rows[start:end]); err != nil {
			return fmt.Errorf("rows %d-%d: %w", start, end-1, err)
		}
	}
	return nil
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}
