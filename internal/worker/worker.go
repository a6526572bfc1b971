// Package worker runs ledger operations on a single background goroutine.
//
// Callers submit typed requests with Call and wait for the response carrying
// the same correlation id. Requests are executed one at a time in arrival
// order. A caller whose context ends stops waiting, but a request that was
// already accepted still runs to completion: the worker never cancels work
// mid-request, so the ledger is never left half-updated.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dvloznov/ledgr/internal/apperr"
	"github.com/dvloznov/ledgr/internal/jobs"
	"github.com/dvloznov/ledgr/internal/ledger"
	"github.com/dvloznov/ledgr/internal/pipeline"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrClosed is returned by Call once the worker has stopped.
var ErrClosed = errors.New("worker is closed")

type envelope struct {
	id    string
	req   Request
	reply chan Response
}

// Worker owns the ledger service and the importer.
type Worker struct {
	ledger   *ledger.Service
	importer *pipeline.Importer
	log      zerolog.Logger

	reqChan   chan envelope
	closeChan chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
	started   bool
	mu        sync.Mutex

	notifier *Notifier
}

// New creates a worker. bufferSize determines how many requests can be
// queued before Call blocks.
func New(svc *ledger.Service, importer *pipeline.Importer, log zerolog.Logger, bufferSize int) *Worker {
	return &Worker{
		ledger:    svc,
		importer:  importer,
		log:       log,
		reqChan:   make(chan envelope, bufferSize),
		closeChan: make(chan struct{}),
		done:      make(chan struct{}),
		notifier:  NewNotifier(),
	}
}

// Start launches the worker goroutine. Requests run with ctx, not with the
// context of the caller that submitted them.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-w.closeChan:
		return ErrClosed
	default:
	}
	if w.started {
		return fmt.Errorf("worker already started")
	}
	w.started = true

	w.wg.Add(1)
	go w.loop(ctx)
	return nil
}

// Subscribe registers for change events. The returned function unsubscribes.
func (w *Worker) Subscribe() (<-chan Event, func()) {
	return w.notifier.Subscribe()
}

func (w *Worker) loop(ctx context.Context) {
	defer w.wg.Done()
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.closeChan:
			return
		case env := <-w.reqChan:
			env.reply <- w.handle(ctx, env)
			if _, ok := env.req.(CloseRequest); ok {
				w.shutdown()
				return
			}
		}
	}
}

// Call submits req and waits for its response. The error is the response's
// flattened error payload, ErrClosed, or ctx's error when the caller gave up.
func (w *Worker) Call(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	env := envelope{
		id:    uuid.New().String(),
		req:   detach(req),
		reply: make(chan Response, 1),
	}

	select {
	case <-w.closeChan:
		return Response{}, ErrClosed
	default:
	}

	select {
	case w.reqChan <- env:
	case <-ctx.Done():
		return Response{}, ctx.Err()
	case <-w.closeChan:
		return Response{}, ErrClosed
	}

	select {
	case resp := <-env.reply:
		if resp.Error != nil {
			return resp, resp.Error
		}
		return resp, nil
	case <-ctx.Done():
		return Response{}, ctx.Err()
	case <-w.done:
		// The loop may have replied just before exiting.
		select {
		case resp := <-env.reply:
			if resp.Error != nil {
				return resp, resp.Error
			}
			return resp, nil
		default:
			return Response{}, ErrClosed
		}
	}
}

// Do is Call with the payload asserted to T.
func Do[T any](ctx context.Context, w *Worker, req Request) (T, error) {
	var zero T
	resp, err := w.Call(ctx, req)
	if err != nil {
		return zero, err
	}
	payload, ok := resp.Payload.(T)
	if !ok {
		return zero, fmt.Errorf("%s: unexpected payload type %T", req.Type(), resp.Payload)
	}
	return payload, nil
}

// Stop stops the worker and waits for the in-flight request to finish.
func (w *Worker) Stop(ctx context.Context) error {
	w.shutdown()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.notifier.Close()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) shutdown() {
	w.closeOnce.Do(func() { close(w.closeChan) })
}

func (w *Worker) handle(ctx context.Context, env envelope) Response {
	resp := Response{ID: env.id, Type: env.req.Type()}

	payload, event, err := w.dispatch(ctx, env.req)
	if err != nil {
		w.log.Warn().Err(err).Str("request_id", env.id).Str("type", resp.Type).Msg("Request failed")
		resp.Error = apperr.ToPayload(err)
		return resp
	}
	resp.Payload = payload

	if event != "" {
		w.publish(ctx, event)
	}
	return resp
}

// dispatch runs one request and reports which change event, if any, it
// caused.
func (w *Worker) dispatch(ctx context.Context, req Request) (any, EventKind, error) {
	switch r := req.(type) {
	case InitRequest:
		return true, "", w.ledger.Init(ctx)

	case CloseRequest:
		return true, "", nil

	case ImportFilesRequest:
		job, err := w.importer.Import(ctx, r.AccountID, r.Files)
		if err != nil {
			return nil, "", err
		}
		var event EventKind
		if job.Imported() > 0 {
			event = TransactionsChanged
		}
		return job, event, nil

	case ImportHistoryRequest:
		list, err := w.importer.History(ctx, jobs.JobFilter{AccountID: r.AccountID, Limit: r.Limit})
		return list, "", err

	case GetTransactionsRequest:
		txns, err := w.ledger.GetTransactions(ctx, r.Filters, r.Offset, r.Limit)
		if err != nil {
			return nil, "", err
		}
		cf, err := w.ledger.GetCashFlow(ctx, r.Filters)
		if err != nil {
			return nil, "", err
		}
		return TransactionsPage{Transactions: txns, CashFlow: cf}, "", nil

	case FetchMoreTransactionsRequest:
		txns, err := w.ledger.GetTransactions(ctx, r.Filters, r.Offset, r.Limit)
		return txns, "", err

	case UpdateTransactionRequest:
		txn, err := w.ledger.UpdateTransaction(ctx, r.ID, r.Patch)
		return txn, TransactionsChanged, err

	case DeleteTransactionRequest:
		return r.ID, TransactionsChanged, w.ledger.DeleteTransaction(ctx, r.ID)

	case GetAllAccountsRequest:
		accounts, err := w.ledger.GetAllAccounts(ctx)
		return accounts, "", err

	case CreateAccountRequest:
		account, err := w.ledger.CreateAccount(ctx, r.Account)
		return account, AccountsChanged, err

	case GetStatsRequest:
		stats, err := w.ledger.GetStats(ctx)
		return stats, "", err

	case ComputeStatsRequest:
		stats, err := w.ledger.ComputeStats(ctx)
		return stats, "", err

	case TagTransactionRequest:
		return r.ID, TransactionsChanged, w.ledger.TagTransaction(ctx, r.ID, r.Category)

	case TagTransactionsRequest:
		var (
			ids []string
			err error
		)
		if len(r.IDs) > 0 {
			ids, err = w.ledger.TagTransactionIDs(ctx, r.IDs, r.Category)
		} else {
			ids, err = w.ledger.TagTransactions(ctx, r.Filters, r.Category)
		}
		return ids, TransactionsChanged, err

	case GetUntaggedGroupsRequest:
		groups, err := w.ledger.GetUntaggedGroups(ctx, r.Limit)
		return groups, "", err

	case GetAllCategoriesRequest:
		cats, err := w.ledger.GetAllCategories(ctx)
		return cats, "", err

	case AddCategoryRequest:
		c, err := w.ledger.AddCategory(ctx, r.Category)
		return c, CategoriesChanged, err

	case UpdateCategoryRequest:
		c, err := w.ledger.UpdateCategory(ctx, r.ID, r.Patch)
		return c, CategoriesChanged, err

	case DeleteCategoryRequest:
		ids, err := w.ledger.DeleteCategory(ctx, r.ID)
		return ids, CategoriesChanged, err

	case LoadSnapshotRequest:
		if err := w.ledger.Import(ctx, r.Snapshot); err != nil {
			return nil, "", err
		}
		return r.Snapshot.Version, SnapshotLoaded, nil

	case ExportSnapshotRequest:
		snap, err := w.ledger.Export(ctx)
		return snap, "", err

	case GetMetadataRequest:
		meta, err := w.ledger.Metadata(ctx)
		return meta, "", err

	case SetLastSyncRequest:
		return r.At, "", w.ledger.SetLastSync(ctx, r.At)
	}

	return nil, "", fmt.Errorf("%w: unknown request type %T", apperr.ErrInvalid, req)
}

func (w *Worker) publish(ctx context.Context, kind EventKind) {
	var version int64
	meta, err := w.ledger.Metadata(ctx)
	if err != nil {
		w.log.Warn().Err(err).Msg("Failed to read version for change event")
	} else {
		version = meta.Version
	}
	w.notifier.Publish(Event{Kind: kind, Version: version})
}
