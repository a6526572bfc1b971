// Package app holds the device-side application context: the ledger store,
// the ledger service, the importer and the worker that serializes access to
// them. Commands build one App, call Init, and Close it on the way out.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/ledgr/internal/config"
	jobsmem "github.com/dvloznov/ledgr/internal/jobs/inmemory"
	"github.com/dvloznov/ledgr/internal/ledger"
	"github.com/dvloznov/ledgr/internal/ledger/inmemory"
	"github.com/dvloznov/ledgr/internal/ledger/postgres"
	"github.com/dvloznov/ledgr/internal/logger"
	"github.com/dvloznov/ledgr/internal/parser"
	"github.com/dvloznov/ledgr/internal/pipeline"
	"github.com/dvloznov/ledgr/internal/syncer"
	"github.com/dvloznov/ledgr/internal/tagger"
	"github.com/dvloznov/ledgr/internal/worker"
	"github.com/rs/zerolog"
)

// workerQueueSize is how many requests may wait for the worker.
const workerQueueSize = 64

// App is the application context.
type App struct {
	Config *config.Config
	Log    zerolog.Logger

	Ledger   *ledger.Service
	Importer *pipeline.Importer
	Worker   *worker.Worker

	closers []func()
	started bool
}

// New creates an App. Nothing is opened until Init.
func New(cfg *config.Config, log zerolog.Logger) *App {
	return &App{Config: cfg, Log: log}
}

// Init opens the ledger store, starts the worker and seeds the ledger on
// first use.
func (a *App) Init(ctx context.Context) error {
	if a.started {
		return errors.New("app: already initialized")
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}

	t, err := tagger.FromFile(a.Config.TaggerRules)
	if err != nil {
		a.Close(ctx)
		return fmt.Errorf("app: tagger rules: %w", err)
	}

	a.Ledger = ledger.NewService(store, ledger.WithLogger(logger.Component(a.Log, "ledger")))
	a.Importer = pipeline.NewImporter(parser.New(t), a.Ledger, jobsmem.NewStore(), logger.Component(a.Log, "importer"))
	a.Worker = worker.New(a.Ledger, a.Importer, logger.Component(a.Log, "worker"), workerQueueSize)

	if err := a.Worker.Start(ctx); err != nil {
		a.Close(ctx)
		return fmt.Errorf("app: start worker: %w", err)
	}
	a.started = true

	if _, err := a.Worker.Call(ctx, worker.InitRequest{}); err != nil {
		a.Close(ctx)
		return fmt.Errorf("app: init ledger: %w", err)
	}

	a.Log.Info().Str("store", a.Config.Store).Msg("Application initialized")
	return nil
}

// SyncClient builds a sync client that talks to the configured server
// through the worker.
func (a *App) SyncClient() (*syncer.Client, error) {
	if a.Config.SyncURL == "" {
		return nil, errors.New("app: LEDGR_SYNC_URL is not set")
	}
	if a.Config.UserID == "" {
		return nil, errors.New("app: LEDGR_USER_ID is not set")
	}
	transport := syncer.NewHTTPTransport(a.Config.SyncURL, a.Config.UserID, nil)
	return syncer.NewClient(syncer.WorkerLocal{W: a.Worker}, transport, logger.Component(a.Log, "sync")), nil
}

// Close stops the worker and releases the store. It is safe to call more
// than once.
func (a *App) Close(ctx context.Context) {
	if a.started {
		if _, err := a.Worker.Call(ctx, worker.CloseRequest{}); err != nil && !errors.Is(err, worker.ErrClosed) {
			a.Log.Warn().Err(err).Msg("Worker did not acknowledge close")
		}
		if err := a.Worker.Stop(ctx); err != nil {
			a.Log.Error().Err(err).Msg("Worker did not stop in time")
		}
		a.started = false
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) openStore(ctx context.Context) (ledger.Store, error) {
	switch a.Config.Store {
	case config.StorePostgres:
		store, err := postgres.Open(ctx, a.Config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("app: open postgres store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case config.StoreMemory, "":
		return inmemory.NewStore(), nil
	default:
		return nil, fmt.Errorf("app: unknown store %q", a.Config.Store)
	}
}
