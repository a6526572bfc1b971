package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/ledgr/internal/apperr"
	"github.com/dvloznov/ledgr/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Local is the device ledger as seen by the sync client.
type Local interface {
	Metadata(ctx context.Context) (domain.Metadata, error)
	Export(ctx context.Context) (domain.Snapshot, error)
	Import(ctx context.Context, snap domain.Snapshot) error
	SetLastSync(ctx context.Context, ms int64) error
}

// Transport delivers a message to the sync server and returns its answer.
type Transport interface {
	Exchange(ctx context.Context, msg Message) (Message, error)
}

// Outcome says what a sync call did.
type Outcome string

const (
	OutcomeSkipped Outcome = "skipped"
	OutcomeInSync  Outcome = "in_sync"
	OutcomePushed  Outcome = "pushed"
	OutcomePulled  Outcome = "pulled"
)

// Result reports a finished sync.
type Result struct {
	Outcome Outcome `json:"outcome"`
	Version int64   `json:"version"`
}

// Client is the device side of sync. Concurrent Sync calls share a single
// run, so one device never has two exchanges in flight.
type Client struct {
	local     Local
	transport Transport
	log       zerolog.Logger
	now       func() time.Time

	group singleflight.Group

	mu              sync.Mutex
	lastSyncVersion int64
}

// NewClient creates a sync client.
func NewClient(local Local, transport Transport, log zerolog.Logger) *Client {
	return &Client{
		local:     local,
		transport: transport,
		log:       log,
		now:       time.Now,
	}
}

// Sync runs one sync cycle. It is skipped when the ledger has not changed
// since the last successful cycle. A failure leaves the local ledger as it
// was.
func (c *Client) Sync(ctx context.Context) (Result, error) {
	v, err, shared := c.group.Do("sync", func() (any, error) {
		return c.sync(ctx)
	})
	if err != nil {
		return Result{}, err
	}
	res := v.(Result)
	if shared {
		c.log.Debug().Str("outcome", string(res.Outcome)).Msg("Joined running sync")
	}
	return res, nil
}

func (c *Client) sync(ctx context.Context) (Result, error) {
	meta, err := c.local.Metadata(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("Sync: read version: %w", err)
	}
	current := meta.Version

	if current > 0 && current == c.lastVersion() {
		if err := c.touch(ctx); err != nil {
			return Result{}, err
		}
		c.log.Debug().Int64("version", current).Msg("Already synced")
		return Result{Outcome: OutcomeSkipped, Version: current}, nil
	}

	resp, err := c.transport.Exchange(ctx, VersionOnly(current))
	if err != nil {
		return Result{}, err
	}

	var res Result
	switch {
	case resp.Version < current:
		snap, err := c.local.Export(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("Sync: export: %w", err)
		}
		if _, err := c.transport.Exchange(ctx, WithSnapshot(snap)); err != nil {
			return Result{}, err
		}
		res = Result{Outcome: OutcomePushed, Version: snap.Version}
		c.log.Info().Int64("version", snap.Version).Int64("remote_version", resp.Version).Msg("Pushed ledger to server")

	case resp.Version > current:
		if !resp.HasContent() {
			return Result{}, &apperr.SyncError{Op: "pull", Err: errors.New("server is ahead but sent no snapshot")}
		}
		if err := c.local.Import(ctx, *resp.Snapshot); err != nil {
			return Result{}, fmt.Errorf("Sync: import: %w", err)
		}
		res = Result{Outcome: OutcomePulled, Version: resp.Version}
		c.log.Info().Int64("version", resp.Version).Int64("previous_version", current).Msg("Pulled ledger from server")

	default:
		res = Result{Outcome: OutcomeInSync, Version: current}
	}

	c.setLastVersion(res.Version)
	if err := c.touch(ctx); err != nil {
		return Result{}, err
	}
	return res, nil
}

func (c *Client) touch(ctx context.Context) error {
	if err := c.local.SetLastSync(ctx, c.now().UnixMilli()); err != nil {
		return fmt.Errorf("Sync: record last sync: %w", err)
	}
	return nil
}

func (c *Client) lastVersion() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSyncVersion
}

func (c *Client) setLastVersion(v int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSyncVersion = v
}
