package syncer

import (
	"context"

	"github.com/dvloznov/ledgr/internal/domain"
	"github.com/dvloznov/ledgr/internal/worker"
)

// WorkerLocal drives the ledger through a running worker, so sync shares the
// worker's request queue with every other ledger operation.
type WorkerLocal struct {
	W *worker.Worker
}

// Metadata implements Local.
func (l WorkerLocal) Metadata(ctx context.Context) (domain.Metadata, error) {
	return worker.Do[domain.Metadata](ctx, l.W, worker.GetMetadataRequest{})
}

// Export implements Local.
func (l WorkerLocal) Export(ctx context.Context) (domain.Snapshot, error) {
	return worker.Do[domain.Snapshot](ctx, l.W, worker.ExportSnapshotRequest{})
}

// Import implements Local.
func (l WorkerLocal) Import(ctx context.Context, snap domain.Snapshot) error {
	_, err := l.W.Call(ctx, worker.LoadSnapshotRequest{Snapshot: snap})
	return err
}

// SetLastSync implements Local.
func (l WorkerLocal) SetLastSync(ctx context.Context, ms int64) error {
	_, err := l.W.Call(ctx, worker.SetLastSyncRequest{At: ms})
	return err
}

// Ensure WorkerLocal implements Local interface.
var _ Local = WorkerLocal{}
