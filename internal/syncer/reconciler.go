package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/dvloznov/ledgr/internal/apperr"
	"github.com/dvloznov/ledgr/internal/blobstore"
	"github.com/dvloznov/ledgr/internal/domain"
	"github.com/rs/zerolog"
)

const (
	// DefaultFolder is the per-user folder backups are written to.
	DefaultFolder = "ledgr_data"

	// DefaultRetention is how many backups survive a prune.
	DefaultRetention = 10
)

// Reconciler is the server side of sync. It compares a device's version with
// the newest backup in the user's folder and decides which side moves.
//
// Calls for the same user must not overlap: the version comparison and the
// backup write are separate remote operations.
type Reconciler struct {
	store     blobstore.Store
	folder    string
	retention int
	log       zerolog.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithFolder sets the folder name used under each user's root.
func WithFolder(name string) Option {
	return func(r *Reconciler) {
		if name != "" {
			r.folder = name
		}
	}
}

// WithRetention sets how many backups are kept after a write.
func WithRetention(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.retention = n
		}
	}
}

// WithLogger sets the reconciler's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Reconciler) { r.log = log }
}

// NewReconciler creates a reconciler over store.
func NewReconciler(store blobstore.Store, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:     store,
		folder:    DefaultFolder,
		retention: DefaultRetention,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Sync runs one reconciliation step for userID.
//
//   - No backup yet: a message with content is stored and its version is
//     returned; a bare version gets 0 back, asking for content.
//   - Backup older than the device: content is stored and old backups are
//     pruned; a bare version gets the backup's version back.
//   - Backup newer than the device: the backup's snapshot is returned.
//   - Same version: the version is returned and nothing is transferred.
//
// Remote failures are returned as *apperr.SyncError and are not retried.
func (r *Reconciler) Sync(ctx context.Context, userID string, msg Message) (Message, error) {
	if msg.Version < 0 {
		return Message{}, apperr.Invalid("version %d is negative", msg.Version)
	}

	folderID, err := r.folderID(ctx, userID)
	if err != nil {
		return Message{}, err
	}

	list, err := r.list(ctx, folderID)
	if err != nil {
		return Message{}, err
	}

	log := r.log.With().Str("user_id", userID).Int64("client_version", msg.Version).Logger()

	if len(list) == 0 {
		if !msg.HasContent() {
			log.Debug().Msg("No backup yet, asking for content")
			return VersionOnly(0), nil
		}
		if err := r.createBackup(ctx, folderID, msg); err != nil {
			return Message{}, err
		}
		log.Info().Msg("Created first backup")
		return VersionOnly(msg.Version), nil
	}

	latest := list[0]
	log = log.With().Int64("remote_version", latest.Version).Logger()

	switch {
	case latest.Version < msg.Version:
		if !msg.HasContent() {
			log.Debug().Msg("Remote is behind, asking for content")
			return VersionOnly(latest.Version), nil
		}
		if err := r.createBackup(ctx, folderID, msg); err != nil {
			return Message{}, err
		}
		log.Info().Msg("Stored newer backup")
		return VersionOnly(msg.Version), nil

	case latest.Version > msg.Version:
		snap, err := r.download(ctx, latest)
		if err != nil {
			return Message{}, err
		}
		log.Info().Int("transactions", len(snap.Transactions)).Msg("Sending newer backup to client")
		return WithSnapshot(snap), nil

	default:
		return VersionOnly(msg.Version), nil
	}
}

// ListBackups returns up to n backups for userID, newest first. A
// non-positive n lists all of them.
func (r *Reconciler) ListBackups(ctx context.Context, userID string, n int) ([]Backup, error) {
	folderID, err := r.folderID(ctx, userID)
	if err != nil {
		return nil, err
	}
	list, err := r.list(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(list) > n {
		list = list[:n]
	}
	return list, nil
}

func (r *Reconciler) folderID(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", apperr.Invalid("user id is required")
	}
	id, err := r.store.FindOrCreateFolder(ctx, path.Join(userID, r.folder))
	if err != nil {
		return "", &apperr.SyncError{Op: "find folder", Err: err}
	}
	return id, nil
}

func (r *Reconciler) list(ctx context.Context, folderID string) ([]Backup, error) {
	files, err := r.store.ListFiles(ctx, folderID)
	if err != nil {
		return nil, &apperr.SyncError{Op: "list backups", Err: err}
	}
	return backups(files), nil
}

func (r *Reconciler) createBackup(ctx context.Context, folderID string, msg Message) error {
	snap := *msg.Snapshot
	snap.Version = msg.Version

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("createBackup: encode snapshot: %w", err)
	}
	if _, err := r.store.CreateFile(ctx, BackupName(msg.Version), folderID, data); err != nil {
		return &apperr.SyncError{Op: "create backup", Err: err}
	}
	return r.prune(ctx, folderID)
}

// prune deletes every backup beyond the retention count, oldest first.
func (r *Reconciler) prune(ctx context.Context, folderID string) error {
	list, err := r.list(ctx, folderID)
	if err != nil {
		return err
	}
	if len(list) <= r.retention {
		return nil
	}

	stale := list[r.retention:]
	for i := len(stale) - 1; i >= 0; i-- {
		if err := r.store.DeleteFile(ctx, stale[i].ID); err != nil {
			return &apperr.SyncError{Op: "delete backup", Err: err}
		}
		r.log.Debug().Str("backup", stale[i].Name).Msg("Pruned backup")
	}
	return nil
}

func (r *Reconciler) download(ctx context.Context, b Backup) (domain.Snapshot, error) {
	data, err := r.store.ReadFile(ctx, b.ID)
	if err != nil {
		return domain.Snapshot{}, &apperr.SyncError{Op: "read backup", Err: err}
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.Snapshot{}, &apperr.SyncError{Op: "decode backup", Err: fmt.Errorf("%s: %w", b.Name, err)}
	}
	// The name is what the comparison used, so it wins over the body.
	snap.Version = b.Version
	return snap, nil
}
