// Package blobstore defines the remote file store that holds ledger backups.
package blobstore

import (
	"context"
	"time"
)

// FileInfo describes one stored file.
type FileInfo struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	CreatedTime  time.Time `json:"createdAt"`
	ModifiedTime time.Time `json:"modifiedAt"`
}

// Store provides folder-scoped file operations on a remote store.
// Missing files are reported with a wrapped apperr.ErrNotFound.
type Store interface {
	// ListFiles lists the files directly inside folderID.
	ListFiles(ctx context.Context, folderID string) ([]FileInfo, error)

	// CreateFile stores data as a new file named name in folderID and
	// returns its id.
	CreateFile(ctx context.Context, name, folderID string, data []byte) (string, error)

	// ReadFile returns the content of a file.
	ReadFile(ctx context.Context, fileID string) ([]byte, error)

	// DeleteFile removes a file.
	DeleteFile(ctx context.Context, fileID string) error

	// FindOrCreateFolder returns the id of the folder named name, creating
	// it when it does not exist.
	FindOrCreateFolder(ctx context.Context, name string) (string, error)
}
