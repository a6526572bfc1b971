// Package gcs implements blobstore.Store on a Google Cloud Storage bucket.
// Folders are object name prefixes ending in "/", and a file's id is its
// full object name.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/dvloznov/ledgr/internal/apperr"
	"github.com/dvloznov/ledgr/internal/blobstore"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// uploadTimeout bounds a single object upload.
const uploadTimeout = 2 * time.Minute

// Store is a blobstore.Store backed by one bucket.
type Store struct {
	client *storage.Client
	bucket *storage.BucketHandle
}

// New creates a storage client for bucket. It uses Application Default
// Credentials unless opts say otherwise.
func New(ctx context.Context, bucket string, opts ...option.ClientOption) (*Store, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &Store{client: client, bucket: client.Bucket(bucket)}, nil
}

// Close releases the storage client.
func (s *Store) Close() error {
	return s.client.Close()
}

// ListFiles implements blobstore.Store.
func (s *Store) ListFiles(ctx context.Context, folderID string) ([]blobstore.FileInfo, error) {
	prefix := folderPrefix(folderID)
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: prefix, Delimiter: "/"})

	files := make([]blobstore.FileInfo, 0)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListFiles: %s: %w", prefix, err)
		}
		// Sub-folders come back as prefix-only entries; the folder marker
		// itself has an empty base name.
		if attrs.Prefix != "" || attrs.Name == prefix {
			continue
		}
		files = append(files, fileInfo(attrs))
	}
	return files, nil
}

// CreateFile implements blobstore.Store. It refuses to overwrite an
// existing object.
func (s *Store) CreateFile(ctx context.Context, name, folderID string, data []byte) (string, error) {
	id := folderPrefix(folderID) + name

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := s.bucket.Object(id).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("CreateFile: write %s: %w", id, err)
	}
	if err := w.Close(); err != nil {
		if isPreconditionFailed(err) {
			return "", apperr.Duplicate("CreateFile", id)
		}
		return "", fmt.Errorf("CreateFile: finalize %s: %w", id, err)
	}
	return id, nil
}

// ReadFile implements blobstore.Store.
func (s *Store) ReadFile(ctx context.Context, fileID string) ([]byte, error) {
	rc, err := s.bucket.Object(fileID).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("file %s: %w", fileID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("ReadFile: open %s: %w", fileID, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("ReadFile: read %s: %w", fileID, err)
	}
	return data, nil
}

// DeleteFile implements blobstore.Store.
func (s *Store) DeleteFile(ctx context.Context, fileID string) error {
	err := s.bucket.Object(fileID).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("file %s: %w", fileID, apperr.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("DeleteFile: %s: %w", fileID, err)
	}
	return nil
}

// FindOrCreateFolder implements blobstore.Store. A folder exists once its
// marker object does.
func (s *Store) FindOrCreateFolder(ctx context.Context, name string) (string, error) {
	prefix := folderPrefix(name)

	_, err := s.bucket.Object(prefix).Attrs(ctx)
	if err == nil {
		return prefix, nil
	}
	if !errors.Is(err, storage.ErrObjectNotExist) {
		return "", fmt.Errorf("FindOrCreateFolder: %s: %w", prefix, err)
	}

	w := s.bucket.Object(prefix).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	if err := w.Close(); err != nil && !isPreconditionFailed(err) {
		return "", fmt.Errorf("FindOrCreateFolder: create %s: %w", prefix, err)
	}
	return prefix, nil
}

// folderPrefix turns a folder id or name into an object name prefix.
func folderPrefix(folder string) string {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return ""
	}
	return folder + "/"
}

func fileInfo(attrs *storage.ObjectAttrs) blobstore.FileInfo {
	return blobstore.FileInfo{
		ID:           attrs.Name,
		Name:         path.Base(attrs.Name),
		CreatedTime:  attrs.Created,
		ModifiedTime: attrs.Updated,
	}
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

// Ensure Store implements blobstore.Store interface.
var _ blobstore.Store = (*Store)(nil)
