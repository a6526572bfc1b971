// Package inmemory provides a map-backed blobstore.Store for tests and local
// development.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/dvloznov/ledgr/internal/apperr"
	"github.com/dvloznov/ledgr/internal/blobstore"
)

type file struct {
	info   blobstore.FileInfo
	folder string
	data   []byte
}

// Store is an in-memory blobstore.Store. It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	files   map[string]*file
	folders map[string]string // name -> id
	nextID  int
	now     func() time.Time
	fail    map[string]error
	calls   []string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		files:   make(map[string]*file),
		folders: make(map[string]string),
		now:     time.Now,
		fail:    make(map[string]error),
	}
}

// FailOn makes every later call of op ("ListFiles", "CreateFile", ...)
// return err. A nil err clears the failure.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, op)
		return
	}
	s.fail[op] = err
}

// Calls returns the operations performed so far, in order.
func (s *Store) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *Store) enter(op string) error {
	s.calls = append(s.calls, op)
	return s.fail[op]
}

// ListFiles implements blobstore.Store.
func (s *Store) ListFiles(ctx context.Context, folderID string) ([]blobstore.FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListFiles"); err != nil {
		return nil, err
	}

	out := make([]blobstore.FileInfo, 0)
	for _, f := range s.files {
		if f.folder == folderID {
			out = append(out, f.info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// CreateFile implements blobstore.Store.
func (s *Store) CreateFile(ctx context.Context, name, folderID string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateFile"); err != nil {
		return "", err
	}

	for _, f := range s.files {
		if f.folder == folderID && f.info.Name == name {
			return "", apperr.Duplicate("CreateFile", name)
		}
	}

	s.nextID++
	id := "file-" + strconv.Itoa(s.nextID)
	now := s.now()
	s.files[id] = &file{
		info:   blobstore.FileInfo{ID: id, Name: name, CreatedTime: now, ModifiedTime: now},
		folder: folderID,
		data:   append([]byte(nil), data...),
	}
	return id, nil
}

// ReadFile implements blobstore.Store.
func (s *Store) ReadFile(ctx context.Context, fileID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ReadFile"); err != nil {
		return nil, err
	}

	f, ok := s.files[fileID]
	if !ok {
		return nil, fmt.Errorf("file %s: %w", fileID, apperr.ErrNotFound)
	}
	return append([]byte(nil), f.data...), nil
}

// DeleteFile implements blobstore.Store.
func (s *Store) DeleteFile(ctx context.Context, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("DeleteFile"); err != nil {
		return err
	}

	if _, ok := s.files[fileID]; !ok {
		return fmt.Errorf("file %s: %w", fileID, apperr.ErrNotFound)
	}
	delete(s.files, fileID)
	return nil
}

// FindOrCreateFolder implements blobstore.Store.
func (s *Store) FindOrCreateFolder(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("FindOrCreateFolder"); err != nil {
		return "", err
	}

	if id, ok := s.folders[name]; ok {
		return id, nil
	}
	s.nextID++
	id := "folder-" + strconv.Itoa(s.nextID)
	s.folders[name] = id
	return id, nil
}

// Ensure Store implements blobstore.Store interface.
var _ blobstore.Store = (*Store)(nil)
