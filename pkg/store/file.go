package store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	errs "github.com/singlecellvr/scvrprep/pkg/errors"
	"github.com/singlecellvr/scvrprep/pkg/observability"
)

// FileStore keeps each report as <dir>/<id[:2]>/<id>.zip.
type FileStore struct {
	dir string
}

// NewFileStore creates a file store in dir, creating the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap(errs.ErrCodeIO, err, "create store %s", dir)
	}
	return &FileStore{dir: dir}, nil
}

// Name returns "file".
func (s *FileStore) Name() string { return "file" }

// Put writes the archive through a temporary file and a rename.
func (s *FileStore) Put(ctx context.Context, id string, data []byte) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	path := s.path(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.Wrap(errs.ErrCodeIO, err, "create %s", filepath.Dir(path))
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return errs.Wrap(errs.ErrCodeIO, err, "write report %s", id)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errs.Wrap(errs.ErrCodeIO, err, "store report %s", id)
	}
	observability.Store().OnStorePut(ctx, s.Name(), len(data))
	return nil
}

// Get reads the archive for id.
func (s *FileStore) Get(ctx context.Context, id string) ([]byte, bool, error) {
	if err := ValidateID(id); err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		observability.Store().OnStoreMiss(ctx, s.Name())
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errs.Wrap(errs.ErrCodeIO, err, "read report %s", id)
	}
	observability.Store().OnStoreHit(ctx, s.Name())
	return data, true, nil
}

// Delete removes the archive for id.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	err := os.Remove(s.path(id))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errs.Wrap(errs.ErrCodeIO, err, "delete report %s", id)
	}
	return nil
}

// Close does nothing for file store.
func (s *FileStore) Close() error { return nil }

// path shards reports by the first two ID characters to keep directories small.
func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id[:2], id+".zip")
}

// Ensure FileStore implements Store.
var _ Store = (*FileStore)(nil)
