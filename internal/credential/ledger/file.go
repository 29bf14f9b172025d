package ledger

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// FileStore keeps blobs as files in one directory. Writes go to a temp file
// that is renamed over the target, so readers see either the old or the new
// contents. It has no conditional writes: one process should own the directory.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// NewFile is a Blob ledger persisted under dir.
func NewFile(dir, key string, logger *slog.Logger) (*Blob, error) {
	store, err := NewFileStore(dir)
	if err != nil {
		return nil, err
	}
	return NewBlob(store, key, logger), nil
}

func (s *FileStore) Load(_ context.Context, name string) ([]byte, string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", ErrBlobNotFound
	}
	if err != nil {
		return nil, "", err
	}
	return data, "", nil
}

func (s *FileStore) Save(_ context.Context, name string, data []byte, _ string) error {
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck // write error wins
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck // sync error wins
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, filepath.Join(s.dir, name))
}

func (s *FileStore) Delete(_ context.Context, name string) error {
	err := os.Remove(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
