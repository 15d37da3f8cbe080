package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/spf13/afero"
)

// Backend stores uploaded images under slash-separated keys such as
// "media/article/7/bob_1.png". Deleting a key that does not exist is not an
// error.
type Backend interface {
	Name() string
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
}

// FSStorage writes objects as files below a base directory.
type FSStorage struct {
	fs afero.Fs
}

// NewFSStorage roots the store at baseDir on the local disk.
func NewFSStorage(baseDir string) *FSStorage {
	return &FSStorage{fs: afero.NewBasePathFs(afero.NewOsFs(), baseDir)}
}

// NewFSStorageOn wraps an arbitrary afero filesystem (tests use MemMapFs).
func NewFSStorageOn(fs afero.Fs) *FSStorage {
	return &FSStorage{fs: fs}
}

func (s *FSStorage) Name() string { return "fs" }

// Put creates the parent directory when absent and overwrites any existing file.
func (s *FSStorage) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if err := s.fs.MkdirAll(path.Dir(key), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", key, err)
	}
	f, err := s.fs.OpenFile(key, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", key, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	return f.Close()
}

// Delete succeeds when key is already gone.
func (s *FSStorage) Delete(_ context.Context, key string) error {
	if err := s.fs.Remove(key); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// Exists reports whether key is present.
func (s *FSStorage) Exists(key string) (bool, error) {
	return afero.Exists(s.fs, key)
}
