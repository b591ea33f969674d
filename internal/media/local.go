package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"go-wiki-engine/internal/content"
)

// LocalStore keeps media on the local filesystem under dir.
type LocalStore struct {
	dir    string
	prefix string
}

var _ Store = (*LocalStore)(nil)

// NewLocalStore creates a filesystem store rooted at dir.
func NewLocalStore(dir, prefix string) *LocalStore {
	if dir == "" {
		dir = "data"
	}
	if prefix == "" {
		prefix = content.DefaultMediaPrefix
	}
	return &LocalStore{dir: dir, prefix: prefix}
}

func (s *LocalStore) path(key string) string {
	return filepath.Join(s.dir, filepath.FromSlash(key))
}

func (s *LocalStore) Upload(ctx context.Context, r io.Reader, filename string) (string, error) {
	key := NewKey(s.prefix, filename)
	p := s.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("local_fs: %w", err)
	}
	f, err := os.Create(p)
	if err != nil {
		return "", fmt.Errorf("local_fs: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		os.Remove(p)
		return "", fmt.Errorf("local_fs: %w", err)
	}
	return key, nil
}

func (s *LocalStore) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	key, err := KeyFromURL(url, s.prefix)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", url, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("local_fs: %w", err)
	}
	return f, nil
}

// Delete removes the file. A file that is already gone is not an error.
func (s *LocalStore) Delete(ctx context.Context, url string) error {
	key, err := KeyFromURL(url, s.prefix)
	if err != nil {
		return err
	}
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("local_fs: %w", err)
	}
	return nil
}
