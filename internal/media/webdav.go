package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"go-wiki-engine/internal/config"
	"go-wiki-engine/internal/content"

	"github.com/studio-b12/gowebdav"
)

// WebDAVStore keeps media on a WebDAV share below root. gowebdav has no
// context support, so ctx is only checked before each call.
type WebDAVStore struct {
	client *gowebdav.Client
	root   string
	prefix string
}

var _ Store = (*WebDAVStore)(nil)

// NewWebDAVStore creates a client for the configured share.
func NewWebDAVStore(cfg config.WebDAVConfig, prefix string) (*WebDAVStore, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webdav: url is required")
	}
	if prefix == "" {
		prefix = content.DefaultMediaPrefix
	}
	c := gowebdav.NewClient(cfg.URL, cfg.User, cfg.Password)
	return &WebDAVStore{client: c, root: "/" + strings.Trim(cfg.Root, "/"), prefix: prefix}, nil
}

func (s *WebDAVStore) path(key string) string {
	return path.Join(s.root, key)
}

func (s *WebDAVStore) Upload(ctx context.Context, r io.Reader, filename string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := NewKey(s.prefix, filename)
	p := s.path(key)
	if err := s.client.MkdirAll(path.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("webdav: %w", err)
	}
	if err := s.client.WriteStream(p, r, 0o644); err != nil {
		return "", fmt.Errorf("webdav: %w", err)
	}
	return key, nil
}

func (s *WebDAVStore) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := KeyFromURL(url, s.prefix)
	if err != nil {
		return nil, err
	}
	rc, err := s.client.ReadStream(s.path(key))
	if err != nil {
		if gowebdav.IsErrNotFound(err) {
			return nil, fmt.Errorf("%s: %w", url, ErrNotFound)
		}
		return nil, fmt.Errorf("webdav: %w", err)
	}
	return rc, nil
}

func (s *WebDAVStore) Delete(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := KeyFromURL(url, s.prefix)
	if err != nil {
		return err
	}
	if err := s.client.Remove(s.path(key)); err != nil && !os.IsNotExist(err) && !gowebdav.IsErrNotFound(err) {
		return fmt.Errorf("webdav: %w", err)
	}
	return nil
}
