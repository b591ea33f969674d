package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"go-wiki-engine/internal/config"
	"go-wiki-engine/internal/content"

	"github.com/google/uuid"
)

var (
	// ErrUnmanaged is returned for URLs outside the managed media prefix.
	ErrUnmanaged = errors.New("media url is not managed")
	// ErrNotFound is returned when a media object does not exist.
	ErrNotFound = errors.New("media not found")
)

// Store is the media collaborator. URLs returned by Upload are relative
// paths under the managed prefix, e.g. store/img/<uuid>.png.
type Store interface {
	Deleter
	Upload(ctx context.Context, r io.Reader, filename string) (string, error)
	Open(ctx context.Context, url string) (io.ReadCloser, error)
}

// NewKey returns a fresh object key for an uploaded file.
func NewKey(prefix, filename string) string {
	if prefix == "" {
		prefix = content.DefaultMediaPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	ext := strings.ToLower(filepath.Ext(filename))
	return prefix + "img/" + uuid.New().String() + ext
}

// KeyFromURL validates url and returns the object key it refers to.
func KeyFromURL(url, prefix string) (string, error) {
	if prefix == "" {
		prefix = content.DefaultMediaPrefix
	}
	if !content.IsManaged(url, prefix) {
		return "", fmt.Errorf("%s: %w", url, ErrUnmanaged)
	}
	key := path.Clean("/" + strings.TrimPrefix(url, "./"))[1:]
	if !strings.HasPrefix(key, strings.TrimSuffix(strings.TrimPrefix(prefix, "/"), "/")+"/") {
		return "", fmt.Errorf("%s: %w", url, ErrUnmanaged)
	}
	return key, nil
}

// NewStore builds the backend selected in cfg.
func NewStore(ctx context.Context, cfg config.MediaConfig) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "local":
		return NewLocalStore(cfg.LocalDir, cfg.ManagedPrefix), nil
	case "s3":
		return NewS3Store(ctx, cfg.S3, cfg.ManagedPrefix)
	case "webdav":
		return NewWebDAVStore(cfg.WebDAV, cfg.ManagedPrefix)
	}
	return nil, fmt.Errorf("unknown media backend %q", cfg.Backend)
}
