// Package cache is a small TTL key/value cache kept in its own SQLite file,
// separate from the page database. It uses the pure Go modernc driver so the
// cache works even where cgo is unavailable.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Cache stores values under (kind, key) with an expiry.
type Cache struct {
	db  *sqlx.DB
	now func() time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	kind TEXT NOT NULL,
	key TEXT NOT NULL,
	value BLOB,
	expires_at INTEGER NOT NULL,
	PRIMARY KEY (kind, key)
);
CREATE INDEX IF NOT EXISTS idx_cache_entries_expires_at ON cache_entries (expires_at);
`

// New opens (or creates) the cache database at filePath. Use ":memory:" for
// a throwaway cache.
func New(filePath string) (*Cache, error) {
	db, err := sqlx.Connect("sqlite", filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to sqlite cache: %w", err)
	}
	db.SetMaxOpenConns(1)

	if filePath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set WAL mode on sqlite cache: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}
	return &Cache{db: db, now: time.Now}, nil
}

// Get returns the value and true on a live hit. Misses and expired entries
// return false with a nil error.
func (c *Cache) Get(ctx context.Context, kind, key string) ([]byte, bool, error) {
	var item struct {
		Value     []byte `db:"value"`
		ExpiresAt int64  `db:"expires_at"`
	}
	query := `SELECT value, expires_at FROM cache_entries WHERE kind = ? AND key = ?`
	if err := c.db.GetContext(ctx, &item, query, kind, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get item from cache: %w", err)
	}
	if c.now().Unix() >= item.ExpiresAt {
		_ = c.Delete(ctx, kind, key)
		return nil, false, nil
	}
	return item.Value, true, nil
}

// Set stores value for ttl, replacing any previous entry.
func (c *Cache) Set(ctx context.Context, kind, key string, value []byte, ttl time.Duration) error {
	expiresAt := c.now().Add(ttl).Unix()
	query := `INSERT OR REPLACE INTO cache_entries (kind, key, value, expires_at) VALUES (?, ?, ?, ?)`
	if _, err := c.db.ExecContext(ctx, query, kind, key, value, expiresAt); err != nil {
		return fmt.Errorf("failed to set item in cache: %w", err)
	}
	return nil
}

// Delete removes one entry.
func (c *Cache) Delete(ctx context.Context, kind, key string) error {
	query := `DELETE FROM cache_entries WHERE kind = ? AND key = ?`
	if _, err := c.db.ExecContext(ctx, query, kind, key); err != nil {
		return fmt.Errorf("failed to delete item from cache: %w", err)
	}
	return nil
}

// Purge drops every expired entry and returns how many were removed.
func (c *Cache) Purge(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE expires_at <= ?`, c.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}
