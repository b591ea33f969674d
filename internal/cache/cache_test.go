//go:build unit

package cache

import (
	"context"
	"testing"
	"time"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to open cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCache_SetGet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "diagram", "k1", []byte("<svg/>"), time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok, err := c.Get(ctx, "diagram", "k1")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if string(got) != "<svg/>" {
		t.Errorf("expected <svg/>, got %q", got)
	}

	if _, ok, _ := c.Get(ctx, "other", "k1"); ok {
		t.Error("kinds must not share keys")
	}
}

func TestCache_Expiry(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }

	if err := c.Set(ctx, "diagram", "k1", []byte("v"), time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Set(ctx, "diagram", "k2", []byte("v"), time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := c.Get(ctx, "diagram", "k1"); ok {
		t.Error("expected expired entry to miss")
	}
	n, err := c.Purge(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 {
		t.Errorf("expected the expired entry to be gone already, purged %d", n)
	}
	if _, ok, _ := c.Get(ctx, "diagram", "k2"); !ok {
		t.Error("expected live entry to hit")
	}
}

func TestCache_Delete(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	_ = c.Set(ctx, "diagram", "k1", []byte("v"), time.Hour)
	if err := c.Delete(ctx, "diagram", "k1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "diagram", "k1"); ok {
		t.Error("expected miss after delete")
	}
}
