//go:build integration

package app

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"go-wiki-engine/internal/config"
	"go-wiki-engine/internal/data"
	"go-wiki-engine/internal/logger"
	"go-wiki-engine/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	migrations, err := filepath.Abs("../../migrations")
	require.NoError(t, err)
	return &config.Config{
		DB: config.DBConfig{
			Driver:     "sqlite3",
			DSN:        filepath.Join(dir, "wiki.db"),
			Migrations: migrations,
		},
		Wiki: config.WikiConfig{IDPrefix: "WIKI", SuggestLimit: 5, LinkBasePath: "/wiki"},
		Media: config.MediaConfig{
			Backend:       "local",
			ManagedPrefix: "store/",
			GCDebounce:    time.Hour,
			LocalDir:      filepath.Join(dir, "media"),
		},
	}
}

func TestApp_WiresPagesMediaAndStore(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, data.ApplyMigrations(cfg.DB))

	ctx := context.Background()
	wiki, err := New(ctx, cfg, logger.Nop(), nil)
	require.NoError(t, err)
	assert.Nil(t, wiki.Cache, "no diagram endpoint means no cache")

	url, err := wiki.Store.Upload(ctx, bytes.NewReader([]byte("png")), "a.png")
	require.NoError(t, err)
	page, err := wiki.Pages.CreatePage(ctx, service.CreatePageRequest{
		Title:   "Home",
		Content: "![a](" + url + ")",
	})
	require.NoError(t, err)
	assert.Equal(t, "anonymous", page.CreatedBy)

	_, out, err := wiki.Pages.RenderPage(ctx, page.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{url}, out.Media)

	empty := ""
	_, err = wiki.Pages.UpdatePage(ctx, page.ID, service.UpdatePageRequest{Content: &empty})
	require.NoError(t, err)

	// The debounce is an hour; Shutdown flushes the pending deletion.
	wiki.Shutdown(ctx)

	_, err = wiki.Store.Open(ctx, url)
	assert.Error(t, err)
}

func TestApp_DeleteKeepsMediaSharedWithAnotherPage(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, data.ApplyMigrations(cfg.DB))

	ctx := context.Background()
	wiki, err := New(ctx, cfg, logger.Nop(), nil)
	require.NoError(t, err)

	url, err := wiki.Store.Upload(ctx, bytes.NewReader([]byte("png")), "shared.png")
	require.NoError(t, err)
	first, err := wiki.Pages.CreatePage(ctx, service.CreatePageRequest{Title: "First", Content: "![s](" + url + ")"})
	require.NoError(t, err)
	_, err = wiki.Pages.CreatePage(ctx, service.CreatePageRequest{Title: "Second", Content: "![s](/" + url + ")"})
	require.NoError(t, err)

	require.NoError(t, wiki.Pages.DeletePage(ctx, first.ID))
	wiki.Shutdown(ctx)

	rc, err := wiki.Store.Open(ctx, url)
	require.NoError(t, err, "the second page still shows the image")
	rc.Close()
}

func TestApp_UnknownMediaBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Media.Backend = "floppy"

	_, err := New(context.Background(), cfg, logger.Nop(), nil)
	assert.ErrorContains(t, err, "media store")
}
