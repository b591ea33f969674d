//go:build integration

package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go-wiki-engine/internal/app"
	"go-wiki-engine/internal/config"
	"go-wiki-engine/internal/logger"
	"go-wiki-engine/internal/service"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig points a config file at a fresh SQLite database and media dir.
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	migrations, err := filepath.Abs("../../migrations")
	require.NoError(t, err)

	yml := fmt.Sprintf(`db:
  driver: sqlite3
  dsn: %s
  migrations: %s
diagram:
  endpoint: ""
cache:
  file_path: ""
media:
  backend: local
  local_dir: %s
log:
  level: error
`, filepath.Join(dir, "wiki.db"), migrations, filepath.Join(dir, "media"))

	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

type seeded struct {
	folder, install, faq string
}

func seed(t *testing.T, cfgPath string) seeded {
	t.Helper()
	cfg, err := config.LoadConfigFile(cfgPath)
	require.NoError(t, err)

	ctx := context.Background()
	wiki, err := app.New(ctx, cfg, logger.Nop(), nil)
	require.NoError(t, err)
	defer wiki.Close()

	folder, err := wiki.Pages.CreatePage(ctx, service.CreatePageRequest{Title: "Guides", IsFolder: true})
	require.NoError(t, err)
	install, err := wiki.Pages.CreatePage(ctx, service.CreatePageRequest{
		Title:    "Installation",
		Content:  "# Install\n\nRead the [[FAQ]] and [[Missing Page]].",
		ParentID: &folder.ID,
	})
	require.NoError(t, err)
	faq, err := wiki.Pages.CreatePage(ctx, service.CreatePageRequest{Title: "FAQ", Content: "Questions."})
	require.NoError(t, err)
	return seeded{folder: folder.ID, install: install.ID, faq: faq.ID}
}

func TestWikictl(t *testing.T) {
	cfgPath := writeConfig(t)

	out, _, err := run(t, "migrate", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "migrations applied (sqlite3)")

	// A second run is a no-op.
	_, _, err = run(t, "migrate", "--config", cfgPath)
	require.NoError(t, err)

	ids := seed(t, cfgPath)

	t.Run("tree", func(t *testing.T) {
		out, _, err := run(t, "tree", "--config", cfgPath)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 3)
		assert.Equal(t, fmt.Sprintf("+ Guides [%s]", ids.folder), lines[0])
		assert.Equal(t, fmt.Sprintf("  - Installation [%s]", ids.install), lines[1])
		assert.Equal(t, fmt.Sprintf("- FAQ [%s]", ids.faq), lines[2])
	})

	t.Run("tree json", func(t *testing.T) {
		out, _, err := run(t, "tree", "--json", "--config", cfgPath)
		require.NoError(t, err)
		var nodes []map[string]interface{}
		require.NoError(t, sonic.UnmarshalString(out, &nodes))
		assert.Len(t, nodes, 2)
	})

	t.Run("render", func(t *testing.T) {
		out, stderr, err := run(t, "render", ids.install, "--config", cfgPath)
		require.NoError(t, err)
		assert.Contains(t, out, "<h1")
		assert.Contains(t, out, "/wiki/"+ids.faq)
		assert.Contains(t, out, `data-title="Missing Page"`)
		assert.Contains(t, stderr, "broken link: Missing Page")
	})

	t.Run("render unknown page", func(t *testing.T) {
		_, _, err := run(t, "render", "WIKI-999", "--config", cfgPath)
		assert.Error(t, err)
	})

	t.Run("suggest", func(t *testing.T) {
		out, _, err := run(t, "suggest", "inst", "--config", cfgPath)
		require.NoError(t, err)
		assert.Contains(t, out, ids.install+"\tInstallation")
		assert.NotContains(t, out, "FAQ")

		out, _, err = run(t, "suggest", "inst", "--exclude", ids.install, "--config", cfgPath)
		require.NoError(t, err)
		assert.Empty(t, strings.TrimSpace(out))
	})

	t.Run("suggest requires a fragment", func(t *testing.T) {
		_, _, err := run(t, "suggest", "--config", cfgPath)
		assert.Error(t, err)
	})

	t.Run("orphans", func(t *testing.T) {
		out, _, err := run(t, "orphans", "--config", cfgPath)
		require.NoError(t, err)
		assert.Empty(t, strings.TrimSpace(out))

		cfg, err := config.LoadConfigFile(cfgPath)
		require.NoError(t, err)
		wiki, err := app.New(context.Background(), cfg, logger.Nop(), nil)
		require.NoError(t, err)
		require.NoError(t, wiki.Pages.DeletePage(context.Background(), ids.folder))
		wiki.Close()

		out, _, err = run(t, "orphans", "--config", cfgPath)
		require.NoError(t, err)
		assert.Contains(t, out, ids.install+"\tInstallation\tmissing parent "+ids.folder)
	})
}

func TestWikictl_MissingConfigFile(t *testing.T) {
	_, _, err := run(t, "tree", "--config", filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}
