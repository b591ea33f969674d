// Package app assembles the wiki's components from configuration. The
// server and the CLI share it.
package app

import (
	"context"
	"fmt"

	"go-wiki-engine/internal/cache"
	"go-wiki-engine/internal/config"
	"go-wiki-engine/internal/content"
	"go-wiki-engine/internal/data"
	"go-wiki-engine/internal/diagram"
	"go-wiki-engine/internal/logger"
	"go-wiki-engine/internal/media"
	"go-wiki-engine/internal/service"

	"github.com/jmoiron/sqlx"
)

// App holds the wired components and the resources to release on Close.
type App struct {
	Config *config.Config
	Log    logger.Logger
	DB     *sqlx.DB
	Cache  *cache.Cache
	Store  media.Store
	Media  *media.Lifecycle
	Pages  *service.PageService
}

// New connects to the database and builds every component. Migrations are
// not applied here.
func New(ctx context.Context, cfg *config.Config, log logger.Logger, identity service.IdentityProvider) (*App, error) {
	a := &App{Config: cfg, Log: log}

	db, err := data.NewDB(cfg.DB)
	if err != nil {
		return nil, err
	}
	a.DB = db

	var renderer content.DiagramRenderer
	if cfg.Diagram.Endpoint != "" {
		renderer = diagram.NewClient(cfg.Diagram.Endpoint, cfg.Diagram.Timeout)
		if cfg.Cache.FilePath != "" {
			c, err := cache.New(cfg.Cache.FilePath)
			if err != nil {
				a.Close()
				return nil, err
			}
			a.Cache = c
			renderer = diagram.NewCached(renderer, c, cfg.Cache.DiagramTTL, log)
		}
	}

	store, err := media.NewStore(ctx, cfg.Media)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize media store: %w", err)
	}
	a.Store = store
	repo := data.NewSQLPageRepository(db, cfg.Wiki.IDPrefix)
	a.Media = media.NewLifecycle(store,
		media.WithReferences(repo),
		media.WithDelay(cfg.Media.GCDebounce),
		media.WithPrefix(cfg.Media.ManagedPrefix),
		media.WithLogger(logger.Component(log, "media")),
	)

	proc := content.NewProcessor(content.Config{
		LinkBase:         cfg.Wiki.LinkBasePath,
		MediaPrefix:      cfg.Media.ManagedPrefix,
		DiagramLanguages: cfg.Diagram.Languages,
		Diagrams:         renderer,
	}, logger.Component(log, "content"))

	a.Pages = service.NewPageService(repo, proc, a.Media, identity, service.Options{
		SuggestLimit: cfg.Wiki.SuggestLimit,
	}, logger.Component(log, "pages"))
	return a, nil
}

// Shutdown runs pending media deletions, then releases resources.
func (a *App) Shutdown(ctx context.Context) {
	if a.Media != nil {
		a.Media.Flush(ctx)
	}
	a.Close()
}

// Close drops pending media deletions and releases resources.
func (a *App) Close() {
	if a.Media != nil {
		a.Media.Close()
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Log.Error(err, "Failed to close cache")
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Log.Error(err, "Failed to close database")
		}
	}
}
