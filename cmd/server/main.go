package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-wiki-engine/internal/app"
	"go-wiki-engine/internal/auth"
	"go-wiki-engine/internal/config"
	"go-wiki-engine/internal/data"
	"go-wiki-engine/internal/handler"
	"go-wiki-engine/internal/logger"
	"go-wiki-engine/internal/session"
	"go-wiki-engine/internal/view"
	"go-wiki-engine/web"
)

func main() {
	// --- Configuration Loading ---
	cfg, err := config.LoadConfig()
	if err != nil {
		// Use fmt.Printf here because the logger is not yet initialized.
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Initialization ---
	log := logger.New(cfg.Log, nil)

	// --- Pre-flight Checks ---
	if cfg.Session.SecretKey == "" || cfg.Session.SecretKey == "CHANGE_ME_IN_PRODUCTION_SECRET!!" {
		log.Fatal(errors.New("session secret key not set"), "Please set a secure WIKI_SESSION_SECRETKEY environment variable.")
	}

	// --- Database Migration ---
	log.Info("Applying database migrations...")
	if err := data.ApplyMigrations(cfg.DB); err != nil {
		log.Fatal(err, "Failed to apply migrations")
	}
	log.Info("Migrations applied successfully.")

	// --- Component Wiring ---
	ctx := context.Background()
	wiki, err := app.New(ctx, cfg, log, auth.SessionIdentity{})
	if err != nil {
		log.Fatal(err, "Failed to initialize the wiki")
	}

	sessionManager := session.New(wiki.DB.DB, cfg.DB, cfg.Session, cfg.Server.TLS.Enabled)

	var authHandler *handler.AuthHandler
	if cfg.OIDC.IssuerURL != "" {
		authenticator, err := auth.NewAuthenticator(ctx, &cfg.OIDC)
		if err != nil {
			log.Fatal(err, "Failed to initialize authenticator")
		}
		authHandler = handler.NewAuthHandler(authenticator, sessionManager, log)
	} else {
		log.Warn("No OIDC issuer configured; login is disabled and edits are anonymous.")
		authHandler = handler.NewAuthHandler(nil, sessionManager, log)
	}

	viewService, err := view.New(web.TemplateFS, cfg.Wiki.LinkBasePath)
	if err != nil {
		log.Fatal(err, "Failed to initialize view templates")
	}

	// --- Router Setup ---
	router := handler.NewRouter(handler.Dependencies{
		Pages:       handler.NewPageHandler(wiki.Pages, viewService, log),
		API:         handler.NewAPIHandler(wiki.Pages, log),
		Media:       handler.NewMediaHandler(wiki.Store, cfg.Media.ManagedPrefix, log),
		Auth:        authHandler,
		SEO:         handler.NewSeoHandler(wiki.Pages, cfg.Server.BaseURL, cfg.Wiki.LinkBasePath),
		Session:     sessionManager,
		View:        viewService,
		Static:      web.StaticFS,
		Log:         log,
		LinkBase:    cfg.Wiki.LinkBasePath,
		MediaPrefix: cfg.Media.ManagedPrefix,
	})

	// --- Server Initialization and Graceful Shutdown ---
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if cfg.Server.TLS.Enabled {
			log.Info(fmt.Sprintf("Starting HTTPS server on %s", server.Addr))
			if err := server.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTPS server")
			}
		} else {
			log.Info(fmt.Sprintf("Starting HTTP server on %s", server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTP server")
			}
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Warn("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "Server forced to shutdown")
	}
	// Pending media deletions run before the process exits.
	wiki.Shutdown(shutdownCtx)
	log.Info("Server exiting")
}
