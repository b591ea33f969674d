package handler

import (
	"io/fs"
	"net/http"
	"strings"

	"go-wiki-engine/internal/logger"
	appmw "go-wiki-engine/internal/middleware"
	"go-wiki-engine/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Dependencies are the pieces NewRouter wires together.
type Dependencies struct {
	Pages       *PageHandler
	API         *APIHandler
	Media       *MediaHandler
	Auth        *AuthHandler
	SEO         *SeoHandler
	Session     session.Manager
	View        appmw.Renderer
	Static      fs.FS
	Log         logger.Logger
	LinkBase    string
	MediaPrefix string
}

// NewRouter creates and configures a new chi router.
func NewRouter(d Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// A good base middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	html := appmw.Error(d.Log, d.View)
	api := appmw.JSONError(d.Log)

	if d.Static != nil {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(d.Static))))
	}
	if d.SEO != nil {
		r.Get("/robots.txt", d.SEO.robotsHandler)
		r.Method(http.MethodGet, "/sitemap.xml", html(d.SEO.sitemapHandler))
	}

	r.Group(func(r chi.Router) {
		if d.Session != nil {
			r.Use(d.Session.LoadAndSave)
			r.Use(appmw.Identity(d.Session))
		}

		if d.Auth != nil {
			r.Method(http.MethodGet, "/auth/login", html(d.Auth.handleLogin))
			r.Method(http.MethodGet, "/auth/callback", html(d.Auth.handleCallback))
			r.Method(http.MethodGet, "/auth/logout", html(d.Auth.handleLogout))
		}

		if d.Pages != nil {
			linkBase := "/" + strings.Trim(d.LinkBase, "/")
			if linkBase == "/" {
				linkBase = "/wiki"
			}
			r.Method(http.MethodGet, "/", html(d.Pages.homeHandler))
			r.Method(http.MethodGet, linkBase+"/{id}", html(d.Pages.viewHandler))
		}

		if d.Media != nil {
			prefix := strings.Trim(d.MediaPrefix, "/")
			if prefix == "" {
				prefix = "store"
			}
			r.Method(http.MethodGet, "/"+prefix+"/*", html(d.Media.serve))
		}

		r.Route("/api", func(r chi.Router) {
			if d.API != nil {
				a := d.API
				r.Method(http.MethodGet, "/pages/tree", api(a.tree))
				r.Method(http.MethodPost, "/pages", api(a.createPage))
				r.Method(http.MethodGet, "/pages/{id}", api(a.getPage))
				r.Method(http.MethodPut, "/pages/{id}", api(a.updatePage))
				r.Method(http.MethodDelete, "/pages/{id}", api(a.deletePage))
				r.Method(http.MethodPost, "/pages/{id}/move", api(a.movePage))
				r.Method(http.MethodPost, "/pages/{id}/reorder", api(a.reorderPage))
				r.Method(http.MethodPost, "/pages/{id}/drop", api(a.dropPage))
				r.Method(http.MethodGet, "/pages/{id}/render", api(a.renderPage))
				r.Method(http.MethodPost, "/pages/{id}/draft", api(a.observeDraft))
				r.Method(http.MethodPost, "/pages/{id}/discard", api(a.discardDraft))
				r.Method(http.MethodGet, "/pages/{id}/backlinks", api(a.backlinks))
				r.Method(http.MethodGet, "/orphans", api(a.orphans))
				r.Method(http.MethodPost, "/preview", api(a.preview))
				r.Method(http.MethodGet, "/suggest", api(a.suggest))
				r.Method(http.MethodPost, "/suggest", api(a.suggestAt))
			}
			if d.Media != nil {
				r.Method(http.MethodPost, "/media", api(d.Media.upload))
			}
		})
	})

	return r
}
