package handler

import (
	"html/template"
	"net/http"

	"go-wiki-engine/internal/logger"
	"go-wiki-engine/internal/middleware"
	"go-wiki-engine/internal/service"

	"github.com/go-chi/chi/v5"
)

// PageHandler holds the dependencies for the HTML viewer.
type PageHandler struct {
	pageService service.PageServicer
	view        middleware.Renderer
	log         logger.Logger
}

// NewPageHandler creates a new PageHandler with the given dependencies.
func NewPageHandler(ps service.PageServicer, v middleware.Renderer, log logger.Logger) *PageHandler {
	return &PageHandler{
		pageService: ps,
		view:        v,
		log:         log,
	}
}

// homeHandler renders the landing page with the sidebar tree.
func (h *PageHandler) homeHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	nodes, err := h.pageService.Tree(r.Context())
	if err != nil {
		return toAppError(err, "Failed to load pages")
	}
	if err := h.view.Render(w, r, "home.html", map[string]interface{}{"Tree": nodes}); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to render home page", Code: http.StatusInternalServerError}
	}
	return nil
}

// viewHandler renders one page in view mode.
func (h *PageHandler) viewHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id := chi.URLParam(r, "id")

	page, out, err := h.pageService.RenderPage(r.Context(), id)
	if err != nil {
		return toAppError(err, "Page not found")
	}
	nodes, err := h.pageService.Tree(r.Context())
	if err != nil {
		return toAppError(err, "Failed to load pages")
	}
	crumbs, err := h.pageService.Breadcrumb(r.Context(), id)
	if err != nil {
		return toAppError(err, "Failed to load pages")
	}
	backlinks, err := h.pageService.Backlinks(r.Context(), id)
	if err != nil {
		return toAppError(err, "Failed to load pages")
	}

	// out.HTML was sanitised by the content processor.
	data := map[string]interface{}{
		"Page":       page,
		"HTML":       template.HTML(out.HTML),
		"Tree":       nodes,
		"Breadcrumb": crumbs,
		"Backlinks":  backlinks,
	}
	if err := h.view.Render(w, r, "page.html", data); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to render view", Code: http.StatusInternalServerError}
	}
	return nil
}
