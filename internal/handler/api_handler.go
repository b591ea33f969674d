package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go-wiki-engine/internal/data"
	"go-wiki-engine/internal/hierarchy"
	"go-wiki-engine/internal/logger"
	"go-wiki-engine/internal/middleware"
	"go-wiki-engine/internal/service"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 4 << 20

// APIHandler serves the JSON API used by the editor UI.
type APIHandler struct {
	pages service.PageServicer
	log   logger.Logger
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(ps service.PageServicer, log logger.Logger) *APIHandler {
	return &APIHandler{pages: ps, log: log}
}

// pageSummary is the compact page shape returned by list endpoints.
type pageSummary struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	IsFolder bool   `json:"is_folder"`
}

func summaries(pages []*data.Page) []pageSummary {
	out := make([]pageSummary, 0, len(pages))
	for _, p := range pages {
		out = append(out, pageSummary{ID: p.ID, Title: p.Title, IsFolder: p.IsFolder})
	}
	return out
}

// decode reads a JSON request body into v.
func decode(r *http.Request, v interface{}) *middleware.AppError {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to read request body", Code: http.StatusBadRequest}
	}
	if err := sonic.Unmarshal(body, v); err != nil {
		return &middleware.AppError{Error: err, Message: "Malformed JSON body", Code: http.StatusBadRequest}
	}
	return nil
}

func (h *APIHandler) respond(w http.ResponseWriter, status int, v interface{}) *middleware.AppError {
	if err := middleware.WriteJSON(w, status, v); err != nil {
		h.log.Error(err, "Failed to write response")
	}
	return nil
}

// toAppError maps service and store errors onto HTTP statuses.
func toAppError(err error, msg string) *middleware.AppError {
	code := http.StatusInternalServerError
	var svcErr *service.ValidationError
	var treeErr *hierarchy.ValidationError
	switch {
	case errors.Is(err, data.ErrPageNotFound):
		code = http.StatusNotFound
	case errors.Is(err, service.ErrDuplicateTitle):
		code = http.StatusConflict
	case errors.As(err, &svcErr), errors.As(err, &treeErr):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code = http.StatusServiceUnavailable
	}
	if code != http.StatusInternalServerError {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &middleware.AppError{Error: err, Message: msg, Code: code}
}

func (h *APIHandler) tree(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	nodes, err := h.pages.Tree(r.Context())
	if err != nil {
		return toAppError(err, "Failed to build page tree")
	}
	return h.respond(w, http.StatusOK, nodes)
}

func (h *APIHandler) getPage(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	page, err := h.pages.GetPage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return toAppError(err, "Failed to get page")
	}
	return h.respond(w, http.StatusOK, page)
}

func (h *APIHandler) createPage(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var req service.CreatePageRequest
	if appErr := decode(r, &req); appErr != nil {
		return appErr
	}
	page, err := h.pages.CreatePage(r.Context(), req)
	if err != nil {
		return toAppError(err, "Failed to create page")
	}
	w.Header().Set("Location", "/api/pages/"+page.ID)
	return h.respond(w, http.StatusCreated, page)
}

func (h *APIHandler) updatePage(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var req service.UpdatePageRequest
	if appErr := decode(r, &req); appErr != nil {
		return appErr
	}
	page, err := h.pages.UpdatePage(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		return toAppError(err, "Failed to update page")
	}
	return h.respond(w, http.StatusOK, page)
}

func (h *APIHandler) deletePage(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if err := h.pages.DeletePage(r.Context(), chi.URLParam(r, "id")); err != nil {
		return toAppError(err, "Failed to delete page")
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

type moveRequest struct {
	ParentID *string `json:"parent_id"`
}

func (h *APIHandler) movePage(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var req moveRequest
	if appErr := decode(r, &req); appErr != nil {
		return appErr
	}
	nodes, err := h.pages.MovePage(r.Context(), chi.URLParam(r, "id"), req.ParentID)
	if err != nil {
		return toAppError(err, "Failed to move page")
	}
	return h.respond(w, http.StatusOK, nodes)
}

type reorderRequest struct {
	ParentID *string `json:"parent_id"`
	Index    int     `json:"index"`
}

func (h *APIHandler) reorderPage(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var req reorderRequest
	if appErr := decode(r, &req); appErr != nil {
		return appErr
	}
	nodes, err := h.pages.ReorderPage(r.Context(), chi.URLParam(r, "id"), req.ParentID, req.Index)
	if err != nil {
		return toAppError(err, "Failed to reorder page")
	}
	return h.respond(w, http.StatusOK, nodes)
}

type dropRequest struct {
	TargetID  string `json:"target_id"`
	Placement string `json:"placement"`
}

func (h *APIHandler) dropPage(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var req dropRequest
	if appErr := decode(r, &req); appErr != nil {
		return appErr
	}
	nodes, err := h.pages.DropPage(r.Context(), chi.URLParam(r, "id"), req.TargetID, req.Placement)
	if err != nil {
		return toAppError(err, "Failed to drop page")
	}
	return h.respond(w, http.StatusOK, nodes)
}

func (h *APIHandler) renderPage(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	page, out, err := h.pages.RenderPage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return toAppError(err, "Failed to render page")
	}
	return h.respond(w, http.StatusOK, map[string]interface{}{
		"page":     page,
		"html":     out.HTML,
		"links":    out.Links,
		"media":    out.Media,
		"diagrams": out.Diagrams,
	})
}

type previewRequest struct {
	SourceID string `json:"source_id"`
	Content  string `json:"content"`
}

func (h *APIHandler) preview(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var req previewRequest
	if appErr := decode(r, &req); appErr != nil {
		return appErr
	}
	out, err := h.pages.Preview(r.Context(), req.SourceID, req.Content)
	if err != nil {
		return toAppError(err, "Failed to render preview")
	}
	return h.respond(w, http.StatusOK, out)
}

func (h *APIHandler) suggest(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	q := r.URL.Query()
	pages, err := h.pages.Suggest(r.Context(), q.Get("q"), q.Get("exclude"))
	if err != nil {
		return toAppError(err, "Failed to suggest pages")
	}
	return h.respond(w, http.StatusOK, summaries(pages))
}

type suggestAtRequest struct {
	Text    string `json:"text"`
	Cursor  *int   `json:"cursor"`
	Exclude string `json:"exclude"`
}

type suggestAtResponse struct {
	Active   bool          `json:"active"`
	Fragment string        `json:"fragment"`
	Pages    []pageSummary `json:"pages"`
}

// suggestAt answers the editor's "is the cursor inside [[ ... ?" question.
// A missing cursor means the end of the text.
func (h *APIHandler) suggestAt(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var req suggestAtRequest
	if appErr := decode(r, &req); appErr != nil {
		return appErr
	}
	cursor := len(req.Text)
	if req.Cursor != nil {
		cursor = *req.Cursor
	}
	fragment, pages, ok, err := h.pages.SuggestAt(r.Context(), req.Text, cursor, req.Exclude)
	if err != nil {
		return toAppError(err, "Failed to suggest pages")
	}
	return h.respond(w, http.StatusOK, suggestAtResponse{Active: ok, Fragment: fragment, Pages: summaries(pages)})
}

type draftRequest struct {
	Content string `json:"content"`
}

func (h *APIHandler) observeDraft(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var req draftRequest
	if appErr := decode(r, &req); appErr != nil {
		return appErr
	}
	if err := h.pages.ObserveDraft(r.Context(), chi.URLParam(r, "id"), req.Content); err != nil {
		return toAppError(err, "Failed to record draft")
	}
	w.WriteHeader(http.StatusAccepted)
	return nil
}

func (h *APIHandler) discardDraft(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var req draftRequest
	if appErr := decode(r, &req); appErr != nil {
		return appErr
	}
	n, err := h.pages.DiscardDraft(r.Context(), chi.URLParam(r, "id"), req.Content)
	if err != nil {
		return toAppError(err, "Failed to discard draft")
	}
	return h.respond(w, http.StatusOK, map[string]int{"deleted": n})
}

func (h *APIHandler) backlinks(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	pages, err := h.pages.Backlinks(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return toAppError(err, "Failed to find backlinks")
	}
	return h.respond(w, http.StatusOK, summaries(pages))
}

func (h *APIHandler) orphans(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	pages, err := h.pages.Orphans(r.Context())
	if err != nil {
		return toAppError(err, "Failed to list orphans")
	}
	return h.respond(w, http.StatusOK, summaries(pages))
}
