package handler

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"go-wiki-engine/internal/logger"
	"go-wiki-engine/internal/media"
	"go-wiki-engine/internal/middleware"
)

// MaxUploadBytes caps one media upload.
const MaxUploadBytes = 10 << 20

// MediaHandler uploads and serves managed media.
type MediaHandler struct {
	store  media.Store
	prefix string
	log    logger.Logger
}

// NewMediaHandler creates a new MediaHandler.
func NewMediaHandler(store media.Store, prefix string, log logger.Logger) *MediaHandler {
	return &MediaHandler{store: store, prefix: prefix, log: log}
}

type uploadResponse struct {
	URL      string `json:"url"`
	Markdown string `json:"markdown"`
}

// upload accepts a multipart "file" field holding an image.
func (h *MediaHandler) upload(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Missing or oversized file upload", Code: http.StatusBadRequest}
	}
	defer file.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return &middleware.AppError{Error: err, Message: "Failed to read upload", Code: http.StatusBadRequest}
	}
	head = head[:n]
	ctype := http.DetectContentType(head)
	if !strings.HasPrefix(ctype, "image/") {
		return &middleware.AppError{Error: errors.New(ctype), Message: "Only image uploads are supported", Code: http.StatusUnsupportedMediaType}
	}

	url, err := h.store.Upload(r.Context(), io.MultiReader(bytes.NewReader(head), file), header.Filename)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to store upload", Code: http.StatusInternalServerError}
	}
	h.log.With(map[string]interface{}{"url": url, "size": header.Size}).Info("media uploaded")

	alt := strings.TrimSuffix(header.Filename, path.Ext(header.Filename))
	if err := middleware.WriteJSON(w, http.StatusCreated, uploadResponse{URL: url, Markdown: "![" + alt + "](" + url + ")"}); err != nil {
		h.log.Error(err, "Failed to write response")
	}
	return nil
}

// serve streams a managed media object.
func (h *MediaHandler) serve(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	url := strings.TrimPrefix(r.URL.Path, "/")
	if _, err := media.KeyFromURL(url, h.prefix); err != nil {
		return &middleware.AppError{Error: err, Message: "Not found", Code: http.StatusNotFound}
	}
	rc, err := h.store.Open(r.Context(), url)
	if err != nil {
		if errors.Is(err, media.ErrNotFound) {
			return &middleware.AppError{Error: err, Message: "Not found", Code: http.StatusNotFound}
		}
		return &middleware.AppError{Error: err, Message: "Failed to read media", Code: http.StatusInternalServerError}
	}
	defer rc.Close()

	if ctype := mime.TypeByExtension(path.Ext(url)); ctype != "" {
		w.Header().Set("Content-Type", ctype)
	}
	// Keys are random and never rewritten.
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if _, err := io.Copy(w, rc); err != nil {
		h.log.Error(err, "Failed to stream media")
	}
	return nil
}
