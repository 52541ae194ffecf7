package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	pkghttp "github.com/BradenHooton/flixapi/pkg/http"
	"github.com/go-chi/chi/v5"
)

// ContentServiceInterface defines the movie and TV metadata lookups
type ContentServiceInterface interface {
	Trending(ctx context.Context, media string) (json.RawMessage, error)
	Trailers(ctx context.Context, media, id string) ([]json.RawMessage, error)
	Details(ctx context.Context, media, id string) (json.RawMessage, error)
	Similar(ctx context.Context, media, id string) ([]json.RawMessage, error)
	ByCategory(ctx context.Context, media, category string) ([]json.RawMessage, error)
}

// ContentHandler serves /api/v1/movie or /api/v1/tv, depending on media
type ContentHandler struct {
	service ContentServiceInterface
	media   string
	logger  *slog.Logger
}

// NewContentHandler creates a ContentHandler for "movie" or "tv"
func NewContentHandler(service ContentServiceInterface, media string, logger *slog.Logger) *ContentHandler {
	return &ContentHandler{service: service, media: media, logger: logger}
}

// Routes mounts the content endpoints
func (h *ContentHandler) Routes(r chi.Router) {
	r.Get("/trending", h.Trending)
	r.Get("/{id}/trailers", h.Trailers)
	r.Get("/{id}/details", h.Details)
	r.Get("/{id}/similar", h.Similar)
	r.Get("/{category}", h.ByCategory)
}

// Trending handles GET /trending
func (h *ContentHandler) Trending(w http.ResponseWriter, r *http.Request) {
	content, err := h.service.Trending(r.Context(), h.media)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteSuccess(w, http.StatusOK, map[string]interface{}{"content": content})
}

// Trailers handles GET /{id}/trailers
func (h *ContentHandler) Trailers(w http.ResponseWriter, r *http.Request) {
	trailers, err := h.service.Trailers(r.Context(), h.media, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteSuccess(w, http.StatusOK, map[string]interface{}{"trailers": trailers})
}

// Details handles GET /{id}/details
func (h *ContentHandler) Details(w http.ResponseWriter, r *http.Request) {
	content, err := h.service.Details(r.Context(), h.media, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteSuccess(w, http.StatusOK, map[string]interface{}{"content": content})
}

// Similar handles GET /{id}/similar
func (h *ContentHandler) Similar(w http.ResponseWriter, r *http.Request) {
	similar, err := h.service.Similar(r.Context(), h.media, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteSuccess(w, http.StatusOK, map[string]interface{}{"similar": similar})
}

// ByCategory handles GET /{category}
func (h *ContentHandler) ByCategory(w http.ResponseWriter, r *http.Request) {
	content, err := h.service.ByCategory(r.Context(), h.media, chi.URLParam(r, "category"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteSuccess(w, http.StatusOK, map[string]interface{}{"content": content})
}
