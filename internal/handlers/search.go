package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/flixapi/internal/auth"
	"github.com/BradenHooton/flixapi/internal/models"
	pkghttp "github.com/BradenHooton/flixapi/pkg/http"
	"github.com/go-chi/chi/v5"
)

// SearchServiceInterface defines TMDB search and the per-user history
type SearchServiceInterface interface {
	Search(ctx context.Context, userID, searchType, query string) ([]json.RawMessage, error)
	History(ctx context.Context, userID string) ([]models.SearchEntry, error)
	RemoveFromHistory(ctx context.Context, userID, contentID string) error
}

// SearchHandler serves /api/v1/search behind the session middleware
type SearchHandler struct {
	service SearchServiceInterface
	logger  *slog.Logger
}

// NewSearchHandler creates a new SearchHandler
func NewSearchHandler(service SearchServiceInterface, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{service: service, logger: logger}
}

// Routes mounts the search endpoints
func (h *SearchHandler) Routes(r chi.Router) {
	r.Get("/history", h.History)
	r.Delete("/history/{id}", h.RemoveFromHistory)
	r.Get("/{type}/{query}", h.Search)
}

// Search handles GET /{type}/{query} where type is person, movie or tv
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized - token not provided")
		return
	}

	results, err := h.service.Search(r.Context(), user.ID, chi.URLParam(r, "type"), chi.URLParam(r, "query"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteSuccess(w, http.StatusOK, map[string]interface{}{"content": results})
}

// History handles GET /history
func (h *SearchHandler) History(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized - token not provided")
		return
	}

	entries, err := h.service.History(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteSuccess(w, http.StatusOK, map[string]interface{}{"content": entries})
}

// RemoveFromHistory handles DELETE /history/{id}
func (h *SearchHandler) RemoveFromHistory(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized - token not provided")
		return
	}

	if err := h.service.RemoveFromHistory(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteMessage(w, http.StatusOK, "Item removed from search history")
}
