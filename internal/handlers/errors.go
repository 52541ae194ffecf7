package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/flixapi/internal/models"
	"github.com/BradenHooton/flixapi/internal/tmdb"
	pkghttp "github.com/BradenHooton/flixapi/pkg/http"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/oops"
)

// writeServiceError maps content and search errors onto the JSON error contract
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		pkghttp.WriteBadRequest(w, ve.Message)
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Not Found")
	case errors.Is(err, tmdb.ErrUpstream):
		attrs := []any{
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Any("error", err),
		}
		if oopsErr, ok := oops.AsOops(err); ok {
			attrs = append(attrs, slog.Any("code", oopsErr.Code()))
		}
		logger.Warn("tmdb request failed", attrs...)
		pkghttp.WriteBadGateway(w, "Movie database is unavailable")
	default:
		writeInternal(w, r, logger, err)
	}
}

// writeInternal logs err and answers 500 without leaking details.
// An expired request deadline answers 504 instead.
func writeInternal(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		logger.Warn("request deadline exceeded",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("path", r.URL.Path))
		pkghttp.WriteGatewayTimeout(w, "Request timed out")
		return
	}
	if !errors.Is(err, models.ErrInternalServer) {
		logger.Error("request failed",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
	}
	pkghttp.WriteInternalError(w, "Internal server error")
}
