package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/BradenHooton/flixapi/internal/models"
	pkghttp "github.com/BradenHooton/flixapi/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// UserContextKey is the key for storing the authenticated user in context
	UserContextKey contextKey = "user"
)

// UserRepository resolves the user bound to a session token
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// SessionMiddleware authenticates a request from its session token and
// attaches the resolved user to the request context.
//
// Checks, in order:
//  1. token absent             -> 401 "Unauthorized - token not provided"
//  2. bad signature or format  -> 401 "Unauthorized - invalid token"
//  3. past expiry              -> 401 "Unauthorized - token expired"
//  4. bound user missing       -> 404 "User not found"
//
// Any other failure is a 500.
func SessionMiddleware(tm *TokenManager, users UserRepository, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := ResolveSession(r.Context(), tm, users, TokenFromRequest(r))
			if err != nil {
				writeSessionError(w, r, err, logger)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ResolveSession validates token and loads the bound user without the password hash
func ResolveSession(ctx context.Context, tm *TokenManager, users UserRepository, token string) (*models.User, error) {
	claims, err := tm.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	user, err := users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return user, nil
}

// TokenFromRequest reads the session cookie, falling back to a Bearer header for API clients
func TokenFromRequest(r *http.Request) string {
	if token := GetSessionCookie(r); token != "" {
		return token
	}
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func writeSessionError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	switch {
	case errors.Is(err, models.ErrTokenMissing):
		pkghttp.WriteUnauthorized(w, "Unauthorized - token not provided")
	case errors.Is(err, models.ErrTokenExpired):
		pkghttp.WriteUnauthorized(w, "Unauthorized - token expired")
	case errors.Is(err, models.ErrTokenInvalid):
		pkghttp.WriteUnauthorized(w, "Unauthorized - invalid token")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "User not found")
	default:
		logger.Error("session middleware failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

// GetUserFromContext returns the authenticated user, or nil outside SessionMiddleware
func GetUserFromContext(r *http.Request) *models.User {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}
