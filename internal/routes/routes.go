package routes

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/BradenHooton/flixapi/internal/auth"
	"github.com/BradenHooton/flixapi/internal/config"
	"github.com/BradenHooton/flixapi/internal/handlers"
	middlewareCustom "github.com/BradenHooton/flixapi/internal/middleware"
	pkghttp "github.com/BradenHooton/flixapi/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Handlers groups the HTTP handlers mounted by the router
type Handlers struct {
	Auth   *handlers.AuthHandler
	Movies *handlers.ContentHandler
	TV     *handlers.ContentHandler
	Search *handlers.SearchHandler
}

// Deps holds everything NewRouter needs besides the handlers
type Deps struct {
	Config       *config.Config
	TokenManager *auth.TokenManager
	Users        auth.UserRepository
	IPConfig     *pkghttp.IPConfig
	Health       HealthChecker
	Metrics      http.Handler
	Logger       *slog.Logger
}

// NewRouter builds the application router with the global middleware stack
func NewRouter(h Handlers, deps Deps) http.Handler {
	cfg := deps.Config

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{
		Production: cfg.Server.IsProduction(),
		ImageHost:  originOf(cfg.TMDB.ImageURL),
	}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(deps.Logger))
	router.Use(middleware.Recoverer)
	router.Use(middlewareCustom.RequestTimeout(cfg.Server.RequestTimeout))

	router.Route("/api/v1", func(r chi.Router) {
		RegisterRoutes(r, h, deps)
	})

	router.Get("/health", healthHandler(deps.Health))
	if deps.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	if cfg.Server.IsProduction() && cfg.Server.FrontendDist != "" {
		router.NotFound(SPAHandler(cfg.Server.FrontendDist).ServeHTTP)
	}

	return router
}

// RegisterRoutes registers the /api/v1 routes
func RegisterRoutes(router chi.Router, h Handlers, deps Deps) {
	rateLimitConfig := middlewareCustom.RateLimitConfig{
		RequestsPerMinute: deps.Config.Auth.RateLimitPerMinute,
	}
	session := auth.SessionMiddleware(deps.TokenManager, deps.Users, deps.Logger)

	router.Route("/account", func(r chi.Router) {
		// Public routes - rate limited per client IP
		r.Group(func(r chi.Router) {
			r.Use(middlewareCustom.RateLimitByIP(rateLimitConfig, deps.IPConfig))
			r.Post("/signup", h.Auth.Signup)
			r.Post("/login", h.Auth.Login)
			r.Post("/verify/email", h.Auth.VerifyEmail)
			r.Post("/forgot/password", h.Auth.ForgotPassword)
			r.Post("/reset/password/{token}", h.Auth.ResetPassword)
		})

		r.Post("/logout", h.Auth.Logout)
		r.With(session).Get("/auth", h.Auth.CheckAuth)
	})

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(session)

		r.Route("/movie", h.Movies.Routes)
		r.Route("/tv", h.TV.Routes)
		r.Route("/search", h.Search.Routes)
	})
}

func healthHandler(db HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			pkghttp.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "database": "down"})
			return
		}
		pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "database": "up"})
	}
}

// originOf returns the scheme and host of rawURL, or "" when it does not parse
func originOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
