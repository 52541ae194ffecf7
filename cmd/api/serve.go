package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/BradenHooton/flixapi/internal/auth"
	"github.com/BradenHooton/flixapi/internal/background"
	"github.com/BradenHooton/flixapi/internal/config"
	"github.com/BradenHooton/flixapi/internal/database"
	"github.com/BradenHooton/flixapi/internal/handlers"
	"github.com/BradenHooton/flixapi/internal/metrics"
	"github.com/BradenHooton/flixapi/internal/repositories"
	"github.com/BradenHooton/flixapi/internal/routes"
	"github.com/BradenHooton/flixapi/internal/services"
	"github.com/BradenHooton/flixapi/internal/tmdb"
	pkgauth "github.com/BradenHooton/flixapi/pkg/auth"
	pkghttp "github.com/BradenHooton/flixapi/pkg/http"
	pkglogger "github.com/BradenHooton/flixapi/pkg/logger"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	logger := pkglogger.New(os.Stdout, cfg.Server.LogLevel)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, cfg.Database.DSN(), database.MigrateUp, logger); err != nil {
			return oops.Code("MIGRATION_FAILED").Wrap(err)
		}
	}

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}
	defer db.Close()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db.Pool)
	historyRepo := repositories.NewSearchHistoryRepository(db.Pool)

	m := metrics.New()
	auditLogger := pkglogger.NewAuditLogger(logger)
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)

	sender, err := services.NewEmailSender(ctx, cfg.Email, logger)
	if err != nil {
		return oops.Code("EMAIL_INIT_FAILED").Wrap(err)
	}
	emailService := services.NewEmailService(sender, logger)

	// Initialize services
	authService := services.NewAuthService(
		userRepo,
		pkgauth.NewHasher(cfg.Auth.BcryptCost),
		tokenManager,
		emailService,
		services.AuthServiceConfig{
			VerificationTTL:        cfg.Auth.VerificationTTL,
			ResetTokenTTL:          cfg.Auth.ResetTokenTTL,
			ClientURL:              cfg.Server.ClientURL,
			MaskAccountEnumeration: cfg.Auth.MaskAccountEnumeration,
		},
		logger,
		auditLogger,
		m,
	)
	authService.SetTimingDelay(auth.NewTimingDelay(auth.TimingConfig{
		BaseDelay: cfg.Auth.LoginFailureDelay,
		Jitter:    cfg.Auth.LoginFailureJitter,
	}))

	tmdbClient := tmdb.NewClient(cfg.TMDB, m, logger)
	contentService := services.NewContentService(tmdbClient, logger)
	searchService := services.NewSearchService(tmdbClient, historyRepo, logger)

	// Initialize handlers
	cookies := auth.CookieConfig{
		Secure: cfg.Server.IsProduction(),
		MaxAge: tokenManager.SessionTTL(),
	}
	ipConfig := pkghttp.NewIPConfig(cfg.Server.TrustedProxies)
	router := routes.NewRouter(routes.Handlers{
		Auth:   handlers.NewAuthHandler(authService, cookies, ipConfig, logger),
		Movies: handlers.NewContentHandler(contentService, services.MediaMovie, logger),
		TV:     handlers.NewContentHandler(contentService, services.MediaTV, logger),
		Search: handlers.NewSearchHandler(searchService, logger),
	}, routes.Deps{
		Config:       cfg,
		TokenManager: tokenManager,
		Users:        userRepo,
		IPConfig:     ipConfig,
		Health:       db,
		Metrics:      m.Handler(),
		Logger:       logger,
	})

	cleanupManager := background.NewCleanupManager(userRepo, logger, cfg.Auth.CleanupSchedule)
	if err := cleanupManager.Start(context.WithoutCancel(ctx)); err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	defer cleanupManager.Stop()

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Graceful shutdown
	select {
	case err := <-serverErr:
		return oops.Code("SERVER_FAILED").Wrap(err)
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		return oops.Code("SHUTDOWN_FAILED").Wrap(err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
