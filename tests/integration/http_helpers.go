package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/BradenHooton/flixapi/internal/auth"
	"github.com/BradenHooton/flixapi/internal/config"
	"github.com/BradenHooton/flixapi/internal/handlers"
	"github.com/BradenHooton/flixapi/internal/metrics"
	"github.com/BradenHooton/flixapi/internal/routes"
	"github.com/BradenHooton/flixapi/internal/services"
	"github.com/BradenHooton/flixapi/internal/tmdb"
	pkgauth "github.com/BradenHooton/flixapi/pkg/auth"
	pkghttp "github.com/BradenHooton/flixapi/pkg/http"
	pkglogger "github.com/BradenHooton/flixapi/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

// CapturingSender records rendered emails instead of delivering them
type CapturingSender struct {
	mu   sync.Mutex
	sent []services.EmailMessage
}

// Send records msg
func (c *CapturingSender) Send(ctx context.Context, msg services.EmailMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

// Last returns the most recent email sent to addr
func (c *CapturingSender) Last(addr string) *services.EmailMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.sent) - 1; i >= 0; i-- {
		if c.sent[i].To == addr {
			msg := c.sent[i]
			return &msg
		}
	}
	return nil
}

// Subjects lists the subjects sent to addr in order
func (c *CapturingSender) Subjects(addr string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var subjects []string
	for _, msg := range c.sent {
		if msg.To == addr {
			subjects = append(subjects, msg.Subject)
		}
	}
	return subjects
}

// newFakeTMDB serves a handful of canned TMDB responses
func newFakeTMDB() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/search/movie", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query") == "nothing" {
			fmt.Fprint(w, `{"results":[]}`)
			return
		}
		fmt.Fprint(w, `{"results":[{"id":550,"title":"Fight Club","poster_path":"/fc.jpg"}]}`)
	})
	mux.HandleFunc("/search/person", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[{"id":287,"name":"Brad Pitt","profile_path":"/bp.jpg"}]}`)
	})
	mux.HandleFunc("/trending/movie/day", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[{"id":550,"title":"Fight Club"}]}`)
	})
	return httptest.NewServer(mux)
}

// TestServer is the full HTTP stack over a real database
type TestServer struct {
	Server *httptest.Server
	TMDB   *httptest.Server
	Client *http.Client
	Email  *CapturingSender
	Config *config.Config
}

// NewTestServer wires the application router the way the serve command does,
// with captured email and a fake TMDB upstream
func NewTestServer(db *TestDB) (*TestServer, error) {
	logger := quietLogger()
	fakeTMDB := newFakeTMDB()

	cfg := &config.Config{
		Server: config.ServerConfig{
			Env:            "test",
			ClientURL:      "http://localhost:5173",
			RequestTimeout: 10 * time.Second,
		},
		Auth: config.AuthConfig{
			JWTSecret:          "integration-secret-32-characters!",
			SessionTTL:         time.Hour,
			VerificationTTL:    24 * time.Hour,
			ResetTokenTTL:      2 * time.Hour,
			RateLimitPerMinute: 1000,
		},
		TMDB: config.TMDBConfig{
			APIKey:     "tmdb-test-key",
			BaseURL:    fakeTMDB.URL,
			ImageURL:   "https://image.tmdb.org/t/p/original",
			Timeout:    2 * time.Second,
			MaxRetries: 0,
		},
	}

	userRepo, historyRepo := InitializeRepositories(db)
	m := metrics.New()
	sender := &CapturingSender{}
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)

	authService := services.NewAuthService(
		userRepo,
		pkgauth.NewHasher(bcrypt.MinCost),
		tokenManager,
		services.NewEmailService(sender, logger),
		services.AuthServiceConfig{
			VerificationTTL: cfg.Auth.VerificationTTL,
			ResetTokenTTL:   cfg.Auth.ResetTokenTTL,
			ClientURL:       cfg.Server.ClientURL,
		},
		logger,
		pkglogger.NewAuditLogger(logger),
		m,
	)

	tmdbClient := tmdb.NewClient(cfg.TMDB, m, logger)
	contentService := services.NewContentService(tmdbClient, logger)
	searchService := services.NewSearchService(tmdbClient, historyRepo, logger)

	router := routes.NewRouter(routes.Handlers{
		Auth:   handlers.NewAuthHandler(authService, auth.CookieConfig{MaxAge: cfg.Auth.SessionTTL}, pkghttp.NewIPConfig(nil), logger),
		Movies: handlers.NewContentHandler(contentService, services.MediaMovie, logger),
		TV:     handlers.NewContentHandler(contentService, services.MediaTV, logger),
		Search: handlers.NewSearchHandler(searchService, logger),
	}, routes.Deps{
		Config:       cfg,
		TokenManager: tokenManager,
		Users:        userRepo,
		Health:       db.DB,
		Metrics:      m.Handler(),
		Logger:       logger,
	})

	jar, err := cookiejar.New(nil)
	if err != nil {
		fakeTMDB.Close()
		return nil, err
	}

	return &TestServer{
		Server: httptest.NewServer(router),
		TMDB:   fakeTMDB,
		Client: &http.Client{Jar: jar, Timeout: 10 * time.Second},
		Email:  sender,
		Config: cfg,
	}, nil
}

// Close shuts down the HTTP servers
func (ts *TestServer) Close() {
	ts.Server.Close()
	ts.TMDB.Close()
}

// NewSession returns a client with its own cookie jar against the same server
func (ts *TestServer) NewSession() *TestServer {
	jar, _ := cookiejar.New(nil)
	copied := *ts
	copied.Client = &http.Client{Jar: jar, Timeout: 10 * time.Second}
	return &copied
}

// Request sends a JSON request and decodes the JSON response into a map
func (ts *TestServer) Request(method, path string, body interface{}) (int, map[string]interface{}, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := ts.Client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}

	var decoded map[string]interface{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") && len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return resp.StatusCode, nil, fmt.Errorf("failed to decode response %q: %w", raw, err)
		}
	}
	return resp.StatusCode, decoded, nil
}
