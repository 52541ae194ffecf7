// Package tmdb is a read-only client for The Movie Database API.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BradenHooton/flixapi/internal/config"
	"github.com/BradenHooton/flixapi/internal/metrics"
	"github.com/BradenHooton/flixapi/internal/models"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// ErrUpstream marks failures of the TMDB service itself (5xx, rejected requests, bad payloads)
var ErrUpstream = errors.New("tmdb upstream error")

const (
	maxBodyBytes   = 10 << 20
	defaultBackoff = 200 * time.Millisecond
)

// Client performs authenticated GET requests against TMDB
type Client struct {
	baseURL    string
	apiKey     string
	http       *http.Client
	maxRetries uint64
	backoff    time.Duration
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewClient creates a Client from config. m may be nil.
func NewClient(cfg config.TMDBConfig, m *metrics.Metrics, logger *slog.Logger) *Client {
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		http:       &http.Client{Timeout: cfg.Timeout},
		maxRetries: uint64(retries),
		backoff:    defaultBackoff,
		metrics:    m,
		logger:     logger,
	}
}

// SetBackoff overrides the base delay between retries
func (c *Client) SetBackoff(d time.Duration) {
	c.backoff = d
}

// Get fetches path (e.g. "/movie/550") and returns the raw JSON body.
// A 404 from TMDB is returned as models.ErrNotFound. Server errors, 429s and
// transport failures are retried with exponential backoff.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	start := time.Now()
	target := c.buildURL(path, query)

	var body json.RawMessage
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.backoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		b, err := c.do(ctx, target, path)
		if err != nil {
			if c.logger != nil {
				c.logger.Debug("tmdb request failed",
					slog.String("path", path),
					slog.String("error", err.Error()))
			}
			return err
		}
		body = b
		return nil
	})

	outcome := metrics.OutcomeSuccess
	switch {
	case err == nil:
	case errors.Is(err, models.ErrNotFound):
		outcome = metrics.OutcomeFailure
	default:
		outcome = metrics.OutcomeError
	}
	c.metrics.ObserveTMDBRequest(outcome, time.Since(start))

	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, target, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, oops.Code("TMDB_BAD_REQUEST").With("path", path).Wrap(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, retry.RetryableError(
			oops.Code("TMDB_UNREACHABLE").With("path", path).Wrapf(ErrUpstream, "transport: %v", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, oops.Code("TMDB_NOT_FOUND").With("path", path).Wrap(models.ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, retry.RetryableError(
			oops.Code("TMDB_UPSTREAM").With("path", path).With("status", resp.StatusCode).
				Wrapf(ErrUpstream, "status %d", resp.StatusCode))
	default:
		return nil, oops.Code("TMDB_REJECTED").With("path", path).With("status", resp.StatusCode).
			Wrapf(ErrUpstream, "status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, retry.RetryableError(oops.Code("TMDB_READ_FAILED").With("path", path).Wrapf(ErrUpstream, "read: %v", err))
	}
	if !json.Valid(data) {
		return nil, oops.Code("TMDB_BAD_PAYLOAD").With("path", path).Wrapf(ErrUpstream, "invalid JSON body")
	}

	return data, nil
}

func (c *Client) buildURL(path string, query url.Values) string {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	if q.Get("language") == "" {
		q.Set("language", "en-US")
	}
	return fmt.Sprintf("%s/%s?%s", c.baseURL, strings.TrimLeft(path, "/"), q.Encode())
}

type resultsPage struct {
	Results []json.RawMessage `json:"results"`
}

// Results fetches a paged TMDB listing and returns its "results" array
func (c *Client) Results(ctx context.Context, path string, query url.Values) ([]json.RawMessage, error) {
	body, err := c.Get(ctx, path, query)
	if err != nil {
		return nil, err
	}

	var page resultsPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, oops.Code("TMDB_BAD_PAYLOAD").With("path", path).Wrapf(ErrUpstream, "decode results: %v", err)
	}
	if page.Results == nil {
		page.Results = []json.RawMessage{}
	}
	return page.Results, nil
}

// Search runs a TMDB search of the given kind ("person", "movie" or "tv")
func (c *Client) Search(ctx context.Context, kind, query string) ([]json.RawMessage, error) {
	return c.Results(ctx, "/search/"+kind, url.Values{
		"query": {query},
		"page":  {"1"},
	})
}

// Hit is the subset of a search result recorded in search history
type Hit struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Title       string `json:"title"`
	ProfilePath string `json:"profile_path"`
	PosterPath  string `json:"poster_path"`
}

// DisplayName is the movie title, or the person or show name
func (h Hit) DisplayName() string {
	if h.Title != "" {
		return h.Title
	}
	return h.Name
}

// Image is the profile picture for people and the poster otherwise
func (h Hit) Image() string {
	if h.ProfilePath != "" {
		return h.ProfilePath
	}
	return h.PosterPath
}

// DecodeHit extracts the history fields from one search result
func DecodeHit(raw json.RawMessage) (Hit, error) {
	var h Hit
	if err := json.Unmarshal(raw, &h); err != nil {
		return Hit{}, oops.Code("TMDB_BAD_PAYLOAD").Wrapf(ErrUpstream, "decode search hit: %v", err)
	}
	return h, nil
}
