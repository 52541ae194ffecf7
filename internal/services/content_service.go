package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strconv"

	"github.com/BradenHooton/flixapi/internal/models"
)

// Media types served by ContentService
const (
	MediaMovie = "movie"
	MediaTV    = "tv"
)

var categories = map[string][]string{
	MediaMovie: {"popular", "top_rated", "upcoming", "now_playing"},
	MediaTV:    {"popular", "top_rated", "airing_today", "on_the_air"},
}

// ContentService proxies movie and TV metadata from TMDB
type ContentService struct {
	tmdb   TMDBClient
	logger *slog.Logger
	pick   func(n int) int
}

// NewContentService creates a new ContentService
func NewContentService(client TMDBClient, logger *slog.Logger) *ContentService {
	return &ContentService{tmdb: client, logger: logger, pick: rand.IntN}
}

// Trending returns one title picked at random from today's trending list
func (s *ContentService) Trending(ctx context.Context, media string) (json.RawMessage, error) {
	if err := checkMedia(media); err != nil {
		return nil, err
	}

	results, err := s.tmdb.Results(ctx, fmt.Sprintf("/trending/%s/day", media), nil)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: no trending %s", models.ErrNotFound, media)
	}
	return results[s.pick(len(results))], nil
}

// Trailers returns the videos attached to a title
func (s *ContentService) Trailers(ctx context.Context, media, id string) ([]json.RawMessage, error) {
	if err := checkMediaID(media, id); err != nil {
		return nil, err
	}
	return s.tmdb.Results(ctx, fmt.Sprintf("/%s/%s/videos", media, id), nil)
}

// Details returns the full TMDB record of a title
func (s *ContentService) Details(ctx context.Context, media, id string) (json.RawMessage, error) {
	if err := checkMediaID(media, id); err != nil {
		return nil, err
	}
	return s.tmdb.Get(ctx, fmt.Sprintf("/%s/%s", media, id), nil)
}

// Similar returns titles TMDB considers similar to id
func (s *ContentService) Similar(ctx context.Context, media, id string) ([]json.RawMessage, error) {
	if err := checkMediaID(media, id); err != nil {
		return nil, err
	}
	return s.tmdb.Results(ctx, fmt.Sprintf("/%s/%s/similar", media, id), nil)
}

// ByCategory returns the first page of a curated list such as "popular"
func (s *ContentService) ByCategory(ctx context.Context, media, category string) ([]json.RawMessage, error) {
	if err := checkMedia(media); err != nil {
		return nil, err
	}
	if !slices.Contains(categories[media], category) {
		return nil, models.NewValidationError("Invalid category")
	}
	return s.tmdb.Results(ctx, fmt.Sprintf("/%s/%s", media, category), nil)
}

func checkMedia(media string) error {
	if _, ok := categories[media]; !ok {
		return models.NewValidationError("Invalid media type")
	}
	return nil
}

func checkMediaID(media, id string) error {
	if err := checkMedia(media); err != nil {
		return err
	}
	if _, err := parseContentID(id); err != nil {
		return err
	}
	return nil
}

func parseContentID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, models.NewValidationError("Invalid id")
	}
	return n, nil
}
