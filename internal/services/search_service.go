package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/flixapi/internal/models"
	"github.com/BradenHooton/flixapi/internal/tmdb"
)

// SearchService searches TMDB and keeps the caller's search history
type SearchService struct {
	tmdb    TMDBClient
	history SearchHistoryRepository
	logger  *slog.Logger
	now     func() time.Time
}

// NewSearchService creates a new SearchService
func NewSearchService(client TMDBClient, history SearchHistoryRepository, logger *slog.Logger) *SearchService {
	return &SearchService{tmdb: client, history: history, logger: logger, now: time.Now}
}

// Search runs a person, movie or tv search. The first hit is recorded in the
// user's history unless an entry with the same content id is already there.
// No results is models.ErrNotFound.
func (s *SearchService) Search(ctx context.Context, userID, searchType, query string) ([]json.RawMessage, error) {
	switch searchType {
	case models.SearchTypePerson, models.SearchTypeMovie, models.SearchTypeTV:
	default:
		return nil, models.NewValidationError("Invalid search type")
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.NewValidationError("Search query is required")
	}

	results, err := s.tmdb.Search(ctx, searchType, query)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: no %s matches %q", models.ErrNotFound, searchType, query)
	}

	s.record(ctx, userID, searchType, results[0])
	return results, nil
}

// record stores hit in history. Failures are logged; the search result still goes back.
func (s *SearchService) record(ctx context.Context, userID, searchType string, raw json.RawMessage) {
	hit, err := tmdb.DecodeHit(raw)
	if err != nil || hit.ID == 0 {
		s.logger.Warn("search hit not recorded: unreadable result", slog.String("search_type", searchType))
		return
	}

	added, err := s.history.Add(ctx, userID, models.SearchEntry{
		ContentID:  hit.ID,
		Name:       hit.DisplayName(),
		Image:      hit.Image(),
		SearchType: searchType,
		CreatedAt:  s.now(),
	})
	if err != nil {
		s.logger.Error("failed to record search history",
			slog.String("user_id", userID),
			slog.Any("error", err))
		return
	}
	if added {
		s.logger.Debug("search history entry added",
			slog.String("user_id", userID),
			slog.Int64("content_id", hit.ID))
	}
}

// History returns the user's entries, oldest first
func (s *SearchService) History(ctx context.Context, userID string) ([]models.SearchEntry, error) {
	entries, err := s.history.List(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list search history",
			slog.String("user_id", userID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return entries, nil
}

// RemoveFromHistory deletes the entry for contentID. Removing a missing entry succeeds.
func (s *SearchService) RemoveFromHistory(ctx context.Context, userID, contentID string) error {
	id, err := parseContentID(contentID)
	if err != nil {
		return err
	}

	if err := s.history.Remove(ctx, userID, id); err != nil {
		s.logger.Error("failed to remove search history entry",
			slog.String("user_id", userID),
			slog.Int64("content_id", id),
			slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}
