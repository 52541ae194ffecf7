package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/BradenHooton/flixapi/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchService_Search_RecordsFirstHit(t *testing.T) {
	tests := []struct {
		searchType string
		results    []json.RawMessage
		want       models.SearchEntry
	}{
		{
			searchType: models.SearchTypePerson,
			results:    rawResults(`{"id":287,"name":"Brad Pitt","profile_path":"/brad.jpg"}`, `{"id":1}`),
			want:       models.SearchEntry{ContentID: 287, Name: "Brad Pitt", Image: "/brad.jpg", SearchType: "person"},
		},
		{
			searchType: models.SearchTypeMovie,
			results:    rawResults(`{"id":550,"title":"Fight Club","poster_path":"/fc.jpg"}`),
			want:       models.SearchEntry{ContentID: 550, Name: "Fight Club", Image: "/fc.jpg", SearchType: "movie"},
		},
		{
			searchType: models.SearchTypeTV,
			results:    rawResults(`{"id":1399,"name":"Game of Thrones","poster_path":"/got.jpg"}`),
			want:       models.SearchEntry{ContentID: 1399, Name: "Game of Thrones", Image: "/got.jpg", SearchType: "tv"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.searchType, func(t *testing.T) {
			now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
			var gotKind, gotQuery string
			var recorded []models.SearchEntry

			client := &MockTMDBClient{
				SearchFunc: func(ctx context.Context, kind, query string) ([]json.RawMessage, error) {
					gotKind, gotQuery = kind, query
					return tt.results, nil
				},
			}
			history := &MockSearchHistoryRepository{
				AddFunc: func(ctx context.Context, userID string, entry models.SearchEntry) (bool, error) {
					assert.Equal(t, "user-1", userID)
					recorded = append(recorded, entry)
					return true, nil
				},
			}
			svc := NewSearchService(client, history, discardLogger())
			svc.now = func() time.Time { return now }

			results, err := svc.Search(context.Background(), "user-1", tt.searchType, "  query ")

			require.NoError(t, err)
			assert.Len(t, results, len(tt.results))
			assert.Equal(t, tt.searchType, gotKind)
			assert.Equal(t, "query", gotQuery)

			want := tt.want
			want.CreatedAt = now
			assert.Equal(t, []models.SearchEntry{want}, recorded)
		})
	}
}

func TestSearchService_Search_NoResults(t *testing.T) {
	added := false
	history := &MockSearchHistoryRepository{
		AddFunc: func(ctx context.Context, userID string, entry models.SearchEntry) (bool, error) {
			added = true
			return true, nil
		},
	}
	svc := NewSearchService(&MockTMDBClient{}, history, discardLogger())

	_, err := svc.Search(context.Background(), "user-1", models.SearchTypeMovie, "zzzz")

	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.False(t, added)
}

func TestSearchService_Search_HistoryFailureStillReturnsResults(t *testing.T) {
	client := &MockTMDBClient{
		SearchFunc: func(ctx context.Context, kind, query string) ([]json.RawMessage, error) {
			return rawResults(`{"id":550,"title":"Fight Club"}`), nil
		},
	}
	history := &MockSearchHistoryRepository{
		AddFunc: func(ctx context.Context, userID string, entry models.SearchEntry) (bool, error) {
			return false, errors.New("db down")
		},
	}
	svc := NewSearchService(client, history, discardLogger())

	results, err := svc.Search(context.Background(), "user-1", models.SearchTypeMovie, "fight")

	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearchService_Search_RejectsBadInput(t *testing.T) {
	svc := NewSearchService(&MockTMDBClient{}, &MockSearchHistoryRepository{}, discardLogger())
	ctx := context.Background()

	_, err := svc.Search(ctx, "user-1", "collection", "x")
	assert.ErrorIs(t, err, models.ErrBadRequest)

	_, err = svc.Search(ctx, "user-1", models.SearchTypeTV, "   ")
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestSearchService_History(t *testing.T) {
	entries := []models.SearchEntry{{ContentID: 1, Name: "a"}, {ContentID: 2, Name: "b"}}
	history := &MockSearchHistoryRepository{
		ListFunc: func(ctx context.Context, userID string) ([]models.SearchEntry, error) {
			return entries, nil
		},
	}
	svc := NewSearchService(&MockTMDBClient{}, history, discardLogger())

	got, err := svc.History(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

func TestSearchService_History_StoreFailure(t *testing.T) {
	history := &MockSearchHistoryRepository{
		ListFunc: func(ctx context.Context, userID string) ([]models.SearchEntry, error) {
			return nil, errors.New("db down")
		},
	}
	svc := NewSearchService(&MockTMDBClient{}, history, discardLogger())

	_, err := svc.History(context.Background(), "user-1")

	assert.ErrorIs(t, err, models.ErrInternalServer)
}

func TestSearchService_RemoveFromHistory(t *testing.T) {
	var removed int64
	history := &MockSearchHistoryRepository{
		RemoveFunc: func(ctx context.Context, userID string, contentID int64) error {
			removed = contentID
			return nil
		},
	}
	svc := NewSearchService(&MockTMDBClient{}, history, discardLogger())

	require.NoError(t, svc.RemoveFromHistory(context.Background(), "user-1", "550"))
	assert.Equal(t, int64(550), removed)

	err := svc.RemoveFromHistory(context.Background(), "user-1", "abc")
	assert.ErrorIs(t, err, models.ErrBadRequest)
}
