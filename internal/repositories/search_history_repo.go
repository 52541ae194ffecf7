package repositories

import (
	"context"
	"fmt"

	"github.com/BradenHooton/flixapi/internal/database"
	"github.com/BradenHooton/flixapi/internal/models"
)

// SearchHistoryRepository stores each user's search history, one row per content id
type SearchHistoryRepository struct {
	pool database.Querier
}

func NewSearchHistoryRepository(pool database.Querier) *SearchHistoryRepository {
	return &SearchHistoryRepository{pool: pool}
}

// Add appends entry to the user's history. It reports false when the
// content id is already present.
func (r *SearchHistoryRepository) Add(ctx context.Context, userID string, entry models.SearchEntry) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO search_history (user_id, content_id, name, image, search_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, content_id) DO NOTHING`,
		userID, entry.ContentID, entry.Name, entry.Image, entry.SearchType, entry.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to add search entry: %w", database.MapPostgresError(err))
	}
	return tag.RowsAffected() == 1, nil
}

// List returns the user's history oldest first
func (r *SearchHistoryRepository) List(ctx context.Context, userID string) ([]models.SearchEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT content_id, name, image, search_type, created_at
		FROM search_history
		WHERE user_id = $1
		ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query search history: %w", err)
	}
	defer rows.Close()

	entries := make([]models.SearchEntry, 0)
	for rows.Next() {
		var e models.SearchEntry
		if err := rows.Scan(&e.ContentID, &e.Name, &e.Image, &e.SearchType, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan search entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return entries, nil
}

// Remove deletes the entry for contentID. Removing an absent entry is not an error.
func (r *SearchHistoryRepository) Remove(ctx context.Context, userID string, contentID int64) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM search_history WHERE user_id = $1 AND content_id = $2`, userID, contentID)
	if err != nil {
		return fmt.Errorf("failed to remove search entry: %w", err)
	}
	return nil
}
