package services

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/BradenHooton/flixapi/internal/models"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// UserRepository is the credential store used by AuthService
type UserRepository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	ConsumeVerificationCode(ctx context.Context, code string, now time.Time) (*models.User, error)
	SetResetToken(ctx context.Context, email, tokenHash string, expiresAt, now time.Time) (*models.User, error)
	ConsumeResetToken(ctx context.Context, tokenHash, newPasswordHash string, now time.Time) (*models.User, error)
}

// PasswordHasher hashes new passwords and checks submitted ones
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hashedPassword, password string) error
}

// SearchHistoryRepository stores each user's deduplicated search history
type SearchHistoryRepository interface {
	Add(ctx context.Context, userID string, entry models.SearchEntry) (bool, error)
	List(ctx context.Context, userID string) ([]models.SearchEntry, error)
	Remove(ctx context.Context, userID string, contentID int64) error
}

// TMDBClient is the read-only movie database used by the content and search services
type TMDBClient interface {
	Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error)
	Results(ctx context.Context, path string, query url.Values) ([]json.RawMessage, error)
	Search(ctx context.Context, kind, query string) ([]json.RawMessage, error)
}
