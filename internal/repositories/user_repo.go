package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/flixapi/internal/database"
	"github.com/BradenHooton/flixapi/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, username, email, password_hash, is_verified,
	verification_token, verification_expires_at,
	reset_password_token_hash, reset_password_expires_at,
	last_login, profile_picture, created_at, updated_at`

// UserRepository is the credential store backed by the users table.
// Uniqueness of username and email is enforced by table constraints, and
// token consumption is a single UPDATE so concurrent requests cannot both win.
type UserRepository struct {
	pool database.Pool
}

func NewUserRepository(pool database.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// rowScanner supports both pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User

	err := scanner.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.IsVerified,
		&user.VerificationToken, &user.VerificationExpiresAt,
		&user.ResetPasswordTokenHash, &user.ResetPasswordExpiresAt,
		&user.LastLogin, &user.ProfilePicture, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &user, nil
}

// Create inserts a new user. A duplicate username or email returns
// models.ErrUsernameTaken or models.ErrEmailTaken.
func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	query := `
		INSERT INTO users (id, username, email, password_hash, is_verified,
			verification_token, verification_expires_at,
			last_login, profile_picture, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + userColumns

	created, err := scanUserRow(r.pool.QueryRow(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash, user.IsVerified,
		user.VerificationToken, user.VerificationExpiresAt,
		user.LastLogin, user.ProfilePicture, user.CreatedAt, user.UpdatedAt,
	))
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrNotFound
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username)
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email)
}

func (r *UserRepository) exists(ctx context.Context, query string, arg string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, query, arg).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET last_login = $2, updated_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ConsumeVerificationCode marks the user holding an unexpired code as verified
// and clears the code in one statement. If two pending users share a code only
// the oldest is verified. No match returns models.ErrNotFound.
func (r *UserRepository) ConsumeVerificationCode(ctx context.Context, code string, now time.Time) (*models.User, error) {
	query := `
		UPDATE users
		SET is_verified = TRUE,
			verification_token = NULL,
			verification_expires_at = NULL,
			updated_at = $2
		WHERE id = (
			SELECT id FROM users
			WHERE verification_token = $1 AND verification_expires_at > $2
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query, code, now))
}

// SetResetToken stores the hash of a reset token on the user with the given email
func (r *UserRepository) SetResetToken(ctx context.Context, email, tokenHash string, expiresAt, now time.Time) (*models.User, error) {
	query := `
		UPDATE users
		SET reset_password_token_hash = $2,
			reset_password_expires_at = $3,
			updated_at = $4
		WHERE email = $1
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query, email, tokenHash, expiresAt, now))
}

// ConsumeResetToken swaps in the new password hash for the user holding an
// unexpired reset token and clears the token, so each token works once.
// No match returns models.ErrNotFound.
func (r *UserRepository) ConsumeResetToken(ctx context.Context, tokenHash, newPasswordHash string, now time.Time) (*models.User, error) {
	query := `
		UPDATE users
		SET password_hash = $2,
			reset_password_token_hash = NULL,
			reset_password_expires_at = NULL,
			updated_at = $3
		WHERE reset_password_token_hash = $1 AND reset_password_expires_at > $3
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query, tokenHash, newPasswordHash, now))
}

// ClearExpiredTokens nulls verification codes and reset tokens whose expiry has passed
func (r *UserRepository) ClearExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	var cleared int64

	err := database.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE users
			SET verification_token = NULL, verification_expires_at = NULL
			WHERE verification_expires_at IS NOT NULL AND verification_expires_at <= $1`, now)
		if err != nil {
			return fmt.Errorf("failed to clear expired verification codes: %w", err)
		}
		cleared += tag.RowsAffected()

		tag, err = tx.Exec(ctx, `
			UPDATE users
			SET reset_password_token_hash = NULL, reset_password_expires_at = NULL
			WHERE reset_password_expires_at IS NOT NULL AND reset_password_expires_at <= $1`, now)
		if err != nil {
			return fmt.Errorf("failed to clear expired reset tokens: %w", err)
		}
		cleared += tag.RowsAffected()

		return nil
	})
	if err != nil {
		return 0, err
	}

	return cleared, nil
}
