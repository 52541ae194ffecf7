package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/flixapi/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultSessionTTL is the validity window of a session token
const DefaultSessionTTL = 7 * 24 * time.Hour

// TokenManager issues and validates session tokens
type TokenManager struct {
	secret     []byte
	sessionTTL time.Duration
	now        func() time.Time
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret string, sessionTTL time.Duration) *TokenManager {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &TokenManager{
		secret:     []byte(secret),
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// SetClock replaces the time source used for issuing and validating tokens
func (tm *TokenManager) SetClock(now func() time.Time) {
	tm.now = now
}

// SessionTTL returns the validity window of issued tokens
func (tm *TokenManager) SessionTTL() time.Duration {
	return tm.sessionTTL
}

// GenerateSessionToken signs a token bound to userID and returns it with its expiry
func (tm *TokenManager) GenerateSessionToken(userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, fmt.Errorf("user id is required")
	}

	// NumericDate has second precision; truncate so exp is exactly iat + ttl
	issuedAt := tm.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(tm.sessionTTL)

	claims := &models.TokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateToken verifies a token and returns its claims.
// Errors are ErrTokenMissing, ErrTokenInvalid or ErrTokenExpired.
func (tm *TokenManager) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	if tokenString == "" {
		return nil, models.ErrTokenMissing
	}

	claims := &models.TokenClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)

	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	})
	if err != nil {
		// Signature is checked before claims, so a tampered expired token is invalid
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, models.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", models.ErrTokenInvalid, err)
	}

	if !token.Valid || claims.UserID == "" {
		return nil, models.ErrTokenInvalid
	}

	return claims, nil
}
