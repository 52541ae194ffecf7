package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/BradenHooton/flixapi/internal/auth"
	"github.com/BradenHooton/flixapi/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-at-least-32-bytes-long"

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestGenerateSessionToken_RoundTrip(t *testing.T) {
	tm := auth.NewTokenManager(testSecret, 0)
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tm.SetClock(fixedClock(issued))

	token, expiresAt, err := tm.GenerateSessionToken("user-1")
	require.NoError(t, err)
	assert.Equal(t, issued.Add(auth.DefaultSessionTTL), expiresAt)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "user-1", claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestSessionTTL_MatchesTokenExpiry(t *testing.T) {
	for _, ttl := range []time.Duration{0, 2 * time.Hour} {
		tm := auth.NewTokenManager(testSecret, ttl)
		issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		tm.SetClock(fixedClock(issued))

		_, expiresAt, err := tm.GenerateSessionToken("user-1")
		require.NoError(t, err)
		assert.Equal(t, expiresAt.Sub(issued), tm.SessionTTL())
	}
	assert.Equal(t, auth.DefaultSessionTTL, auth.NewTokenManager(testSecret, 0).SessionTTL())
}

func TestGenerateSessionToken_RequiresUserID(t *testing.T) {
	tm := auth.NewTokenManager(testSecret, time.Hour)

	_, _, err := tm.GenerateSessionToken("")
	assert.Error(t, err)
}

func TestValidateToken_ValidityWindow(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tm := auth.NewTokenManager(testSecret, 7*24*time.Hour)
	tm.SetClock(fixedClock(issued))

	token, _, err := tm.GenerateSessionToken("user-1")
	require.NoError(t, err)

	tests := []struct {
		name    string
		at      time.Time
		wantErr error
	}{
		{name: "at issue time", at: issued},
		{name: "one day later", at: issued.Add(24 * time.Hour)},
		{name: "one second before expiry", at: issued.Add(7*24*time.Hour - time.Second)},
		{name: "exactly at expiry", at: issued.Add(7 * 24 * time.Hour), wantErr: models.ErrTokenExpired},
		{name: "after expiry", at: issued.Add(8 * 24 * time.Hour), wantErr: models.ErrTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm.SetClock(fixedClock(tt.at))
			_, err := tm.ValidateToken(token)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, models.ErrUnauthorized)
		})
	}
}

func TestValidateToken_Missing(t *testing.T) {
	tm := auth.NewTokenManager(testSecret, time.Hour)

	_, err := tm.ValidateToken("")
	assert.ErrorIs(t, err, models.ErrTokenMissing)
}

func TestValidateToken_Invalid(t *testing.T) {
	tm := auth.NewTokenManager(testSecret, time.Hour)
	token, _, err := tm.GenerateSessionToken("user-1")
	require.NoError(t, err)

	other := auth.NewTokenManager("a-completely-different-secret-value-here", time.Hour)
	foreign, _, err := other.GenerateSessionToken("user-1")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"user_id": "user-1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"garbage":       "not-a-jwt",
		"wrong secret":  foreign,
		"bad signature": tampered,
		"alg none":      noneToken,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := tm.ValidateToken(tok)
			assert.ErrorIs(t, err, models.ErrTokenInvalid)
		})
	}
}

func TestValidateToken_MissingUserIDIsInvalid(t *testing.T) {
	tm := auth.NewTokenManager(testSecret, time.Hour)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = tm.ValidateToken(token)
	assert.ErrorIs(t, err, models.ErrTokenInvalid)
}

func TestValidateToken_MissingExpiryIsInvalid(t *testing.T) {
	tm := auth.NewTokenManager(testSecret, time.Hour)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "user-1",
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = tm.ValidateToken(token)
	assert.ErrorIs(t, err, models.ErrTokenInvalid)
}
