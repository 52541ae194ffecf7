package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the claims carried by a session token.
// The bound user id is carried in UserID and mirrored in the subject claim.
type TokenClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}
