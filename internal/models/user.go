package models

import (
	"math/rand/v2"
	"time"
)

// ProfilePictures is the fixed set a new user's avatar is drawn from
var ProfilePictures = []string{"/avatar1.png", "/avatar2.png", "/avatar3.png"}

// Search types recorded in a user's search history
const (
	SearchTypePerson = "person"
	SearchTypeMovie  = "movie"
	SearchTypeTV     = "tv"
)

type User struct {
	ID             string        `json:"id"`
	Username       string        `json:"username"`
	Email          string        `json:"email"`
	PasswordHash   string        `json:"-"`
	IsVerified     bool          `json:"isVerified"`
	LastLogin      time.Time     `json:"lastLogin"`
	ProfilePicture string        `json:"profilePicture"`
	SearchHistory  []SearchEntry `json:"searchHistory,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`

	VerificationToken      *string    `json:"-"`
	VerificationExpiresAt  *time.Time `json:"-"`
	ResetPasswordTokenHash *string    `json:"-"` // sha256 of the emailed reset token
	ResetPasswordExpiresAt *time.Time `json:"-"`
}

// SearchEntry is one item of a user's search history, unique per ContentID
type SearchEntry struct {
	ContentID  int64     `json:"id"`
	Name       string    `json:"name"`
	Image      string    `json:"image"`
	SearchType string    `json:"searchType"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewUser builds a user in the pending-verification state.
// Derived defaults (profile picture, last login) are computed once here.
func NewUser(username, email, passwordHash, verificationCode string, verificationExpiresAt, now time.Time) *User {
	return &User{
		Username:              username,
		Email:                 email,
		PasswordHash:          passwordHash,
		IsVerified:            false,
		LastLogin:             now,
		ProfilePicture:        ProfilePictures[rand.IntN(len(ProfilePictures))],
		VerificationToken:     &verificationCode,
		VerificationExpiresAt: &verificationExpiresAt,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

// HasPendingVerification reports whether a verification code is outstanding and unexpired
func (u *User) HasPendingVerification(now time.Time) bool {
	return u.VerificationToken != nil && u.VerificationExpiresAt != nil && now.Before(*u.VerificationExpiresAt)
}

// HasPendingReset reports whether a reset token is outstanding and unexpired
func (u *User) HasPendingReset(now time.Time) bool {
	return u.ResetPasswordTokenHash != nil && u.ResetPasswordExpiresAt != nil && now.Before(*u.ResetPasswordExpiresAt)
}
