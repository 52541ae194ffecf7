package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Identity conflicts
	ErrUsernameTaken = fmt.Errorf("%w: username already exists", ErrConflict)
	ErrEmailTaken    = fmt.Errorf("%w: user with this email already exists", ErrConflict)

	// Session token errors, checked in this order by the session middleware
	ErrTokenMissing = fmt.Errorf("%w: token not provided", ErrUnauthorized)
	ErrTokenInvalid = fmt.Errorf("%w: invalid token", ErrUnauthorized)
	ErrTokenExpired = fmt.Errorf("%w: token expired", ErrUnauthorized)

	// Account flow errors
	ErrInvalidCredentials      = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	ErrInvalidVerificationCode = fmt.Errorf("%w: invalid or expired verification code", ErrNotFound)
	ErrInvalidResetToken       = fmt.Errorf("%w: invalid or expired reset token", ErrNotFound)
)

// ValidationError carries a user-facing message for malformed input.
// It matches ErrBadRequest with errors.Is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrBadRequest
}

// NewValidationError creates a ValidationError with the given message
func NewValidationError(message string) error {
	return &ValidationError{Message: message}
}
