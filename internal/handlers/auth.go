package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/flixapi/internal/auth"
	"github.com/BradenHooton/flixapi/internal/models"
	"github.com/BradenHooton/flixapi/internal/services"
	pkghttp "github.com/BradenHooton/flixapi/pkg/http"
	"github.com/go-chi/chi/v5"
)

// AuthServiceInterface defines the interface for account business logic
type AuthServiceInterface interface {
	Signup(ctx context.Context, username, email, password string) (*services.AuthResult, error)
	Login(ctx context.Context, email, password, ipAddress string) (*services.AuthResult, error)
	Logout(ctx context.Context, token string)
	VerifyEmail(ctx context.Context, code string) (*models.User, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// AuthHandler handles the /api/v1/account endpoints
type AuthHandler struct {
	service  AuthServiceInterface
	cookies  auth.CookieConfig
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, cookies auth.CookieConfig, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:  service,
		cookies:  cookies,
		ipConfig: ipConfig,
		logger:   logger,
	}
}

// Request DTOs

// SignupRequest fields are checked by AuthService.Signup
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the request body for login.
// Missing fields are left to the service so they fail like wrong credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyEmailRequest carries the 6-digit code from the verification email
type VerifyEmailRequest struct {
	Code string `json:"code" validate:"required,numeric,len=6"`
}

// ForgotPasswordRequest represents the request body for a reset link
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest carries the new password; the token is in the path
type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required"`
}

// Signup handles POST /signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := pkghttp.DecodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	result, err := h.service.Signup(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	auth.SetSessionCookie(w, result.Token, h.cookies)
	pkghttp.WriteSuccess(w, http.StatusCreated, map[string]interface{}{
		"message": "User registered successfully",
		"user":    result.User,
		"token":   result.Token,
	})
}

// Login handles POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := pkghttp.DecodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)

	result, err := h.service.Login(r.Context(), req.Email, req.Password, ipAddress)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	auth.SetSessionCookie(w, result.Token, h.cookies)
	pkghttp.WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"message": "Logged in successfully",
		"user":    result.User,
		"token":   result.Token,
	})
}

// Logout handles POST /logout. It always succeeds.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.service.Logout(r.Context(), auth.TokenFromRequest(r))
	auth.ClearSessionCookie(w, h.cookies)
	pkghttp.WriteMessage(w, http.StatusOK, "Logged out successfully")
}

// CheckAuth handles GET /auth behind the session middleware
func (h *AuthHandler) CheckAuth(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized - token not provided")
		return
	}
	pkghttp.WriteSuccess(w, http.StatusOK, map[string]interface{}{"user": user})
}

// VerifyEmail handles POST /verify/email
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if err := pkghttp.DecodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid or expired verification code")
		return
	}

	user, err := h.service.VerifyEmail(r.Context(), req.Code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"message": "Email verified successfully",
		"user":    user,
	})
}

// ForgotPassword handles POST /forgot/password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		h.writeError(w, r, err)
		return
	}

	pkghttp.WriteMessage(w, http.StatusOK, "Password reset link sent to your email")
}

// ResetPassword handles POST /reset/password/{token}
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.ResetPassword(r.Context(), chi.URLParam(r, "token"), req.Password); err != nil {
		h.writeError(w, r, err)
		return
	}

	pkghttp.WriteMessage(w, http.StatusOK, "Password reset successful")
}

func (h *AuthHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		pkghttp.WriteBadRequest(w, ve.Message)
	case errors.Is(err, models.ErrUsernameTaken):
		pkghttp.WriteConflict(w, "Username already exists")
	case errors.Is(err, models.ErrEmailTaken):
		pkghttp.WriteConflict(w, "User with this email already exists")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "Account already exists")
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Invalid credentials")
	case errors.Is(err, models.ErrInvalidVerificationCode):
		pkghttp.WriteBadRequest(w, "Invalid or expired verification code")
	case errors.Is(err, models.ErrInvalidResetToken):
		pkghttp.WriteNotFound(w, "Invalid or expired reset token")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "User not found")
	default:
		writeInternal(w, r, h.logger, err)
	}
}
