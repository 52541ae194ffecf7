package handlers_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BradenHooton/flixapi/internal/auth"
	"github.com/BradenHooton/flixapi/internal/handlers"
	"github.com/BradenHooton/flixapi/internal/models"
	"github.com/BradenHooton/flixapi/internal/services"
	pkghttp "github.com/BradenHooton/flixapi/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCookies = auth.CookieConfig{Secure: true, MaxAge: 7 * 24 * time.Hour}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAuthHandler(svc handlers.AuthServiceInterface) *handlers.AuthHandler {
	return handlers.NewAuthHandler(svc, testCookies, pkghttp.NewIPConfig(nil), discardLogger())
}

func testUser() *models.User {
	return &models.User{
		ID:             "3f1c1d0e-5b7a-4b43-9a57-0d8f2c7f4a11",
		Username:       "alice",
		Email:          "a@x.com",
		PasswordHash:   "",
		ProfilePicture: "/avatar1.png",
	}
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie set", auth.SessionCookieName)
	return nil
}

// ============================================================================
// Signup
// ============================================================================

func TestSignup_Success(t *testing.T) {
	var gotUsername, gotEmail, gotPassword string
	svc := &handlers.MockAuthService{
		SignupFunc: func(ctx context.Context, username, email, password string) (*services.AuthResult, error) {
			gotUsername, gotEmail, gotPassword = username, email, password
			return &services.AuthResult{User: testUser(), Token: "session-token"}, nil
		},
	}

	req := handlers.NewTestRequest(t, "POST", "/api/v1/account/signup", handlers.SignupRequest{
		Username: "alice",
		Email:    "a@x.com",
		Password: "secret1",
	})
	w := httptest.NewRecorder()
	newAuthHandler(svc).Signup(w, req)

	var resp map[string]interface{}
	handlers.AssertJSONResponse(t, w, http.StatusCreated, &resp)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "session-token", resp["token"])
	user := resp["user"].(map[string]interface{})
	assert.Equal(t, "alice", user["username"])
	assert.NotContains(t, strings.ToLower(w.Body.String()), "password")

	assert.Equal(t, "alice", gotUsername)
	assert.Equal(t, "a@x.com", gotEmail)
	assert.Equal(t, "secret1", gotPassword)

	cookie := sessionCookie(t, w)
	assert.Equal(t, "session-token", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, 7*24*60*60, cookie.MaxAge)
}

func TestSignup_Errors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"validation", models.NewValidationError("All fields are required"), 400, "bad_request", "All fields are required"},
		{"username taken", models.ErrUsernameTaken, 400, "conflict", "Username already exists"},
		{"email taken", models.ErrEmailTaken, 400, "conflict", "User with this email already exists"},
		{"internal", models.ErrInternalServer, 500, "internal_error", "Internal server error"},
		{"unexpected", errors.New("pq: something broke"), 500, "internal_error", "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &handlers.MockAuthService{
				SignupFunc: func(ctx context.Context, username, email, password string) (*services.AuthResult, error) {
					return nil, tt.err
				},
			}

			req := handlers.NewTestRequest(t, "POST", "/api/v1/account/signup", handlers.SignupRequest{Username: "alice"})
			w := httptest.NewRecorder()
			newAuthHandler(svc).Signup(w, req)

			resp := handlers.AssertErrorResponse(t, w, tt.status, tt.code)
			assert.Equal(t, tt.message, resp.Message)
			assert.Empty(t, w.Result().Cookies())
		})
	}
}

func TestSignup_InvalidBody(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/v1/account/signup", strings.NewReader("{"))
	w := httptest.NewRecorder()
	newAuthHandler(&handlers.MockAuthService{}).Signup(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
}

// ============================================================================
// Login / Logout / CheckAuth
// ============================================================================

func TestLogin_Success(t *testing.T) {
	var gotIP string
	svc := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, email, password, ipAddress string) (*services.AuthResult, error) {
			gotIP = ipAddress
			return &services.AuthResult{User: testUser(), Token: "session-token"}, nil
		},
	}

	req := handlers.NewTestRequest(t, "POST", "/api/v1/account/login", handlers.LoginRequest{
		Email:    "a@x.com",
		Password: "secret1",
	})
	req.RemoteAddr = "203.0.113.9:40000"
	w := httptest.NewRecorder()
	newAuthHandler(svc).Login(w, req)

	var resp map[string]interface{}
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "Logged in successfully", resp["message"])
	assert.Equal(t, "203.0.113.9", gotIP)
	assert.Equal(t, "session-token", sessionCookie(t, w).Value)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, email, password, ipAddress string) (*services.AuthResult, error) {
			return nil, models.ErrInvalidCredentials
		},
	}

	req := handlers.NewTestRequest(t, "POST", "/api/v1/account/login", handlers.LoginRequest{
		Email:    "a@x.com",
		Password: "wrong",
	})
	w := httptest.NewRecorder()
	newAuthHandler(svc).Login(w, req)

	resp := handlers.AssertErrorResponse(t, w, http.StatusUnauthorized, "unauthorized")
	assert.Equal(t, "Invalid credentials", resp.Message)
}

func TestLogin_MissingFieldsAnswerGenericUnauthorized(t *testing.T) {
	var gotEmail, gotPassword string
	svc := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, email, password, ipAddress string) (*services.AuthResult, error) {
			gotEmail, gotPassword = email, password
			return nil, models.ErrInvalidCredentials
		},
	}

	req := handlers.NewTestRequest(t, "POST", "/api/v1/account/login", handlers.LoginRequest{Email: "a@x.com"})
	w := httptest.NewRecorder()
	newAuthHandler(svc).Login(w, req)

	resp := handlers.AssertErrorResponse(t, w, http.StatusUnauthorized, "unauthorized")
	assert.Equal(t, "Invalid credentials", resp.Message)
	assert.Equal(t, "a@x.com", gotEmail)
	assert.Empty(t, gotPassword)
}

func TestLogin_MalformedBody(t *testing.T) {
	svc := &handlers.MockAuthService{}

	req := httptest.NewRequest("POST", "/api/v1/account/login", strings.NewReader(`{"email":`))
	w := httptest.NewRecorder()
	newAuthHandler(svc).Login(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
}

func TestLogout_ClearsCookie(t *testing.T) {
	var gotToken string
	svc := &handlers.MockAuthService{
		LogoutFunc: func(ctx context.Context, token string) { gotToken = token },
	}

	req := httptest.NewRequest("POST", "/api/v1/account/logout", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "session-token"})
	w := httptest.NewRecorder()
	newAuthHandler(svc).Logout(w, req)

	var resp map[string]interface{}
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "Logged out successfully", resp["message"])
	assert.Equal(t, "session-token", gotToken)

	cookie := sessionCookie(t, w)
	assert.Empty(t, cookie.Value)
	assert.Less(t, cookie.MaxAge, 0)
}

func TestLogout_WithoutCookie(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/v1/account/logout", nil)
	w := httptest.NewRecorder()
	newAuthHandler(&handlers.MockAuthService{}).Logout(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCheckAuth(t *testing.T) {
	req := handlers.WithUserContext(httptest.NewRequest("GET", "/api/v1/account/auth", nil), testUser())
	w := httptest.NewRecorder()
	newAuthHandler(&handlers.MockAuthService{}).CheckAuth(w, req)

	var resp struct {
		Success bool        `json:"success"`
		User    models.User `json:"user"`
	}
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, "alice", resp.User.Username)
}

func TestCheckAuth_NoUser(t *testing.T) {
	w := httptest.NewRecorder()
	newAuthHandler(&handlers.MockAuthService{}).CheckAuth(w, httptest.NewRequest("GET", "/api/v1/account/auth", nil))

	handlers.AssertErrorResponse(t, w, http.StatusUnauthorized, "unauthorized")
}

// ============================================================================
// VerifyEmail / ForgotPassword / ResetPassword
// ============================================================================

func TestVerifyEmail_Success(t *testing.T) {
	svc := &handlers.MockAuthService{
		VerifyEmailFunc: func(ctx context.Context, code string) (*models.User, error) {
			assert.Equal(t, "042917", code)
			u := testUser()
			u.IsVerified = true
			return u, nil
		},
	}

	req := handlers.NewTestRequest(t, "POST", "/api/v1/account/verify/email", handlers.VerifyEmailRequest{Code: "042917"})
	w := httptest.NewRecorder()
	newAuthHandler(svc).VerifyEmail(w, req)

	var resp map[string]interface{}
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, true, resp["user"].(map[string]interface{})["isVerified"])
}

func TestVerifyEmail_Rejections(t *testing.T) {
	tests := []struct {
		name string
		code string
	}{
		{"empty", ""},
		{"letters", "abcdef"},
		{"too short", "123"},
		{"unknown", "999999"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &handlers.MockAuthService{
				VerifyEmailFunc: func(ctx context.Context, code string) (*models.User, error) {
					return nil, models.ErrInvalidVerificationCode
				},
			}

			req := handlers.NewTestRequest(t, "POST", "/api/v1/account/verify/email", handlers.VerifyEmailRequest{Code: tt.code})
			w := httptest.NewRecorder()
			newAuthHandler(svc).VerifyEmail(w, req)

			resp := handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
			assert.Equal(t, "Invalid or expired verification code", resp.Message)
		})
	}
}

func TestForgotPassword(t *testing.T) {
	svc := &handlers.MockAuthService{}

	req := handlers.NewTestRequest(t, "POST", "/api/v1/account/forgot/password", handlers.ForgotPasswordRequest{Email: "a@x.com"})
	w := httptest.NewRecorder()
	newAuthHandler(svc).ForgotPassword(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestForgotPassword_UnknownEmail(t *testing.T) {
	svc := &handlers.MockAuthService{
		ForgotPasswordFunc: func(ctx context.Context, email string) error {
			return models.ErrNotFound
		},
	}

	req := handlers.NewTestRequest(t, "POST", "/api/v1/account/forgot/password", handlers.ForgotPasswordRequest{Email: "nobody@x.com"})
	w := httptest.NewRecorder()
	newAuthHandler(svc).ForgotPassword(w, req)

	resp := handlers.AssertErrorResponse(t, w, http.StatusNotFound, "not_found")
	assert.Equal(t, "User not found", resp.Message)
}

func TestForgotPassword_InvalidEmail(t *testing.T) {
	req := handlers.NewTestRequest(t, "POST", "/api/v1/account/forgot/password", handlers.ForgotPasswordRequest{Email: "nope"})
	w := httptest.NewRecorder()
	newAuthHandler(&handlers.MockAuthService{}).ForgotPassword(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
}

func TestResetPassword(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"success", nil, http.StatusOK, ""},
		{"weak password", models.NewValidationError("Password must be at least 6 characters long"), http.StatusBadRequest, "bad_request"},
		{"invalid token", models.ErrInvalidResetToken, http.StatusNotFound, "not_found"},
		{"internal", models.ErrInternalServer, http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotToken string
			svc := &handlers.MockAuthService{
				ResetPasswordFunc: func(ctx context.Context, token, newPassword string) error {
					gotToken = token
					return tt.err
				},
			}

			req := handlers.NewTestRequest(t, "POST", "/api/v1/account/reset/password/abc123", handlers.ResetPasswordRequest{Password: "newpass1"})
			req = handlers.WithURLParams(req, map[string]string{"token": "abc123"})
			w := httptest.NewRecorder()
			newAuthHandler(svc).ResetPassword(w, req)

			assert.Equal(t, "abc123", gotToken)
			if tt.err == nil {
				require.Equal(t, http.StatusOK, w.Code)
				return
			}
			handlers.AssertErrorResponse(t, w, tt.status, tt.code)
		})
	}
}
