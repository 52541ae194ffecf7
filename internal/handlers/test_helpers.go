package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/flixapi/internal/auth"
	"github.com/BradenHooton/flixapi/internal/models"
	"github.com/BradenHooton/flixapi/internal/services"
	pkghttp "github.com/BradenHooton/flixapi/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithUserContext attaches user as if the session middleware had run
func WithUserContext(req *http.Request, user *models.User) *http.Request {
	ctx := context.WithValue(req.Context(), auth.UserContextKey, user)
	return req.WithContext(ctx)
}

// WithURLParams sets chi route parameters on req
func WithURLParams(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) pkghttp.ErrorResponse {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.False(t, resp.Success)
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
	return resp
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	SignupFunc         func(ctx context.Context, username, email, password string) (*services.AuthResult, error)
	LoginFunc          func(ctx context.Context, email, password, ipAddress string) (*services.AuthResult, error)
	LogoutFunc         func(ctx context.Context, token string)
	VerifyEmailFunc    func(ctx context.Context, code string) (*models.User, error)
	ForgotPasswordFunc func(ctx context.Context, email string) error
	ResetPasswordFunc  func(ctx context.Context, token, newPassword string) error
}

func (m *MockAuthService) Signup(ctx context.Context, username, email, password string) (*services.AuthResult, error) {
	if m.SignupFunc != nil {
		return m.SignupFunc(ctx, username, email, password)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAuthService) Login(ctx context.Context, email, password, ipAddress string) (*services.AuthResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password, ipAddress)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAuthService) Logout(ctx context.Context, token string) {
	if m.LogoutFunc != nil {
		m.LogoutFunc(ctx, token)
	}
}

func (m *MockAuthService) VerifyEmail(ctx context.Context, code string) (*models.User, error) {
	if m.VerifyEmailFunc != nil {
		return m.VerifyEmailFunc(ctx, code)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAuthService) ForgotPassword(ctx context.Context, email string) error {
	if m.ForgotPasswordFunc != nil {
		return m.ForgotPasswordFunc(ctx, email)
	}
	return nil
}

func (m *MockAuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, token, newPassword)
	}
	return nil
}

// MockContentService implements ContentServiceInterface for testing
type MockContentService struct {
	TrendingFunc   func(ctx context.Context, media string) (json.RawMessage, error)
	TrailersFunc   func(ctx context.Context, media, id string) ([]json.RawMessage, error)
	DetailsFunc    func(ctx context.Context, media, id string) (json.RawMessage, error)
	SimilarFunc    func(ctx context.Context, media, id string) ([]json.RawMessage, error)
	ByCategoryFunc func(ctx context.Context, media, category string) ([]json.RawMessage, error)
}

func (m *MockContentService) Trending(ctx context.Context, media string) (json.RawMessage, error) {
	if m.TrendingFunc != nil {
		return m.TrendingFunc(ctx, media)
	}
	return nil, models.ErrNotFound
}

func (m *MockContentService) Trailers(ctx context.Context, media, id string) ([]json.RawMessage, error) {
	if m.TrailersFunc != nil {
		return m.TrailersFunc(ctx, media, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockContentService) Details(ctx context.Context, media, id string) (json.RawMessage, error) {
	if m.DetailsFunc != nil {
		return m.DetailsFunc(ctx, media, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockContentService) Similar(ctx context.Context, media, id string) ([]json.RawMessage, error) {
	if m.SimilarFunc != nil {
		return m.SimilarFunc(ctx, media, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockContentService) ByCategory(ctx context.Context, media, category string) ([]json.RawMessage, error) {
	if m.ByCategoryFunc != nil {
		return m.ByCategoryFunc(ctx, media, category)
	}
	return nil, models.ErrNotFound
}

// MockSearchService implements SearchServiceInterface for testing
type MockSearchService struct {
	SearchFunc            func(ctx context.Context, userID, searchType, query string) ([]json.RawMessage, error)
	HistoryFunc           func(ctx context.Context, userID string) ([]models.SearchEntry, error)
	RemoveFromHistoryFunc func(ctx context.Context, userID, contentID string) error
}

func (m *MockSearchService) Search(ctx context.Context, userID, searchType, query string) ([]json.RawMessage, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, userID, searchType, query)
	}
	return nil, models.ErrNotFound
}

func (m *MockSearchService) History(ctx context.Context, userID string) ([]models.SearchEntry, error) {
	if m.HistoryFunc != nil {
		return m.HistoryFunc(ctx, userID)
	}
	return []models.SearchEntry{}, nil
}

func (m *MockSearchService) RemoveFromHistory(ctx context.Context, userID, contentID string) error {
	if m.RemoveFromHistoryFunc != nil {
		return m.RemoveFromHistoryFunc(ctx, userID, contentID)
	}
	return nil
}
