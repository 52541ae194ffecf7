package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/BradenHooton/flixapi/internal/models"
	"github.com/google/uuid"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	CreateFunc                  func(ctx context.Context, user *models.User) (*models.User, error)
	GetByIDFunc                 func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc              func(ctx context.Context, email string) (*models.User, error)
	ExistsByUsernameFunc        func(ctx context.Context, username string) (bool, error)
	ExistsByEmailFunc           func(ctx context.Context, email string) (bool, error)
	UpdateLastLoginFunc         func(ctx context.Context, id string, at time.Time) error
	ConsumeVerificationCodeFunc func(ctx context.Context, code string, now time.Time) (*models.User, error)
	SetResetTokenFunc           func(ctx context.Context, email, tokenHash string, expiresAt, now time.Time) (*models.User, error)
	ConsumeResetTokenFunc       func(ctx context.Context, tokenHash, newPasswordHash string, now time.Time) (*models.User, error)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	if m.ExistsByUsernameFunc != nil {
		return m.ExistsByUsernameFunc(ctx, username)
	}
	return false, nil
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if m.ExistsByEmailFunc != nil {
		return m.ExistsByEmailFunc(ctx, email)
	}
	return false, nil
}

func (m *MockUserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	if m.UpdateLastLoginFunc != nil {
		return m.UpdateLastLoginFunc(ctx, id, at)
	}
	return nil
}

func (m *MockUserRepository) ConsumeVerificationCode(ctx context.Context, code string, now time.Time) (*models.User, error) {
	if m.ConsumeVerificationCodeFunc != nil {
		return m.ConsumeVerificationCodeFunc(ctx, code, now)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) SetResetToken(ctx context.Context, email, tokenHash string, expiresAt, now time.Time) (*models.User, error) {
	if m.SetResetTokenFunc != nil {
		return m.SetResetTokenFunc(ctx, email, tokenHash, expiresAt, now)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) ConsumeResetToken(ctx context.Context, tokenHash, newPasswordHash string, now time.Time) (*models.User, error) {
	if m.ConsumeResetTokenFunc != nil {
		return m.ConsumeResetTokenFunc(ctx, tokenHash, newPasswordHash, now)
	}
	return nil, models.ErrNotFound
}

// MockEmailService records every email and fails with Err when set
type MockEmailService struct {
	mu    sync.Mutex
	Err   error
	Sent  []SentEmail
	Codes map[string]string // email -> last verification code
	Links map[string]string // email -> last reset URL
}

// SentEmail is one call recorded by MockEmailService
type SentEmail struct {
	Kind string
	To   string
}

func (m *MockEmailService) record(kind, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, SentEmail{Kind: kind, To: to})
	return nil
}

func (m *MockEmailService) SendVerificationEmail(ctx context.Context, email, code string) error {
	if err := m.record("verification", email); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Codes == nil {
		m.Codes = map[string]string{}
	}
	m.Codes[email] = code
	return nil
}

func (m *MockEmailService) SendWelcomeEmail(ctx context.Context, email, username string) error {
	return m.record("welcome", email)
}

func (m *MockEmailService) SendPasswordResetEmail(ctx context.Context, email, resetURL string) error {
	if err := m.record("password_reset", email); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Links == nil {
		m.Links = map[string]string{}
	}
	m.Links[email] = resetURL
	return nil
}

func (m *MockEmailService) SendResetSuccessEmail(ctx context.Context, email string) error {
	return m.record("reset_success", email)
}

// Kinds lists the kinds of the recorded emails in order
func (m *MockEmailService) Kinds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	kinds := make([]string, 0, len(m.Sent))
	for _, s := range m.Sent {
		kinds = append(kinds, s.Kind)
	}
	return kinds
}

// MockSearchHistoryRepository implements SearchHistoryRepository for testing
type MockSearchHistoryRepository struct {
	AddFunc    func(ctx context.Context, userID string, entry models.SearchEntry) (bool, error)
	ListFunc   func(ctx context.Context, userID string) ([]models.SearchEntry, error)
	RemoveFunc func(ctx context.Context, userID string, contentID int64) error
}

func (m *MockSearchHistoryRepository) Add(ctx context.Context, userID string, entry models.SearchEntry) (bool, error) {
	if m.AddFunc != nil {
		return m.AddFunc(ctx, userID, entry)
	}
	return true, nil
}

func (m *MockSearchHistoryRepository) List(ctx context.Context, userID string) ([]models.SearchEntry, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, userID)
	}
	return []models.SearchEntry{}, nil
}

func (m *MockSearchHistoryRepository) Remove(ctx context.Context, userID string, contentID int64) error {
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, userID, contentID)
	}
	return nil
}

// MockTMDBClient implements TMDBClient for testing
type MockTMDBClient struct {
	GetFunc     func(ctx context.Context, path string, query url.Values) (json.RawMessage, error)
	ResultsFunc func(ctx context.Context, path string, query url.Values) ([]json.RawMessage, error)
	SearchFunc  func(ctx context.Context, kind, query string) ([]json.RawMessage, error)
}

func (m *MockTMDBClient) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, path, query)
	}
	return nil, models.ErrNotFound
}

func (m *MockTMDBClient) Results(ctx context.Context, path string, query url.Values) ([]json.RawMessage, error) {
	if m.ResultsFunc != nil {
		return m.ResultsFunc(ctx, path, query)
	}
	return []json.RawMessage{}, nil
}

func (m *MockTMDBClient) Search(ctx context.Context, kind, query string) ([]json.RawMessage, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, kind, query)
	}
	return []json.RawMessage{}, nil
}

// memUserStore is an in-memory UserRepository with the same uniqueness and
// single-use guarantees as the Postgres store
type memUserStore struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: map[string]*models.User{}}
}

func (s *memUserStore) copyOf(u *models.User) *models.User {
	c := *u
	return &c
}

func (s *memUserStore) Create(ctx context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == user.Username {
			return nil, models.ErrUsernameTaken
		}
		if u.Email == user.Email {
			return nil, models.ErrEmailTaken
		}
	}
	stored := s.copyOf(user)
	stored.ID = uuid.New().String()
	s.users[stored.ID] = stored
	return s.copyOf(stored), nil
}

func (s *memUserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return s.copyOf(u), nil
	}
	return nil, models.ErrNotFound
}

func (s *memUserStore) find(match func(*models.User) bool) *models.User {
	for _, u := range s.users {
		if match(u) {
			return u
		}
	}
	return nil
}

func (s *memUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u := s.find(func(u *models.User) bool { return u.Email == email }); u != nil {
		return s.copyOf(u), nil
	}
	return nil, models.ErrNotFound
}

func (s *memUserStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(func(u *models.User) bool { return u.Username == username }) != nil, nil
}

func (s *memUserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(func(u *models.User) bool { return u.Email == email }) != nil, nil
}

func (s *memUserStore) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.ErrNotFound
	}
	u.LastLogin = at
	return nil
}

func (s *memUserStore) ConsumeVerificationCode(ctx context.Context, code string, now time.Time) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.find(func(u *models.User) bool {
		return u.VerificationToken != nil && *u.VerificationToken == code && u.HasPendingVerification(now)
	})
	if u == nil {
		return nil, models.ErrNotFound
	}
	u.IsVerified = true
	u.VerificationToken = nil
	u.VerificationExpiresAt = nil
	return s.copyOf(u), nil
}

func (s *memUserStore) SetResetToken(ctx context.Context, email, tokenHash string, expiresAt, now time.Time) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.find(func(u *models.User) bool { return u.Email == email })
	if u == nil {
		return nil, models.ErrNotFound
	}
	u.ResetPasswordTokenHash = &tokenHash
	u.ResetPasswordExpiresAt = &expiresAt
	return s.copyOf(u), nil
}

func (s *memUserStore) ConsumeResetToken(ctx context.Context, tokenHash, newPasswordHash string, now time.Time) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.find(func(u *models.User) bool {
		return u.ResetPasswordTokenHash != nil && *u.ResetPasswordTokenHash == tokenHash && u.HasPendingReset(now)
	})
	if u == nil {
		return nil, models.ErrNotFound
	}
	u.PasswordHash = newPasswordHash
	u.ResetPasswordTokenHash = nil
	u.ResetPasswordExpiresAt = nil
	return s.copyOf(u), nil
}

// NewTestUser creates a verified user for testing
func NewTestUser(id, username, email string) *models.User {
	now := time.Now()
	return &models.User{
		ID:             id,
		Username:       username,
		Email:          email,
		PasswordHash:   "$2a$04$fakehashfortesting",
		IsVerified:     true,
		LastLogin:      now,
		ProfilePicture: models.ProfilePictures[0],
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
