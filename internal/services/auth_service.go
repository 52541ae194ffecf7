package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/flixapi/internal/auth"
	"github.com/BradenHooton/flixapi/internal/metrics"
	"github.com/BradenHooton/flixapi/internal/models"
	pkgauth "github.com/BradenHooton/flixapi/pkg/auth"
	pkglogger "github.com/BradenHooton/flixapi/pkg/logger"
)

// AuthServiceConfig holds the account flow settings
type AuthServiceConfig struct {
	VerificationTTL        time.Duration
	ResetTokenTTL          time.Duration
	ClientURL              string // base of the emailed reset link
	MaskAccountEnumeration bool   // forgot-password answers 200 for unknown emails
}

// AuthResult is a user profile (without password hash) and its new session token
type AuthResult struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

// AuthService implements signup, login, logout, email verification and password reset
type AuthService struct {
	repo    UserRepository
	hasher  PasswordHasher
	tm      *auth.TokenManager
	email   EmailService
	cfg     AuthServiceConfig
	logger  *slog.Logger
	audit   *pkglogger.AuditLogger
	metrics *metrics.Metrics
	timing  *auth.TimingDelay
	now     func() time.Time
}

// NewAuthService creates a new AuthService. audit and m may be nil.
func NewAuthService(
	repo UserRepository,
	hasher PasswordHasher,
	tm *auth.TokenManager,
	email EmailService,
	cfg AuthServiceConfig,
	logger *slog.Logger,
	audit *pkglogger.AuditLogger,
	m *metrics.Metrics,
) *AuthService {
	if cfg.VerificationTTL <= 0 {
		cfg.VerificationTTL = 24 * time.Hour
	}
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = 2 * time.Hour
	}
	cfg.ClientURL = strings.TrimRight(cfg.ClientURL, "/")

	return &AuthService{
		repo:    repo,
		hasher:  hasher,
		tm:      tm,
		email:   email,
		cfg:     cfg,
		logger:  logger,
		audit:   audit,
		metrics: m,
		now:     time.Now,
	}
}

// SetClock replaces the time source used for expiries and last-login stamps
func (s *AuthService) SetClock(now func() time.Time) {
	s.now = now
}

// SetTimingDelay pads failed logins to a uniform duration
func (s *AuthService) SetTimingDelay(td *auth.TimingDelay) {
	s.timing = td
}

// Signup registers a user in the pending-verification state and starts a session.
// The verification email must be accepted before the user is stored.
func (s *AuthService) Signup(ctx context.Context, username, email, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	email = normalizeEmail(email)

	if err := validateSignup(username, email, password); err != nil {
		s.recordFailure(ctx, pkglogger.EventSignup, "", email, "validation")
		return nil, err
	}

	taken, err := s.repo.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, s.internal(ctx, pkglogger.EventSignup, "failed to check username", err)
	}
	if taken {
		s.recordFailure(ctx, pkglogger.EventSignup, "", email, "username_taken")
		return nil, models.ErrUsernameTaken
	}

	taken, err = s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, s.internal(ctx, pkglogger.EventSignup, "failed to check email", err)
	}
	if taken {
		s.recordFailure(ctx, pkglogger.EventSignup, "", email, "email_taken")
		return nil, models.ErrEmailTaken
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, s.internal(ctx, pkglogger.EventSignup, "failed to hash password", err)
	}

	code, err := pkgauth.GenerateVerificationCode()
	if err != nil {
		return nil, s.internal(ctx, pkglogger.EventSignup, "failed to generate verification code", err)
	}

	now := s.now()
	user := models.NewUser(username, email, passwordHash, code, now.Add(s.cfg.VerificationTTL), now)

	if err := s.email.SendVerificationEmail(ctx, email, code); err != nil {
		return nil, s.internal(ctx, pkglogger.EventSignup, "verification email not sent, signup aborted", err)
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			// Lost a race against a concurrent signup for the same identity
			s.recordFailure(ctx, pkglogger.EventSignup, "", email, "conflict")
			return nil, err
		}
		return nil, s.internal(ctx, pkglogger.EventSignup, "failed to create user", err)
	}

	result, err := s.startSession(created)
	if err != nil {
		return nil, s.internal(ctx, pkglogger.EventSignup, "failed to issue session token", err)
	}

	s.logger.Info("user registered", slog.String("user_id", created.ID))
	s.recordSuccess(ctx, pkglogger.EventSignup, created.ID, email)
	return result, nil
}

// Login checks credentials and starts a session. Unknown emails and wrong
// passwords both return models.ErrInvalidCredentials after the same delay.
func (s *AuthService) Login(ctx context.Context, email, password, ipAddress string) (*AuthResult, error) {
	start := time.Now()
	email = normalizeEmail(email)

	fail := func(userID, reason string) error {
		s.timing.WaitFrom(ctx, start, false)
		s.logger.Info("login failed: invalid credentials")
		s.audit.LogAuthAttempt(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventLogin,
			UserID:        userID,
			Email:         email,
			IPAddress:     ipAddress,
			FailureReason: reason,
		})
		s.metrics.RecordAuthEvent(pkglogger.EventLogin, metrics.OutcomeFailure)
		return models.ErrInvalidCredentials
	}

	if email == "" || password == "" {
		return nil, fail("", "missing_credentials")
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fail("", "invalid_credentials")
		}
		return nil, s.internal(ctx, pkglogger.EventLogin, "failed to get user by email", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, fail(user.ID, "invalid_credentials")
	}

	now := s.now()
	if err := s.repo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, s.internal(ctx, pkglogger.EventLogin, "failed to update last login", err)
	}
	user.LastLogin = now

	result, err := s.startSession(user)
	if err != nil {
		return nil, s.internal(ctx, pkglogger.EventLogin, "failed to issue session token", err)
	}

	s.timing.WaitFrom(ctx, start, true)
	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	s.audit.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventLogin,
		UserID:    user.ID,
		Email:     email,
		IPAddress: ipAddress,
		Success:   true,
	})
	s.metrics.RecordAuthEvent(pkglogger.EventLogin, metrics.OutcomeSuccess)
	return result, nil
}

// Logout is stateless: the caller clears the cookie and the token stays
// valid until it expires. A resolvable token is only used for the audit trail.
func (s *AuthService) Logout(ctx context.Context, token string) {
	var userID string
	if claims, err := s.tm.ValidateToken(token); err == nil {
		userID = claims.UserID
	}

	s.audit.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventLogout,
		UserID:    userID,
		Success:   true,
	})
	s.metrics.RecordAuthEvent(pkglogger.EventLogout, metrics.OutcomeSuccess)
}

// VerifyEmail consumes a pending verification code and marks its user verified.
// The welcome email is best-effort.
func (s *AuthService) VerifyEmail(ctx context.Context, code string) (*models.User, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		s.recordFailure(ctx, pkglogger.EventVerifyEmail, "", "", "missing_code")
		return nil, models.ErrInvalidVerificationCode
	}

	user, err := s.repo.ConsumeVerificationCode(ctx, code, s.now())
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.recordFailure(ctx, pkglogger.EventVerifyEmail, "", "", "invalid_or_expired_code")
			return nil, models.ErrInvalidVerificationCode
		}
		return nil, s.internal(ctx, pkglogger.EventVerifyEmail, "failed to consume verification code", err)
	}

	if err := s.email.SendWelcomeEmail(ctx, user.Email, user.Username); err != nil {
		s.logger.Warn("welcome email not sent",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
	}

	user.PasswordHash = ""
	s.logger.Info("email verified", slog.String("user_id", user.ID))
	s.audit.LogAccountAction(ctx, pkglogger.EventVerifyEmail, user.ID, nil)
	s.recordSuccess(ctx, pkglogger.EventVerifyEmail, user.ID, user.Email)
	return user, nil
}

// ForgotPassword stores a fresh reset token for the account and emails the reset link.
// Unknown emails return models.ErrNotFound unless enumeration masking is on.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		s.recordFailure(ctx, pkglogger.EventForgotPassword, "", "", "validation")
		return models.NewValidationError("Email is required")
	}

	token, tokenHash, err := pkgauth.GenerateResetToken()
	if err != nil {
		return s.internal(ctx, pkglogger.EventForgotPassword, "failed to generate reset token", err)
	}

	now := s.now()
	user, err := s.repo.SetResetToken(ctx, email, tokenHash, now.Add(s.cfg.ResetTokenTTL), now)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.recordFailure(ctx, pkglogger.EventForgotPassword, "", email, "unknown_email")
			if s.cfg.MaskAccountEnumeration {
				return nil
			}
			return fmt.Errorf("%w: user not found", models.ErrNotFound)
		}
		return s.internal(ctx, pkglogger.EventForgotPassword, "failed to store reset token", err)
	}

	if err := s.email.SendPasswordResetEmail(ctx, user.Email, s.ResetURL(token)); err != nil {
		if s.cfg.MaskAccountEnumeration {
			s.logger.Error("password reset email not sent",
				slog.String("user_id", user.ID),
				slog.Any("error", err))
			return nil
		}
		return s.internal(ctx, pkglogger.EventForgotPassword, "password reset email not sent", err)
	}

	s.audit.LogAccountAction(ctx, pkglogger.EventForgotPassword, user.ID, map[string]string{
		"expires_at": now.Add(s.cfg.ResetTokenTTL).UTC().Format(time.RFC3339),
	})
	s.recordSuccess(ctx, pkglogger.EventForgotPassword, user.ID, email)
	return nil
}

// ResetURL is the frontend link that carries token
func (s *AuthService) ResetURL(token string) string {
	return s.cfg.ClientURL + "/reset-password/" + token
}

// ResetPassword swaps in newPassword for the account holding token and spends the token.
// The confirmation email is best-effort.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		s.recordFailure(ctx, pkglogger.EventResetPassword, "", "", "weak_password")
		return models.NewValidationError(err.Error())
	}

	token = strings.TrimSpace(token)
	if token == "" {
		s.recordFailure(ctx, pkglogger.EventResetPassword, "", "", "missing_token")
		return models.ErrInvalidResetToken
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return s.internal(ctx, pkglogger.EventResetPassword, "failed to hash password", err)
	}

	user, err := s.repo.ConsumeResetToken(ctx, pkgauth.HashResetToken(token), passwordHash, s.now())
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.recordFailure(ctx, pkglogger.EventResetPassword, "", "", "invalid_or_expired_token")
			return models.ErrInvalidResetToken
		}
		return s.internal(ctx, pkglogger.EventResetPassword, "failed to consume reset token", err)
	}

	if err := s.email.SendResetSuccessEmail(ctx, user.Email); err != nil {
		s.logger.Warn("reset confirmation email not sent",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
	}

	s.logger.Info("password reset", slog.String("user_id", user.ID))
	s.audit.LogAccountAction(ctx, pkglogger.EventResetPassword, user.ID, nil)
	s.recordSuccess(ctx, pkglogger.EventResetPassword, user.ID, user.Email)
	return nil
}

// CheckAuth resolves a session token to its user, without the password hash
func (s *AuthService) CheckAuth(ctx context.Context, token string) (*models.User, error) {
	user, err := auth.ResolveSession(ctx, s.tm, s.repo, token)
	if err != nil {
		if errors.Is(err, models.ErrUnauthorized) || errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("failed to resolve session", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return user, nil
}

func (s *AuthService) startSession(user *models.User) (*AuthResult, error) {
	token, expiresAt, err := s.tm.GenerateSessionToken(user.ID)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return &AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// internal logs err and returns models.ErrInternalServer
func (s *AuthService) internal(ctx context.Context, event, msg string, err error) error {
	s.logger.ErrorContext(ctx, msg, slog.String("event", event), slog.Any("error", err))
	s.metrics.RecordAuthEvent(event, metrics.OutcomeError)
	return models.ErrInternalServer
}

func (s *AuthService) recordFailure(ctx context.Context, event, userID, email, reason string) {
	s.audit.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType:     event,
		UserID:        userID,
		Email:         email,
		FailureReason: reason,
	})
	s.metrics.RecordAuthEvent(event, metrics.OutcomeFailure)
}

func (s *AuthService) recordSuccess(ctx context.Context, event, userID, email string) {
	s.audit.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: event,
		UserID:    userID,
		Email:     email,
		Success:   true,
	})
	s.metrics.RecordAuthEvent(event, metrics.OutcomeSuccess)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateSignup(username, email, password string) error {
	if username == "" || email == "" || password == "" {
		return models.NewValidationError("All fields are required")
	}
	if err := validate.Var(email, "email"); err != nil {
		return models.NewValidationError("Invalid email")
	}
	if err := pkgauth.ValidatePassword(password); err != nil {
		return models.NewValidationError(err.Error())
	}
	return nil
}
