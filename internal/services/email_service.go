package services

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	pkglogger "github.com/BradenHooton/flixapi/pkg/logger"
)

// EmailService sends the account lifecycle emails
type EmailService interface {
	SendVerificationEmail(ctx context.Context, email, code string) error
	SendWelcomeEmail(ctx context.Context, email, username string) error
	SendPasswordResetEmail(ctx context.Context, email, resetURL string) error
	SendResetSuccessEmail(ctx context.Context, email string) error
}

// EmailMessage is a rendered email ready for delivery
type EmailMessage struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// EmailSender delivers a rendered message through a provider (SES, SMTP)
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// TemplatedEmailService renders account emails and hands them to an EmailSender
type TemplatedEmailService struct {
	sender EmailSender
	logger *slog.Logger
}

// NewEmailService creates a TemplatedEmailService on top of sender
func NewEmailService(sender EmailSender, logger *slog.Logger) *TemplatedEmailService {
	return &TemplatedEmailService{sender: sender, logger: logger}
}

// SendVerificationEmail sends the 6-digit code that verifies the address
func (s *TemplatedEmailService) SendVerificationEmail(ctx context.Context, email, code string) error {
	body := fmt.Sprintf(`<p>Thank you for signing up! Your verification code is:</p>
<p class="code">%s</p>
<p>Enter this code on the verification page to complete your registration.</p>
<p>This code will expire in 24 hours for security reasons.</p>
<div class="warning">If you didn't create an account with us, please ignore this email.</div>`,
		html.EscapeString(code))

	text := fmt.Sprintf(`Verify Your Email

Thank you for signing up! Your verification code is: %s

Enter this code on the verification page to complete your registration.
This code will expire in 24 hours for security reasons.

If you didn't create an account with us, please ignore this email.
`, code)

	return s.send(ctx, "verification", EmailMessage{
		To:      email,
		Subject: "Verify your email",
		HTML:    renderLayout("Verify Your Email", body),
		Text:    text,
	})
}

// SendWelcomeEmail greets a user whose email was just verified
func (s *TemplatedEmailService) SendWelcomeEmail(ctx context.Context, email, username string) error {
	body := fmt.Sprintf(`<p>Welcome, %s!</p>
<p>Your email is verified and your account is ready. Start browsing trending movies and TV shows now.</p>`,
		html.EscapeString(username))

	text := fmt.Sprintf(`Welcome, %s!

Your email is verified and your account is ready. Start browsing trending movies and TV shows now.
`, username)

	return s.send(ctx, "welcome", EmailMessage{
		To:      email,
		Subject: "Welcome to Netflix Clone",
		HTML:    renderLayout("Welcome", body),
		Text:    text,
	})
}

// SendPasswordResetEmail sends the link embedding the single-use reset token
func (s *TemplatedEmailService) SendPasswordResetEmail(ctx context.Context, email, resetURL string) error {
	link := html.EscapeString(resetURL)
	body := fmt.Sprintf(`<p>We received a request to reset your password. Click the button below to choose a new one:</p>
<p><a href="%s" class="button">Reset Password</a></p>
<p>Or copy and paste this link in your browser:<br><code>%s</code></p>
<div class="warning">This link will expire in 2 hours. If you didn't request a password reset, please ignore this email.</div>`,
		link, link)

	text := fmt.Sprintf(`Password Reset

We received a request to reset your password. Open the link below to choose a new one:

%s

This link will expire in 2 hours. If you didn't request a password reset, please ignore this email.
`, resetURL)

	return s.send(ctx, "password_reset", EmailMessage{
		To:      email,
		Subject: "Reset your password",
		HTML:    renderLayout("Password Reset", body),
		Text:    text,
	})
}

// SendResetSuccessEmail confirms a completed password reset
func (s *TemplatedEmailService) SendResetSuccessEmail(ctx context.Context, email string) error {
	body := `<p>Your password has been reset successfully.</p>
<div class="warning">If you did not initiate this reset, please contact our support team immediately.</div>`

	text := `Password Reset Successful

Your password has been reset successfully.

If you did not initiate this reset, please contact our support team immediately.
`

	return s.send(ctx, "reset_success", EmailMessage{
		To:      email,
		Subject: "Password reset successful",
		HTML:    renderLayout("Password Reset Successful", body),
		Text:    text,
	})
}

func (s *TemplatedEmailService) send(ctx context.Context, kind string, msg EmailMessage) error {
	if err := s.sender.Send(ctx, msg); err != nil {
		s.logger.Error("failed to send email",
			slog.String("kind", kind),
			slog.String("email", pkglogger.SanitizedEmail(msg.To)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send %s email: %w", kind, err)
	}

	s.logger.Info("email sent",
		slog.String("kind", kind),
		slog.String("email", pkglogger.SanitizedEmail(msg.To)))
	return nil
}

func renderLayout(title, body string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #e50914; color: white; padding: 20px; text-align: center; border-radius: 4px; }
        .content { padding: 20px 0; }
        .code { font-size: 32px; font-weight: bold; letter-spacing: 5px; color: #e50914; text-align: center; }
        .button { display: inline-block; background-color: #e50914; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; margin: 20px 0; }
        .footer { color: #666; font-size: 12px; margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee; }
        .warning { background-color: #fff3cd; padding: 10px; border-left: 4px solid #ffc107; margin: 10px 0; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header"><h1>%s</h1></div>
        <div class="content">
%s
        </div>
        <div class="footer">
            <p>This is an automated message. Please do not reply to this email.</p>
        </div>
    </div>
</body>
</html>
`, html.EscapeString(title), body)
}
