package services

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"time"

	"github.com/BradenHooton/flixapi/internal/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/jordan-wright/email"
)

// NewEmailSender builds the sender selected by cfg.Provider
func NewEmailSender(ctx context.Context, cfg config.EmailConfig, logger *slog.Logger) (EmailSender, error) {
	switch cfg.Provider {
	case "ses":
		sender, err := NewSESSender(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return sender, nil
	case "smtp":
		return NewSMTPSender(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}

func fromHeader(cfg config.EmailConfig) string {
	if cfg.FromName == "" {
		return cfg.FromAddress
	}
	return (&mail.Address{Name: cfg.FromName, Address: cfg.FromAddress}).String()
}

// sesAPI is the subset of the SES client used here
type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESSender sends emails using AWS SES
type SESSender struct {
	client sesAPI
	from   string
	logger *slog.Logger
}

// NewSESSender loads the default AWS credential chain for cfg.AWSRegion
func NewSESSender(ctx context.Context, cfg config.EmailConfig, logger *slog.Logger) (*SESSender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newSESSender(ses.NewFromConfig(awsCfg), fromHeader(cfg), logger), nil
}

func newSESSender(client sesAPI, from string, logger *slog.Logger) *SESSender {
	return &SESSender{client: client, from: from, logger: logger}
}

func (s *SESSender) Send(ctx context.Context, msg EmailMessage) error {
	input := &ses.SendEmailInput{
		Source: aws.String(s.from),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(msg.Subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data:    aws.String(msg.HTML),
					Charset: aws.String("UTF-8"),
				},
				Text: &types.Content{
					Data:    aws.String(msg.Text),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}

	s.logger.Debug("ses accepted message", slog.String("message_id", aws.ToString(result.MessageId)))
	return nil
}

// smtpTimeout bounds a delivery when the caller's context carries no deadline
const smtpTimeout = 30 * time.Second

// smtpSendFunc delivers e to addr before ctx ends. Replaced in tests.
type smtpSendFunc func(ctx context.Context, e *email.Email, addr string, a smtp.Auth) error

// SMTPSender sends emails over SMTP with STARTTLS when the server offers it
type SMTPSender struct {
	addr   string
	auth   smtp.Auth
	from   string
	send   smtpSendFunc
	logger *slog.Logger
}

// NewSMTPSender creates an SMTPSender. Auth is skipped when no username is configured.
func NewSMTPSender(cfg config.EmailConfig, logger *slog.Logger) *SMTPSender {
	var auth smtp.Auth
	if cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
	}
	return &SMTPSender{
		addr:   net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort)),
		auth:   auth,
		from:   fromHeader(cfg),
		send:   deliverSMTP,
		logger: logger,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg EmailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, smtpTimeout)
		defer cancel()
	}

	e := email.NewEmail()
	e.From = s.from
	e.To = []string{msg.To}
	e.Subject = msg.Subject
	e.Text = []byte(msg.Text)
	e.HTML = []byte(msg.HTML)

	if err := s.send(ctx, e, s.addr, s.auth); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("smtp send: %w", ctxErr)
		}
		return fmt.Errorf("smtp send: %w", err)
	}

	s.logger.Debug("smtp accepted message", slog.String("addr", s.addr))
	return nil
}

// deliverSMTP runs the SMTP exchange on a connection bound to ctx.
// The message itself is rendered by jordan-wright/email.
func deliverSMTP(ctx context.Context, e *email.Email, addr string, a smtp.Auth) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	from, err := mail.ParseAddress(e.From)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	raw, err := e.Bytes()
	if err != nil {
		return err
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return err
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return err
		}
	}
	if a != nil {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(a); err != nil {
				return err
			}
		}
	}

	if err := client.Mail(from.Address); err != nil {
		return err
	}
	for _, to := range e.To {
		if err := client.Rcpt(to); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
