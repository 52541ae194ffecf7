package services

import (
	"context"
	"errors"
	"net"
	"net/smtp"
	"sync"
	"testing"
	"time"

	"github.com/BradenHooton/flixapi/internal/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	msgs []EmailMessage
	err  error
}

func (r *recordingSender) Send(ctx context.Context, msg EmailMessage) error {
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestTemplatedEmailService_Renders(t *testing.T) {
	sender := &recordingSender{}
	svc := NewEmailService(sender, discardLogger())
	ctx := context.Background()

	require.NoError(t, svc.SendVerificationEmail(ctx, "a@x.com", "042917"))
	require.NoError(t, svc.SendWelcomeEmail(ctx, "a@x.com", "<b>alice</b>"))
	require.NoError(t, svc.SendPasswordResetEmail(ctx, "a@x.com", "http://localhost:5173/reset-password/abc123"))
	require.NoError(t, svc.SendResetSuccessEmail(ctx, "a@x.com"))

	require.Len(t, sender.msgs, 4)

	verification := sender.msgs[0]
	assert.Equal(t, "a@x.com", verification.To)
	assert.Equal(t, "Verify your email", verification.Subject)
	assert.Contains(t, verification.HTML, "042917")
	assert.Contains(t, verification.Text, "042917")

	welcome := sender.msgs[1]
	assert.Contains(t, welcome.HTML, "&lt;b&gt;alice&lt;/b&gt;")
	assert.NotContains(t, welcome.HTML, "<b>alice</b>")

	reset := sender.msgs[2]
	assert.Contains(t, reset.HTML, `href="http://localhost:5173/reset-password/abc123"`)
	assert.Contains(t, reset.Text, "http://localhost:5173/reset-password/abc123")

	assert.Equal(t, "Password reset successful", sender.msgs[3].Subject)
}

func TestTemplatedEmailService_SenderError(t *testing.T) {
	svc := NewEmailService(&recordingSender{err: errors.New("boom")}, discardLogger())

	err := svc.SendVerificationEmail(context.Background(), "a@x.com", "123456")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "verification")
}

func TestSESSender_Send(t *testing.T) {
	client := &fakeSES{}
	sender := newSESSender(client, "Netflix Clone <no-reply@example.com>", discardLogger())

	err := sender.Send(context.Background(), EmailMessage{
		To:      "a@x.com",
		Subject: "Subject",
		HTML:    "<p>hi</p>",
		Text:    "hi",
	})

	require.NoError(t, err)
	require.NotNil(t, client.input)
	assert.Equal(t, "Netflix Clone <no-reply@example.com>", aws.ToString(client.input.Source))
	assert.Equal(t, []string{"a@x.com"}, client.input.Destination.ToAddresses)
	assert.Equal(t, "Subject", aws.ToString(client.input.Message.Subject.Data))
	assert.Equal(t, "<p>hi</p>", aws.ToString(client.input.Message.Body.Html.Data))
	assert.Equal(t, "hi", aws.ToString(client.input.Message.Body.Text.Data))
}

func TestSESSender_Error(t *testing.T) {
	sender := newSESSender(&fakeSES{err: errors.New("throttled")}, "no-reply@example.com", discardLogger())

	err := sender.Send(context.Background(), EmailMessage{To: "a@x.com"})

	assert.ErrorContains(t, err, "throttled")
}

func TestSMTPSender_Send(t *testing.T) {
	sender := NewSMTPSender(config.EmailConfig{
		FromAddress:  "no-reply@example.com",
		FromName:     "Netflix Clone",
		SMTPHost:     "smtp.example.com",
		SMTPPort:     587,
		SMTPUsername: "user",
		SMTPPassword: "pass",
	}, discardLogger())

	var gotAddr string
	var got *email.Email
	var gotAuth smtp.Auth
	var hasDeadline bool
	sender.send = func(ctx context.Context, e *email.Email, addr string, a smtp.Auth) error {
		got, gotAddr, gotAuth = e, addr, a
		_, hasDeadline = ctx.Deadline()
		return nil
	}

	err := sender.Send(context.Background(), EmailMessage{
		To:      "a@x.com",
		Subject: "Subject",
		HTML:    "<p>hi</p>",
		Text:    "hi",
	})

	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.True(t, hasDeadline)
	require.NotNil(t, got)
	assert.Equal(t, `"Netflix Clone" <no-reply@example.com>`, got.From)
	assert.Equal(t, []string{"a@x.com"}, got.To)
	assert.Equal(t, "Subject", got.Subject)
	assert.Equal(t, []byte("<p>hi</p>"), got.HTML)
	assert.Equal(t, []byte("hi"), got.Text)
}

func TestSMTPSender_CanceledContext(t *testing.T) {
	sender := NewSMTPSender(config.EmailConfig{SMTPHost: "localhost", SMTPPort: 25}, discardLogger())
	called := false
	sender.send = func(ctx context.Context, e *email.Email, addr string, a smtp.Auth) error {
		called = true
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, sender.Send(ctx, EmailMessage{To: "a@x.com"}), context.Canceled)
	assert.False(t, called)
}

// stalledSMTPServer accepts connections and never sends the greeting
func stalledSMTPServer(t *testing.T) (host string, port int) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	})

	tcpAddr := ln.Addr().(*net.TCPAddr)
	return tcpAddr.IP.String(), tcpAddr.Port
}

func TestSMTPSender_StalledServerRespectsDeadline(t *testing.T) {
	host, port := stalledSMTPServer(t)
	sender := NewSMTPSender(config.EmailConfig{
		FromAddress: "no-reply@example.com",
		SMTPHost:    host,
		SMTPPort:    port,
	}, discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := sender.Send(ctx, EmailMessage{To: "a@x.com", Subject: "s", Text: "t"})

	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSMTPSender_StalledServerStopsOnCancel(t *testing.T) {
	host, port := stalledSMTPServer(t)
	sender := NewSMTPSender(config.EmailConfig{
		FromAddress: "no-reply@example.com",
		SMTPHost:    host,
		SMTPPort:    port,
	}, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	err := sender.Send(ctx, EmailMessage{To: "a@x.com", Subject: "s", Text: "t"})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestNewEmailSender_UnknownProvider(t *testing.T) {
	_, err := NewEmailSender(context.Background(), config.EmailConfig{Provider: "pigeon"}, discardLogger())

	assert.Error(t, err)
}
