package email

import (
	"context"
	"errors"
	"mime"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSMTPSender_Validation(t *testing.T) {
	_, err := NewSMTPSender(SMTPConfig{Port: 25}, discardLogger())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewSMTPSender(SMTPConfig{Host: "localhost"}, discardLogger())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	s, err := NewSMTPSender(SMTPConfig{Host: "localhost", Port: 1025}, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, DefaultFromEmail, s.config.From)
	assert.Equal(t, DefaultFromName, s.config.FromName)
}

func TestSMTPSender_Send(t *testing.T) {
	s, err := NewSMTPSender(SMTPConfig{
		Host:     "mail.example.com",
		Port:     587,
		Username: "user",
		Password: "secret",
		Identity: Identity{From: "hello@courseflow.dev", FromName: "Courseflow", ReplyTo: "support@courseflow.dev"},
	}, discardLogger())
	require.NoError(t, err)

	var (
		gotAddr string
		gotAuth smtp.Auth
		gotFrom string
		gotTo   []string
		gotMsg  string
	)
	s.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo, gotMsg = addr, a, from, to, string(msg)
		return nil
	}

	err = s.Send(context.Background(), Message{
		To:       "user@example.com",
		Subject:  "Welcome",
		Tag:      KindWelcome,
		HTMLBody: "<p>Hi</p>",
		TextBody: "Hi",
	})
	require.NoError(t, err)

	assert.Equal(t, "mail.example.com:587", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, "hello@courseflow.dev", gotFrom)
	assert.Equal(t, []string{"user@example.com"}, gotTo)

	assert.Contains(t, gotMsg, "From: Courseflow <hello@courseflow.dev>\r\n")
	assert.Contains(t, gotMsg, "Reply-To: support@courseflow.dev\r\n")
	assert.Contains(t, gotMsg, "Subject: Welcome\r\n")
	assert.Contains(t, gotMsg, "Content-Type: text/plain; charset=utf-8")
	assert.Contains(t, gotMsg, "Content-Type: text/html; charset=utf-8")
	assert.Contains(t, gotMsg, "<p>Hi</p>")
	assert.Contains(t, gotMsg, "--===============COURSEFLOW_BOUNDARY===============--\r\n")
}

func TestSMTPSender_NoAuthWithoutCredentials(t *testing.T) {
	s, err := NewSMTPSender(SMTPConfig{Host: "localhost", Port: 1025}, discardLogger())
	require.NoError(t, err)

	var gotAuth smtp.Auth
	s.sendMail = func(_ string, a smtp.Auth, _ string, _ []string, _ []byte) error {
		gotAuth = a
		return nil
	}

	require.NoError(t, s.Send(context.Background(), Message{To: "a@b.co", Subject: "s", TextBody: "x"}))
	assert.Nil(t, gotAuth)
}

func TestSMTPSender_SendFailure(t *testing.T) {
	s, err := NewSMTPSender(SMTPConfig{Host: "localhost", Port: 1025}, discardLogger())
	require.NoError(t, err)

	dialErr := errors.New("dial tcp: connection refused")
	s.sendMail = func(string, smtp.Auth, string, []string, []byte) error { return dialErr }

	err = s.Send(context.Background(), Message{To: "a@b.co", Subject: "s", TextBody: "x"})
	assert.ErrorIs(t, err, ErrSendFailed)
	assert.ErrorIs(t, err, dialErr)
}

func TestSMTPSender_CanceledContext(t *testing.T) {
	s, err := NewSMTPSender(SMTPConfig{Host: "localhost", Port: 1025}, discardLogger())
	require.NoError(t, err)

	called := false
	s.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		called = true
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = s.Send(ctx, Message{To: "a@b.co", Subject: "s", TextBody: "x"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

// rawHeaders returns the header lines of a message built by buildMessage.
func rawHeaders(t *testing.T, raw string) []string {
	t.Helper()
	head, _, ok := strings.Cut(raw, "\r\n\r\n")
	require.True(t, ok, "message has no header/body separator")
	return strings.Split(head, "\r\n")
}

func TestSMTPSender_CourseNameCannotAddHeaders(t *testing.T) {
	s, err := NewSMTPSender(SMTPConfig{Host: "localhost", Port: 1025}, discardLogger())
	require.NoError(t, err)

	var raw string
	s.sendMail = func(_ string, _ smtp.Auth, _ string, _ []string, msg []byte) error {
		raw = string(msg)
		return nil
	}

	courseName := "Free Course\r\nX-Injected: yes\r\nContent-Type: text/plain\r\n\r\nclick here"
	m := newTestMailer(t, s)
	require.NoError(t, m.SendConfirmation(context.Background(), "user@example.com", "custom", courseName, "tok"))

	headers := rawHeaders(t, raw)
	var subject string
	for _, line := range headers {
		assert.False(t, strings.HasPrefix(line, "X-Injected"), "unexpected header line %q", line)
		assert.NotEqual(t, "Content-Type: text/plain", line)
		if v, ok := strings.CutPrefix(line, "Subject: "); ok {
			subject = v
		}
	}
	require.NotEmpty(t, subject)

	decoded, err := new(mime.WordDecoder).DecodeHeader(subject)
	require.NoError(t, err)
	assert.Equal(t, "Confirm your subscription to "+courseName, decoded)
}

func TestSMTPSender_EncodesNonASCIIHeaders(t *testing.T) {
	s, err := NewSMTPSender(SMTPConfig{
		Host:     "localhost",
		Port:     1025,
		Identity: Identity{From: "hello@courseflow.dev", FromName: "Kursfluss Schüler"},
	}, discardLogger())
	require.NoError(t, err)

	var raw string
	s.sendMail = func(_ string, _ smtp.Auth, _ string, _ []string, msg []byte) error {
		raw = string(msg)
		return nil
	}

	require.NoError(t, s.Send(context.Background(), Message{To: "a@b.co", Subject: "Willkommen zu Cypress für Anfänger", TextBody: "x"}))

	headers := strings.Join(rawHeaders(t, raw), "\n")
	assert.Contains(t, headers, "Subject: =?utf-8?q?")
	assert.Contains(t, headers, "From: =?utf-8?q?")
	assert.Contains(t, headers, "<hello@courseflow.dev>")
	assert.NotContains(t, headers, "für")

	dec := new(mime.WordDecoder)
	for _, line := range rawHeaders(t, raw) {
		if v, ok := strings.CutPrefix(line, "Subject: "); ok {
			got, err := dec.DecodeHeader(v)
			require.NoError(t, err)
			assert.Equal(t, "Willkommen zu Cypress für Anfänger", got)
		}
	}
}
