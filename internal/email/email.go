// Package email sends the subscription workflow's transactional emails.
//
// A Mailer renders the confirmation, welcome and reminder messages and hands
// them to a Sender. Sender implementations:
// - SMTPSender: plain SMTP (Mailhog in development, any relay in production)
// - PostmarkSender: Postmark transactional API
// - LogSender: writes messages to the log instead of delivering them
package email

import (
	"context"
	"errors"
	"mime"
	"strings"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Sender delivers a rendered message.
//
// A nil error means the provider accepted the message; it says nothing about
// final delivery to the inbox.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// =============================================================================
// Email Data Types
// =============================================================================

// Message represents a single email message.
type Message struct {
	To       string // Recipient email address
	Subject  string // Email subject line
	Tag      string // Provider tag for grouping (confirmation, welcome, reminder)
	HTMLBody string // HTML content of the email
	TextBody string // Plain text fallback content
}

// Validate checks the fields every sender needs.
func (m Message) Validate() error {
	if m.To == "" {
		return ErrMissingRecipient
	}
	if strings.ContainsAny(m.To, "\r\n") {
		return ErrInvalidRecipient
	}
	if m.Subject == "" {
		return ErrMissingSubject
	}
	if m.HTMLBody == "" && m.TextBody == "" {
		return ErrMissingBody
	}
	return nil
}

// =============================================================================
// Configuration Types
// =============================================================================

// Identity is the sender identity shared by every provider.
type Identity struct {
	From     string // Sender email address
	FromName string // Sender display name
	ReplyTo  string // Optional Reply-To address
}

// Address returns the formatted From header value. A non-ASCII display
// name is sent as an RFC 2047 encoded-word.
func (i Identity) Address() string {
	if i.FromName == "" {
		return i.From
	}
	return encodeHeader(i.FromName) + " <" + i.From + ">"
}

// encodeHeader makes v safe to place in a single header line. Printable
// ASCII passes through; anything else, CR and LF included, becomes a
// Q-encoded word.
func encodeHeader(v string) string {
	return mime.QEncoding.Encode("utf-8", v)
}

func (i Identity) withDefaults() Identity {
	if i.From == "" {
		i.From = DefaultFromEmail
	}
	if i.FromName == "" {
		i.FromName = DefaultFromName
	}
	return i
}

// SMTPConfig holds SMTP server configuration.
type SMTPConfig struct {
	Host     string // SMTP server hostname (e.g., "localhost" for Mailhog)
	Port     int    // SMTP server port (e.g., 1025 for Mailhog)
	Username string // SMTP authentication username (empty for Mailhog)
	Password string // SMTP authentication password (empty for Mailhog)
	Identity
}

// PostmarkConfig holds Postmark API credentials.
type PostmarkConfig struct {
	ServerToken  string
	AccountToken string
	Identity
}

// =============================================================================
// Errors and Constants
// =============================================================================

var (
	ErrMissingRecipient = errors.New("email: recipient is required")
	ErrInvalidRecipient = errors.New("email: recipient must be a single address")
	ErrMissingSubject   = errors.New("email: subject is required")
	ErrMissingBody      = errors.New("email: body is required")
	ErrInvalidConfig    = errors.New("email: invalid configuration")
	ErrSendFailed       = errors.New("email: send failed")
)

const (
	// DefaultFromEmail is the default sender email for transactional emails.
	DefaultFromEmail = "hello@courseflow.dev"

	// DefaultFromName is the default sender display name.
	DefaultFromName = "Courseflow"
)

// Message kinds, used as provider tags and metric labels.
const (
	KindConfirmation = "confirmation"
	KindWelcome      = "welcome"
	KindReminder     = "reminder"
)
