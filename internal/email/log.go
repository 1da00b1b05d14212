package email

import (
	"context"
	"log/slog"
)

// LogSender logs messages instead of delivering them. Used in development
// when no SMTP server is running.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a sender that writes to logger.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send implements Sender.
func (l *LogSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	l.logger.InfoContext(ctx, "email not delivered (log provider)",
		"to", msg.To,
		"subject", msg.Subject,
		"tag", msg.Tag,
		"text_body", msg.TextBody,
	)
	return nil
}

var _ Sender = (*LogSender)(nil)
