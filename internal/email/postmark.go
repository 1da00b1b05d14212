package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mrz1836/postmark"
)

// PostmarkSender delivers messages through the Postmark transactional API.
type PostmarkSender struct {
	client *postmark.Client
	config PostmarkConfig
	logger *slog.Logger
}

// NewPostmarkSender creates a Postmark-backed sender. Both tokens are
// required.
func NewPostmarkSender(config PostmarkConfig, logger *slog.Logger) (*PostmarkSender, error) {
	if config.ServerToken == "" {
		return nil, fmt.Errorf("%w: Postmark server token is required", ErrInvalidConfig)
	}
	if config.AccountToken == "" {
		return nil, fmt.Errorf("%w: Postmark account token is required", ErrInvalidConfig)
	}
	config.Identity = config.Identity.withDefaults()

	return &PostmarkSender{
		client: postmark.NewClient(config.ServerToken, config.AccountToken),
		config: config,
		logger: logger,
	}, nil
}

// Send implements Sender. Opens and HTML link clicks are tracked; plain
// text links are left alone.
func (p *PostmarkSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	resp, err := p.client.SendEmail(ctx, postmark.Email{
		From:       p.config.Address(),
		ReplyTo:    p.config.ReplyTo,
		To:         msg.To,
		Subject:    msg.Subject,
		Tag:        msg.Tag,
		HTMLBody:   msg.HTMLBody,
		TextBody:   msg.TextBody,
		TrackOpens: true,
		TrackLinks: "HtmlOnly",
	})
	if err != nil {
		p.logger.Error("postmark request failed", "to", msg.To, "tag", msg.Tag, "error", err)
		return errors.Join(ErrSendFailed, err)
	}
	if resp.ErrorCode > 0 {
		p.logger.Error("postmark rejected email",
			"to", msg.To,
			"tag", msg.Tag,
			"error_code", resp.ErrorCode,
			"message", resp.Message,
		)
		return errors.Join(
			ErrSendFailed,
			fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message),
		)
	}

	p.logger.Info("email sent", "to", msg.To, "tag", msg.Tag, "message_id", resp.MessageID)
	return nil
}

var _ Sender = (*PostmarkSender)(nil)
