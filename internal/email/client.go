package email

import (
	"context"

	"github.com/flexprice/ispbilling/internal/config"
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/resend/resend-go/v2"
)

// Sender delivers one plain text email and returns the provider message id
type Sender interface {
	Send(ctx context.Context, to, subject, text string) (string, error)
}

// Client sends billing receipts through Resend
type Client struct {
	client      *resend.Client
	fromAddress string
	replyTo     string
}

// NewClient returns nil when email is disabled or no API key is configured
func NewClient(cfg config.EmailConfig) *Client {
	if !cfg.Enabled || cfg.APIKey == "" {
		return nil
	}
	return &Client{
		client:      resend.NewClient(cfg.APIKey),
		fromAddress: cfg.FromAddress,
		replyTo:     cfg.ReplyTo,
	}
}

func (c *Client) Send(ctx context.Context, to, subject, text string) (string, error) {
	params := &resend.SendEmailRequest{
		From:    c.fromAddress,
		To:      []string{to},
		Subject: subject,
		Text:    text,
	}
	if c.replyTo != "" {
		params.ReplyTo = c.replyTo
	}

	sent, err := c.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return "", ierr.WithError(err).
			WithHintf("Failed to send email to %s", to).
			Mark(ierr.ErrHTTPClient)
	}
	return sent.Id, nil
}
