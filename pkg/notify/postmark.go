package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"
)

// PostmarkConfig configures the Postmark-backed notifier.
type PostmarkConfig struct {
	ServerToken  string `env:"POSTMARK_SERVER_TOKEN,required"`
	AccountToken string `env:"POSTMARK_ACCOUNT_TOKEN,required"`
	SenderEmail  string `env:"POSTMARK_SENDER_EMAIL,required"`
}

// PostmarkNotifier sends notifications through Postmark's transactional API.
type PostmarkNotifier struct {
	client *postmark.Client
	sender string
}

// NewPostmarkNotifier creates a Postmark-backed notifier.
// All tokens are required; broken notification config should surface at
// startup, not as silently dropped messages in production.
func NewPostmarkNotifier(cfg PostmarkConfig) (*PostmarkNotifier, error) {
	if cfg.ServerToken == "" {
		return nil, fmt.Errorf("%w: ServerToken is required", ErrInvalidConfig)
	}
	if cfg.AccountToken == "" {
		return nil, fmt.Errorf("%w: AccountToken is required", ErrInvalidConfig)
	}
	if cfg.SenderEmail == "" {
		return nil, fmt.Errorf("%w: SenderEmail is required", ErrInvalidConfig)
	}

	return &PostmarkNotifier{
		client: postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
		sender: cfg.SenderEmail,
	}, nil
}

// Notify implements Notifier over Postmark.
func (n *PostmarkNotifier) Notify(ctx context.Context, recipient, subject, body string) error {
	resp, err := n.client.SendEmail(ctx, postmark.Email{
		From:     n.sender,
		To:       recipient,
		Subject:  subject,
		TextBody: body,
		Tag:      "access-request",
	})
	if err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(ErrSendFailed, fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message))
	}
	return nil
}
