package notify

import (
	"context"
	"fmt"
	"time"
)

// Intent is the payload the sharing engine emits when a user asks for access
// to someone else's resource. Recipient is the resource owner's contact
// identifier.
type Intent struct {
	Recipient string    `json:"recipient"`
	Requester string    `json:"requester"`
	Resource  string    `json:"resource"`
	CreatedAt time.Time `json:"created_at"`
}

// Subject renders the message subject line for the intent.
func (i Intent) Subject() string {
	return fmt.Sprintf("Access request for %q", i.Resource)
}

// Body renders the message body for the intent.
func (i Intent) Body() string {
	return fmt.Sprintf("%s requested access to %q. Approve or decline the request from your shared files page.", i.Requester, i.Resource)
}

// Notifier delivers a rendered notification to a recipient.
type Notifier interface {
	Notify(ctx context.Context, recipient, subject, body string) error
}
