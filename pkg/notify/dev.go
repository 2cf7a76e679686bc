package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DevNotifier implements Notifier for local development. It writes each
// notification to a JSON file instead of sending anything.
type DevNotifier struct {
	dir string
}

// NewDevNotifier creates a notifier that saves messages under dir.
// The directory is created on first use.
func NewDevNotifier(dir string) *DevNotifier {
	return &DevNotifier{dir: dir}
}

type devMessage struct {
	Timestamp string `json:"timestamp"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// Notify writes the message to a timestamped JSON file.
func (d *DevNotifier) Notify(ctx context.Context, recipient, subject, body string) error {
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return fmt.Errorf("%w: failed to create directory: %v", ErrSendFailed, err)
	}

	now := time.Now()
	msg := devMessage{
		Timestamp: now.Format(time.RFC3339),
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
	}

	data, err := json.MarshalIndent(msg, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to marshal message: %v", ErrSendFailed, err)
	}

	name := fmt.Sprintf("%s_%d.json", now.Format("2006_01_02_150405"), now.Nanosecond())
	if err := os.WriteFile(filepath.Join(d.dir, name), data, 0644); err != nil {
		return fmt.Errorf("%w: failed to write message file: %v", ErrSendFailed, err)
	}

	return nil
}
