package notify

import "errors"

var (
	// ErrInvalidConfig is returned when a notifier or outbox is created with incomplete configuration.
	ErrInvalidConfig = errors.New("invalid notify config")
	// ErrOutboxFull is returned by MemoryOutbox.Enqueue when the buffer is exhausted.
	// Producers log it and continue; notification is best-effort.
	ErrOutboxFull = errors.New("notification outbox full")
	// ErrOutboxClosed is returned when enqueueing into or draining a closed outbox.
	ErrOutboxClosed = errors.New("notification outbox closed")
	// ErrSendFailed wraps downstream delivery failures.
	ErrSendFailed = errors.New("failed to send notification")
)
