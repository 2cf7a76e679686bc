package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/filevault/pkg/logger"
)

// Worker drains an Outbox and delivers each intent through a Notifier.
// Delivery failures are logged and the intent is dropped without retries.
type Worker struct {
	outbox   Outbox
	notifier Notifier
	log      *slog.Logger
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithWorkerLogger sets a custom logger for the worker.
func WithWorkerLogger(log *slog.Logger) WorkerOption {
	return func(w *Worker) {
		if log != nil {
			w.log = log
		}
	}
}

// NewWorker creates a delivery worker.
func NewWorker(outbox Outbox, notifier Notifier, opts ...WorkerOption) *Worker {
	w := &Worker{
		outbox:   outbox,
		notifier: notifier,
		log:      logger.Discard(),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Run delivers intents until ctx is canceled or the outbox closes.
// It always returns nil on normal shutdown so callers can run it in an
// errgroup without special-casing cancellation.
func (w *Worker) Run(ctx context.Context) error {
	for {
		intent, err := w.outbox.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrOutboxClosed) {
				return nil
			}
			w.log.ErrorContext(ctx, "failed to dequeue notification intent",
				logger.Error(err),
				logger.Component("notify"),
			)
			continue
		}

		if err := w.notifier.Notify(ctx, intent.Recipient, intent.Subject(), intent.Body()); err != nil {
			w.log.ErrorContext(ctx, "failed to deliver notification",
				slog.String("recipient", intent.Recipient),
				logger.Error(err),
				logger.Component("notify"),
			)
		}
	}
}
