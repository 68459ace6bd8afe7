package analytics

import (
	"context"
	"log/slog"
)

// Store persists scan events.
type Store interface {
	Append(ctx context.Context, event ScanEvent) error
	ListByQRCode(ctx context.Context, qrCodeID string) ([]ScanEvent, error)
}

// Worker consumes events from the recorder's inbox and persists them. A
// persist failure is logged and the worker keeps running; analytics loss
// never propagates back into the scan path.
type Worker struct {
	store  Store
	inbox  <-chan ScanEvent
	logger *slog.Logger
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithWorkerLogger sets the logger used for persist failures.
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = logger
	}
}

// NewWorker constructs a Worker reading from inbox.
func NewWorker(store Store, inbox <-chan ScanEvent, opts ...WorkerOption) *Worker {
	w := &Worker{store: store, inbox: inbox, logger: slog.Default()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run processes events until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.Error("failed to persist scan event",
					"qr_code_id", event.QRCodeID,
					"error", err,
				)
			}
		}
	}
}
