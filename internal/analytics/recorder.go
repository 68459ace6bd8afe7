package analytics

import (
	"log/slog"

	dErrors "qrflow/pkg/domain-errors"
)

// Recorder accepts events from the scan path without blocking it. When the
// buffer is full the event is dropped and the drop hook is invoked; scans are
// never delayed by analytics backpressure.
type Recorder struct {
	inbox  chan ScanEvent
	logger *slog.Logger
	onDrop func()
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithLogger sets the logger used for drop reporting.
func WithLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// WithDropHook registers a callback invoked once per dropped event.
func WithDropHook(onDrop func()) RecorderOption {
	return func(r *Recorder) {
		r.onDrop = onDrop
	}
}

// NewRecorder constructs a Recorder with the given buffer capacity.
func NewRecorder(bufferSize int, opts ...RecorderOption) (*Recorder, error) {
	if bufferSize <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "buffer size must be positive")
	}
	r := &Recorder{
		inbox:  make(chan ScanEvent, bufferSize),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Record enqueues the event, dropping it when the buffer is full.
func (r *Recorder) Record(event ScanEvent) {
	select {
	case r.inbox <- event:
	default:
		if r.onDrop != nil {
			r.onDrop()
		}
		r.logger.Warn("analytics buffer full, dropping event",
			"qr_code_id", event.QRCodeID,
			"outcome", event.Outcome,
		)
	}
}

// Inbox exposes the event stream for the worker.
func (r *Recorder) Inbox() <-chan ScanEvent {
	return r.inbox
}
