package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "qrflow/pkg/domain"
)

func event(qrID id.QRCodeID) ScanEvent {
	return ScanEvent{
		ID:       id.NewScanEventID(),
		QRCodeID: qrID,
		Outcome:  "VALID",
		Source:   "default",
	}
}

func TestRecorderRequiresPositiveBuffer(t *testing.T) {
	_, err := NewRecorder(0)
	assert.Error(t, err)

	_, err = NewRecorder(-1)
	assert.Error(t, err)
}

func TestRecordNeverBlocks(t *testing.T) {
	dropped := 0
	rec, err := NewRecorder(2, WithDropHook(func() { dropped++ }))
	require.NoError(t, err)

	qrID := id.NewQRCodeID()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			rec.Record(event(qrID))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full buffer")
	}

	// Two fit the buffer, the rest are dropped.
	assert.Equal(t, 8, dropped)
	assert.Len(t, rec.Inbox(), 2)
}

func TestWorkerPersistsEvents(t *testing.T) {
	rec, err := NewRecorder(16)
	require.NoError(t, err)
	store := NewInMemoryStore()
	worker := NewWorker(store, rec.Inbox())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	qrID := id.NewQRCodeID()
	for i := 0; i < 5; i++ {
		rec.Record(event(qrID))
	}

	require.Eventually(t, func() bool {
		events, err := store.ListByQRCode(context.Background(), qrID.String())
		return err == nil && len(events) == 5
	}, time.Second, 10*time.Millisecond)
}

// flakyStore fails the first append and succeeds afterwards.
type flakyStore struct {
	mu     sync.Mutex
	inner  *InMemoryStore
	failed bool
}

func (s *flakyStore) Append(ctx context.Context, event ScanEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.failed {
		s.failed = true
		return errors.New("database unavailable")
	}
	return s.inner.Append(ctx, event)
}

func (s *flakyStore) ListByQRCode(ctx context.Context, qrCodeID string) ([]ScanEvent, error) {
	return s.inner.ListByQRCode(ctx, qrCodeID)
}

func TestWorkerSurvivesPersistFailure(t *testing.T) {
	rec, err := NewRecorder(16)
	require.NoError(t, err)
	store := &flakyStore{inner: NewInMemoryStore()}
	worker := NewWorker(store, rec.Inbox())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	qrID := id.NewQRCodeID()
	rec.Record(event(qrID)) // lost to the failure
	rec.Record(event(qrID))

	require.Eventually(t, func() bool {
		events, err := store.ListByQRCode(context.Background(), qrID.String())
		return err == nil && len(events) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestWorkerStopsOnCancel(t *testing.T) {
	rec, err := NewRecorder(1)
	require.NoError(t, err)
	worker := NewWorker(NewInMemoryStore(), rec.Inbox())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- worker.Run(ctx) }()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on cancel")
	}
}
