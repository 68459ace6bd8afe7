package analytics

import (
	"context"
	"sync"
)

// InMemoryStore keeps scan events in memory for tests and local development.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []ScanEvent
}

// NewInMemoryStore constructs an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Append records the event.
func (s *InMemoryStore) Append(_ context.Context, event ScanEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// ListByQRCode returns events for the QR code in append order.
func (s *InMemoryStore) ListByQRCode(_ context.Context, qrCodeID string) ([]ScanEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ScanEvent
	for _, e := range s.events {
		if e.QRCodeID.String() == qrCodeID {
			out = append(out, e)
		}
	}
	return out, nil
}
