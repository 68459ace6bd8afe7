package qrcode

import (
	"context"
	"sync"

	"qrflow/internal/qrcode/models"
	id "qrflow/pkg/domain"
	"qrflow/pkg/platform/sentinel"
)

// InMemoryStore keeps QR codes in process memory. Used by unit tests and
// local development; production wires PostgresStore.
type InMemoryStore struct {
	mu      sync.RWMutex
	byID    map[id.QRCodeID]*models.QRCode
	byShort map[string]id.QRCodeID
}

// NewMemory constructs an empty in-memory QR code store.
func NewMemory() *InMemoryStore {
	return &InMemoryStore{
		byID:    make(map[id.QRCodeID]*models.QRCode),
		byShort: make(map[string]id.QRCodeID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, qr *models.QRCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byShort[qr.ShortID]; exists {
		return sentinel.ErrConflict
	}
	cp := *qr
	s.byID[qr.ID] = &cp
	s.byShort[qr.ShortID] = qr.ID
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, qr *models.QRCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[qr.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	cp := *qr
	// The scan counter is owned by IncrementScanCount; configuration writes
	// never move it.
	cp.ScanCount = existing.ScanCount
	s.byID[qr.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, qrID id.QRCodeID) (*models.QRCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	qr, ok := s.byID[qrID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *qr
	return &cp, nil
}

func (s *InMemoryStore) FindByShortID(_ context.Context, shortID string) (*models.QRCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	qrID, ok := s.byShort[shortID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byID[qrID]
	return &cp, nil
}

// IncrementScanCount increments under the store lock, giving the same
// no-lost-updates guarantee the SQL store gets from a single UPDATE.
func (s *InMemoryStore) IncrementScanCount(_ context.Context, qrID id.QRCodeID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	qr, ok := s.byID[qrID]
	if !ok {
		return 0, sentinel.ErrNotFound
	}
	qr.ScanCount++
	return qr.ScanCount, nil
}
