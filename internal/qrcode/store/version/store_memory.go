package version

import (
	"context"
	"sync"

	"qrflow/internal/qrcode/models"
	id "qrflow/pkg/domain"
	"qrflow/pkg/platform/sentinel"
)

// InMemoryStore keeps content versions in process memory.
type InMemoryStore struct {
	mu       sync.RWMutex
	versions map[id.VersionID]*models.ContentVersion
}

// NewMemory constructs an empty in-memory version store.
func NewMemory() *InMemoryStore {
	return &InMemoryStore{versions: make(map[id.VersionID]*models.ContentVersion)}
}

func (s *InMemoryStore) Create(_ context.Context, v *models.ContentVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.versions[v.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *v
	s.versions[v.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, versionID id.VersionID) (*models.ContentVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.versions[versionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (s *InMemoryStore) ListByQRCode(_ context.Context, qrID id.QRCodeID) ([]*models.ContentVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.ContentVersion
	for _, v := range s.versions {
		if v.QRCodeID == qrID {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ActiveVersion(_ context.Context, qrID id.QRCodeID) (*models.ContentVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, v := range s.versions {
		if v.QRCodeID == qrID && v.Active {
			cp := *v
			return &cp, nil
		}
	}
	return nil, nil
}

// Activate flips the active flag under a single lock hold, so two concurrent
// activations can never leave two versions active.
func (s *InMemoryStore) Activate(_ context.Context, qrID id.QRCodeID, versionID id.VersionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.versions[versionID]
	if !ok || target.QRCodeID != qrID {
		return sentinel.ErrNotFound
	}
	for _, v := range s.versions {
		if v.QRCodeID == qrID {
			v.Active = false
		}
	}
	target.Active = true
	return nil
}

func (s *InMemoryStore) MaxVersionNumber(_ context.Context, qrID id.QRCodeID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	max := 0
	for _, v := range s.versions {
		if v.QRCodeID == qrID && v.VersionNumber > max {
			max = v.VersionNumber
		}
	}
	return max, nil
}
