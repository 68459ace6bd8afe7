package rule

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"qrflow/internal/qrcode/models"
	id "qrflow/pkg/domain"
	"qrflow/pkg/platform/sentinel"
)

// InMemoryStore keeps content rules in process memory.
type InMemoryStore struct {
	mu    sync.RWMutex
	rules map[id.RuleID]*models.ContentRule
}

// NewMemory constructs an empty in-memory rule store.
func NewMemory() *InMemoryStore {
	return &InMemoryStore{rules: make(map[id.RuleID]*models.ContentRule)}
}

func (s *InMemoryStore) Create(_ context.Context, r *models.ContentRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[r.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *r
	s.rules[r.ID] = &cp
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, r *models.ContentRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rules[r.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *r
	s.rules[r.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, ruleID id.RuleID) (*models.ContentRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rules[ruleID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// ListByQRCode returns rules ordered by ID so callers observe a stable order
// regardless of map iteration.
func (s *InMemoryStore) ListByQRCode(_ context.Context, qrID id.QRCodeID) ([]*models.ContentRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.ContentRule
	for _, r := range s.rules {
		if r.QRCodeID == qrID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return uuid.UUID(out[i].ID).String() < uuid.UUID(out[j].ID).String()
	})
	return out, nil
}

func (s *InMemoryStore) Delete(_ context.Context, ruleID id.RuleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rules[ruleID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.rules, ruleID)
	return nil
}
