package delivery

import (
	"context"
	"sort"
	"sync"

	"qrflow/internal/qrcode/models"
	id "qrflow/pkg/domain"
	"qrflow/pkg/platform/sentinel"
)

// InMemoryStore keeps A/B tests, redirect rules, and content schedules in
// process memory.
type InMemoryStore struct {
	mu        sync.RWMutex
	tests     map[id.ABTestID]*models.ABTest
	redirects map[id.RedirectRuleID]*models.RedirectRule
	schedules map[id.ContentScheduleID]*models.ContentSchedule
}

// NewMemory constructs an empty in-memory delivery store.
func NewMemory() *InMemoryStore {
	return &InMemoryStore{
		tests:     make(map[id.ABTestID]*models.ABTest),
		redirects: make(map[id.RedirectRuleID]*models.RedirectRule),
		schedules: make(map[id.ContentScheduleID]*models.ContentSchedule),
	}
}

func (s *InMemoryStore) CreateABTest(_ context.Context, t *models.ABTest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tests[t.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *t
	s.tests[t.ID] = &cp
	return nil
}

func (s *InMemoryStore) UpdateABTest(_ context.Context, t *models.ABTest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tests[t.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *t
	s.tests[t.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindABTest(_ context.Context, testID id.ABTestID) (*models.ABTest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tests[testID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *InMemoryStore) RunningABTest(_ context.Context, qrID id.QRCodeID) (*models.ABTest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tests {
		if t.QRCodeID == qrID && t.Status == models.ABTestRunning {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) CreateRedirectRule(_ context.Context, r *models.RedirectRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.redirects[r.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *r
	s.redirects[r.ID] = &cp
	return nil
}

// ListRedirectRules returns enabled and disabled rules in descending
// priority order; callers filter on Enabled.
func (s *InMemoryStore) ListRedirectRules(_ context.Context, qrID id.QRCodeID) ([]*models.RedirectRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.RedirectRule
	for _, r := range s.redirects {
		if r.QRCodeID == qrID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *InMemoryStore) CreateContentSchedule(_ context.Context, cs *models.ContentSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.schedules[cs.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *cs
	s.schedules[cs.ID] = &cp
	return nil
}

func (s *InMemoryStore) ListContentSchedules(_ context.Context, qrID id.QRCodeID) ([]*models.ContentSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.ContentSchedule
	for _, cs := range s.schedules {
		if cs.QRCodeID == qrID {
			cp := *cs
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}
