package admin

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a thread-safe in-memory Store used by tests and the
// local development server.
type MemoryStore struct {
	mu      sync.RWMutex
	byEmail map[string]*Record

	updates int

	// FailUpdates makes UpdateLastLogin return this error when non-nil.
	FailUpdates error
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore seeds a store with recs.
func NewMemoryStore(recs ...Record) *MemoryStore {
	s := &MemoryStore{byEmail: make(map[string]*Record, len(recs))}
	for _, r := range recs {
		rec := r
		s.byEmail[NormalizeEmail(r.Email)] = &rec
	}
	return s
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUpdates != nil {
		return s.FailUpdates
	}
	for _, rec := range s.byEmail {
		if rec.ID == id {
			t := at.UTC()
			rec.LastLogin = &t
			s.updates++
			return nil
		}
	}
	return ErrNotFound
}

// UpdateCount reports how many last-login writes succeeded.
func (s *MemoryStore) UpdateCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updates
}
