package session

import (
	"errors"
	"sync"
)

// ErrEmpty is returned by Slot.Load when nothing is stored.
var ErrEmpty = errors.New("session slot empty")

// Slot is a single namespaced value in client-local storage.  The Manager
// owns the encoding; a Slot only moves bytes.
type Slot interface {
	Load() ([]byte, error)
	Store(raw []byte) error
	Clear() error
}

// MemorySlot keeps the value in process memory.
type MemorySlot struct {
	mu  sync.Mutex
	raw []byte
}

var _ Slot = (*MemorySlot)(nil)

func (s *MemorySlot) Load() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.raw == nil {
		return nil, ErrEmpty
	}
	return append([]byte(nil), s.raw...), nil
}

func (s *MemorySlot) Store(raw []byte) error {
	s.mu.Lock()
	s.raw = append([]byte(nil), raw...)
	s.mu.Unlock()
	return nil
}

func (s *MemorySlot) Clear() error {
	s.mu.Lock()
	s.raw = nil
	s.mu.Unlock()
	return nil
}
