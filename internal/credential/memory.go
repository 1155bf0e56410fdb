package credential

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps registrations in process memory. Registrations are lost
// on restart.
type MemoryStore struct {
	mu   sync.RWMutex
	regs map[string]Registration
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{regs: make(map[string]Registration)}
}

func (s *MemoryStore) Save(_ context.Context, reg *Registration) error {
	if err := validate(reg); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regs[reg.Token] = *reg
	return nil
}

func (s *MemoryStore) Get(_ context.Context, token string) (*Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reg, ok := s.regs[token]
	if !ok {
		return nil, ErrNotFound
	}
	return &reg, nil
}

func (s *MemoryStore) Touch(_ context.Context, token string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if reg, ok := s.regs[token]; ok {
		reg.LastSeenAt = at
		s.regs[token] = reg
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.regs, token)
	return nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.regs), nil
}

func (s *MemoryStore) DeleteInactive(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for token, reg := range s.regs {
		if reg.LastSeenAt.Before(cutoff) {
			delete(s.regs, token)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Maintain(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
