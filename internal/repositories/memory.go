package repositories

import (
	"context"
	"sync"

	"github.com/desertthunder/tempo/internal/models"
)

// MemoryTokenStore keeps token pairs in process memory.
type MemoryTokenStore struct {
	mu    sync.RWMutex
	pairs map[string]models.TokenPair
}

// NewMemoryTokenStore creates an empty [MemoryTokenStore].
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{pairs: make(map[string]models.TokenPair)}
}

func (s *MemoryTokenStore) Get(_ context.Context, sid string) (models.TokenPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pair, ok := s.pairs[sid]
	if !ok {
		return models.TokenPair{}, notFound(sid)
	}
	return pair, nil
}

func (s *MemoryTokenStore) Put(_ context.Context, sid string, pair models.TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairs[sid] = pair
	return nil
}

func (s *MemoryTokenStore) Delete(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pairs, sid)
	return nil
}

// Len returns the number of stored sessions.
func (s *MemoryTokenStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pairs)
}

func (s *MemoryTokenStore) Close() error { return nil }
