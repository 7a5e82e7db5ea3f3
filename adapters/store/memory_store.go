package store

import (
	"context"
	"sync"

	"github.com/osool-hq/bawaba/core"
	"github.com/osool-hq/bawaba/ports"
)

// MemoryStore is an in-memory implementation of the TokenStore
// interface. The session does not survive a restart; use RedisStore
// when persistence across restarts is needed.
type MemoryStore struct {
	access  string
	refresh string
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory token store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Set persists the credential pair
func (s *MemoryStore) Set(ctx context.Context, pair core.TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.access = pair.AccessToken
	if pair.RefreshToken != "" {
		s.refresh = pair.RefreshToken
	}
	return nil
}

// Pair returns the stored credential pair
func (s *MemoryStore) Pair(ctx context.Context) (core.TokenPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.access == "" && s.refresh == "" {
		return core.TokenPair{}, core.ErrNoSession
	}

	return core.TokenPair{AccessToken: s.access, RefreshToken: s.refresh}, nil
}

// Clear removes both tokens
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.access = ""
	s.refresh = ""
	return nil
}

var _ ports.TokenStore = (*MemoryStore)(nil)
