package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	identity  Identity
	expiresAt time.Time
}

// MemoryStore is the single-process registry used when no Redis is configured.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) SaveIdentity(_ context.Context, tokenHash string, identity Identity, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = s.now().UTC()
	}
	s.entries[tokenHash] = memoryEntry{identity: identity, expiresAt: expiresAt}
	return nil
}

func (s *MemoryStore) LookupIdentity(_ context.Context, tokenHash string) (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[tokenHash]
	if !ok {
		return Identity{}, ErrNotFound
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		delete(s.entries, tokenHash)
		return Identity{}, ErrNotFound
	}
	return entry.identity, nil
}

func (s *MemoryStore) RevokeIdentity(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, tokenHash)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
