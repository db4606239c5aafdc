package recstore

import (
	"context"
	"sync"
	"time"

	"github.com/jlin-dev/carbonlens/internal/domain/recommend"
)

type storedEntry struct {
	payload   recommend.Entry
	expiresAt time.Time
}

// MemoryStore is an in-memory recommendation store for tests/dev.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]storedEntry
	now     func() time.Time
}

// NewMemoryStore constructs a store backed by process memory.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]storedEntry),
		now:     time.Now,
	}
}

// Get implements recommend.Store.
func (s *MemoryStore) Get(_ context.Context, tenant string) (recommend.Entry, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[tenant]
	s.mu.RUnlock()
	if !ok {
		return recommend.Entry{}, false, nil
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, tenant)
		s.mu.Unlock()
		return recommend.Entry{}, false, nil
	}
	return entry.payload, true, nil
}

// Put overwrites the tenant's entry wholesale.
func (s *MemoryStore) Put(_ context.Context, tenant string, entry recommend.Entry, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp := time.Time{}
	if ttl > 0 {
		exp = s.now().Add(ttl)
	}
	s.entries[tenant] = storedEntry{payload: entry, expiresAt: exp}
	return nil
}

// Invalidate removes the entry unconditionally.
func (s *MemoryStore) Invalidate(_ context.Context, tenant string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, tenant)
	return nil
}

var _ recommend.Store = (*MemoryStore)(nil)
