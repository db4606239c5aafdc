package activityrepo

import (
	"context"
	"sync"

	"github.com/jlin-dev/carbonlens/internal/domain/analytics"
)

// MemoryRepository is an in-memory activity source for tests/dev.
type MemoryRepository struct {
	mu         sync.RWMutex
	activities map[string][]analytics.RawActivity
}

// NewMemoryRepository constructs an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{activities: make(map[string][]analytics.RawActivity)}
}

// Seed replaces the stored activities for a tenant.
func (r *MemoryRepository) Seed(tenant string, raws []analytics.RawActivity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activities[tenant] = append([]analytics.RawActivity(nil), raws...)
}

// Activities implements analytics.ActivityReader. Filtering happens in the
// domain layer; this source returns everything it holds for the tenant.
func (r *MemoryRepository) Activities(_ context.Context, tenant string, _ analytics.Filters) ([]analytics.RawActivity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]analytics.RawActivity(nil), r.activities[tenant]...), nil
}

var _ analytics.ActivityReader = (*MemoryRepository)(nil)
