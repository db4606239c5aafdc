package recommend

import (
	"context"
	"time"
)

// Store persists one cache entry per tenant. Implementations may expire
// entries on their own, but the service re-checks freshness at read time so
// the 24-hour staleness window holds regardless of backend.
type Store interface {
	Get(ctx context.Context, tenant string) (Entry, bool, error)
	Put(ctx context.Context, tenant string, entry Entry, ttl time.Duration) error
	Invalidate(ctx context.Context, tenant string) error
}
