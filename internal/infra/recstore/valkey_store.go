package recstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/jlin-dev/carbonlens/internal/domain/recommend"
)

// ValkeyStore persists recommendation entries in a Valkey-compatible
// database. The server-side expiry is a backstop; the service still checks
// entry age at read time.
type ValkeyStore struct {
	client valkey.Client
	prefix string
}

// NewValkeyStore constructs a new store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = "rec"
	}
	return &ValkeyStore{client: client, prefix: prefix}
}

// Get implements recommend.Store.
func (s *ValkeyStore) Get(ctx context.Context, tenant string) (recommend.Entry, bool, error) {
	if tenant == "" {
		return recommend.Entry{}, false, nil
	}
	cmd := s.client.B().Get().Key(s.key(tenant)).Build()
	payload, err := s.client.Do(ctx, cmd).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return recommend.Entry{}, false, nil
		}
		return recommend.Entry{}, false, err
	}
	var entry recommend.Entry
	if err := json.Unmarshal([]byte(payload), &entry); err != nil {
		return recommend.Entry{}, false, err
	}
	return entry, true, nil
}

// Put overwrites the tenant's entry wholesale.
func (s *ValkeyStore) Put(ctx context.Context, tenant string, entry recommend.Entry, ttl time.Duration) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	builder := s.client.B().Set().Key(s.key(tenant)).Value(string(payload))
	var cmd valkey.Completed
	if ttl > 0 {
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return s.client.Do(ctx, cmd).Error()
}

// Invalidate removes the entry unconditionally.
func (s *ValkeyStore) Invalidate(ctx context.Context, tenant string) error {
	return s.client.Do(ctx, s.client.B().Del().Key(s.key(tenant)).Build()).Error()
}

func (s *ValkeyStore) key(tenant string) string {
	return s.prefix + ":tenant:" + tenant
}

var _ recommend.Store = (*ValkeyStore)(nil)
