package activityrepo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jlin-dev/carbonlens/internal/domain/analytics"
)

func TestMemoryRepositoryTenantIsolation(t *testing.T) {
	repo := NewMemoryRepository()
	repo.Seed("acme", []analytics.RawActivity{{ID: "a1"}, {ID: "a2"}})
	repo.Seed("globex", []analytics.RawActivity{{ID: "g1"}})

	acme, err := repo.Activities(context.Background(), "acme", analytics.Filters{})
	require.NoError(t, err)
	require.Len(t, acme, 2)

	globex, err := repo.Activities(context.Background(), "globex", analytics.Filters{})
	require.NoError(t, err)
	require.Equal(t, "g1", globex[0].ID)

	empty, err := repo.Activities(context.Background(), "unknown", analytics.Filters{})
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestMemoryRepositoryReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository()
	repo.Seed("acme", []analytics.RawActivity{{ID: "a1"}})

	got, err := repo.Activities(context.Background(), "acme", analytics.Filters{})
	require.NoError(t, err)
	got[0].ID = "mutated"

	again, err := repo.Activities(context.Background(), "acme", analytics.Filters{})
	require.NoError(t, err)
	require.Equal(t, "a1", again[0].ID)
}
