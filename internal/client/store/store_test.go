package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_CreatesSchema(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Every repository must be usable against the migrated schema.
	sites, err := s.Catalog.AllSites(ctx)
	require.NoError(t, err)
	assert.Empty(t, sites)

	orders, err := s.WorkOrders.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)

	pending, err := s.Outbox.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	dead, err := s.Outbox.ListDead(ctx)
	require.NoError(t, err)
	assert.Empty(t, dead)

	n, err := s.Shell.Count(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRunMigrations_IsIdempotent(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, RunMigrations(context.Background(), s.DB))
}

func TestClientID_StableAcrossCalls(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.ClientID(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := s.ClientID(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
