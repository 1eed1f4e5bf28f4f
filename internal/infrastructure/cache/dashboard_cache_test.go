package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshot struct {
	Revenue float64 `json:"revenue"`
	Count   int     `json:"count"`
}

func newTestCache(t *testing.T) (*DashboardCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewDashboardCache(client, time.Minute), mr
}

func TestDashboardCacheRoundTrip(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	tenant := uuid.New()

	var got snapshot
	found, err := c.Get(ctx, tenant, &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, tenant, snapshot{Revenue: 194.4, Count: 3}))
	assert.True(t, mr.Exists(dashboardKey(tenant)))

	found, err = c.Get(ctx, tenant, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, snapshot{Revenue: 194.4, Count: 3}, got)

	require.NoError(t, c.Invalidate(ctx, tenant))
	found, err = c.Get(ctx, tenant, &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDashboardCacheExpires(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	tenant := uuid.New()

	require.NoError(t, c.Set(ctx, tenant, snapshot{Count: 1}))
	mr.FastForward(2 * time.Minute)

	var got snapshot
	found, err := c.Get(ctx, tenant, &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDashboardCacheWithoutClient(t *testing.T) {
	c := NewDashboardCache(nil, 0)
	var got snapshot

	found, err := c.Get(context.Background(), uuid.New(), &got)
	assert.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, c.Set(context.Background(), uuid.New(), got))
	assert.NoError(t, c.Invalidate(context.Background(), uuid.New()))
}
