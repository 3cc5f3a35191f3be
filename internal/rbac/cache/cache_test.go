package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/accessgate/internal/rbac/domain"
)

func newTestCache(t *testing.T) (*RedisPermissionCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisPermissionCache(client, time.Minute), mr
}

func sampleSet() domain.PermissionSet {
	return domain.PermissionSet{
		{Resource: "visitor", Action: "read"}:  {Granted: false, Source: domain.SourceRole, Role: "STAFF"},
		{Resource: "report", Action: "export"}: {Granted: true, Source: domain.SourceDirect},
	}
}

func TestRedisPermissionCache_RoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV7())

	_, ok, err := cache.Get(ctx, userID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, userID, sampleSet()))

	set, ok, err := cache.Get(ctx, userID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleSet(), set)
	assert.False(t, set.Allows("visitor", "read"))
}

func TestRedisPermissionCache_Invalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV7())

	require.NoError(t, cache.Set(ctx, userID, sampleSet()))
	require.NoError(t, cache.Invalidate(ctx))

	_, ok, err := cache.Get(ctx, userID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisPermissionCache_TTL(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV7())

	require.NoError(t, cache.Set(ctx, userID, sampleSet()))
	mr.FastForward(2 * time.Minute)

	_, ok, err := cache.Get(ctx, userID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisPermissionCache_ServerDown(t *testing.T) {
	cache, mr := newTestCache(t)
	mr.Close()

	_, _, err := cache.Get(context.Background(), uuid.Must(uuid.NewV7()))
	assert.Error(t, err)
}

func TestNoopPermissionCache(t *testing.T) {
	var cache NoopPermissionCache
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV7())

	require.NoError(t, cache.Set(ctx, userID, sampleSet()))
	_, ok, err := cache.Get(ctx, userID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, cache.Invalidate(ctx))
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	assert.NoError(t, client.Close())

	_, err = NewRedisClient(context.Background(), "not-a-url")
	assert.Error(t, err)
}
