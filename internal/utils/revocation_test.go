package utils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRevocationStore(t *testing.T) (*RedisRevocationStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisRevocationStore(rdb), mr
}

func TestRevokeMarksTokenUntilTTL(t *testing.T) {
	store, mr := newRevocationStore(t)
	ctx := context.Background()

	revoked, err := store.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, "abc", time.Minute))
	revoked, err = store.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.Equal(t, time.Minute, mr.TTL(revokedKeyPrefix+"abc"))

	other, err := store.IsRevoked(ctx, "def")
	require.NoError(t, err)
	assert.False(t, other)

	mr.FastForward(2 * time.Minute)
	revoked, err = store.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevokeSkipsExpiredTokens(t *testing.T) {
	store, mr := newRevocationStore(t)
	require.NoError(t, store.Revoke(context.Background(), "gone", 0))
	assert.False(t, mr.Exists(revokedKeyPrefix+"gone"))
}

func TestIsRevokedSurfacesRedisErrors(t *testing.T) {
	store, mr := newRevocationStore(t)
	mr.Close()
	_, err := store.IsRevoked(context.Background(), "abc")
	assert.Error(t, err)
}
