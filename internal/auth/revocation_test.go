package auth

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestMemoryRevocations_ExpireWithTheToken(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	r := NewMemoryRevocations()
	r.clock = func() time.Time { return now }

	require.Error(t, r.Revoke(ctx, "", time.Minute))
	require.NoError(t, r.Revoke(ctx, "jti-1", time.Minute))

	revoked, err := r.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.True(t, revoked)

	revoked, err = r.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	require.False(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, err = r.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.False(t, revoked)
	require.Empty(t, r.revoked)
}

func TestRedisRevocations_Guards(t *testing.T) {
	ctx := context.Background()

	var empty RedisRevocations
	require.Error(t, empty.Revoke(ctx, "jti", time.Minute))
	_, err := empty.IsRevoked(ctx, "jti")
	require.Error(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer rdb.Close()
	r := NewRedisRevocations(rdb)
	require.Error(t, r.Revoke(ctx, "", time.Minute))
	require.NoError(t, r.Revoke(ctx, "jti", 0), "an expired token needs no entry")
}
