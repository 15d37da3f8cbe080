package sessions

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withBlacklist(t *testing.T) *mr.Miniredis {
	t.Helper()
	m, err := mr.Run()
	require.NoError(t, err)
	SetBlacklistClient(redis.NewClient(&redis.Options{Addr: m.Addr()}))
	t.Cleanup(func() {
		SetBlacklistClient(nil)
		m.Close()
	})
	return m
}

func TestBlacklist_ExpiresWithToken(t *testing.T) {
	m := withBlacklist(t)
	ctx := context.Background()

	require.NoError(t, BlacklistAccessToken(ctx, "at-1", 2*time.Second))
	assert.True(t, m.Exists(blacklistPrefix+"at-1"))

	revoked, err := IsAccessTokenBlacklisted(ctx, "at-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	m.FastForward(3 * time.Second)
	revoked, err = IsAccessTokenBlacklisted(ctx, "at-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestBlacklist_AlreadyExpiredTokenIsSkipped(t *testing.T) {
	m := withBlacklist(t)
	require.NoError(t, BlacklistAccessToken(context.Background(), "at-old", -time.Second))
	assert.False(t, m.Exists(blacklistPrefix+"at-old"))
}

func TestBlacklist_WithoutRedis(t *testing.T) {
	SetBlacklistClient(nil)
	ctx := context.Background()
	require.NoError(t, BlacklistAccessToken(ctx, "at-2", time.Minute))
	revoked, err := IsAccessTokenBlacklisted(ctx, "at-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}
