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

func newRedisRepo(t *testing.T) (*RedisRepository, *mr.Miniredis) {
	t.Helper()
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return NewRedisRepository(redis.NewClient(&redis.Options{Addr: m.Addr()}), "mutsasns:session:"), m
}

func TestRedisRepository_RoundTrip(t *testing.T) {
	repo, m := newRedisRepo(t)
	ctx := context.Background()
	exp := time.Now().UTC().Add(time.Hour).Truncate(time.Second)

	require.NoError(t, repo.Create(ctx, &Session{RefreshToken: "r1", Username: "bob", ExpiresAt: exp}))
	assert.True(t, m.Exists("mutsasns:session:r1"))
	assert.Equal(t, "bob", m.HGet("mutsasns:session:r1", "username"))

	got, err := repo.GetByRefresh(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "bob", got.Username)
	assert.True(t, exp.Equal(got.ExpiresAt))
	assert.False(t, got.CreatedAt.IsZero())

	require.NoError(t, repo.DeleteByRefresh(ctx, "r1"))
	got, err = repo.GetByRefresh(ctx, "r1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisRepository_KeyExpiresWithSession(t *testing.T) {
	repo, m := newRedisRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &Session{RefreshToken: "r2", Username: "alice", ExpiresAt: time.Now().Add(2 * time.Second)}))
	assert.Positive(t, m.TTL("mutsasns:session:r2"))

	m.FastForward(3 * time.Second)
	got, err := repo.GetByRefresh(ctx, "r2")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisRepository_DefaultPrefix(t *testing.T) {
	assert.Equal(t, "session:x", NewRedisRepository(nil, "").key("x"))
}
