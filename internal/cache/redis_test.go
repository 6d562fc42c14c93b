package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*RedisBackend, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	b := NewRedisBackendFromClient(client, "authd:")
	t.Cleanup(func() { _ = b.Close() })
	return b, mr
}

func TestRedisBackend_GetSet(t *testing.T) {
	b, mr := newTestRedis(t)
	ctx := context.Background()

	_, ok, err := b.Get(ctx, RoleKey("1", "billing"))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Set(ctx, RoleKey("1", "billing"), []string{"viewer", "approver"}, time.Minute))
	assert.True(t, mr.Exists("authd:user:1:app:billing:roles"))

	roles, ok, err := b.Get(ctx, RoleKey("1", "billing"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"viewer", "approver"}, roles)

	require.NoError(t, b.Set(ctx, RoleKey("1", "crm"), nil, time.Minute))
	roles, ok, err = b.Get(ctx, RoleKey("1", "crm"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, roles)

	assert.ErrorIs(t, b.Set(ctx, "k", nil, 0), ErrInvalidTTL)
}

func TestRedisBackend_TTL(t *testing.T) {
	b, mr := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "k", []string{"r"}, 30*time.Second))
	assert.Equal(t, 30*time.Second, mr.TTL("authd:k"))

	mr.FastForward(31 * time.Second)
	_, ok, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisBackend_DeleteAndPattern(t *testing.T) {
	b, mr := newTestRedis(t)
	ctx := context.Background()

	for _, key := range []string{RoleKey("1", "billing"), RoleKey("1", "crm"), RoleKey("12", "billing")} {
		require.NoError(t, b.Set(ctx, key, []string{"r"}, time.Minute))
	}
	require.NoError(t, mr.Set("other:namespace", "x"))

	removed, err := b.Delete(ctx, RoleKey("1", "crm"))
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = b.Delete(ctx, RoleKey("1", "crm"))
	require.NoError(t, err)
	assert.False(t, removed)

	n, err := b.DeletePattern(ctx, UserPrefix("1"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = b.DeletePattern(ctx, UserPrefix("404"))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	stats, err := b.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, 0, stats.MaxSize)

	require.NoError(t, b.Clear(ctx))
	assert.False(t, mr.Exists("authd:"+RoleKey("12", "billing")))
	assert.True(t, mr.Exists("other:namespace"), "clear is scoped to the prefix")
}

func TestRedisBackend_GlobCharactersInKeys(t *testing.T) {
	b, _ := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, RoleKey("a*", "x"), nil, time.Minute))
	require.NoError(t, b.Set(ctx, RoleKey("ab", "x"), nil, time.Minute))

	n, err := b.DeletePattern(ctx, UserPrefix("a*"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, ok, err := b.Get(ctx, RoleKey("ab", "x"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewRedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)

	b, err := NewRedisBackend(context.Background(), "redis://"+mr.Addr()+"/0", "authd:")
	require.NoError(t, err)
	require.NoError(t, b.Close())

	_, err = NewRedisBackend(context.Background(), "::not a url", "authd:")
	assert.Error(t, err)
}
