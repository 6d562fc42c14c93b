package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestCache(t *testing.T, maxSize int) (*RoleCache, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	c := NewRoleCache(Options{MaxSize: maxSize, SweepInterval: time.Hour, Clock: mock})
	t.Cleanup(func() { _ = c.Close() })
	return c, mock
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "user:42:app:billing:roles", RoleKey("42", "billing"))
	assert.Equal(t, "user:42:", UserPrefix("42"))
}

func TestRoleCache_GetSet(t *testing.T) {
	c, _ := newTestCache(t, 10)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", []string{"viewer"}, time.Minute))
	roles, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"viewer"}, roles)

	// returned slices are copies
	roles[0] = "mutated"
	roles, _, _ = c.Get(ctx, "k")
	assert.Equal(t, []string{"viewer"}, roles)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Size: 1, MaxSize: 10, Hits: 2, Misses: 1}, stats)
}

func TestRoleCache_EmptyRoleSetIsAHit(t *testing.T) {
	c, _ := newTestCache(t, 10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", nil, time.Minute))
	roles, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, roles)
	assert.NotNil(t, roles)
}

func TestRoleCache_InvalidTTL(t *testing.T) {
	c, _ := newTestCache(t, 10)
	assert.ErrorIs(t, c.Set(context.Background(), "k", nil, 0), ErrInvalidTTL)
}

func TestRoleCache_LazyExpiry(t *testing.T) {
	c, mock := newTestCache(t, 10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []string{"viewer"}, 30*time.Second))

	mock.Add(29 * time.Second)
	_, ok, _ := c.Get(ctx, "k")
	assert.True(t, ok)

	mock.Add(time.Second)
	_, ok, _ = c.Get(ctx, "k")
	assert.False(t, ok)

	stats, _ := c.Stats(ctx)
	assert.Equal(t, 0, stats.Size, "expired entry removed on read")
}

// Capacity 3, insert a b c, insert d: a is evicted.
func TestRoleCache_EvictsOldestInserted(t *testing.T) {
	c, _ := newTestCache(t, 3)
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, c.Set(ctx, k, []string{k}, time.Hour))
	}
	// reads do not reorder
	_, ok, _ := c.Get(ctx, "a")
	require.True(t, ok)

	require.NoError(t, c.Set(ctx, "d", []string{"d"}, time.Hour))

	_, ok, _ = c.Get(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, []string{"b", "c", "d"}, c.Keys())

	stats, _ := c.Stats(ctx)
	assert.Equal(t, 3, stats.Size)
	assert.Equal(t, uint64(1), stats.Evictions)
}

func TestRoleCache_UpdateKeepsPosition(t *testing.T) {
	c, mock := newTestCache(t, 3)
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, c.Set(ctx, k, []string{k}, time.Minute))
	}

	mock.Add(50 * time.Second)
	require.NoError(t, c.Set(ctx, "a", []string{"updated"}, time.Minute))
	assert.Equal(t, []string{"a", "b", "c"}, c.Keys())

	// TTL was refreshed by the update
	mock.Add(30 * time.Second)
	roles, ok, _ := c.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, []string{"updated"}, roles)

	// a is still the oldest insertion
	require.NoError(t, c.Set(ctx, "d", nil, time.Minute))
	_, ok, _ = c.Get(ctx, "a")
	assert.False(t, ok)
}

func TestRoleCache_Delete(t *testing.T) {
	c, _ := newTestCache(t, 10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, RoleKey("1", "billing"), []string{"viewer"}, time.Minute))

	removed, err := c.Delete(ctx, RoleKey("1", "billing"))
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = c.Delete(ctx, RoleKey("1", "billing"))
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestRoleCache_DeletePattern(t *testing.T) {
	c, _ := newTestCache(t, 10)
	ctx := context.Background()

	for _, key := range []string{
		RoleKey("1", "billing"),
		RoleKey("1", "crm"),
		RoleKey("12", "billing"),
		RoleKey("2", "billing"),
	} {
		require.NoError(t, c.Set(ctx, key, []string{"r"}, time.Minute))
	}

	n, err := c.DeletePattern(ctx, UserPrefix("1"))
	require.NoError(t, err)
	assert.Equal(t, 2, n, "user 12 shares the digit but not the prefix")
	assert.ElementsMatch(t, []string{RoleKey("12", "billing"), RoleKey("2", "billing")}, c.Keys())

	n, err = c.DeletePattern(ctx, UserPrefix("99"))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRoleCache_Clear(t *testing.T) {
	c, _ := newTestCache(t, 10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", nil, time.Minute))
	require.NoError(t, c.Set(ctx, "b", nil, time.Minute))
	require.NoError(t, c.Clear(ctx))

	stats, _ := c.Stats(ctx)
	assert.Equal(t, 0, stats.Size)
	assert.Empty(t, c.Keys())
}

func TestRoleCache_SweeperRemovesExpired(t *testing.T) {
	mock := clock.NewMock()
	c := NewRoleCache(Options{MaxSize: 10, SweepInterval: time.Minute, Clock: mock})
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", nil, 30*time.Second))
	require.NoError(t, c.Set(ctx, "long", nil, time.Hour))

	mock.Add(time.Minute)

	assert.Eventually(t, func() bool {
		return len(c.Keys()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"long"}, c.Keys())
}

func TestRoleCache_CloseIdempotent(t *testing.T) {
	c := NewRoleCache(Options{MaxSize: 1, SweepInterval: time.Millisecond})
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}

func TestRoleCache_Concurrent(t *testing.T) {
	c, _ := newTestCache(t, 50)
	ctx := context.Background()

	done := make(chan struct{})
	for w := 0; w < 8; w++ {
		go func(w int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 200; i++ {
				key := RoleKey(fmt.Sprint(i%20), fmt.Sprint(w))
				_ = c.Set(ctx, key, []string{"r"}, time.Minute)
				_, _, _ = c.Get(ctx, key)
				if i%50 == 0 {
					_, _ = c.DeletePattern(ctx, UserPrefix(fmt.Sprint(i%20)))
				}
			}
		}(w)
	}
	for w := 0; w < 8; w++ {
		<-done
	}

	stats, _ := c.Stats(ctx)
	assert.LessOrEqual(t, stats.Size, 50)
}
