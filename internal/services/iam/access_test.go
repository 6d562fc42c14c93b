package iam

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmurielSett/secHTTPS-sub001/internal/cache"
)

func newAccessFixture(t *testing.T, ttl time.Duration) (*fakeStore, *clock.Mock, *cache.RoleCache, *AccessVerifier) {
	t.Helper()
	clk := clock.NewMock()
	clk.Set(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	rc := cache.NewRoleCache(cache.Options{MaxSize: 100, SweepInterval: 24 * time.Hour, Clock: clk})
	t.Cleanup(func() { _ = rc.Close() })

	store := newFakeStore()
	return store, clk, rc, NewAccessVerifier(store, rc, ttl)
}

func TestAccessVerifier_StaleUntilTTL(t *testing.T) {
	store, clk, _, v := newAccessFixture(t, 60*time.Second)
	ctx := context.Background()

	ok, err := v.CheckAccess(ctx, "u-1", "app", "admin")
	require.NoError(t, err)
	assert.False(t, ok)

	clk.Add(10 * time.Second)
	store.grant("u-1", "app", "admin")

	clk.Add(20 * time.Second)
	ok, err = v.CheckAccess(ctx, "u-1", "app", "admin")
	require.NoError(t, err)
	assert.False(t, ok, "cached empty role set is served until it expires")
	assert.Equal(t, 1, store.queries())

	clk.Add(31 * time.Second)
	ok, err = v.CheckAccess(ctx, "u-1", "app", "admin")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, store.queries())
}

func TestAccessVerifier_InvalidationForcesLookup(t *testing.T) {
	store, _, rc, v := newAccessFixture(t, time.Hour)
	ctx := context.Background()
	store.grant("u-1", "billing", "viewer")
	store.grant("u-1", "payroll", "clerk")

	_, err := v.CheckAccess(ctx, "u-1", "billing", "admin")
	require.NoError(t, err)
	_, err = v.CheckAccess(ctx, "u-1", "payroll", "clerk")
	require.NoError(t, err)
	_, err = v.CheckAccess(ctx, "u-10", "billing", "viewer")
	require.NoError(t, err)
	assert.Equal(t, 3, store.queries())

	store.grant("u-1", "billing", "admin")

	removed, err := v.InvalidateUserAppCache(ctx, "u-1", "billing")
	require.NoError(t, err)
	assert.True(t, removed)

	ok, err := v.CheckAccess(ctx, "u-1", "billing", "admin")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 4, store.queries())

	n, err := v.InvalidateUserCache(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, found, err := rc.Get(ctx, cache.RoleKey("u-10", "billing"))
	require.NoError(t, err)
	assert.True(t, found, "prefix invalidation must not touch u-10")
}

func TestAccessVerifier_AnyAndAll(t *testing.T) {
	store, _, _, v := newAccessFixture(t, time.Hour)
	ctx := context.Background()
	store.grant("u-1", "billing", "viewer", "editor")

	tests := []struct {
		name    string
		roles   []string
		wantAny bool
		wantAll bool
	}{
		{name: "empty list", roles: nil, wantAny: false, wantAll: true},
		{name: "all held", roles: []string{"viewer", "editor"}, wantAny: true, wantAll: true},
		{name: "some held", roles: []string{"viewer", "admin"}, wantAny: true, wantAll: false},
		{name: "none held", roles: []string{"admin"}, wantAny: false, wantAll: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			anyOK, err := v.HasAnyRole(ctx, "u-1", "billing", tt.roles)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAny, anyOK)

			allOK, err := v.HasAllRoles(ctx, "u-1", "billing", tt.roles)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAll, allOK)
		})
	}
	assert.Equal(t, 1, store.queries())
}

func TestAccessVerifier_StorageErrorNotCached(t *testing.T) {
	store, _, _, v := newAccessFixture(t, time.Hour)
	ctx := context.Background()
	store.failRoles = true

	_, err := v.CheckAccess(ctx, "u-1", "billing", "viewer")
	require.ErrorIs(t, err, errStorageDown)

	store.failRoles = false
	store.grant("u-1", "billing", "viewer")

	ok, err := v.CheckAccess(ctx, "u-1", "billing", "viewer")
	require.NoError(t, err)
	assert.True(t, ok)
}

// pausingSource reads from the wrapped source, then blocks its first call
// until released, simulating a slow storage read.
type pausingSource struct {
	RoleSource
	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func newPausingSource(src RoleSource) *pausingSource {
	return &pausingSource{RoleSource: src, read: make(chan struct{}), release: make(chan struct{})}
}

func (p *pausingSource) GetRolesForApplication(ctx context.Context, userID, application string) ([]string, error) {
	roles, err := p.RoleSource.GetRolesForApplication(ctx, userID, application)
	p.once.Do(func() {
		close(p.read)
		<-p.release
	})
	return roles, err
}

func TestAccessVerifier_InvalidationDuringLookupIsNotOverwritten(t *testing.T) {
	tests := []struct {
		name       string
		invalidate func(ctx context.Context, v *AccessVerifier) error
	}{
		{
			name: "user and application",
			invalidate: func(ctx context.Context, v *AccessVerifier) error {
				_, err := v.InvalidateUserAppCache(ctx, "u-1", "billing")
				return err
			},
		},
		{
			name: "whole user",
			invalidate: func(ctx context.Context, v *AccessVerifier) error {
				_, err := v.InvalidateUserCache(ctx, "u-1")
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, rc, _ := newAccessFixture(t, time.Hour)
			ctx := context.Background()
			store := newFakeStore()
			store.grant("u-1", "billing", "admin")
			src := newPausingSource(store)
			v := NewAccessVerifier(src, rc, time.Hour)

			inFlight := make(chan bool, 1)
			go func() {
				ok, _ := v.CheckAccess(ctx, "u-1", "billing", "admin")
				inFlight <- ok
			}()

			<-src.read
			removed, err := store.RevokeRole(ctx, "u-1", "billing", "admin")
			require.NoError(t, err)
			require.True(t, removed)
			require.NoError(t, tt.invalidate(ctx, v))
			close(src.release)

			assert.True(t, <-inFlight, "the in-flight check answers from what it read")

			_, found, err := rc.Get(ctx, cache.RoleKey("u-1", "billing"))
			require.NoError(t, err)
			assert.False(t, found, "roles read before the revoke must not be cached")

			ok, err := v.CheckAccess(ctx, "u-1", "billing", "admin")
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Equal(t, 2, store.queries())
		})
	}
}

func TestAccessVerifier_FillAfterInvalidationIsCached(t *testing.T) {
	store, _, rc, v := newAccessFixture(t, time.Hour)
	ctx := context.Background()
	store.grant("u-1", "billing", "viewer")

	_, err := v.InvalidateUserAppCache(ctx, "u-1", "billing")
	require.NoError(t, err)

	ok, err := v.CheckAccess(ctx, "u-1", "billing", "viewer")
	require.NoError(t, err)
	assert.True(t, ok)

	roles, found, err := rc.Get(ctx, cache.RoleKey("u-1", "billing"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"viewer"}, roles)
}

// brokenCache fails every operation.
type brokenCache struct{}

var errCacheDown = errors.New("cache down")

func (brokenCache) Get(context.Context, string) ([]string, bool, error) {
	return nil, false, errCacheDown
}
func (brokenCache) Set(context.Context, string, []string, time.Duration) error {
	return errCacheDown
}
func (brokenCache) Delete(context.Context, string) (bool, error)       { return false, errCacheDown }
func (brokenCache) DeletePattern(context.Context, string) (int, error) { return 0, errCacheDown }
func (brokenCache) Clear(context.Context) error                        { return errCacheDown }
func (brokenCache) Stats(context.Context) (cache.Stats, error)         { return cache.Stats{}, errCacheDown }

func TestAccessVerifier_CacheFaultFallsBackToStorage(t *testing.T) {
	store := newFakeStore()
	store.grant("u-1", "billing", "viewer")
	v := NewAccessVerifier(store, brokenCache{}, time.Minute)

	ok, err := v.CheckAccess(context.Background(), "u-1", "billing", "viewer")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = v.InvalidateUserCache(context.Background(), "u-1")
	assert.ErrorIs(t, err, errCacheDown)
}

func TestRoleAdmin_InvalidatesEntry(t *testing.T) {
	store, _, _, v := newAccessFixture(t, time.Hour)
	ctx := context.Background()
	admin := NewRoleAdmin(store, v)

	ok, err := v.CheckAccess(ctx, "u-1", "billing", "admin")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, admin.AssignRole(ctx, "u-1", "billing", "admin"))
	ok, err = v.CheckAccess(ctx, "u-1", "billing", "admin")
	require.NoError(t, err)
	assert.True(t, ok)

	removed, err := admin.RevokeRole(ctx, "u-1", "billing", "admin")
	require.NoError(t, err)
	assert.True(t, removed)
	ok, err = v.CheckAccess(ctx, "u-1", "billing", "admin")
	require.NoError(t, err)
	assert.False(t, ok)

	removed, err = admin.RevokeRole(ctx, "u-1", "billing", "admin")
	require.NoError(t, err)
	assert.False(t, removed)

	assert.ErrorIs(t, admin.AssignRole(ctx, "", "billing", "admin"), ErrInvalidRoleRequest)
}
