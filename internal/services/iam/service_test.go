package iam

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmurielSett/secHTTPS-sub001/internal/cache"
)

func TestNewService_RequiresDependencies(t *testing.T) {
	store := newFakeStore()
	tokens := newTestIssuer(t, nil)
	rc := cache.NewRoleCache(cache.Options{MaxSize: 10})
	t.Cleanup(func() { _ = rc.Close() })

	tests := []struct {
		name string
		deps Dependencies
	}{
		{name: "users", deps: Dependencies{Roles: store, Tokens: tokens, Cache: rc}},
		{name: "roles", deps: Dependencies{Users: store, Tokens: tokens, Cache: rc}},
		{name: "token issuer", deps: Dependencies{Users: store, Roles: store, Cache: rc}},
		{name: "cache backend", deps: Dependencies{Users: store, Roles: store, Tokens: tokens}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewService(tt.deps)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.name)
		})
	}
}

func TestService_LoginCheckRefresh(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	store := newFakeStore()
	store.addUser("u-admin", "admin", DatabaseProviderName)
	store.grant("u-admin", "billing", "admin")

	rc := cache.NewRoleCache(cache.Options{MaxSize: 10, SweepInterval: 24 * time.Hour, Clock: clk})
	t.Cleanup(func() { _ = rc.Close() })

	svc, err := NewService(Dependencies{
		Users:        store,
		Roles:        store,
		Applications: store,
		Providers: []Provider{
			newFakeProvider("corp-ldap", ProviderKindDirectory, false, nil),
			newFakeProvider(DatabaseProviderName, ProviderKindDatabase, true, map[string]string{"admin": "pw"}),
		},
		Tokens: newTestIssuer(t, clk),
		Cache:  rc,
	})
	require.NoError(t, err)
	require.Len(t, svc.Providers(), 2)

	ctx := context.Background()
	res, err := svc.Login(ctx, Credentials{Username: "admin", Password: "pw", Application: "billing"})
	require.NoError(t, err)

	claims, err := svc.VerifyAccessToken(res.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u-admin", claims.UserID)

	ok, err := svc.CheckAccess(ctx, claims.UserID, "billing", "admin")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, svc.AssignRole(ctx, claims.UserID, "billing", "auditor"))
	all, err := svc.HasAllRoles(ctx, claims.UserID, "billing", []string{"admin", "auditor"})
	require.NoError(t, err)
	assert.True(t, all)

	stats, err := svc.CacheStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Size)

	clk.Add(time.Second)
	pair, err := svc.Refresh(ctx, res.Tokens.RefreshToken)
	require.NoError(t, err)

	refreshed, err := svc.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"admin", "auditor"}, refreshed.Roles)

	n, err := svc.InvalidateUserCache(ctx, claims.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
