package iam

import (
	"context"
	"errors"

	"github.com/jmurielSett/secHTTPS-sub001/internal/auth"
	"github.com/jmurielSett/secHTTPS-sub001/internal/cache"
	"github.com/jmurielSett/secHTTPS-sub001/internal/telemetry"
)

// Service provides every authentication and authorization operation.
//
// Request path:
//   - Login and Refresh mint token pairs
//   - VerifyAccessToken validates bearer tokens
//   - CheckAccess, HasAnyRole and HasAllRoles answer role checks from the cache
//
// Admin path:
//   - AssignRole and RevokeRole mutate grants and invalidate the affected entry
//   - InvalidateUserCache and InvalidateUserAppCache drop cached role sets
type Service interface {
	Login(ctx context.Context, creds Credentials) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error)

	// VerifyAccessToken returns ErrInvalidOrExpiredToken for any failure.
	VerifyAccessToken(token string) (*auth.Claims, error)

	CheckAccess(ctx context.Context, userID, application, role string) (bool, error)
	HasAnyRole(ctx context.Context, userID, application string, roles []string) (bool, error)
	HasAllRoles(ctx context.Context, userID, application string, roles []string) (bool, error)

	AssignRole(ctx context.Context, userID, application, role string) error
	RevokeRole(ctx context.Context, userID, application, role string) (bool, error)

	InvalidateUserCache(ctx context.Context, userID string) (int, error)
	InvalidateUserAppCache(ctx context.Context, userID, application string) (bool, error)
	CacheStats(ctx context.Context) (cache.Stats, error)

	// Providers lists the cascade in priority order.
	Providers() []Provider
}

// Dependencies contains everything needed to build a Service.
type Dependencies struct {
	Users        UserDirectory
	Roles        RoleStore
	Applications ApplicationConfig // optional; nil disables directory auto-sync
	Providers    []Provider
	Tokens       *auth.TokenIssuer
	Cache        cache.Backend
	Metrics      *telemetry.AuthMetrics // optional
}

type service struct {
	cascade  *Cascade
	login    *LoginService
	refresh  *RefreshService
	verifier *AccessVerifier
	admin    *RoleAdmin
	tokens   *auth.TokenIssuer
}

var _ Service = (*service)(nil)

// NewService wires the login, refresh and access components. The role cache
// TTL equals the access token TTL.
func NewService(deps Dependencies) (Service, error) {
	switch {
	case deps.Users == nil:
		return nil, errors.New("iam: users is required")
	case deps.Roles == nil:
		return nil, errors.New("iam: roles is required")
	case deps.Tokens == nil:
		return nil, errors.New("iam: token issuer is required")
	case deps.Cache == nil:
		return nil, errors.New("iam: cache backend is required")
	}

	cascade := NewCascade(deps.Providers...).WithMetrics(deps.Metrics)
	verifier := NewAccessVerifier(deps.Users, deps.Cache, deps.Tokens.AccessTTL()).WithMetrics(deps.Metrics)

	return &service{
		cascade:  cascade,
		login:    NewLoginService(cascade, deps.Users, deps.Applications, deps.Tokens).WithMetrics(deps.Metrics),
		refresh:  NewRefreshService(deps.Users, deps.Tokens).WithMetrics(deps.Metrics),
		verifier: verifier,
		admin:    NewRoleAdmin(deps.Roles, verifier),
		tokens:   deps.Tokens,
	}, nil
}

func (s *service) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	return s.login.Login(ctx, creds)
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	return s.refresh.Refresh(ctx, refreshToken)
}

func (s *service) VerifyAccessToken(token string) (*auth.Claims, error) {
	return s.tokens.VerifyAccessToken(token)
}

func (s *service) CheckAccess(ctx context.Context, userID, application, role string) (bool, error) {
	return s.verifier.CheckAccess(ctx, userID, application, role)
}

func (s *service) HasAnyRole(ctx context.Context, userID, application string, roles []string) (bool, error) {
	return s.verifier.HasAnyRole(ctx, userID, application, roles)
}

func (s *service) HasAllRoles(ctx context.Context, userID, application string, roles []string) (bool, error) {
	return s.verifier.HasAllRoles(ctx, userID, application, roles)
}

func (s *service) AssignRole(ctx context.Context, userID, application, role string) error {
	return s.admin.AssignRole(ctx, userID, application, role)
}

func (s *service) RevokeRole(ctx context.Context, userID, application, role string) (bool, error) {
	return s.admin.RevokeRole(ctx, userID, application, role)
}

func (s *service) InvalidateUserCache(ctx context.Context, userID string) (int, error) {
	return s.verifier.InvalidateUserCache(ctx, userID)
}

func (s *service) InvalidateUserAppCache(ctx context.Context, userID, application string) (bool, error) {
	return s.verifier.InvalidateUserAppCache(ctx, userID, application)
}

func (s *service) CacheStats(ctx context.Context) (cache.Stats, error) {
	return s.verifier.CacheStats(ctx)
}

func (s *service) Providers() []Provider {
	return s.cascade.Providers()
}
