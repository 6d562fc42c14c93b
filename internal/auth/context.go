package auth

import "context"

// Principal is the identity attached to a request after its access token verified.
type Principal struct {
	UserID       string
	Username     string
	AuthProvider string
	Claims       *Claims
}

type principalContextKey struct{}

// SetPrincipal stores the authenticated principal on the context for downstream consumers.
func SetPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, principal)
}

// PrincipalFromContext retrieves the authenticated principal from the context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	principal, ok := ctx.Value(principalContextKey{}).(Principal)
	return principal, ok
}
