package auth

import "github.com/golang-jwt/jwt/v5"

// TokenKind separates access tokens from refresh tokens so neither can stand in for the other.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// ApplicationRoles is the role set held in one application.
type ApplicationRoles struct {
	Application string   `json:"application_name"`
	Roles       []string `json:"roles"`
}

// Claims is the payload of every token minted by TokenIssuer.
//
// Access tokens carry exactly one of ApplicationName+Roles (single application)
// or Applications (multi application). Refresh tokens never carry roles and
// only carry ApplicationName when they were issued for one application.
type Claims struct {
	jwt.RegisteredClaims

	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	AuthProvider string    `json:"auth_provider"`
	TokenKind    TokenKind `json:"token_kind"`

	ApplicationName string             `json:"application_name,omitempty"`
	Roles           []string           `json:"roles,omitempty"`
	Applications    []ApplicationRoles `json:"applications,omitempty"`
}

// IsSingleApplication reports whether the claims are scoped to one application.
func (c *Claims) IsSingleApplication() bool {
	return c.ApplicationName != "" && len(c.Applications) == 0
}

// IsMultiApplication reports whether the claims carry a per-application role list.
func (c *Claims) IsMultiApplication() bool {
	return c.ApplicationName == "" && len(c.Applications) > 0
}

// RolesFor returns the roles the claims grant in application.
func (c *Claims) RolesFor(application string) []string {
	if c.IsSingleApplication() {
		if c.ApplicationName == application {
			return c.Roles
		}
		return nil
	}
	for _, app := range c.Applications {
		if app.Application == application {
			return app.Roles
		}
	}
	return nil
}

// Scope selects which roles an access token carries. Set either Application
// (with Roles) or Applications, not both.
type Scope struct {
	Application  string
	Roles        []string
	Applications []ApplicationRoles
}

// SingleApplication scopes a token to one application.
func SingleApplication(application string, roles []string) *Scope {
	return &Scope{Application: application, Roles: roles}
}

// MultiApplication scopes a token to every listed application.
func MultiApplication(apps []ApplicationRoles) *Scope {
	return &Scope{Applications: apps}
}
