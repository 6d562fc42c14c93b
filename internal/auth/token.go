package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidOrExpiredToken is returned for every token verification failure.
// The underlying reason is deliberately not exposed.
var ErrInvalidOrExpiredToken = errors.New("invalid or expired token")

// ErrInvalidScope is returned when an access token scope is empty or ambiguous.
var ErrInvalidScope = errors.New("token scope must name one application or a list of applications")

// Default token lifetimes.
const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// TokenIssuerConfig configures a TokenIssuer.
type TokenIssuerConfig struct {
	Issuer        string
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Clock         clock.Clock // defaults to the wall clock
}

// TokenIssuer mints and verifies HS256 session tokens. Access and refresh
// tokens are signed with different secrets.
type TokenIssuer struct {
	issuer        string
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	clock         clock.Clock
}

// NewTokenIssuer validates cfg and returns an issuer.
func NewTokenIssuer(cfg TokenIssuerConfig) (*TokenIssuer, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("token secrets are required")
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}

	issuer := &TokenIssuer{
		issuer:        cfg.Issuer,
		accessSecret:  cfg.AccessSecret,
		refreshSecret: cfg.RefreshSecret,
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		clock:         cfg.Clock,
	}
	if issuer.accessTTL <= 0 {
		issuer.accessTTL = DefaultAccessTTL
	}
	if issuer.refreshTTL <= 0 {
		issuer.refreshTTL = DefaultRefreshTTL
	}
	if issuer.clock == nil {
		issuer.clock = clock.New()
	}
	return issuer, nil
}

// AccessTTL returns the access token lifetime.
func (i *TokenIssuer) AccessTTL() time.Duration { return i.accessTTL }

// GenerateTokenPair mints an access token carrying scope and a role-free refresh token.
func (i *TokenIssuer) GenerateTokenPair(userID, username, provider string, scope *Scope) (*TokenPair, error) {
	if err := validateScope(scope); err != nil {
		return nil, err
	}

	now := i.clock.Now().Truncate(time.Second)
	accessExp := now.Add(i.accessTTL)
	refreshExp := now.Add(i.refreshTTL)

	access := i.baseClaims(userID, username, provider, TokenKindAccess, now, accessExp)
	if scope.Application != "" {
		access.ApplicationName = scope.Application
		access.Roles = copyStrings(scope.Roles)
	} else {
		access.Applications = make([]ApplicationRoles, len(scope.Applications))
		for idx, app := range scope.Applications {
			access.Applications[idx] = ApplicationRoles{Application: app.Application, Roles: copyStrings(app.Roles)}
		}
	}

	refresh := i.baseClaims(userID, username, provider, TokenKindRefresh, now, refreshExp)
	refresh.ApplicationName = scope.Application

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, access).SignedString(i.accessSecret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refresh).SignedString(i.refreshSecret)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// VerifyAccessToken checks signature, expiry, issuer, kind and scope shape.
func (i *TokenIssuer) VerifyAccessToken(token string) (*Claims, error) {
	claims, err := i.verify(token, i.accessSecret, TokenKindAccess)
	if err != nil {
		return nil, err
	}
	if claims.IsSingleApplication() == claims.IsMultiApplication() {
		return nil, ErrInvalidOrExpiredToken
	}
	return claims, nil
}

// VerifyRefreshToken checks signature, expiry, issuer and kind.
func (i *TokenIssuer) VerifyRefreshToken(token string) (*Claims, error) {
	claims, err := i.verify(token, i.refreshSecret, TokenKindRefresh)
	if err != nil {
		return nil, err
	}
	if len(claims.Roles) > 0 || len(claims.Applications) > 0 {
		return nil, ErrInvalidOrExpiredToken
	}
	return claims, nil
}

func (i *TokenIssuer) verify(token string, secret []byte, kind TokenKind) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(i.clock.Now),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}

	claims := new(Claims)
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidOrExpiredToken
	}
	if claims.TokenKind != kind || claims.UserID == "" {
		return nil, ErrInvalidOrExpiredToken
	}
	return claims, nil
}

func (i *TokenIssuer) baseClaims(userID, username, provider string, kind TokenKind, now, exp time.Time) *Claims {
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		UserID:       userID,
		Username:     username,
		AuthProvider: provider,
		TokenKind:    kind,
	}
}

func validateScope(scope *Scope) error {
	if scope == nil {
		return ErrInvalidScope
	}
	single := scope.Application != ""
	multi := len(scope.Applications) > 0
	if single == multi {
		return ErrInvalidScope
	}
	if single {
		return nil
	}
	for _, app := range scope.Applications {
		if app.Application == "" {
			return ErrInvalidScope
		}
	}
	return nil
}

func copyStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return append([]string(nil), in...)
}
