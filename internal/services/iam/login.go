package iam

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jmurielSett/secHTTPS-sub001/internal/auth"
	"github.com/jmurielSett/secHTTPS-sub001/internal/db/models"
	"github.com/jmurielSett/secHTTPS-sub001/internal/telemetry"
)

// UserSummary is the caller-facing view of a logged in user.
type UserSummary struct {
	ID           string                  `json:"id"`
	Username     string                  `json:"username"`
	Provider     string                  `json:"auth_provider"`
	Application  string                  `json:"application,omitempty"`
	Roles        []string                `json:"roles,omitempty"`
	Applications []auth.ApplicationRoles `json:"applications,omitempty"`
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Tokens *auth.TokenPair `json:"tokens"`
	User   UserSummary     `json:"user"`
}

// LoginService authenticates credentials and issues a token pair.
type LoginService struct {
	cascade *Cascade
	users   UserDirectory
	apps    ApplicationConfig
	tokens  *auth.TokenIssuer
	metrics *telemetry.AuthMetrics
}

// NewLoginService wires a LoginService.
func NewLoginService(cascade *Cascade, users UserDirectory, apps ApplicationConfig, tokens *auth.TokenIssuer) *LoginService {
	return &LoginService{cascade: cascade, users: users, apps: apps, tokens: tokens}
}

// WithMetrics records attempts on m.
func (s *LoginService) WithMetrics(m *telemetry.AuthMetrics) *LoginService {
	s.metrics = m
	return s
}

// Login runs the cascade, resolves the user and role scope and mints tokens.
//
// Errors: ErrInvalidCredentials, *NoApplicationAccessError, or a wrapped
// storage error.
func (s *LoginService) Login(ctx context.Context, creds Credentials) (result *LoginResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerIAM, "iam.Login",
		attribute.String(telemetry.AttrApplication, creds.Application),
	)
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = Code(err)
			span.SetAttributes(attribute.String(telemetry.AttrErrorCode, outcome))
			if outcome == CodeInternalError {
				telemetry.RecordError(span, err)
			}
		}
		s.metrics.RecordAttempt(ctx, "login", outcome, float64(time.Since(start).Milliseconds()))
		span.End()
	}()

	authn := s.cascade.Authenticate(ctx, creds)
	if !authn.Success {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.FindByUsername(ctx, creds.Username)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		user, err = s.autoSync(ctx, authn, creds.Application)
		if err != nil {
			return nil, err
		}
	}
	span.SetAttributes(attribute.String(telemetry.AttrUserID, user.ID))

	scope, err := resolveScope(ctx, s.users, user.ID, creds.Application)
	if err != nil {
		return nil, err
	}

	pair, err := s.tokens.GenerateTokenPair(user.ID, user.Username, authn.Provider, scope)
	if err != nil {
		return nil, fmt.Errorf("generate tokens: %w", err)
	}

	if rec, ok := s.users.(loginRecorder); ok {
		if err := rec.UpdateLastLogin(ctx, user.ID); err != nil {
			log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record last login")
		}
	}

	log.Info().
		Str("user_id", user.ID).
		Str("provider", authn.Provider).
		Str("application", creds.Application).
		Msg("login succeeded")

	return &LoginResult{
		Tokens: pair,
		User: UserSummary{
			ID:           user.ID,
			Username:     user.Username,
			Provider:     authn.Provider,
			Application:  scope.Application,
			Roles:        scope.Roles,
			Applications: scope.Applications,
		},
	}, nil
}

// autoSync provisions a directory-authenticated user on first login when the
// requested application allows it. Any other unknown user is rejected.
func (s *LoginService) autoSync(ctx context.Context, authn AuthResult, application string) (*models.User, error) {
	if authn.Kind != ProviderKindDirectory || application == "" || s.apps == nil {
		return nil, ErrInvalidCredentials
	}

	enabled, err := s.apps.IsAutoSyncEnabled(ctx, application)
	if err != nil {
		return nil, fmt.Errorf("check auto-sync: %w", err)
	}
	if !enabled {
		return nil, ErrInvalidCredentials
	}

	defaultRole, err := s.apps.DefaultRoleForAutoSync(ctx, application)
	if err != nil {
		return nil, fmt.Errorf("get default role: %w", err)
	}
	if defaultRole == "" {
		return nil, ErrInvalidCredentials
	}

	user := &models.User{Username: authn.Username, AuthProvider: authn.Provider}
	if err := s.users.CreateWithRole(ctx, user, application, defaultRole); err != nil {
		return nil, fmt.Errorf("create synced user: %w", err)
	}

	log.Info().
		Str("user_id", user.ID).
		Str("provider", authn.Provider).
		Str("application", application).
		Msg("directory user synced")
	return user, nil
}
