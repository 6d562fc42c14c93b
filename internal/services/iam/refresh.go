package iam

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jmurielSett/secHTTPS-sub001/internal/auth"
	"github.com/jmurielSett/secHTTPS-sub001/internal/telemetry"
)

// RefreshService exchanges a refresh token for a new token pair.
//
// Roles are re-resolved from storage on every refresh so revocations take
// effect at the next rotation. Earlier refresh tokens stay valid until they
// expire.
type RefreshService struct {
	users   UserDirectory
	tokens  *auth.TokenIssuer
	metrics *telemetry.AuthMetrics
}

// NewRefreshService wires a RefreshService.
func NewRefreshService(users UserDirectory, tokens *auth.TokenIssuer) *RefreshService {
	return &RefreshService{users: users, tokens: tokens}
}

// WithMetrics records attempts on m.
func (s *RefreshService) WithMetrics(m *telemetry.AuthMetrics) *RefreshService {
	s.metrics = m
	return s
}

// Refresh verifies the refresh token and mints a new pair.
//
// Errors: ErrInvalidOrExpiredToken, ErrUserNotFound, *NoApplicationAccessError,
// or a wrapped storage error.
func (s *RefreshService) Refresh(ctx context.Context, refreshToken string) (pair *auth.TokenPair, err error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerIAM, "iam.Refresh")
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
		s.metrics.RecordAttempt(ctx, "refresh", outcome, float64(time.Since(start).Milliseconds()))
		span.End()
	}()

	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidOrExpiredToken
	}
	span.SetAttributes(
		attribute.String(telemetry.AttrUserID, claims.UserID),
		attribute.String(telemetry.AttrApplication, claims.ApplicationName),
	)

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	scope, err := resolveScope(ctx, s.users, user.ID, claims.ApplicationName)
	if err != nil {
		return nil, err
	}

	pair, err = s.tokens.GenerateTokenPair(user.ID, user.Username, claims.AuthProvider, scope)
	if err != nil {
		return nil, fmt.Errorf("generate tokens: %w", err)
	}
	return pair, nil
}
