package iam

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jmurielSett/secHTTPS-sub001/internal/telemetry"
)

// Cascade tries providers in priority order until one accepts the credentials.
//
// Providers are called sequentially. A provider whose Available probe fails
// is skipped without calling Authenticate. Exhausting the list, including an
// empty list, yields one undifferentiated failure.
type Cascade struct {
	providers []Provider
	metrics   *telemetry.AuthMetrics
}

// NewCascade builds a cascade over providers in the given order.
func NewCascade(providers ...Provider) *Cascade {
	return &Cascade{providers: append([]Provider(nil), providers...)}
}

// WithMetrics records skipped providers on m.
func (c *Cascade) WithMetrics(m *telemetry.AuthMetrics) *Cascade {
	c.metrics = m
	return c
}

// Providers returns the providers in priority order.
func (c *Cascade) Providers() []Provider {
	return append([]Provider(nil), c.providers...)
}

// Authenticate runs the cascade.
func (c *Cascade) Authenticate(ctx context.Context, creds Credentials) AuthResult {
	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerIAM, "iam.Cascade",
		attribute.Int("provider_count", len(c.providers)),
	)
	defer span.End()

	if creds.Username == "" || creds.Password == "" {
		return failed(creds.Username, ReasonInvalidCredentials)
	}

	for _, p := range c.providers {
		if ctx.Err() != nil {
			break
		}

		if !p.Available(ctx) {
			log.Debug().Str("provider", p.Name()).Msg("provider unavailable, skipping")
			telemetry.AddEvent(span, "provider.skipped", attribute.String(telemetry.AttrProvider, p.Name()))
			c.metrics.RecordProviderSkipped(ctx, p.Name())
			continue
		}

		result := p.Authenticate(ctx, creds.Username, creds.Password)
		if result.Success {
			span.SetAttributes(
				attribute.String(telemetry.AttrProvider, result.Provider),
				attribute.String(telemetry.AttrProviderKind, string(result.Kind)),
			)
			log.Debug().Str("provider", p.Name()).Msg("authenticated")
			return result
		}
		telemetry.AddEvent(span, "provider.rejected",
			attribute.String(telemetry.AttrProvider, p.Name()),
			attribute.String("reason", result.Reason),
		)
	}

	telemetry.AddEvent(span, "cascade.exhausted")
	return failed(creds.Username, ReasonInvalidCredentials)
}
