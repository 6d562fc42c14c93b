package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer names used by authd packages.
const (
	TracerIAM    = "authd/services/iam"
	TracerServer = "authd/server"
)

// StartSpan starts a span on the named tracer.
//
//	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerIAM, "iam.Login",
//	    attribute.String(telemetry.AttrApplication, app),
//	)
//	defer span.End()
func StartSpan(ctx context.Context, tracerName, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// RecordError records err on the span and marks the span failed. A nil err is ignored.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// AddEvent adds a named event to the span.
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// Attribute keys. Usernames, passwords and tokens are never recorded.
const (
	AttrUserID       = "user.id"
	AttrApplication  = "auth.application"
	AttrProvider     = "auth.provider"
	AttrProviderKind = "auth.provider_kind"
	AttrOutcome      = "auth.outcome"
	AttrRole         = "auth.role"
	AttrCacheHit     = "cache.hit"
	AttrErrorCode    = "error.code"
)
