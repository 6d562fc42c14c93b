package iam

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jmurielSett/secHTTPS-sub001/internal/cache"
	"github.com/jmurielSett/secHTTPS-sub001/internal/telemetry"
)

// AccessVerifier answers role checks from a cache, falling back to storage on a miss.
//
// Storage stays authoritative: a cache read fault is treated as a miss and a
// cache write fault is only logged. Storage faults are returned.
//
// A miss is filled only if no invalidation ran while storage was being read,
// so a role set read before a revoke is never written back after it.
type AccessVerifier struct {
	source  RoleSource
	cache   cache.Backend
	ttl     time.Duration
	metrics *telemetry.AuthMetrics

	// fillMu orders cache fills (shared) against invalidations (exclusive).
	fillMu sync.RWMutex
	epoch  uint64 // bumped by every invalidation, guarded by fillMu
}

// NewAccessVerifier creates a verifier. ttl should equal the access token TTL.
func NewAccessVerifier(source RoleSource, backend cache.Backend, ttl time.Duration) *AccessVerifier {
	return &AccessVerifier{source: source, cache: backend, ttl: ttl}
}

// WithMetrics records cache lookups on m.
func (v *AccessVerifier) WithMetrics(m *telemetry.AuthMetrics) *AccessVerifier {
	v.metrics = m
	return v
}

// Roles returns the user's roles in application, from cache when possible.
// An empty role set is cached like any other.
func (v *AccessVerifier) Roles(ctx context.Context, userID, application string) ([]string, error) {
	key := cache.RoleKey(userID, application)

	roles, ok, err := v.cache.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("role cache read failed, querying storage")
		ok = false
	}
	v.metrics.RecordCacheLookup(ctx, ok)
	if ok {
		return roles, nil
	}

	epoch := v.currentEpoch()
	roles, err = v.source.GetRolesForApplication(ctx, userID, application)
	if err != nil {
		return nil, fmt.Errorf("get roles for application: %w", err)
	}
	if roles == nil {
		roles = []string{}
	}

	v.fill(ctx, key, roles, epoch)
	return roles, nil
}

func (v *AccessVerifier) currentEpoch() uint64 {
	v.fillMu.RLock()
	defer v.fillMu.RUnlock()
	return v.epoch
}

// fill caches roles unless an invalidation happened since epoch was read.
func (v *AccessVerifier) fill(ctx context.Context, key string, roles []string, epoch uint64) {
	v.fillMu.RLock()
	defer v.fillMu.RUnlock()
	if v.epoch != epoch {
		log.Debug().Str("key", key).Msg("role cache fill skipped after invalidation")
		return
	}
	if err := v.cache.Set(ctx, key, roles, v.ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("role cache write failed")
	}
}

// invalidate runs drop with fills excluded and the epoch advanced.
func (v *AccessVerifier) invalidate(drop func() error) error {
	v.fillMu.Lock()
	defer v.fillMu.Unlock()
	v.epoch++
	return drop()
}

// CheckAccess reports whether the user holds role in application.
func (v *AccessVerifier) CheckAccess(ctx context.Context, userID, application, role string) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerIAM, "iam.CheckAccess",
		attribute.String(telemetry.AttrUserID, userID),
		attribute.String(telemetry.AttrApplication, application),
		attribute.String(telemetry.AttrRole, role),
	)
	defer span.End()

	roles, err := v.Roles(ctx, userID, application)
	if err != nil {
		telemetry.RecordError(span, err)
		return false, err
	}
	return slices.Contains(roles, role), nil
}

// HasAnyRole reports whether the user holds at least one of roles. An empty list is false.
func (v *AccessVerifier) HasAnyRole(ctx context.Context, userID, application string, roles []string) (bool, error) {
	if len(roles) == 0 {
		return false, nil
	}

	held, err := v.Roles(ctx, userID, application)
	if err != nil {
		return false, err
	}
	for _, role := range roles {
		if slices.Contains(held, role) {
			return true, nil
		}
	}
	return false, nil
}

// HasAllRoles reports whether the user holds every one of roles. An empty list is true.
func (v *AccessVerifier) HasAllRoles(ctx context.Context, userID, application string, roles []string) (bool, error) {
	if len(roles) == 0 {
		return true, nil
	}

	held, err := v.Roles(ctx, userID, application)
	if err != nil {
		return false, err
	}
	for _, role := range roles {
		if !slices.Contains(held, role) {
			return false, nil
		}
	}
	return true, nil
}

// InvalidateUserCache drops every cached entry of the user and returns how many were removed.
func (v *AccessVerifier) InvalidateUserCache(ctx context.Context, userID string) (int, error) {
	var n int
	err := v.invalidate(func() (err error) {
		n, err = v.cache.DeletePattern(ctx, cache.UserPrefix(userID))
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("invalidate user cache: %w", err)
	}
	log.Debug().Str("user_id", userID).Int("removed", n).Msg("user role cache invalidated")
	return n, nil
}

// InvalidateUserAppCache drops the user's entry for one application.
func (v *AccessVerifier) InvalidateUserAppCache(ctx context.Context, userID, application string) (bool, error) {
	var removed bool
	err := v.invalidate(func() (err error) {
		removed, err = v.cache.Delete(ctx, cache.RoleKey(userID, application))
		return err
	})
	if err != nil {
		return false, fmt.Errorf("invalidate user application cache: %w", err)
	}
	return removed, nil
}

// CacheStats exposes the backend statistics.
func (v *AccessVerifier) CacheStats(ctx context.Context) (cache.Stats, error) {
	return v.cache.Stats(ctx)
}
