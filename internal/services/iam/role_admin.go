package iam

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// ErrInvalidRoleRequest is returned when a role mutation is missing a field.
var ErrInvalidRoleRequest = errors.New("user, application and role are required")

// RoleAdmin mutates role grants and invalidates the affected cache entry.
type RoleAdmin struct {
	store    RoleStore
	verifier *AccessVerifier
}

// NewRoleAdmin wires a RoleAdmin.
func NewRoleAdmin(store RoleStore, verifier *AccessVerifier) *RoleAdmin {
	return &RoleAdmin{store: store, verifier: verifier}
}

// AssignRole grants role and drops the cached role set for (user, application).
func (a *RoleAdmin) AssignRole(ctx context.Context, userID, application, role string) error {
	if userID == "" || application == "" || role == "" {
		return ErrInvalidRoleRequest
	}
	if err := a.store.AssignRole(ctx, userID, application, role); err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	if _, err := a.verifier.InvalidateUserAppCache(ctx, userID, application); err != nil {
		return err
	}
	log.Info().Str("user_id", userID).Str("application", application).Str("role", role).Msg("role assigned")
	return nil
}

// RevokeRole removes the grant and drops the cached role set. Reports whether a grant existed.
func (a *RoleAdmin) RevokeRole(ctx context.Context, userID, application, role string) (bool, error) {
	if userID == "" || application == "" || role == "" {
		return false, ErrInvalidRoleRequest
	}
	removed, err := a.store.RevokeRole(ctx, userID, application, role)
	if err != nil {
		return false, fmt.Errorf("revoke role: %w", err)
	}
	if _, err := a.verifier.InvalidateUserAppCache(ctx, userID, application); err != nil {
		return removed, err
	}
	log.Info().Str("user_id", userID).Str("application", application).Str("role", role).Bool("removed", removed).Msg("role revoked")
	return removed, nil
}
