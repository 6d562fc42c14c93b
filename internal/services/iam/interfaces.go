package iam

import (
	"context"

	"github.com/jmurielSett/secHTTPS-sub001/internal/db/models"
)

// UserDirectory resolves users and their role grants.
// Lookups return (nil, nil) when the user does not exist.
type UserDirectory interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	// CreateWithRole stores the user together with one grant, atomically.
	CreateWithRole(ctx context.Context, user *models.User, application, role string) error
	GetRolesForApplication(ctx context.Context, userID, application string) ([]string, error)
	GetAllRoles(ctx context.Context, userID string) (map[string][]string, error)
}

// RoleSource is the read side of UserDirectory used by AccessVerifier.
type RoleSource interface {
	GetRolesForApplication(ctx context.Context, userID, application string) ([]string, error)
}

// RoleStore mutates role grants.
type RoleStore interface {
	AssignRole(ctx context.Context, userID, application, role string) error
	RevokeRole(ctx context.Context, userID, application, role string) (bool, error)
}

// ApplicationConfig exposes per-application directory auto-sync policy.
type ApplicationConfig interface {
	IsAutoSyncEnabled(ctx context.Context, application string) (bool, error)
	DefaultRoleForAutoSync(ctx context.Context, application string) (string, error)
}

// CredentialStore is what DatabaseProvider needs from storage.
type CredentialStore interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Ping(ctx context.Context) error
}

// loginRecorder is implemented by directories that track last login time.
type loginRecorder interface {
	UpdateLastLogin(ctx context.Context, id string) error
}
