package repository

import (
	"context"
	"errors"

	"github.com/jmurielSett/secHTTPS-sub001/internal/db/models"
)

// ErrNotFound is returned by mutations that target a missing row.
// Lookups signal absence with a nil result instead.
var ErrNotFound = errors.New("not found")

// UserRepository persists users and resolves their role grants.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	CreateWithRole(ctx context.Context, user *models.User, application, role string) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string) error
	SetPasswordHash(ctx context.Context, id, passwordHash string) error
	SetDisabled(ctx context.Context, id string, disabled bool) error
	GetRolesForApplication(ctx context.Context, userID, application string) ([]string, error)
	GetAllRoles(ctx context.Context, userID string) (map[string][]string, error)
	List(ctx context.Context) ([]models.User, error)
	Ping(ctx context.Context) error
}

// RoleRepository mutates role grants.
type RoleRepository interface {
	AssignRole(ctx context.Context, userID, application, role string) error
	RevokeRole(ctx context.Context, userID, application, role string) (bool, error)
	ListForApplication(ctx context.Context, application string) ([]models.Role, error)
}

// ApplicationRepository stores relying applications and their auto-sync policy.
type ApplicationRepository interface {
	Create(ctx context.Context, app *models.Application) error
	FindByName(ctx context.Context, name string) (*models.Application, error)
	List(ctx context.Context) ([]models.Application, error)
	IsAutoSyncEnabled(ctx context.Context, application string) (bool, error)
	DefaultRoleForAutoSync(ctx context.Context, application string) (string, error)
}
