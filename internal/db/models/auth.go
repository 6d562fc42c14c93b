package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User is a principal known to authd.
// PasswordHash is nil for users synced from a directory provider.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           string     `bun:"id,pk,type:varchar(36)"`
	Username     string     `bun:"username,notnull,unique"`
	Email        string     `bun:"email"`
	PasswordHash *string    `bun:"password_hash"` // bcrypt
	AuthProvider string     `bun:"auth_provider,notnull,default:'database'"`
	CreatedAt    time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
	LastLoginAt  *time.Time `bun:"last_login_at"`
	DisabledAt   *time.Time `bun:"disabled_at"`
}

// Disabled reports whether the account has been deactivated.
func (u *User) Disabled() bool {
	return u != nil && u.DisabledAt != nil
}

// Application is a relying application that users can hold roles in.
type Application struct {
	bun.BaseModel `bun:"table:applications,alias:app"`

	ID          string    `bun:"id,pk,type:varchar(36)"`
	Name        string    `bun:"name,notnull,unique"`
	Description string    `bun:"description"`
	AutoSync    bool      `bun:"auto_sync,notnull,default:false"` // create directory users on first login
	DefaultRole string    `bun:"default_role"`                    // granted on auto-sync
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Role is a named role scoped to one application.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:r"`

	ID            string    `bun:"id,pk,type:varchar(36)"`
	ApplicationID string    `bun:"application_id,notnull,type:varchar(36)"` // FK to applications(id)
	Name          string    `bun:"name,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp"`

	Application *Application `bun:"rel:belongs-to,join:application_id=id"`
}

// UserRole grants a role to a user.
type UserRole struct {
	bun.BaseModel `bun:"table:user_roles,alias:ur"`

	ID         string    `bun:"id,pk,type:varchar(36)"`
	UserID     string    `bun:"user_id,notnull,type:varchar(36)"` // FK to users(id)
	RoleID     string    `bun:"role_id,notnull,type:varchar(36)"` // FK to roles(id)
	AssignedAt time.Time `bun:"assigned_at,notnull,default:current_timestamp"`
}

// AuthProviderDatabase marks users holding a local password.
const AuthProviderDatabase = "database"

// Built-in application guarding the admin API.
const (
	AdminApplicationName = "authd"
	AdminRoleName        = "admin"
)

// Fixed IDs of the seeded admin application and role.
const (
	AdminApplicationID = "00000000-0000-7000-8000-000000000001"
	AdminRoleID        = "00000000-0000-7000-8000-000000000002"
)
