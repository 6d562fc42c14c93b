package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmurielSett/secHTTPS-sub001/internal/db/bunx"
	"github.com/jmurielSett/secHTTPS-sub001/internal/db/models"
	"github.com/uptrace/bun"
)

// BunUserRepository implements UserRepository using Bun ORM
type BunUserRepository struct {
	db *bun.DB
}

// NewBunUserRepository creates a new Bun-based user repository
func NewBunUserRepository(db *bun.DB) *BunUserRepository {
	return &BunUserRepository{db: db}
}

// Create inserts a new user into the database
func (r *BunUserRepository) Create(ctx context.Context, user *models.User) error {
	return insertUser(ctx, r.db, user)
}

// CreateWithRole inserts the user and grants role in application in one
// transaction. On any failure neither the user nor the grant is stored.
func (r *BunUserRepository) CreateWithRole(ctx context.Context, user *models.User, application, role string) error {
	id := user.ID
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := insertUser(ctx, tx, user); err != nil {
			return err
		}
		return assignRole(ctx, tx, user.ID, application, role)
	})
	if err != nil {
		user.ID = id
		return err
	}
	return nil
}

func insertUser(ctx context.Context, db bun.IDB, user *models.User) error {
	if user.ID == "" {
		user.ID = bunx.NewUUIDv7()
	}
	if user.AuthProvider == "" {
		user.AuthProvider = models.AuthProviderDatabase
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	if _, err := db.NewInsert().Model(user).Exec(ctx); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// FindByID returns the active user with the given ID, or nil when absent or disabled.
func (r *BunUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByUsername returns the active user with the given username, or nil when absent or disabled.
func (r *BunUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, "username = ?", username)
}

func (r *BunUserRepository) findOne(ctx context.Context, where string, arg any) (*models.User, error) {
	user := new(models.User)
	err := r.db.NewSelect().
		Model(user).
		Where(where, arg).
		Where("disabled_at IS NULL").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// UpdateLastLogin updates the last_login_at timestamp for a user
func (r *BunUserRepository) UpdateLastLogin(ctx context.Context, id string) error {
	now := time.Now().UTC()
	_, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("last_login_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// SetPasswordHash updates the stored bcrypt hash for a user's local credentials.
func (r *BunUserRepository) SetPasswordHash(ctx context.Context, id, passwordHash string) error {
	return r.update(ctx, id, "password_hash = ?", passwordHash)
}

// SetDisabled enables or disables an account. Disabled users are invisible to lookups.
func (r *BunUserRepository) SetDisabled(ctx context.Context, id string, disabled bool) error {
	var disabledAt *time.Time
	if disabled {
		now := time.Now().UTC()
		disabledAt = &now
	}
	return r.update(ctx, id, "disabled_at = ?", disabledAt)
}

func (r *BunUserRepository) update(ctx context.Context, id, set string, value any) error {
	result, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set(set, value).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetRolesForApplication returns the role names the user holds in one application, sorted.
func (r *BunUserRepository) GetRolesForApplication(ctx context.Context, userID, application string) ([]string, error) {
	roles := make([]string, 0)
	err := r.db.NewSelect().
		ColumnExpr("r.name").
		TableExpr("user_roles AS ur").
		Join("JOIN roles AS r ON r.id = ur.role_id").
		Join("JOIN applications AS app ON app.id = r.application_id").
		Where("ur.user_id = ?", userID).
		Where("app.name = ?", application).
		OrderExpr("r.name ASC").
		Scan(ctx, &roles)
	if err != nil {
		return nil, fmt.Errorf("get roles for application: %w", err)
	}
	return roles, nil
}

// GetAllRoles returns every application the user holds roles in, keyed by application name.
func (r *BunUserRepository) GetAllRoles(ctx context.Context, userID string) (map[string][]string, error) {
	var rows []struct {
		Application string `bun:"application"`
		Role        string `bun:"role"`
	}
	err := r.db.NewSelect().
		ColumnExpr("app.name AS application").
		ColumnExpr("r.name AS role").
		TableExpr("user_roles AS ur").
		Join("JOIN roles AS r ON r.id = ur.role_id").
		Join("JOIN applications AS app ON app.id = r.application_id").
		Where("ur.user_id = ?", userID).
		OrderExpr("app.name ASC, r.name ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("get all roles: %w", err)
	}

	out := make(map[string][]string)
	for _, row := range rows {
		out[row.Application] = append(out[row.Application], row.Role)
	}
	return out, nil
}

// List retrieves all users
func (r *BunUserRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.NewSelect().
		Model(&users).
		Order("username ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Ping checks storage connectivity.
func (r *BunUserRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
