package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmurielSett/secHTTPS-sub001/internal/db/bunx"
	"github.com/jmurielSett/secHTTPS-sub001/internal/db/models"
	"github.com/uptrace/bun"
)

// BunRoleRepository implements RoleRepository using Bun ORM
type BunRoleRepository struct {
	db *bun.DB
}

// NewBunRoleRepository creates a new Bun-based role repository
func NewBunRoleRepository(db *bun.DB) *BunRoleRepository {
	return &BunRoleRepository{db: db}
}

// AssignRole grants role in application to the user. The role row is created
// on first use; the application and user must exist. Re-assigning is a no-op.
func (r *BunRoleRepository) AssignRole(ctx context.Context, userID, application, role string) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return assignRole(ctx, tx, userID, application, role)
	})
}

func assignRole(ctx context.Context, db bun.IDB, userID, application, role string) error {
	app, err := applicationByName(ctx, db, application)
	if err != nil {
		return err
	}

	exists, err := db.NewSelect().
		Model((*models.User)(nil)).
		Where("id = ?", userID).
		Exists(ctx)
	if err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	row := &models.Role{ID: bunx.NewUUIDv7(), ApplicationID: app.ID, Name: role}
	if _, err := db.NewInsert().
		Model(row).
		On("CONFLICT (application_id, name) DO NOTHING").
		Exec(ctx); err != nil {
		return fmt.Errorf("create role: %w", err)
	}

	var roleID string
	if err := db.NewSelect().
		Model((*models.Role)(nil)).
		Column("id").
		Where("application_id = ?", app.ID).
		Where("name = ?", role).
		Scan(ctx, &roleID); err != nil {
		return fmt.Errorf("get role: %w", err)
	}

	grant := &models.UserRole{ID: bunx.NewUUIDv7(), UserID: userID, RoleID: roleID}
	if _, err := db.NewInsert().
		Model(grant).
		On("CONFLICT (user_id, role_id) DO NOTHING").
		Exec(ctx); err != nil {
		return fmt.Errorf("create user role: %w", err)
	}
	return nil
}

// RevokeRole removes the grant. Reports whether a grant was removed.
func (r *BunRoleRepository) RevokeRole(ctx context.Context, userID, application, role string) (bool, error) {
	roleIDs := r.db.NewSelect().
		Model((*models.Role)(nil)).
		ColumnExpr("r.id").
		Join("JOIN applications AS app ON app.id = r.application_id").
		Where("app.name = ?", application).
		Where("r.name = ?", role)

	result, err := r.db.NewDelete().
		Model((*models.UserRole)(nil)).
		Where("user_id = ?", userID).
		Where("role_id IN (?)", roleIDs).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("revoke role: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// ListForApplication lists the roles defined in an application.
func (r *BunRoleRepository) ListForApplication(ctx context.Context, application string) ([]models.Role, error) {
	var roles []models.Role
	err := r.db.NewSelect().
		Model(&roles).
		Join("JOIN applications AS app ON app.id = r.application_id").
		Where("app.name = ?", application).
		Order("r.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

func applicationByName(ctx context.Context, db bun.IDB, name string) (*models.Application, error) {
	app := new(models.Application)
	err := db.NewSelect().
		Model(app).
		Where("name = ?", name).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("application %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("get application: %w", err)
	}
	return app, nil
}
