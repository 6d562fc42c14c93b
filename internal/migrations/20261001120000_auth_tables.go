package migrations

import (
	"context"
	"fmt"

	"github.com/jmurielSett/secHTTPS-sub001/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20261001120000, down_20261001120000)
}

// up_20261001120000 creates users, applications, roles and user_roles.
func up_20261001120000(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating users table...")
	if _, err := db.NewCreateTable().
		Model((*models.User)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating applications table...")
	if _, err := db.NewCreateTable().
		Model((*models.Application)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create applications table: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating roles table...")
	if _, err := db.NewCreateTable().
		Model((*models.Role)(nil)).
		IfNotExists().
		ForeignKey(`("application_id") REFERENCES "applications" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return fmt.Errorf("create roles table: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS idx_roles_application_name ON roles(application_id, name)`); err != nil {
		return fmt.Errorf("create roles unique index: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating user_roles table...")
	if _, err := db.NewCreateTable().
		Model((*models.UserRole)(nil)).
		IfNotExists().
		ForeignKey(`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`).
		ForeignKey(`("role_id") REFERENCES "roles" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return fmt.Errorf("create user_roles table: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS idx_user_roles_user_role ON user_roles(user_id, role_id)`); err != nil {
		return fmt.Errorf("create user_roles unique index: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_user_roles_role ON user_roles(role_id)`); err != nil {
		return fmt.Errorf("create user_roles role index: %w", err)
	}
	fmt.Println(" OK")

	return nil
}

func down_20261001120000(ctx context.Context, db *bun.DB) error {
	for _, model := range []any{
		(*models.UserRole)(nil),
		(*models.Role)(nil),
		(*models.Application)(nil),
		(*models.User)(nil),
	} {
		if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("drop table: %w", err)
		}
	}
	fmt.Println(" [down] dropped auth tables")
	return nil
}
