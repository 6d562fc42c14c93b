package migrations

import (
	"context"
	"fmt"

	"github.com/jmurielSett/secHTTPS-sub001/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20261001120001, down_20261001120001)
}

// up_20261001120001 seeds the built-in application and its admin role.
func up_20261001120001(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] seeding admin application...")
	app := models.Application{
		ID:          models.AdminApplicationID,
		Name:        models.AdminApplicationName,
		Description: "authd administration API",
	}
	if _, err := db.NewInsert().
		Model(&app).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx); err != nil {
		return fmt.Errorf("seed admin application: %w", err)
	}

	role := models.Role{
		ID:            models.AdminRoleID,
		ApplicationID: models.AdminApplicationID,
		Name:          models.AdminRoleName,
	}
	if _, err := db.NewInsert().
		Model(&role).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx); err != nil {
		return fmt.Errorf("seed admin role: %w", err)
	}
	fmt.Println(" OK")

	return nil
}

func down_20261001120001(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] removing admin application...")
	if _, err := db.NewDelete().
		Model((*models.Application)(nil)).
		Where("id = ?", models.AdminApplicationID).
		Exec(ctx); err != nil {
		return fmt.Errorf("remove admin application: %w", err)
	}
	fmt.Println(" OK")
	return nil
}
