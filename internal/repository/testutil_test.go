package repository

import (
	"context"
	"testing"

	"github.com/jmurielSett/secHTTPS-sub001/internal/db/bunx"
	"github.com/jmurielSett/secHTTPS-sub001/internal/db/models"
	"github.com/jmurielSett/secHTTPS-sub001/internal/migrations"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// setupTestDB opens an in-memory SQLite database with all migrations applied.
func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	ctx := context.Background()
	db, err := bunx.NewDB(ctx, ":memory:", bunx.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = bunx.Close(db) })

	migrator := migrate.NewMigrator(db, migrations.Migrations)
	require.NoError(t, migrator.Init(ctx))
	_, err = migrator.Migrate(ctx)
	require.NoError(t, err)

	return db
}

func createUser(t *testing.T, repo *BunUserRepository, username string) *models.User {
	t.Helper()
	hash := "$2a$10$placeholder"
	user := &models.User{Username: username, Email: username + "@example.org", PasswordHash: &hash}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func createApp(t *testing.T, repo *BunApplicationRepository, name string, autoSync bool, defaultRole string) *models.Application {
	t.Helper()
	app := &models.Application{Name: name, AutoSync: autoSync, DefaultRole: defaultRole}
	require.NoError(t, repo.Create(context.Background(), app))
	return app
}
