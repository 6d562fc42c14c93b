package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun/migrate"

	"github.com/jmurielSett/secHTTPS-sub001/internal/db/bunx"
	"github.com/jmurielSett/secHTTPS-sub001/internal/migrations"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database management commands",
	Long:  `Commands for managing database migrations and schema.`,
}

// withMigrator opens the configured database and runs fn with a migrator.
// When locked is set the migration lock is held for the duration of fn.
func withMigrator(ctx context.Context, locked bool, fn func(*migrate.Migrator) error) error {
	db, err := bunx.NewDB(ctx, cfg.DatabaseURL, bunx.Options{MaxOpenConns: cfg.MaxDBConnections})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer bunx.Close(db)

	migrator := migrate.NewMigrator(db, migrations.Migrations)
	if locked {
		if err := migrator.Lock(ctx); err != nil {
			return fmt.Errorf("failed to acquire migration lock: %w", err)
		}
		defer func() {
			if err := migrator.Unlock(ctx); err != nil {
				log.Warn().Err(err).Msg("failed to release migration lock")
			}
		}()
	}
	return fn(migrator)
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize migration tables",
	Long:  `Creates the migration tracking tables in the database. Run this once during initial setup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd.Context(), false, func(m *migrate.Migrator) error {
			if err := m.Init(cmd.Context()); err != nil {
				return fmt.Errorf("failed to initialize migrator: %w", err)
			}
			log.Info().Msg("migration tables initialized")
			return nil
		})
	},
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long:  `Applies all pending migrations, holding the migration lock to prevent concurrent runs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd.Context(), true, func(m *migrate.Migrator) error {
			group, err := m.Migrate(cmd.Context())
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			if group.IsZero() {
				log.Info().Msg("no new migrations to apply")
				return nil
			}
			log.Info().Int64("group", group.ID).Msg("applied migration group")
			return nil
		})
	},
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd.Context(), false, func(m *migrate.Migrator) error {
			ms, err := m.MigrationsWithStatus(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			for _, mig := range ms {
				status := "pending"
				if mig.GroupID > 0 {
					status = fmt.Sprintf("applied (group %d)", mig.GroupID)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", mig.Name, status)
			}
			return nil
		})
	},
}

var dbRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Rollback last migration group",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd.Context(), true, func(m *migrate.Migrator) error {
			group, err := m.Rollback(cmd.Context())
			if err != nil {
				return fmt.Errorf("rollback failed: %w", err)
			}
			if group.IsZero() {
				log.Info().Msg("no migrations to rollback")
				return nil
			}
			log.Info().Int64("group", group.ID).Msg("rolled back migration group")
			return nil
		})
	},
}

var dbUnlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Force release migration lock",
	Long:  `Force releases the migration lock. Use this if a migration crashed while holding the lock.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd.Context(), false, func(m *migrate.Migrator) error {
			if err := m.Unlock(cmd.Context()); err != nil {
				return fmt.Errorf("failed to release migration lock: %w", err)
			}
			log.Info().Msg("migration lock released")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbInitCmd, dbMigrateCmd, dbStatusCmd, dbRollbackCmd, dbUnlockCmd)
}
