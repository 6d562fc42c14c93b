package bunx

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	_ "modernc.org/sqlite" // SQLite driver
)

// DatabaseType represents the type of database behind a DSN.
type DatabaseType string

const (
	DatabaseTypePostgreSQL DatabaseType = "postgres"
	DatabaseTypeSQLite     DatabaseType = "sqlite"
)

// Options tunes the connection pool. Zero values fall back to defaults.
type Options struct {
	MaxOpenConns int
}

// DetectDatabaseType determines the database type from a DSN string.
func DetectDatabaseType(dsn string) DatabaseType {
	for _, prefix := range []string{"postgres://", "postgresql://", "unix://"} {
		if strings.HasPrefix(dsn, prefix) {
			return DatabaseTypePostgreSQL
		}
	}
	// file:, :memory: or a plain path
	return DatabaseTypeSQLite
}

// NewDB opens a PostgreSQL or SQLite database depending on the DSN and verifies connectivity.
func NewDB(ctx context.Context, dsn string, opts Options) (*bun.DB, error) {
	switch DetectDatabaseType(dsn) {
	case DatabaseTypePostgreSQL:
		return newPostgreSQLDB(ctx, dsn, opts)
	case DatabaseTypeSQLite:
		return newSQLiteDB(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported database type for DSN: %s", dsn)
	}
}

func newPostgreSQLDB(ctx context.Context, dsn string, opts Options) (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))

	maxConns := opts.MaxOpenConns
	if maxConns <= 0 {
		maxConns = 25
	}
	sqldb.SetMaxOpenConns(maxConns)
	sqldb.SetMaxIdleConns(maxConns)

	db := bun.NewDB(sqldb, pgdialect.New())
	if err := db.PingContext(ctx); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func newSQLiteDB(ctx context.Context, dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// single writer; also keeps :memory: databases on one connection
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA journal_mode = WAL"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			sqldb.Close()
			return nil, fmt.Errorf("exec %q: %w", pragma, err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Close closes the database connection. A nil db is a no-op.
func Close(db *bun.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}
