package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmurielSett/secHTTPS-sub001/internal/db/bunx"
	"github.com/jmurielSett/secHTTPS-sub001/internal/db/models"
	"github.com/uptrace/bun"
)

// BunApplicationRepository implements ApplicationRepository using Bun ORM
type BunApplicationRepository struct {
	db *bun.DB
}

// NewBunApplicationRepository creates a new Bun-based application repository
func NewBunApplicationRepository(db *bun.DB) *BunApplicationRepository {
	return &BunApplicationRepository{db: db}
}

// Create inserts a new application
func (r *BunApplicationRepository) Create(ctx context.Context, app *models.Application) error {
	if app.ID == "" {
		app.ID = bunx.NewUUIDv7()
	}
	app.CreatedAt = time.Now().UTC()

	if _, err := r.db.NewInsert().Model(app).Exec(ctx); err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// FindByName returns the application or nil when it does not exist.
func (r *BunApplicationRepository) FindByName(ctx context.Context, name string) (*models.Application, error) {
	app, err := applicationByName(ctx, r.db, name)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return app, err
}

// List retrieves all applications
func (r *BunApplicationRepository) List(ctx context.Context) ([]models.Application, error) {
	var apps []models.Application
	if err := r.db.NewSelect().Model(&apps).Order("name ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return apps, nil
}

// IsAutoSyncEnabled reports whether first-time directory users are provisioned
// for application. Unknown applications are never auto-synced.
func (r *BunApplicationRepository) IsAutoSyncEnabled(ctx context.Context, application string) (bool, error) {
	app, err := r.FindByName(ctx, application)
	if err != nil || app == nil {
		return false, err
	}
	return app.AutoSync && app.DefaultRole != "", nil
}

// DefaultRoleForAutoSync returns the role granted to auto-synced users, or "".
func (r *BunApplicationRepository) DefaultRoleForAutoSync(ctx context.Context, application string) (string, error) {
	app, err := r.FindByName(ctx, application)
	if err != nil || app == nil {
		return "", err
	}
	return app.DefaultRole, nil
}
