package cmdutil

import (
	"context"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/jmurielSett/secHTTPS-sub001/internal/cache"
	"github.com/jmurielSett/secHTTPS-sub001/internal/config"
	"github.com/jmurielSett/secHTTPS-sub001/internal/db/bunx"
	"github.com/jmurielSett/secHTTPS-sub001/internal/repository"
)

var loaded *config.Config

// SetConfig records the configuration loaded by the root command.
func SetConfig(cfg *config.Config) { loaded = cfg }

// Config returns the configuration loaded by the root command.
func Config() (*config.Config, error) {
	if loaded == nil {
		return nil, errors.New("configuration not loaded")
	}
	return loaded, nil
}

// Stores bundles the repositories with their DB connection so CLI commands
// share one construction path with the server.
type Stores struct {
	DB           *bun.DB
	Users        *repository.BunUserRepository
	Roles        *repository.BunRoleRepository
	Applications *repository.BunApplicationRepository
}

// OpenStores connects to the configured database and wires the repositories.
func OpenStores(ctx context.Context, cfg *config.Config) (*Stores, error) {
	db, err := bunx.NewDB(ctx, cfg.DatabaseURL, bunx.Options{MaxOpenConns: cfg.MaxDBConnections})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &Stores{
		DB:           db,
		Users:        repository.NewBunUserRepository(db),
		Roles:        repository.NewBunRoleRepository(db),
		Applications: repository.NewBunApplicationRepository(db),
	}, nil
}

// Close releases the underlying database connection.
func (s *Stores) Close() {
	if s == nil || s.DB == nil {
		return
	}
	_ = bunx.Close(s.DB)
}

// NewCacheBackend builds the configured role cache backend. The returned
// closer stops background work and releases connections.
func NewCacheBackend(ctx context.Context, cfg *config.Config) (cache.Backend, func() error, error) {
	switch cfg.Cache.Backend {
	case config.CacheBackendRedis:
		backend, err := cache.NewRedisBackend(ctx, cfg.Cache.RedisURL, cfg.Cache.KeyPrefix)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis cache: %w", err)
		}
		return backend, backend.Close, nil
	default:
		rc := cache.NewRoleCache(cache.Options{
			MaxSize:       cfg.Cache.MaxSize,
			SweepInterval: cfg.Cache.SweepInterval,
		})
		return rc, rc.Close, nil
	}
}

// InvalidateSharedCache drops a user's cached role set for application when
// the cache is shared (redis). In-memory caches of running servers expire on
// their own TTL.
func InvalidateSharedCache(ctx context.Context, cfg *config.Config, userID, application string) error {
	if cfg.Cache.Backend != config.CacheBackendRedis {
		return nil
	}
	backend, closeFn, err := NewCacheBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	_, err = backend.Delete(ctx, cache.RoleKey(userID, application))
	return err
}
