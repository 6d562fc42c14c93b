package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jmurielSett/secHTTPS-sub001/cmd/authd/cmd/cmdutil"
	"github.com/jmurielSett/secHTTPS-sub001/internal/auth"
	"github.com/jmurielSett/secHTTPS-sub001/internal/config"
	"github.com/jmurielSett/secHTTPS-sub001/internal/repository"
	"github.com/jmurielSett/secHTTPS-sub001/internal/server"
	"github.com/jmurielSett/secHTTPS-sub001/internal/services/iam"
	"github.com/jmurielSett/secHTTPS-sub001/internal/telemetry"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the authd HTTP server",
	Long:  `Starts the HTTP server exposing login, refresh, access checks and admin cache endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		shutdownTelemetry, err := telemetry.Init(ctx, cfg.Observability)
		if err != nil {
			return fmt.Errorf("initialize telemetry: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := shutdownTelemetry(sctx); err != nil {
				log.Warn().Err(err).Msg("telemetry shutdown failed")
			}
		}()

		stores, err := cmdutil.OpenStores(ctx, cfg)
		if err != nil {
			return err
		}
		defer stores.Close()
		log.Info().Msg("connected to database")

		backend, closeCache, err := cmdutil.NewCacheBackend(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := closeCache(); err != nil {
				log.Warn().Err(err).Msg("cache close failed")
			}
		}()
		log.Info().Str("backend", cfg.Cache.Backend).Msg("role cache ready")

		tokens, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
			Issuer:        cfg.Token.Issuer,
			AccessSecret:  []byte(cfg.Token.AccessSecret),
			RefreshSecret: []byte(cfg.Token.RefreshSecret),
			AccessTTL:     cfg.Token.AccessTTL,
			RefreshTTL:    cfg.Token.RefreshTTL,
		})
		if err != nil {
			return fmt.Errorf("create token issuer: %w", err)
		}

		authMetrics, err := telemetry.NewAuthMetrics()
		if err != nil {
			return fmt.Errorf("create auth metrics: %w", err)
		}
		serverMetrics, err := telemetry.NewServerMetrics()
		if err != nil {
			return fmt.Errorf("create server metrics: %w", err)
		}

		svc, err := iam.NewService(iam.Dependencies{
			Users:        stores.Users,
			Roles:        stores.Roles,
			Applications: stores.Applications,
			Providers:    buildProviders(cfg, stores.Users),
			Tokens:       tokens,
			Cache:        backend,
			Metrics:      authMetrics,
		})
		if err != nil {
			return fmt.Errorf("create iam service: %w", err)
		}
		for _, p := range svc.Providers() {
			log.Info().Str("provider", p.Name()).Str("kind", string(p.Kind())).Msg("authentication provider registered")
		}

		healthHandler := func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := stores.Users.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		}

		router := server.NewRouter(server.RouterOptions{
			IAM:           svc,
			Metrics:       serverMetrics,
			HealthHandler: healthHandler,
		})

		srv := &http.Server{
			Addr:              cfg.ServerAddr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info().Str("addr", cfg.ServerAddr).Msg("starting authd server")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
		case <-ctx.Done():
			log.Info().Msg("shutting down server")
		}

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		log.Info().Msg("server stopped")
		return nil
	},
}

// buildProviders constructs the cascade in providers.order.
func buildProviders(cfg *config.Config, users *repository.BunUserRepository) []iam.Provider {
	providers := make([]iam.Provider, 0, len(cfg.Providers.Order))
	for _, name := range cfg.Providers.Order {
		if name == config.ProviderDatabase {
			if !cfg.Providers.Database.Enabled {
				continue
			}
			providers = append(providers, iam.NewDatabaseProvider(users, cfg.Providers.Database.Timeout))
			continue
		}

		dir, ok := cfg.Directory(name)
		if !ok {
			continue
		}
		providers = append(providers, iam.NewDirectoryProvider(directoryConfig(dir)))
	}
	return providers
}

func directoryConfig(dir config.DirectoryConfig) iam.DirectoryConfig {
	return iam.DirectoryConfig{
		Name:                dir.Name,
		URL:                 dir.URL,
		BindDNTemplate:      dir.BindDNTemplate,
		BaseDN:              dir.BaseDN,
		UserFilter:          dir.UserFilter,
		ServiceBindDN:       dir.ServiceBindDN,
		ServiceBindPassword: dir.ServiceBindPassword,
		StartTLS:            dir.StartTLS,
		InsecureSkipVerify:  dir.InsecureSkipVerify,
		Timeout:             dir.Timeout,
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
