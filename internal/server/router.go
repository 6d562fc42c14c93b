package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/jmurielSett/secHTTPS-sub001/internal/db/models"
	"github.com/jmurielSett/secHTTPS-sub001/internal/middleware"
	"github.com/jmurielSett/secHTTPS-sub001/internal/services/iam"
	"github.com/jmurielSett/secHTTPS-sub001/internal/telemetry"
)

// RouterOptions controls the construction of the authd HTTP router.
// IAM is required; every other field has a default.
type RouterOptions struct {
	IAM           iam.Service
	Metrics       *telemetry.ServerMetrics
	CORSOptions   *cors.Options
	HealthHandler http.HandlerFunc

	// AdminApplication and AdminRole gate the /admin routes.
	AdminApplication string
	AdminRole        string
}

// DefaultCORSOptions returns the development CORS policy.
func DefaultCORSOptions() cors.Options {
	return cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173",
			"http://127.0.0.1:5173",
		},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           300,
	}
}

func defaultHealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// NewRouter assembles a chi.Router with shared middleware, CORS policy and
// the authd handlers mounted.
func NewRouter(opts RouterOptions) chi.Router {
	if opts.AdminApplication == "" {
		opts.AdminApplication = models.AdminApplicationName
	}
	if opts.AdminRole == "" {
		opts.AdminRole = models.AdminRoleName
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(opts.Metrics))
	r.Use(chimw.Recoverer)

	corsCfg := DefaultCORSOptions()
	if opts.CORSOptions != nil {
		corsCfg = *opts.CORSOptions
	}
	r.Use(cors.Handler(corsCfg))

	healthHandler := opts.HealthHandler
	if healthHandler == nil {
		healthHandler = defaultHealthHandler
	}
	r.Get("/health", healthHandler)

	authn := middleware.NewAuthnMiddleware(opts.IAM)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", HandleLogin(opts.IAM))
		r.Post("/refresh", HandleRefresh(opts.IAM))

		r.Group(func(r chi.Router) {
			r.Use(authn)
			r.Get("/check", HandleCheck(opts.IAM))
			r.Post("/check/any", HandleCheckAny(opts.IAM))
			r.Post("/check/all", HandleCheckAll(opts.IAM))
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(authn)
		r.Use(middleware.RequireRole(opts.IAM, opts.AdminApplication, opts.AdminRole))

		r.Post("/users/{id}/roles", HandleAssignRole(opts.IAM))
		r.Delete("/users/{id}/roles", HandleRevokeRole(opts.IAM))
		r.Delete("/cache/users/{id}", HandleInvalidateUser(opts.IAM))
		r.Delete("/cache/users/{id}/apps/{app}", HandleInvalidateUserApp(opts.IAM))
		r.Get("/cache/stats", HandleCacheStats(opts.IAM))
	})

	return r
}
