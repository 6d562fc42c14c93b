package middleware

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/jmurielSett/secHTTPS-sub001/internal/auth"
)

// RoleChecker answers whether a user holds a role in an application.
type RoleChecker interface {
	CheckAccess(ctx context.Context, userID, application, role string) (bool, error)
}

// RequireRole rejects requests whose principal lacks role in application.
// It must run after NewAuthnMiddleware.
func RequireRole(checker RoleChecker, application, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.PrincipalFromContext(r.Context())
			if !ok || principal.UserID == "" {
				WriteError(w, http.StatusUnauthorized, CodeInvalidOrExpiredToken, "missing bearer token")
				return
			}

			allowed, err := checker.CheckAccess(r.Context(), principal.UserID, application, role)
			if err != nil {
				log.Error().Err(err).Str("user_id", principal.UserID).Str("application", application).Msg("role check failed")
				WriteError(w, http.StatusInternalServerError, CodeInternalError, "internal server error")
				return
			}
			if !allowed {
				WriteError(w, http.StatusForbidden, CodeForbidden, "requires role "+role+" in "+application)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
