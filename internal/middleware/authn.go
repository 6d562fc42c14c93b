package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jmurielSett/secHTTPS-sub001/internal/auth"
)

// Error codes emitted by the middleware.
const (
	CodeInvalidOrExpiredToken = "INVALID_OR_EXPIRED_TOKEN"
	CodeForbidden             = "FORBIDDEN"
	CodeInternalError         = "INTERNAL_ERROR"
)

// TokenVerifier validates access tokens.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

// NewAuthnMiddleware requires a valid bearer access token and stores the
// resulting principal on the request context.
func NewAuthnMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				WriteError(w, http.StatusUnauthorized, CodeInvalidOrExpiredToken, "missing bearer token")
				return
			}

			claims, err := verifier.VerifyAccessToken(token)
			if err != nil {
				log.Debug().Str("path", r.URL.Path).Msg("access token rejected")
				WriteError(w, http.StatusUnauthorized, CodeInvalidOrExpiredToken, "invalid or expired token")
				return
			}

			ctx := auth.SetPrincipal(r.Context(), auth.Principal{
				UserID:       claims.UserID,
				Username:     claims.Username,
				AuthProvider: claims.AuthProvider,
				Claims:       claims,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
