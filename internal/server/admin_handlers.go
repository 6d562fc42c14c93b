package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/jmurielSett/secHTTPS-sub001/internal/auth"
	"github.com/jmurielSett/secHTTPS-sub001/internal/services/iam"
)

type roleGrantRequest struct {
	Application string `json:"application"`
	Role        string `json:"role"`
}

// HandleAssignRole handles POST /admin/users/{id}/roles.
func HandleAssignRole(svc iam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "id")

		var req roleGrantRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		if err := svc.AssignRole(r.Context(), userID, req.Application, req.Role); err != nil {
			writeServiceError(w, r, err)
			return
		}

		logAdminAction(r, "role assigned", userID, req.Application)
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleRevokeRole handles DELETE /admin/users/{id}/roles.
func HandleRevokeRole(svc iam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "id")

		var req roleGrantRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		removed, err := svc.RevokeRole(r.Context(), userID, req.Application, req.Role)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		logAdminAction(r, "role revoked", userID, req.Application)
		writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
	}
}

// HandleInvalidateUser handles DELETE /admin/cache/users/{id}.
func HandleInvalidateUser(svc iam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "id")

		n, err := svc.InvalidateUserCache(r.Context(), userID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		logAdminAction(r, "user cache invalidated", userID, "")
		writeJSON(w, http.StatusOK, map[string]int{"removed": n})
	}
}

// HandleInvalidateUserApp handles DELETE /admin/cache/users/{id}/apps/{app}.
func HandleInvalidateUserApp(svc iam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "id")
		application := chi.URLParam(r, "app")

		removed, err := svc.InvalidateUserAppCache(r.Context(), userID, application)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		logAdminAction(r, "user application cache invalidated", userID, application)
		writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
	}
}

// HandleCacheStats handles GET /admin/cache/stats.
func HandleCacheStats(svc iam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.CacheStats(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func logAdminAction(r *http.Request, action, userID, application string) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	log.Info().
		Str("actor", principal.UserID).
		Str("user_id", userID).
		Str("application", application).
		Msg(action)
}
