package server

import (
	"context"
	"net/http"

	"github.com/jmurielSett/secHTTPS-sub001/internal/auth"
	"github.com/jmurielSett/secHTTPS-sub001/internal/services/iam"
)

type loginRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	Application string `json:"application,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type rolesRequest struct {
	Application string   `json:"application"`
	Roles       []string `json:"roles"`
}

type allowedResponse struct {
	Allowed bool `json:"allowed"`
}

// HandleLogin handles POST /auth/login.
func HandleLogin(svc iam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		result, err := svc.Login(r.Context(), iam.Credentials{
			Username:    req.Username,
			Password:    req.Password,
			Application: req.Application,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// HandleRefresh handles POST /auth/refresh.
func HandleRefresh(svc iam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.RefreshToken == "" {
			writeBadRequest(w, "refresh_token is required")
			return
		}

		pair, err := svc.Refresh(r.Context(), req.RefreshToken)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, pair)
	}
}

// HandleCheck handles GET /auth/check?application=&role= for the bearer principal.
func HandleCheck(svc iam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, _ := auth.PrincipalFromContext(r.Context())
		application := r.URL.Query().Get("application")
		role := r.URL.Query().Get("role")
		if application == "" || role == "" {
			writeBadRequest(w, "application and role are required")
			return
		}

		allowed, err := svc.CheckAccess(r.Context(), principal.UserID, application, role)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, allowedResponse{Allowed: allowed})
	}
}

// HandleCheckAny handles POST /auth/check/any.
func HandleCheckAny(svc iam.Service) http.HandlerFunc {
	return handleRolesCheck(svc.HasAnyRole)
}

// HandleCheckAll handles POST /auth/check/all.
func HandleCheckAll(svc iam.Service) http.HandlerFunc {
	return handleRolesCheck(svc.HasAllRoles)
}

func handleRolesCheck(check func(ctx context.Context, userID, application string, roles []string) (bool, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, _ := auth.PrincipalFromContext(r.Context())

		var req rolesRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Application == "" {
			writeBadRequest(w, "application is required")
			return
		}

		allowed, err := check(r.Context(), principal.UserID, req.Application, req.Roles)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, allowedResponse{Allowed: allowed})
	}
}
