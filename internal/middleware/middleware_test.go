package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmurielSett/secHTTPS-sub001/internal/auth"
)

type stubVerifier struct {
	tokens map[string]*auth.Claims
}

func (v stubVerifier) VerifyAccessToken(token string) (*auth.Claims, error) {
	if c, ok := v.tokens[token]; ok {
		return c, nil
	}
	return nil, auth.ErrInvalidOrExpiredToken
}

type stubChecker struct {
	grants map[string]bool // userID/app/role
	err    error
}

func (c stubChecker) CheckAccess(_ context.Context, userID, application, role string) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	return c.grants[userID+"/"+application+"/"+role], nil
}

func principalEcho(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.PrincipalFromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(p.UserID))
	})
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestAuthnMiddleware(t *testing.T) {
	verifier := stubVerifier{tokens: map[string]*auth.Claims{
		"good": {UserID: "u-1", Username: "alice", AuthProvider: "database"},
	}}
	handler := NewAuthnMiddleware(verifier)(principalEcho(t))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "valid token", header: "Bearer good", wantStatus: http.StatusOK, wantBody: "u-1"},
		{name: "lowercase scheme", header: "bearer good", wantStatus: http.StatusOK, wantBody: "u-1"},
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "basic scheme", header: "Basic Zm9vOmJhcg==", wantStatus: http.StatusUnauthorized},
		{name: "empty token", header: "Bearer ", wantStatus: http.StatusUnauthorized},
		{name: "unknown token", header: "Bearer forged", wantStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth/check", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantBody, rec.Body.String())
				return
			}
			assert.Equal(t, CodeInvalidOrExpiredToken, decodeError(t, rec).Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	verifier := stubVerifier{tokens: map[string]*auth.Claims{
		"admin": {UserID: "u-admin"},
		"user":  {UserID: "u-user"},
	}}
	checker := stubChecker{grants: map[string]bool{"u-admin/authd/admin": true}}

	handler := NewAuthnMiddleware(verifier)(RequireRole(checker, "authd", "admin")(principalEcho(t)))

	t.Run("granted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/cache/stats", nil)
		req.Header.Set("Authorization", "Bearer admin")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("denied", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/cache/stats", nil)
		req.Header.Set("Authorization", "Bearer user")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, CodeForbidden, decodeError(t, rec).Code)
	})

	t.Run("checker fault", func(t *testing.T) {
		broken := NewAuthnMiddleware(verifier)(RequireRole(stubChecker{err: errors.New("db down")}, "authd", "admin")(principalEcho(t)))
		req := httptest.NewRequest(http.MethodGet, "/admin/cache/stats", nil)
		req.Header.Set("Authorization", "Bearer admin")
		rec := httptest.NewRecorder()
		broken.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, CodeInternalError, decodeError(t, rec).Code)
		assert.NotContains(t, rec.Body.String(), "db down")
	})

	t.Run("without authn", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RequireRole(checker, "authd", "admin")(principalEcho(t)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequestLogger_PassesThrough(t *testing.T) {
	handler := RequestLogger(nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
