package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/jmurielSett/secHTTPS-sub001/internal/middleware"
	"github.com/jmurielSett/secHTTPS-sub001/internal/repository"
	"github.com/jmurielSett/secHTTPS-sub001/internal/services/iam"
)

// Codes beyond the iam error taxonomy.
const (
	codeInvalidRequest = "INVALID_REQUEST"
	codeNotFound       = "NOT_FOUND"
)

const maxBodyBytes = 1 << 20

type errorMapping struct {
	status  int
	message string
}

var serviceErrors = map[string]errorMapping{
	iam.CodeInvalidCredentials:    {http.StatusUnauthorized, "invalid username or password"},
	iam.CodeNoApplicationAccess:   {http.StatusForbidden, "no access to the requested application"},
	iam.CodeInvalidOrExpiredToken: {http.StatusUnauthorized, "invalid or expired token"},
	iam.CodeUserNotFound:          {http.StatusUnauthorized, "user not found"},
	iam.CodeInternalError:         {http.StatusInternalServerError, "internal server error"},
}

// writeServiceError renders err with a fixed message. Internal detail is only logged.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, codeNotFound, "user or application not found")
		return
	case errors.Is(err, iam.ErrInvalidRoleRequest):
		middleware.WriteError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	code := iam.Code(err)
	mapping := serviceErrors[code]
	if code == iam.CodeInternalError {
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
	}
	middleware.WriteError(w, mapping.status, code, mapping.message)
}

func writeBadRequest(w http.ResponseWriter, message string) {
	middleware.WriteError(w, http.StatusBadRequest, codeInvalidRequest, message)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeBadRequest(w, "malformed JSON body")
		return false
	}
	return true
}
