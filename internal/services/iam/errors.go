package iam

import (
	"errors"

	"github.com/jmurielSett/secHTTPS-sub001/internal/auth"
)

var (
	// ErrInvalidCredentials covers cascade exhaustion and unknown users alike.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidOrExpiredToken is returned for any token verification failure.
	ErrInvalidOrExpiredToken = auth.ErrInvalidOrExpiredToken

	// ErrUserNotFound is returned when a refresh token references a deleted or disabled account.
	ErrUserNotFound = errors.New("user not found")

	// ErrNoApplicationAccess matches every *NoApplicationAccessError via errors.Is.
	ErrNoApplicationAccess = errors.New("no application access")

	// ErrUpstreamProviderDegraded marks a provider fault. It is logged inside
	// providers and never returned from the package API.
	ErrUpstreamProviderDegraded = errors.New("upstream provider degraded")
)

// NoApplicationAccessError reports an authenticated principal holding no roles
// in the requested scope. An empty Application means "any application".
type NoApplicationAccessError struct {
	Application string
}

func (e *NoApplicationAccessError) Error() string {
	if e.Application == "" {
		return "no access to any application"
	}
	return "no access to application " + e.Application
}

// Is makes errors.Is(err, ErrNoApplicationAccess) hold.
func (e *NoApplicationAccessError) Is(target error) bool {
	return target == ErrNoApplicationAccess
}

// Stable error codes returned to callers.
const (
	CodeInvalidCredentials    = "INVALID_CREDENTIALS"
	CodeNoApplicationAccess   = "NO_APPLICATION_ACCESS"
	CodeInvalidOrExpiredToken = "INVALID_OR_EXPIRED_TOKEN"
	CodeUserNotFound          = "USER_NOT_FOUND"
	CodeInternalError         = "INTERNAL_ERROR"
)

// Code maps err to its stable code. Anything unrecognised is INTERNAL_ERROR.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials):
		return CodeInvalidCredentials
	case errors.Is(err, ErrNoApplicationAccess):
		return CodeNoApplicationAccess
	case errors.Is(err, ErrInvalidOrExpiredToken):
		return CodeInvalidOrExpiredToken
	case errors.Is(err, ErrUserNotFound):
		return CodeUserNotFound
	default:
		return CodeInternalError
	}
}
