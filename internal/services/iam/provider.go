package iam

import (
	"context"
	"fmt"
	"time"
)

// ProviderKind distinguishes local password storage from external directories.
type ProviderKind string

const (
	ProviderKindDatabase  ProviderKind = "database"
	ProviderKindDirectory ProviderKind = "directory"
)

// Failure reasons carried in AuthResult.Reason.
const (
	ReasonInvalidCredentials = "invalid credentials"
	ReasonProviderDegraded   = "provider degraded"
	ReasonMissingCredentials = "missing credentials"
)

// Provider verifies a username/password pair against one credential source.
//
// Implementations never panic and never return errors: faults surface as
// Available() == false or a failed AuthResult.
type Provider interface {
	// Name is the stable identity recorded in issued tokens.
	Name() string
	Kind() ProviderKind
	// Available is a short, timeout-bounded liveness probe.
	Available(ctx context.Context) bool
	Authenticate(ctx context.Context, username, password string) AuthResult
}

// AuthResult is the outcome of one provider or cascade run.
// On success Provider and Kind are set and Reason is empty.
type AuthResult struct {
	Success  bool
	Username string
	Provider string
	Kind     ProviderKind
	Reason   string
}

func succeeded(p Provider, username string) AuthResult {
	return AuthResult{Success: true, Username: username, Provider: p.Name(), Kind: p.Kind()}
}

func failed(username, reason string) AuthResult {
	return AuthResult{Username: username, Reason: reason}
}

// Credentials is a login request. Application is optional.
type Credentials struct {
	Username    string
	Password    string
	Application string
}

// String omits the password.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Username:%q Application:%q}", c.Username, c.Application)
}

// withTimeout bounds a provider call. A zero timeout keeps the caller's deadline.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
