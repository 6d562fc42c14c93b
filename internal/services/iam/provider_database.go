package iam

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jmurielSett/secHTTPS-sub001/internal/auth"
)

// DatabaseProviderName is the identity of the local password provider.
const DatabaseProviderName = "database"

// DatabaseProvider checks passwords against bcrypt hashes in local storage.
type DatabaseProvider struct {
	store   CredentialStore
	timeout time.Duration
}

var _ Provider = (*DatabaseProvider)(nil)

// NewDatabaseProvider creates the local password provider.
func NewDatabaseProvider(store CredentialStore, timeout time.Duration) *DatabaseProvider {
	return &DatabaseProvider{store: store, timeout: timeout}
}

func (p *DatabaseProvider) Name() string       { return DatabaseProviderName }
func (p *DatabaseProvider) Kind() ProviderKind { return ProviderKindDatabase }

// Available pings storage within the provider timeout.
func (p *DatabaseProvider) Available(ctx context.Context) bool {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.store.Ping(ctx); err != nil {
		log.Warn().Err(err).Str("provider", p.Name()).Msg("provider unavailable")
		return false
	}
	return true
}

// Authenticate compares password with the stored hash. Unknown users and
// users without a local password are compared against a dummy hash.
func (p *DatabaseProvider) Authenticate(ctx context.Context, username, password string) AuthResult {
	if username == "" || password == "" {
		return failed(username, ReasonMissingCredentials)
	}

	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	user, err := p.store.FindByUsername(ctx, username)
	if err != nil {
		auth.ComparePassword(nil, password)
		log.Warn().Err(err).Str("provider", p.Name()).Msg(ErrUpstreamProviderDegraded.Error())
		return failed(username, ReasonProviderDegraded)
	}

	var hash *string
	if user != nil {
		hash = user.PasswordHash
	}
	if !auth.ComparePassword(hash, password) {
		log.Debug().Str("provider", p.Name()).Str("username", username).Msg("password rejected")
		return failed(username, ReasonInvalidCredentials)
	}
	return succeeded(p, username)
}
