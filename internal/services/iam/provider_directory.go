package iam

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog/log"
)

// DirectoryConfig configures one DirectoryProvider.
type DirectoryConfig struct {
	Name string
	URL  string

	// BindDNTemplate formats the user DN from the escaped username, e.g.
	// "uid=%s,ou=people,dc=example,dc=org". When empty the user entry is
	// located by searching BaseDN with UserFilter as the service account.
	BindDNTemplate string
	BaseDN         string
	UserFilter     string

	ServiceBindDN       string
	ServiceBindPassword string

	StartTLS           bool
	InsecureSkipVerify bool
	Timeout            time.Duration
}

// ldapConn is the subset of *ldap.Conn the provider uses.
type ldapConn interface {
	Bind(username, password string) error
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	StartTLS(cfg *tls.Config) error
	Close() error
}

// Dialer opens a connection to an LDAP server.
type Dialer func(ctx context.Context, cfg DirectoryConfig) (ldapConn, error)

// DirectoryProvider authenticates by binding to an LDAP directory as the user.
type DirectoryProvider struct {
	cfg  DirectoryConfig
	dial Dialer
}

var _ Provider = (*DirectoryProvider)(nil)

// NewDirectoryProvider creates a provider for one directory server.
func NewDirectoryProvider(cfg DirectoryConfig) *DirectoryProvider {
	return NewDirectoryProviderWithDialer(cfg, dialLDAP)
}

// NewDirectoryProviderWithDialer creates a provider using a custom dialer.
func NewDirectoryProviderWithDialer(cfg DirectoryConfig, dial Dialer) *DirectoryProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.UserFilter == "" {
		cfg.UserFilter = "(uid=%s)"
	}
	return &DirectoryProvider{cfg: cfg, dial: dial}
}

func (p *DirectoryProvider) Name() string       { return p.cfg.Name }
func (p *DirectoryProvider) Kind() ProviderKind { return ProviderKindDirectory }

// Available dials the server and, when a service account is configured, binds with it.
func (p *DirectoryProvider) Available(ctx context.Context) bool {
	ctx, cancel := withTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	err := p.withConn(ctx, func(conn ldapConn) error {
		if p.cfg.ServiceBindDN == "" {
			return nil
		}
		return conn.Bind(p.cfg.ServiceBindDN, p.cfg.ServiceBindPassword)
	})
	if err != nil {
		log.Warn().Err(err).Str("provider", p.Name()).Msg("provider unavailable")
		return false
	}
	return true
}

// Authenticate resolves the user DN and binds with the supplied password.
func (p *DirectoryProvider) Authenticate(ctx context.Context, username, password string) AuthResult {
	// an empty password would be an unauthenticated bind, which servers accept
	if username == "" || password == "" {
		return failed(username, ReasonMissingCredentials)
	}

	ctx, cancel := withTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	var rejected bool
	err := p.withConn(ctx, func(conn ldapConn) error {
		userDN, err := p.userDN(conn, username)
		if err != nil {
			return err
		}
		if userDN == "" {
			rejected = true
			return nil
		}

		if err := conn.Bind(userDN, password); err != nil {
			if ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) {
				rejected = true
				return nil
			}
			return fmt.Errorf("user bind: %w", err)
		}
		return nil
	})

	switch {
	case err != nil:
		log.Warn().Err(err).Str("provider", p.Name()).Msg(ErrUpstreamProviderDegraded.Error())
		return failed(username, ReasonProviderDegraded)
	case rejected:
		log.Debug().Str("provider", p.Name()).Str("username", username).Msg("directory rejected credentials")
		return failed(username, ReasonInvalidCredentials)
	default:
		return succeeded(p, username)
	}
}

// userDN returns "" when the user does not exist in the directory.
func (p *DirectoryProvider) userDN(conn ldapConn, username string) (string, error) {
	if p.cfg.BindDNTemplate != "" {
		return fmt.Sprintf(p.cfg.BindDNTemplate, ldap.EscapeDN(username)), nil
	}

	if err := conn.Bind(p.cfg.ServiceBindDN, p.cfg.ServiceBindPassword); err != nil {
		return "", fmt.Errorf("service bind: %w", err)
	}

	res, err := conn.Search(ldap.NewSearchRequest(
		p.cfg.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		2, // more than one match is ambiguous
		int(p.cfg.Timeout.Seconds()),
		false,
		fmt.Sprintf(p.cfg.UserFilter, ldap.EscapeFilter(username)),
		[]string{"dn"},
		nil,
	))
	if err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
			return "", nil
		}
		return "", fmt.Errorf("search user: %w", err)
	}
	if len(res.Entries) != 1 {
		return "", nil
	}
	return res.Entries[0].DN, nil
}

// withConn dials, optionally upgrades to TLS, runs fn and closes the
// connection. Cancelling ctx closes the connection to unblock fn.
func (p *DirectoryProvider) withConn(ctx context.Context, fn func(ldapConn) error) error {
	conn, err := p.dial(ctx, p.cfg)
	if err != nil {
		return fmt.Errorf("dial %s: %w", p.cfg.URL, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if p.cfg.StartTLS {
		if err := conn.StartTLS(p.tlsConfig()); err != nil {
			return fmt.Errorf("start tls: %w", err)
		}
	}

	err = fn(conn)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.Join(ctxErr, err)
	}
	return err
}

func (p *DirectoryProvider) tlsConfig() *tls.Config {
	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: p.cfg.InsecureSkipVerify, //nolint:gosec // opt-in for lab directories
	}
	if u, err := url.Parse(p.cfg.URL); err == nil {
		cfg.ServerName = u.Hostname()
	}
	return cfg
}

type ldapConnAdapter struct {
	*ldap.Conn
}

func (c ldapConnAdapter) Close() error {
	c.Conn.Close()
	return nil
}

func dialLDAP(_ context.Context, cfg DirectoryConfig) (ldapConn, error) {
	p := &DirectoryProvider{cfg: cfg}
	conn, err := ldap.DialURL(cfg.URL,
		ldap.DialWithDialer(&net.Dialer{Timeout: cfg.Timeout}),
		ldap.DialWithTLSConfig(p.tlsConfig()),
	)
	if err != nil {
		return nil, err
	}
	conn.SetTimeout(cfg.Timeout)
	return ldapConnAdapter{conn}, nil
}
