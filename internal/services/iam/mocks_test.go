package iam

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/jmurielSett/secHTTPS-sub001/internal/auth"
	"github.com/jmurielSett/secHTTPS-sub001/internal/db/models"
)

var errStorageDown = errors.New("storage down")

// fakeProvider is a scripted Provider that counts calls.
type fakeProvider struct {
	name      string
	kind      ProviderKind
	available bool
	accept    map[string]string // username -> password

	mu                sync.Mutex
	availableCalls    int
	authenticateCalls int
}

func newFakeProvider(name string, kind ProviderKind, available bool, accept map[string]string) *fakeProvider {
	return &fakeProvider{name: name, kind: kind, available: available, accept: accept}
}

func (p *fakeProvider) Name() string       { return p.name }
func (p *fakeProvider) Kind() ProviderKind { return p.kind }

func (p *fakeProvider) Available(context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.availableCalls++
	return p.available
}

func (p *fakeProvider) Authenticate(_ context.Context, username, password string) AuthResult {
	p.mu.Lock()
	p.authenticateCalls++
	p.mu.Unlock()

	if want, ok := p.accept[username]; ok && want == password {
		return succeeded(p, username)
	}
	return failed(username, ReasonInvalidCredentials)
}

func (p *fakeProvider) calls() (available, authenticate int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.availableCalls, p.authenticateCalls
}

// fakeStore is an in-memory UserDirectory, RoleStore and ApplicationConfig.
// CreateWithRole is all-or-nothing, like the bun repository.
type fakeStore struct {
	mu     sync.Mutex
	users  map[string]*models.User        // id -> user
	grants map[string]map[string][]string // user id -> application -> roles
	apps   map[string]*models.Application // name -> application

	roleQueries int
	lastLogins  map[string]int
	failRoles   bool
	failCreate  int // CreateWithRole calls left to fail
	nextID      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:      make(map[string]*models.User),
		grants:     make(map[string]map[string][]string),
		apps:       make(map[string]*models.Application),
		lastLogins: make(map[string]int),
	}
}

func (s *fakeStore) addUser(id, username, provider string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &models.User{ID: id, Username: username, AuthProvider: provider}
	s.users[id] = u
	return u
}

func (s *fakeStore) grant(userID, application string, roles ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.grants[userID] == nil {
		s.grants[userID] = make(map[string][]string)
	}
	s.grants[userID][application] = append(s.grants[userID][application], roles...)
}

func (s *fakeStore) addApp(name string, autoSync bool, defaultRole string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apps[name] = &models.Application{Name: name, AutoSync: autoSync, DefaultRole: defaultRole}
}

func (s *fakeStore) queries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roleQueries
}

func (s *fakeStore) FindByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) FindByID(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id], nil
}

func (s *fakeStore) CreateWithRole(_ context.Context, user *models.User, application, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate > 0 {
		s.failCreate--
		return errStorageDown
	}
	s.nextID++
	user.ID = fmt.Sprintf("synced-%d", s.nextID)
	s.users[user.ID] = user
	if s.grants[user.ID] == nil {
		s.grants[user.ID] = make(map[string][]string)
	}
	s.grants[user.ID][application] = append(s.grants[user.ID][application], role)
	return nil
}

func (s *fakeStore) UpdateLastLogin(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastLogins[id]++
	return nil
}

func (s *fakeStore) GetRolesForApplication(_ context.Context, userID, application string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roleQueries++
	if s.failRoles {
		return nil, errStorageDown
	}
	return append([]string(nil), s.grants[userID][application]...), nil
}

func (s *fakeStore) GetAllRoles(_ context.Context, userID string) (map[string][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roleQueries++
	if s.failRoles {
		return nil, errStorageDown
	}
	out := make(map[string][]string, len(s.grants[userID]))
	for app, roles := range s.grants[userID] {
		out[app] = append([]string(nil), roles...)
	}
	return out, nil
}

func (s *fakeStore) AssignRole(_ context.Context, userID, application, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.grants[userID] == nil {
		s.grants[userID] = make(map[string][]string)
	}
	for _, r := range s.grants[userID][application] {
		if r == role {
			return nil
		}
	}
	s.grants[userID][application] = append(s.grants[userID][application], role)
	return nil
}

func (s *fakeStore) RevokeRole(_ context.Context, userID, application, role string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	roles := s.grants[userID][application]
	for i, r := range roles {
		if r == role {
			s.grants[userID][application] = append(roles[:i:i], roles[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) IsAutoSyncEnabled(_ context.Context, application string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app := s.apps[application]
	return app != nil && app.AutoSync && app.DefaultRole != "", nil
}

func (s *fakeStore) DefaultRoleForAutoSync(_ context.Context, application string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if app := s.apps[application]; app != nil {
		return app.DefaultRole, nil
	}
	return "", nil
}

func newTestIssuer(t *testing.T, clk clock.Clock) *auth.TokenIssuer {
	t.Helper()
	issuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		Issuer:        "authd-test",
		AccessSecret:  []byte("access-secret-0123456789abcdef0123456789"),
		RefreshSecret: []byte("refresh-secret-0123456789abcdef012345678"),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		Clock:         clk,
	})
	require.NoError(t, err)
	return issuer
}
