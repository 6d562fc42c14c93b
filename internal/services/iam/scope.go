package iam

import (
	"context"
	"fmt"
	"sort"

	"github.com/jmurielSett/secHTTPS-sub001/internal/auth"
)

// resolveScope loads the roles a token will carry. With an application it is
// that application's roles; without one it is every application the user
// holds at least one role in. An empty result is a NoApplicationAccessError.
func resolveScope(ctx context.Context, users UserDirectory, userID, application string) (*auth.Scope, error) {
	if application != "" {
		roles, err := users.GetRolesForApplication(ctx, userID, application)
		if err != nil {
			return nil, fmt.Errorf("get roles for application: %w", err)
		}
		if len(roles) == 0 {
			return nil, &NoApplicationAccessError{Application: application}
		}
		return auth.SingleApplication(application, roles), nil
	}

	all, err := users.GetAllRoles(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get all roles: %w", err)
	}

	apps := make([]auth.ApplicationRoles, 0, len(all))
	for name, roles := range all {
		if len(roles) == 0 {
			continue
		}
		apps = append(apps, auth.ApplicationRoles{Application: name, Roles: roles})
	}
	if len(apps) == 0 {
		return nil, &NoApplicationAccessError{}
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].Application < apps[j].Application })
	return auth.MultiApplication(apps), nil
}
