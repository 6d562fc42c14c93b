package users

import (
	"bufio"
	"fmt"
	"net/mail"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmurielSett/secHTTPS-sub001/cmd/authd/cmd/cmdutil"
	"github.com/jmurielSett/secHTTPS-sub001/internal/auth"
	"github.com/jmurielSett/secHTTPS-sub001/internal/db/models"
)

var (
	emailFlag    string
	usernameFlag string
	passwordFlag string
	rolesInput   []string
	stdinFlag    bool
)

type roleGrant struct {
	application string
	role        string
}

// parseGrants splits "application:role" values.
func parseGrants(values []string) ([]roleGrant, error) {
	grants := make([]roleGrant, 0, len(values))
	for _, v := range values {
		app, role, ok := strings.Cut(v, ":")
		app, role = strings.TrimSpace(app), strings.TrimSpace(role)
		if !ok || app == "" || role == "" {
			return nil, fmt.Errorf("invalid role %q (expected application:role)", v)
		}
		grants = append(grants, roleGrant{application: app, role: role})
	}
	return grants, nil
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a local user with a password",
	RunE: func(cmd *cobra.Command, args []string) error {
		if usernameFlag == "" {
			return fmt.Errorf("--username flag is required")
		}
		if emailFlag != "" {
			if _, err := mail.ParseAddress(emailFlag); err != nil {
				return fmt.Errorf("invalid email format: %w", err)
			}
		}

		grants, err := parseGrants(rolesInput)
		if err != nil {
			return err
		}

		password := passwordFlag
		if stdinFlag {
			scanner := bufio.NewScanner(os.Stdin)
			fmt.Fprint(cmd.ErrOrStderr(), "Enter password: ")
			if scanner.Scan() {
				password = scanner.Text()
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
		}
		if password == "" {
			return fmt.Errorf("password is required (use --password or --stdin)")
		}

		cfg, err := cmdutil.Config()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		stores, err := cmdutil.OpenStores(ctx, cfg)
		if err != nil {
			return err
		}
		defer stores.Close()

		existing, err := stores.Users.FindByUsername(ctx, usernameFlag)
		if err != nil {
			return fmt.Errorf("failed to check existing user: %w", err)
		}
		if existing != nil {
			return fmt.Errorf("user %q already exists", usernameFlag)
		}

		hash, err := auth.HashPassword(password)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		user := &models.User{
			Username:     usernameFlag,
			Email:        emailFlag,
			PasswordHash: &hash,
			AuthProvider: models.AuthProviderDatabase,
		}
		if err := stores.Users.Create(ctx, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		for _, g := range grants {
			if err := stores.Roles.AssignRole(ctx, user.ID, g.application, g.role); err != nil {
				return fmt.Errorf("failed to assign %s:%s: %w", g.application, g.role, err)
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (%s)\n", user.Username, user.ID)
		for _, g := range grants {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s\n", g.application, g.role)
		}
		return nil
	},
}
