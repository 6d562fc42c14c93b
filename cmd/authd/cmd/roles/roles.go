package roles

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jmurielSett/secHTTPS-sub001/cmd/authd/cmd/cmdutil"
	"github.com/jmurielSett/secHTTPS-sub001/internal/config"
)

var (
	userFlag        string
	applicationFlag string
	roleFlag        string
)

// RolesCmd groups role grant management.
var RolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "Manage role grants",
	Long: `Grant, revoke and list application roles.

Grant changes drop the user's cached role set when the shared redis cache is
configured. With the in-memory cache, running servers pick up the change once
the cached entry expires (token.access_ttl).`,
}

var assignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Grant a role to a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGrant(cmd, func(ctx context.Context, stores *cmdutil.Stores, cfg *config.Config, userID string) error {
			if err := stores.Roles.AssignRole(ctx, userID, applicationFlag, roleFlag); err != nil {
				return fmt.Errorf("failed to assign role: %w", err)
			}
			invalidate(ctx, cfg, userID)
			fmt.Fprintf(cmd.OutOrStdout(), "Granted %s:%s to %s\n", applicationFlag, roleFlag, userFlag)
			return nil
		})
	},
}

var revokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Revoke a role from a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGrant(cmd, func(ctx context.Context, stores *cmdutil.Stores, cfg *config.Config, userID string) error {
			removed, err := stores.Roles.RevokeRole(ctx, userID, applicationFlag, roleFlag)
			if err != nil {
				return fmt.Errorf("failed to revoke role: %w", err)
			}
			if !removed {
				fmt.Fprintf(cmd.OutOrStdout(), "%s does not hold %s:%s\n", userFlag, applicationFlag, roleFlag)
				return nil
			}
			invalidate(ctx, cfg, userID)
			fmt.Fprintf(cmd.OutOrStdout(), "Revoked %s:%s from %s\n", applicationFlag, roleFlag, userFlag)
			return nil
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List roles defined in an application",
	RunE: func(cmd *cobra.Command, args []string) error {
		if applicationFlag == "" {
			return errors.New("--application is required")
		}
		cfg, err := cmdutil.Config()
		if err != nil {
			return err
		}
		stores, err := cmdutil.OpenStores(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer stores.Close()

		roles, err := stores.Roles.ListForApplication(cmd.Context(), applicationFlag)
		if err != nil {
			return fmt.Errorf("failed to list roles: %w", err)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tROLE")
		for _, r := range roles {
			fmt.Fprintf(tw, "%s\t%s\n", r.ID, r.Name)
		}
		return tw.Flush()
	},
}

func init() {
	for _, c := range []*cobra.Command{assignCmd, revokeCmd} {
		c.Flags().StringVar(&userFlag, "user", "", "Username of the grantee (required)")
		c.Flags().StringVar(&applicationFlag, "application", "", "Application name (required)")
		c.Flags().StringVar(&roleFlag, "role", "", "Role name (required)")
	}
	listCmd.Flags().StringVar(&applicationFlag, "application", "", "Application name (required)")

	RolesCmd.AddCommand(assignCmd, revokeCmd, listCmd)
}

// withGrant validates grant flags, opens storage and resolves --user to an id.
func withGrant(cmd *cobra.Command, fn func(context.Context, *cmdutil.Stores, *config.Config, string) error) error {
	if userFlag == "" || applicationFlag == "" || roleFlag == "" {
		return errors.New("--user, --application and --role are required")
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

	user, err := stores.Users.FindByUsername(ctx, userFlag)
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("user %q not found", userFlag)
	}
	return fn(ctx, stores, cfg, user.ID)
}

func invalidate(ctx context.Context, cfg *config.Config, userID string) {
	if err := cmdutil.InvalidateSharedCache(ctx, cfg, userID, applicationFlag); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Str("application", applicationFlag).
			Msg("role cache invalidation failed; entry expires with its TTL")
	}
}
