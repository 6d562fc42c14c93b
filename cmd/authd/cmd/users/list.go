package users

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jmurielSett/secHTTPS-sub001/cmd/authd/cmd/cmdutil"
	"github.com/jmurielSett/secHTTPS-sub001/internal/repository"
)

var enableFlag bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cmdutil.Config()
		if err != nil {
			return err
		}
		stores, err := cmdutil.OpenStores(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer stores.Close()

		users, err := stores.Users.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tUSERNAME\tPROVIDER\tSTATUS")
		for _, u := range users {
			status := "active"
			if u.Disabled() {
				status = "disabled"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.ID, u.Username, u.AuthProvider, status)
		}
		return tw.Flush()
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable <username>",
	Short: "Disable (or with --enable, re-enable) a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cmdutil.Config()
		if err != nil {
			return err
		}
		stores, err := cmdutil.OpenStores(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer stores.Close()

		id, err := userIDByName(cmd, stores, args[0])
		if err != nil {
			return err
		}
		if err := stores.Users.SetDisabled(cmd.Context(), id, !enableFlag); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}

		state := "disabled"
		if enableFlag {
			state = "enabled"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "User %s %s\n", args[0], state)
		return nil
	},
}

// userIDByName resolves a username, including disabled accounts.
func userIDByName(cmd *cobra.Command, stores *cmdutil.Stores, username string) (string, error) {
	users, err := stores.Users.List(cmd.Context())
	if err != nil {
		return "", fmt.Errorf("failed to list users: %w", err)
	}
	for _, u := range users {
		if u.Username == username {
			return u.ID, nil
		}
	}
	return "", fmt.Errorf("user %q: %w", username, repository.ErrNotFound)
}
