package apps

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jmurielSett/secHTTPS-sub001/cmd/authd/cmd/cmdutil"
	"github.com/jmurielSett/secHTTPS-sub001/internal/db/models"
)

var (
	nameFlag        string
	descriptionFlag string
	autoSyncFlag    bool
	defaultRoleFlag string
)

// AppsCmd groups application management.
var AppsCmd = &cobra.Command{
	Use:   "apps",
	Short: "Manage applications",
	Long:  `Register relying applications and their directory auto-sync policy.`,
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Register an application",
	Long: `Register an application users can hold roles in.

With --auto-sync, users authenticated by a directory provider who are unknown
locally are created on first login and granted --default-role.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if nameFlag == "" {
			return errors.New("--name is required")
		}
		if autoSyncFlag && defaultRoleFlag == "" {
			return errors.New("--default-role is required with --auto-sync")
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

		existing, err := stores.Applications.FindByName(ctx, nameFlag)
		if err != nil {
			return fmt.Errorf("failed to look up application: %w", err)
		}
		if existing != nil {
			return fmt.Errorf("application %q already exists", nameFlag)
		}

		app := &models.Application{
			Name:        nameFlag,
			Description: descriptionFlag,
			AutoSync:    autoSyncFlag,
			DefaultRole: defaultRoleFlag,
		}
		if err := stores.Applications.Create(ctx, app); err != nil {
			return fmt.Errorf("failed to create application: %w", err)
		}

		log.Info().Str("application", app.Name).Str("id", app.ID).Bool("auto_sync", app.AutoSync).Msg("application created")
		fmt.Fprintf(cmd.OutOrStdout(), "Application %s created (id %s)\n", app.Name, app.ID)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List applications",
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

		apps, err := stores.Applications.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list applications: %w", err)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tAUTO-SYNC\tDEFAULT ROLE\tDESCRIPTION")
		for _, a := range apps {
			fmt.Fprintf(tw, "%s\t%t\t%s\t%s\n", a.Name, a.AutoSync, a.DefaultRole, a.Description)
		}
		return tw.Flush()
	},
}

func init() {
	createCmd.Flags().StringVar(&nameFlag, "name", "", "Application name (required)")
	createCmd.Flags().StringVar(&descriptionFlag, "description", "", "Free-form description")
	createCmd.Flags().BoolVar(&autoSyncFlag, "auto-sync", false, "Provision directory users on first login")
	createCmd.Flags().StringVar(&defaultRoleFlag, "default-role", "", "Role granted to auto-synced users")

	AppsCmd.AddCommand(createCmd, listCmd)
}
