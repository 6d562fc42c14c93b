package users

import "github.com/spf13/cobra"

// UsersCmd is the parent command for user management operations
var UsersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage local users",
	Long:  `Commands for managing users stored in the authd database.`,
}

func init() {
	createCmd.Flags().StringVar(&emailFlag, "email", "", "Email address of the user")
	createCmd.Flags().StringVar(&usernameFlag, "username", "", "Login name of the user (required)")
	createCmd.Flags().StringVar(&passwordFlag, "password", "", "Password for the user (use --stdin to avoid shell history)")
	createCmd.Flags().BoolVar(&stdinFlag, "stdin", false, "Read password from stdin instead of --password flag")
	createCmd.Flags().StringSliceVar(&rolesInput, "role", nil, "Role grant as application:role (repeatable)")

	disableCmd.Flags().BoolVar(&enableFlag, "enable", false, "Re-enable instead of disabling")

	UsersCmd.AddCommand(createCmd, listCmd, disableCmd)
}
