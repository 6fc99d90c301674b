package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List user accounts (admin)",
		Long:  "Lists user accounts. Use the IDs shown here as --host when registering visitors or --to when requesting meetings.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api := newAPIClient()
			users, err := api.Users(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing users: %w", err)
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), users)
			}
			return printUserTable(cmd.OutOrStdout(), users)
		},
	}
}
