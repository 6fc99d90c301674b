package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/evcraddock/frontdesk/internal/client"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke and remove the stored access token",
		Long:  "Revokes the stored access token on the server and removes it from the config file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func runLogout(ctx context.Context, out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.Token == "" {
		fmt.Fprintln(out, "Not logged in.")
		return nil
	}

	// The token is removed locally even when the server cannot be reached.
	if err := client.New(getServerURL(), cfg.Token).Logout(ctx); err != nil {
		fmt.Fprintf(out, "warning: revoking token on server: %v\n", err)
	}

	cfg.Token = ""
	cfg.Username = ""
	if err := saveConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Fprintln(out, "✓ Logged out. Token removed.")
	return nil
}
