package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/evcraddock/frontdesk/internal/client"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check connection and auth status",
		Long:  "Tests the connection to the server and checks whether the stored access token is still valid.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func runStatus(ctx context.Context, out io.Writer) error {
	serverURL := getServerURL()
	token := getToken()

	fmt.Fprintf(out, "Server:  %s\n", serverURL)

	api := client.New(serverURL, token)
	if err := api.Health(ctx); err != nil {
		fmt.Fprintf(out, "Status:  ✗ cannot reach server (%v)\n", err)
		return nil
	}

	if token == "" {
		fmt.Fprintln(out, "Token:   not configured")
		fmt.Fprintln(out, "\nRun 'fd login' to authenticate.")
		return nil
	}

	me, err := api.Me(ctx)
	var apiErr *client.APIError
	switch {
	case err == nil && me != nil:
		fmt.Fprintf(out, "User:    %s (%s)\n", me.Username, me.Role)
		fmt.Fprintln(out, "Status:  ✓ connected and authenticated")
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized:
		fmt.Fprintln(out, "Status:  ✗ token is invalid or expired")
		fmt.Fprintln(out, "\nRun 'fd login' to re-authenticate.")
	default:
		fmt.Fprintf(out, "Status:  ✗ %v\n", err)
	}

	return nil
}
