// Package cli defines the cobra command tree for frontdesk.
package cli

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evcraddock/frontdesk/internal/client"
	"github.com/evcraddock/frontdesk/internal/db"
)

var (
	flagFormat string
	flagDB     string
)

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fd",
		Short:         "Run and use the front desk visitor service",
		Long:          "Register visitors, approve and check them in and out, request meetings with colleagues, and view the front desk dashboard. 'fd serve' runs the API server; the other commands talk to it.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path for serve (default: ~/.config/fd/frontdesk.db)")

	root.AddCommand(
		newVisitorsCmd(),
		newStatsCmd(),
		newMeetingsCmd(),
		newUsersCmd(),
		newServeCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	return root
}

// openDB opens the SQLite database using the --db flag or default path.
func openDB() (*sql.DB, error) {
	path := flagDB
	if path == "" {
		var err error
		path, err = db.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return db.Open(path)
}

// newAPIClient creates an HTTP client for the frontdesk API.
func newAPIClient() *client.Client {
	return client.New(getServerURL(), getToken())
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}

// closeDB closes the database, logging any error to stderr.
func closeDB(database *sql.DB) {
	if err := database.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing database: %v\n", err)
	}
}
