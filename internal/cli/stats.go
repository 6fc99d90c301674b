package cli

import (
	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var tz string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the dashboard summary",
		Long: `Shows visitor counts, the status breakdown, today's expected visitors by
hour, the check-in trend and recent check-outs, limited to the visitors
you may see.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := newAPIClient().Stats(cmd.Context(), tz)
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), report)
			}
			return printReport(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVar(&tz, "tz", "", "IANA time zone deciding which day is today (default: server's)")

	return cmd
}
