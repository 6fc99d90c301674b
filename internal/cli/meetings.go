package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/frontdesk/internal/client"
)

var meetingLists = []string{"incoming", "received", "outgoing"}

func newMeetingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meetings [incoming|received|outgoing]",
		Short: "List and answer meeting requests",
		Long: `Lists meeting requests. "incoming" (the default) shows requests waiting for
your answer, "received" shows every request sent to you, and "outgoing"
shows the requests you sent.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: meetingLists,
		RunE: func(cmd *cobra.Command, args []string) error {
			which := "incoming"
			if len(args) == 1 {
				which = args[0]
			}
			return runListMeetings(cmd, which)
		},
	}

	cmd.AddCommand(
		newRequestMeetingCmd(),
		newRespondMeetingCmd(true),
		newRespondMeetingCmd(false),
		newStartCallCmd(),
	)

	return cmd
}

func runListMeetings(cmd *cobra.Command, which string) error {
	valid := false
	for _, l := range meetingLists {
		if which == l {
			valid = true
		}
	}
	if !valid {
		return fmt.Errorf("unknown meeting list %q (valid: %s)", which, strings.Join(meetingLists, ", "))
	}

	meetings, err := newAPIClient().Meetings(cmd.Context(), which)
	if err != nil {
		return err
	}
	if isJSON() {
		return printJSON(cmd.OutOrStdout(), meetings)
	}
	return printMeetingTable(cmd.OutOrStdout(), meetings)
}

func newRequestMeetingCmd() *cobra.Command {
	var (
		req client.MeetingRequest
		to  []string
	)

	cmd := &cobra.Command{
		Use:   "request",
		Short: "Request a meeting with one or more colleagues",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDList(to)
			if err != nil {
				return err
			}
			req.Recipients = ids

			m, err := newAPIClient().RequestMeeting(cmd.Context(), req)
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), m)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Meeting #%d requested with %d recipient(s).\n", m.ID, len(m.Recipients))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&to, "to", nil, "recipient user IDs, comma separated (required)")
	cmd.Flags().StringVar(&req.Purpose, "purpose", "", "what the meeting is about (required)")
	cmd.Flags().StringVar(&req.ScheduleStart, "start", "", "start time, RFC 3339 or \"2006-01-02 15:04\" (required)")
	cmd.Flags().StringVar(&req.ScheduleEnd, "end", "", "end time (required)")
	cmd.Flags().StringVar(&req.MeetLink, "link", "", "video call link (required)")
	cmd.Flags().StringVar(&req.Notes, "notes", "", "notes for the recipients")
	for _, name := range []string{"to", "purpose", "start", "end", "link"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func newRespondMeetingCmd(approve bool) *cobra.Command {
	var reason string

	use, short, done := "approve", "Accept a meeting request", "accepted"
	if !approve {
		use, short, done = "reject", "Decline a meeting request", "declined"
	}

	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := newAPIClient().RespondMeeting(cmd.Context(), id, approve, reason); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Meeting #%d %s.\n", id, done)
			return nil
		},
	}

	if !approve {
		cmd.Flags().StringVar(&reason, "reason", "", "reason shown to the requestor")
	}

	return cmd
}

func newStartCallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <id>",
		Short: "Mark a meeting you requested as started",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			m, err := newAPIClient().StartCall(cmd.Context(), id)
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), m)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Call started for meeting #%d.\n  %s\n", m.ID, m.MeetLink)
			return nil
		},
	}
}

func parseIDList(values []string) ([]int64, error) {
	ids := make([]int64, 0, len(values))
	for _, v := range values {
		id, err := parseID(strings.TrimSpace(v))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
