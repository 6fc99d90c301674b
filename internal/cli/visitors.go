package cli

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/evcraddock/frontdesk/internal/client"
	"github.com/evcraddock/frontdesk/internal/visitor"
)

func newVisitorsCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:     "visitors",
		Aliases: []string{"v"},
		Short:   "List and manage visitors",
		Long: `Lists the visitors you may see: all of them for admin and security,
otherwise the ones you host. Subcommands register visitors and move them
through approval, check-in and check-out.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListVisitors(cmd, status)
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "only show visitors with this status")

	cmd.AddCommand(
		newShowVisitorCmd(),
		newRegisterVisitorCmd(),
		newPreApproveCmd(),
		newTransitionCmd("approve", nil, "Approve a pending visitor", "approve"),
		newTransitionCmd("reject", nil, "Reject a visitor", "reject"),
		newTransitionCmd("pending", []string{"reset"}, "Put a visitor back to pending (admin)", "pending"),
		newTransitionCmd("checkin", []string{"check-in"}, "Check a visitor in", "check-in"),
		newTransitionCmd("checkout", []string{"check-out"}, "Check a visitor out", "check-out"),
	)

	return cmd
}

func runListVisitors(cmd *cobra.Command, status string) error {
	if status != "" && !visitor.Status(status).IsValid() {
		return fmt.Errorf("invalid status %q (valid: %v)", status, visitor.Statuses)
	}

	visitors, err := newAPIClient().ListVisitors(cmd.Context())
	if err != nil {
		return err
	}
	if status != "" {
		filtered := visitors[:0]
		for _, v := range visitors {
			if v.Status == visitor.Status(status) {
				filtered = append(filtered, v)
			}
		}
		visitors = filtered
	}

	out := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(out, visitors)
	}
	return printVisitorTable(out, visitors)
}

func newShowVisitorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show visitor details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			v, err := newAPIClient().GetVisitor(cmd.Context(), id)
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), v)
			}
			printVisitor(cmd.OutOrStdout(), v)
			return nil
		},
	}
}

// visitorFlags binds the descriptive fields shared by register and preapprove.
func visitorFlags(cmd *cobra.Command, req *client.VisitorRequest, photoFile *string) {
	cmd.Flags().StringVar(&req.FullName, "name", "", "visitor's full name (required)")
	cmd.Flags().StringVar(&req.Email, "email", "", "visitor's email")
	cmd.Flags().StringVar(&req.Phone, "phone", "", "visitor's phone number")
	cmd.Flags().StringVar(&req.Company, "company", "", "visitor's company")
	cmd.Flags().StringVar(&req.Purpose, "purpose", "", "purpose of the visit (required)")
	cmd.Flags().StringVar(photoFile, "photo", "", "path to a JPEG, PNG, GIF or WebP photo")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("purpose")
}

func newRegisterVisitorCmd() *cobra.Command {
	var (
		req       client.VisitorRequest
		photoFile string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a walk-in visitor for a host's approval",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := attachPhoto(&req, photoFile); err != nil {
				return err
			}
			v, err := newAPIClient().RegisterVisitor(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printCreatedVisitor(cmd, v, "registered; waiting for the host")
		},
	}

	visitorFlags(cmd, &req, &photoFile)
	cmd.Flags().Int64Var(&req.HostID, "host", 0, "user ID of the host (required)")
	_ = cmd.MarkFlagRequired("host")

	return cmd
}

func newPreApproveCmd() *cobra.Command {
	var (
		req       client.VisitorRequest
		photoFile string
	)

	cmd := &cobra.Command{
		Use:   "preapprove",
		Short: "Pre-approve a visitor you host for a check-in window",
		Long: `Creates an approved visitor hosted by you. The visitor can only be checked
in between --from and --until, given as RFC 3339 or "2006-01-02 15:04" in
the server's time zone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := attachPhoto(&req, photoFile); err != nil {
				return err
			}
			v, err := newAPIClient().PreApprove(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printCreatedVisitor(cmd, v, "pre-approved")
		},
	}

	visitorFlags(cmd, &req, &photoFile)
	cmd.Flags().StringVar(&req.WindowStart, "from", "", "start of the check-in window (required)")
	cmd.Flags().StringVar(&req.WindowEnd, "until", "", "end of the check-in window (required)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("until")

	return cmd
}

func newTransitionCmd(use string, aliases []string, short, action string) *cobra.Command {
	return &cobra.Command{
		Use:     use + " <id>",
		Aliases: aliases,
		Short:   short,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			res, err := newAPIClient().Transition(cmd.Context(), id, action)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if isJSON() {
				return printJSON(out, res.Visitor)
			}
			mark := "✓"
			if res.Already {
				mark = "-"
			}
			fmt.Fprintf(out, "%s %s\n", mark, res.Message)
			if res.Visitor != nil {
				fmt.Fprintf(out, "  #%d %s: %s\n", res.Visitor.ID, res.Visitor.FullName, res.Visitor.Status.Label())
			}
			return nil
		},
	}
}

func printCreatedVisitor(cmd *cobra.Command, v *visitor.Visitor, what string) error {
	out := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(out, v)
	}
	fmt.Fprintf(out, "✓ Visitor %s.\n\n", what)
	printVisitor(out, v)
	return nil
}

// attachPhoto base64-encodes the file at path into the request.
func attachPhoto(req *client.VisitorRequest, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading photo: %w", err)
	}
	req.Photo = base64.StdEncoding.EncodeToString(data)
	return nil
}

// parseID parses a positive record ID from a command argument.
func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid ID %q", s)
	}
	return id, nil
}
