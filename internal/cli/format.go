package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/evcraddock/frontdesk/internal/auth"
	"github.com/evcraddock/frontdesk/internal/dashboard"
	"github.com/evcraddock/frontdesk/internal/meeting"
	"github.com/evcraddock/frontdesk/internal/visitor"
)

const timeLayout = "2006-01-02 15:04"

// printJSON marshals v as indented JSON and writes it to w.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printVisitor prints a single visitor in text format.
func printVisitor(w io.Writer, v *visitor.Visitor) {
	fmt.Fprintf(w, "Visitor #%d\n", v.ID)
	fmt.Fprintf(w, "  Name:      %s\n", v.FullName)
	if v.Company != "" {
		fmt.Fprintf(w, "  Company:   %s\n", v.Company)
	}
	if v.Email != "" {
		fmt.Fprintf(w, "  Email:     %s\n", v.Email)
	}
	if v.Phone != "" {
		fmt.Fprintf(w, "  Phone:     %s\n", v.Phone)
	}
	fmt.Fprintf(w, "  Purpose:   %s\n", v.Purpose)
	fmt.Fprintf(w, "  Host:      #%d\n", v.HostID)
	fmt.Fprintf(w, "  Badge:     %s\n", v.BadgeID)
	fmt.Fprintf(w, "  Status:    %s\n", v.Status.Label())
	if v.HasWindow() {
		fmt.Fprintf(w, "  Window:    %s to %s\n", formatTime(v.WindowStart), formatTime(v.WindowEnd))
	}
	if v.CheckInTime != nil {
		fmt.Fprintf(w, "  In:        %s\n", formatTime(v.CheckInTime))
	}
	if v.CheckOutTime != nil {
		fmt.Fprintf(w, "  Out:       %s\n", formatTime(v.CheckOutTime))
	}
	if v.HasPhoto() {
		fmt.Fprintf(w, "  Photo:     yes\n")
	}
	fmt.Fprintf(w, "  Created:   %s\n", v.CreatedAt.Local().Format(timeLayout))
}

// printVisitorTable prints a list of visitors as a formatted table.
func printVisitorTable(w io.Writer, visitors []*visitor.Visitor) error {
	if len(visitors) == 0 {
		fmt.Fprintln(w, "No visitors found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "ID\tNAME\tCOMPANY\tHOST\tSTATUS\tBADGE\tCHECKED IN"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	if _, err := fmt.Fprintln(tw, "--\t----\t-------\t----\t------\t-----\t----------"); err != nil {
		return fmt.Errorf("writing table separator: %w", err)
	}

	for _, v := range visitors {
		company := v.Company
		if company == "" {
			company = "-"
		}
		if _, err := fmt.Fprintf(tw, "%d\t%s\t%s\t#%d\t%s\t%s\t%s\n",
			v.ID, truncate(v.FullName, 30), truncate(company, 20), v.HostID,
			v.Status.Label(), v.BadgeID, formatTime(v.CheckInTime)); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flushing table: %w", err)
	}

	fmt.Fprintf(w, "\nTotal: %d visitors\n", len(visitors))
	return nil
}

// printReport prints the dashboard summary in text format.
func printReport(w io.Writer, r *dashboard.Report) error {
	fmt.Fprintf(w, "Visitors:      %d total, %d today\n", r.Total, r.Today)
	fmt.Fprintf(w, "On site:       %d\n", r.CheckedIn)
	fmt.Fprintf(w, "Pending:       %d\n", r.Pending)
	fmt.Fprintf(w, "Pre-approved:  %d\n", r.PreApprovedCount)
	fmt.Fprintf(w, "Without photo: %d\n", r.NoPhotoCount)
	fmt.Fprintf(w, "Avg visit:     %.1f min\n", r.AvgVisitDuration)

	fmt.Fprintln(w, "\nBy status:")
	for _, s := range visitor.Statuses {
		fmt.Fprintf(w, "  %-12s %d\n", s.Label(), r.StatusDistribution[s])
	}

	if expected := busyHours(r.HourlyExpected); len(expected) > 0 {
		fmt.Fprintln(w, "\nExpected today:")
		for _, h := range expected {
			fmt.Fprintf(w, "  %s  %s %d\n", h.Hour, strings.Repeat("█", h.Count), h.Count)
		}
	}

	if len(r.DailyTrend) > 0 {
		fmt.Fprintln(w, "\nCheck-ins:")
		for _, d := range r.DailyTrend {
			fmt.Fprintf(w, "  %s  %d\n", d.Date, d.Count)
		}
	}

	if len(r.RecentCheckedOut) == 0 {
		return nil
	}
	fmt.Fprintln(w, "\nRecently checked out:")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, rv := range r.RecentCheckedOut {
		if _, err := fmt.Fprintf(tw, "  #%d\t%s\t%s\n", rv.ID, truncate(rv.FullName, 30), rv.Ago); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flushing table: %w", err)
	}
	return nil
}

// busyHours drops the hours nobody is expected in.
func busyHours(hours []dashboard.HourCount) []dashboard.HourCount {
	var busy []dashboard.HourCount
	for _, h := range hours {
		if h.Count > 0 {
			busy = append(busy, h)
		}
	}
	return busy
}

// printMeetingTable prints meetings with each recipient's response.
func printMeetingTable(w io.Writer, meetings []*meeting.Meeting) error {
	if len(meetings) == 0 {
		fmt.Fprintln(w, "No meetings found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "ID\tPURPOSE\tSTART\tEND\tFROM\tRECIPIENTS\tCALL"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	if _, err := fmt.Fprintln(tw, "--\t-------\t-----\t---\t----\t----------\t----"); err != nil {
		return fmt.Errorf("writing table separator: %w", err)
	}

	for _, m := range meetings {
		call := "-"
		if m.CallStarted {
			call = "started"
		}
		if _, err := fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t#%d\t%s\t%s\n",
			m.ID, truncate(m.Purpose, 30), m.ScheduleStart.Local().Format(timeLayout),
			m.ScheduleEnd.Local().Format("15:04"), m.RequestorID, recipientSummary(m.Recipients), call); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flushing table: %w", err)
	}

	fmt.Fprintf(w, "\nTotal: %d meetings\n", len(meetings))
	return nil
}

// recipientSummary renders recipients as "#2 approved, #5 pending".
func recipientSummary(rs []meeting.Recipient) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = fmt.Sprintf("#%d %s", r.RecipientID, r.Status)
	}
	return strings.Join(parts, ", ")
}

// printUserTable prints user accounts as a formatted table.
func printUserTable(w io.Writer, users []*auth.User) error {
	if len(users) == 0 {
		fmt.Fprintln(w, "No users found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL\tDEPARTMENT\tROLE"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	for _, u := range users {
		if _, err := fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", u.ID, u.Username, u.Email, u.Department, u.Role); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}
	return tw.Flush()
}

// formatTime renders an optional timestamp in local time, or "-".
func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(timeLayout)
}

// truncate shortens a string to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
