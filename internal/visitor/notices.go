package visitor

import (
	"fmt"
	"time"

	"github.com/evcraddock/frontdesk/internal/notify"
)

// RegisteredNotice tells the host a walk-in visitor is waiting for a decision.
func RegisteredNotice(v *Visitor, hostEmail string) notify.Message {
	return notify.Message{
		To:      []string{hostEmail},
		Subject: fmt.Sprintf("Visitor waiting for approval: %s", v.FullName),
		Body: fmt.Sprintf("%s (%s) is here to see you.\n\nPurpose: %s\nBadge: %s\n\nApprove or reject the visit from the front desk dashboard.",
			v.FullName, orDash(v.Company), v.Purpose, v.BadgeID),
	}
}

// Notice returns the message sent to the visitor after a performed action,
// and false when the action produces no visitor-facing message.
func Notice(a Action, v *Visitor) (notify.Message, bool) {
	to := []string{v.Contact()}

	switch a {
	case ActionApprove:
		return notify.Message{
			To:      to,
			Subject: "Your visit has been approved",
			Body:    fmt.Sprintf("Hello %s,\n\nYour visit has been approved. Show badge %s at the front desk.", v.FullName, v.BadgeID),
		}, true
	case ActionReject:
		return notify.Message{
			To:      to,
			Subject: "Your visit request was declined",
			Body:    fmt.Sprintf("Hello %s,\n\nUnfortunately your visit request could not be approved.", v.FullName),
		}, true
	case ActionCheckOut:
		return notify.Message{
			To:      to,
			Subject: "Thank you for visiting",
			Body:    fmt.Sprintf("Thank you for visiting, %s.", v.FullName),
		}, true
	default:
		return notify.Message{}, false
	}
}

// PreApprovedNotice gives a pre-approved visitor their badge and window.
func PreApprovedNotice(v *Visitor) notify.Message {
	var window string
	if v.HasWindow() {
		window = fmt.Sprintf("\nCheck-in window: %s to %s", v.WindowStart.Format(time.RFC1123), v.WindowEnd.Format(time.RFC1123))
	}
	return notify.Message{
		To:      []string{v.Contact()},
		Subject: "You have been pre-approved for a visit",
		Body:    fmt.Sprintf("Hello %s,\n\nYou are pre-approved. Show badge %s at the front desk.%s", v.FullName, v.BadgeID, window),
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
