package visitor

import "fmt"

// Status is the lifecycle state of a visit.
type Status string

const (
	Pending    Status = "pending"
	Approved   Status = "approved"
	Rejected   Status = "rejected"
	CheckedIn  Status = "checked_in"
	CheckedOut Status = "checked_out"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{Pending, Approved, Rejected, CheckedIn, CheckedOut}

// IsValid checks if a status is recognized.
func (s Status) IsValid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Label returns a human-readable label for the status.
func (s Status) Label() string {
	switch s {
	case Pending:
		return "Pending"
	case Approved:
		return "Approved"
	case Rejected:
		return "Rejected"
	case CheckedIn:
		return "Checked in"
	case CheckedOut:
		return "Checked out"
	default:
		return string(s)
	}
}

// Terminal reports whether no further host decision can change the status.
// Only an administrative reset leaves a terminal status.
func (s Status) Terminal() bool {
	return s == CheckedOut
}

// Action is a requested lifecycle transition.
type Action int

const (
	ActionApprove Action = iota
	ActionReject
	ActionCheckIn
	ActionCheckOut
	ActionReset
)

func (a Action) String() string {
	switch a {
	case ActionApprove:
		return "approve"
	case ActionReject:
		return "reject"
	case ActionCheckIn:
		return "check_in"
	case ActionCheckOut:
		return "check_out"
	case ActionReset:
		return "reset"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Target is the status a successful action leaves the visitor in.
func (a Action) Target() Status {
	switch a {
	case ActionApprove:
		return Approved
	case ActionReject:
		return Rejected
	case ActionCheckIn:
		return CheckedIn
	case ActionCheckOut:
		return CheckedOut
	default:
		return Pending
	}
}

// Outcome distinguishes a performed transition from an idempotent repeat.
type Outcome int

const (
	Performed Outcome = iota
	AlreadyDone
)

func (o Outcome) String() string {
	if o == AlreadyDone {
		return "already_done"
	}
	return "performed"
}

// transition decides whether action a may be applied to a visitor in status
// s. It returns AlreadyDone for repeated check-ins and check-outs.
//
// Approve and reject are accepted from every non-terminal status, including
// rejected and checked_in.
func transition(s Status, a Action) (Outcome, error) {
	if !s.IsValid() {
		return Performed, fmt.Errorf("unknown status %q: %w", s, ErrInvalidTransition)
	}

	switch a {
	case ActionReset:
		return Performed, nil

	case ActionApprove, ActionReject:
		if s.Terminal() {
			return Performed, &TransitionError{From: s, Action: a}
		}
		return Performed, nil

	case ActionCheckIn:
		switch s {
		case Approved:
			return Performed, nil
		case CheckedIn:
			return AlreadyDone, nil
		case Pending, Rejected, CheckedOut:
			return Performed, &TransitionError{From: s, Action: a}
		}

	case ActionCheckOut:
		switch s {
		case CheckedIn:
			return Performed, nil
		case CheckedOut:
			return AlreadyDone, nil
		case Pending, Approved, Rejected:
			return Performed, &TransitionError{From: s, Action: a}
		}
	}

	return Performed, fmt.Errorf("unknown action %s: %w", a, ErrInvalidTransition)
}
