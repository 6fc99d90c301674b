package visitor

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a visitor ID does not exist.
	ErrNotFound = errors.New("visitor not found")

	// ErrValidation is returned for missing or malformed input.
	ErrValidation = errors.New("invalid visitor")

	// ErrForbidden is returned when the caller is neither the host nor an admin.
	ErrForbidden = errors.New("not allowed to manage this visitor")

	// ErrInvalidTransition is returned when the current status does not permit the action.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrWindowExpired is returned when a pre-approved visitor checks in outside the approval window.
	ErrWindowExpired = errors.New("approval window expired")
)

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// TransitionError carries the rejected action and the status it was attempted from.
type TransitionError struct {
	From   Status
	Action Action
}

func (e *TransitionError) Error() string {
	switch e.Action {
	case ActionCheckIn:
		return fmt.Sprintf("visitor must be approved before check-in (status %s)", e.From)
	case ActionCheckOut:
		return fmt.Sprintf("visitor must be checked in before check-out (status %s)", e.From)
	default:
		return fmt.Sprintf("cannot %s a visitor in status %s", e.Action, e.From)
	}
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// WindowError reports a check-in attempted outside [Start, End].
type WindowError struct {
	Start time.Time
	End   time.Time
	At    time.Time
}

func (e *WindowError) Error() string {
	return fmt.Sprintf("approval window %s to %s does not include %s",
		e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339), e.At.Format(time.RFC3339))
}

func (e *WindowError) Unwrap() error { return ErrWindowExpired }
