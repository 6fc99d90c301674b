package meeting

import "errors"

var (
	// ErrNotFound is returned when a meeting does not exist, or the caller is
	// not one of its recipients.
	ErrNotFound = errors.New("meeting request not found")

	// ErrValidation is returned for missing or malformed input.
	ErrValidation = errors.New("invalid meeting request")

	// ErrForbidden is returned when someone other than the requestor starts the call.
	ErrForbidden = errors.New("only the requestor can start the call")

	// ErrAlreadyResponded is returned when a recipient responds twice.
	ErrAlreadyResponded = errors.New("meeting request has already been responded to")
)

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) Unwrap() error { return ErrValidation }
