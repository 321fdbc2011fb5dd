package domain

import (
	"errors"
	"fmt"
)

// Common domain errors
var (
	ErrNotFound       = errors.New("resource not found")
	ErrCaseNotFound   = errors.New("case not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEntry = errors.New("duplicate entry")
	ErrStaleWrite     = errors.New("stored revision changed")
	ErrInternalServer = errors.New("internal server error")
)

// RejectionReason is the closed set of business-rule rejections
type RejectionReason string

const (
	ReasonInvalidTransition RejectionReason = "InvalidTransition"
	ReasonUnauthorized      RejectionReason = "Unauthorized"
	ReasonCrossTenantDenied RejectionReason = "CrossTenantDenied"
	ReasonAlreadyEscalated  RejectionReason = "AlreadyEscalated"
	ReasonStaleState        RejectionReason = "StaleState"
)

// Rejection is a business-rule refusal. It never has side effects and is
// returned only to the requesting actor.
type Rejection struct {
	Reason  RejectionReason
	Message string
}

func (r *Rejection) Error() string {
	if r.Message == "" {
		return string(r.Reason)
	}
	return fmt.Sprintf("%s: %s", r.Reason, r.Message)
}

// Reject builds a Rejection with a formatted message
func Reject(reason RejectionReason, format string, args ...any) *Rejection {
	return &Rejection{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// ReasonOf extracts the rejection reason from err, if any
func ReasonOf(err error) (RejectionReason, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Reason, true
	}
	return "", false
}

// IsRejection reports whether err carries the given reason
func IsRejection(err error, reason RejectionReason) bool {
	got, ok := ReasonOf(err)
	return ok && got == reason
}

// ValidationError is a malformed request, rejected before touching the store
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Invalid builds a ValidationError
func Invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// PartialEscalationFailure means the escalation intent was committed on the
// credit case but the legal side could not be created or linked. The credit
// case is left in the recoverable unlinked state.
type PartialEscalationFailure struct {
	CreditCaseID  string
	EscalationKey string
	Err           error
}

func (e *PartialEscalationFailure) Error() string {
	return fmt.Sprintf("escalation of credit case %s left unlinked (%s): %v", e.CreditCaseID, e.EscalationKey, e.Err)
}

func (e *PartialEscalationFailure) Unwrap() error { return e.Err }
