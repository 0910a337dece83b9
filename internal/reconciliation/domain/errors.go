package reconciliation

import "errors"

var (
	ErrUnknownDenomination = errors.New("reconciliation: unknown denomination")
	ErrNotBalanced         = errors.New("reconciliation: record is not balanced")
	ErrReasonRequired      = errors.New("reconciliation: rejection reason required")
	ErrNotSynced           = errors.New("reconciliation: record is pending sync")
	ErrRecordNotFound      = errors.New("reconciliation: record not found")
	ErrInvalidStatus       = errors.New("reconciliation: invalid status")
	ErrAlreadyReviewed     = errors.New("reconciliation: record already reviewed")
)

// TransitionError reports a review action that was refused. The record it was
// applied to is left unchanged.
type TransitionError struct {
	Action string
	Err    error
}

func (e *TransitionError) Error() string {
	return "reconciliation: cannot " + e.Action + ": " + e.Err.Error()
}

func (e *TransitionError) Unwrap() error { return e.Err }
