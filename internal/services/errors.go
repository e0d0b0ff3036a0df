package services

import "errors"

// Display messages for invalid input.
const (
	MsgBudgetInput  = "Enter a category and a positive limit."
	MsgGoalInput    = "Enter a title and a non-negative target."
	MsgContribution = "Enter a positive amount."
)

// ErrContributionPending means the contribution was stored locally but the
// matching ledger write failed; it will be retried.
var ErrContributionPending = errors.New("contribution saved locally, ledger sync pending")

// ErrContributionNotFound is returned when reconciling an unknown contribution.
var ErrContributionNotFound = errors.New("contribution not found")

// InputError is a rejected input with a message fit for display. It unwraps
// to the underlying core validation error.
type InputError struct {
	Message string
	Err     error
}

func (e *InputError) Error() string { return e.Message }
func (e *InputError) Unwrap() error { return e.Err }
