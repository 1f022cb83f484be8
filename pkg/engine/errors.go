// Package engine implements the multi-step expense approval engine:
// authorization of approvers against flow steps, idempotent decision
// recording, conditional rule evaluation and flow advancement.
package engine

import "errors"

// Domain errors surfaced to callers. The API layer maps these to
// response codes; the engine performs no retries itself.
var (
	// ErrInvalidDecision indicates a decision other than Approved or Rejected.
	ErrInvalidDecision = errors.New("decision must be Approved or Rejected")

	// ErrNoActiveStep indicates the expense has no assigned approval step.
	ErrNoActiveStep = errors.New("expense has no assigned approval step")

	// ErrUnauthorized indicates no step in the active group matches the approver.
	ErrUnauthorized = errors.New("not authorized to approve this step")

	// ErrTerminalExpense indicates a decision arrived for an already
	// finalized expense.
	ErrTerminalExpense = errors.New("expense is already finalized")
)

// IsInvalidDecision checks if an error indicates a malformed decision.
func IsInvalidDecision(err error) bool {
	return errors.Is(err, ErrInvalidDecision)
}

// IsNoActiveStep checks if an error indicates a missing active step.
func IsNoActiveStep(err error) bool {
	return errors.Is(err, ErrNoActiveStep)
}

// IsUnauthorized checks if an error indicates an authorization failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsTerminalExpense checks if an error indicates a decision on a
// finalized expense.
func IsTerminalExpense(err error) bool {
	return errors.Is(err, ErrTerminalExpense)
}
