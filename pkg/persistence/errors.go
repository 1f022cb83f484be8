// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrExpenseNotFound indicates an expense was not found by the given identifier.
	ErrExpenseNotFound = errors.New("expense not found")

	// ErrUserNotFound indicates a user was not found by the given identifier.
	ErrUserNotFound = errors.New("user not found")

	// ErrFlowNotFound indicates an approval flow was not found by the given identifier.
	ErrFlowNotFound = errors.New("approval flow not found")

	// ErrStepNotFound indicates a flow step was not found by the given identifier.
	ErrStepNotFound = errors.New("flow step not found")

	// ErrRuleNotFound indicates an approval rule was not found by the given identifier.
	ErrRuleNotFound = errors.New("approval rule not found")
)

// ExpenseError wraps expense-related errors with additional context.
type ExpenseError struct {
	Op        string // Operation being performed (e.g., "GetByID", "Save")
	ExpenseID string // Expense ID if applicable
	Err       error  // Underlying error
}

func (e *ExpenseError) Error() string {
	return fmt.Sprintf("%s operation failed for expense %s: %v", e.Op, e.ExpenseID, e.Err)
}

func (e *ExpenseError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for expense errors.
func (e *ExpenseError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewExpenseError creates a new expense error with context.
func NewExpenseError(op, expenseID string, err error) *ExpenseError {
	return &ExpenseError{
		Op:        op,
		ExpenseID: expenseID,
		Err:       err,
	}
}

// StepError wraps flow-step-related errors with additional context.
type StepError struct {
	Op     string
	FlowID string
	StepID string
	Err    error
}

func (e *StepError) Error() string {
	if e.FlowID != "" {
		return fmt.Sprintf("%s operation failed for step %s in flow %s: %v", e.Op, e.StepID, e.FlowID, e.Err)
	}

	return fmt.Sprintf("%s operation failed for step %s: %v", e.Op, e.StepID, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func (e *StepError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsExpenseNotFound checks if an error indicates an expense was not found.
func IsExpenseNotFound(err error) bool {
	return errors.Is(err, ErrExpenseNotFound)
}

// IsUserNotFound checks if an error indicates a user was not found.
func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

// IsFlowNotFound checks if an error indicates an approval flow was not found.
func IsFlowNotFound(err error) bool {
	return errors.Is(err, ErrFlowNotFound)
}

// IsStepNotFound checks if an error indicates a flow step was not found.
func IsStepNotFound(err error) bool {
	return errors.Is(err, ErrStepNotFound)
}

// IsRuleNotFound checks if an error indicates an approval rule was not found.
func IsRuleNotFound(err error) bool {
	return errors.Is(err, ErrRuleNotFound)
}
