// Package web provides HTTP handlers and REST API endpoints for the
// expense approval API.
package web

import (
	"time"

	"github.com/expensahq/expensa/pkg/models"
)

// CreateExpenseRequest represents the request body for submitting a new
// expense claim.
type CreateExpenseRequest struct {
	SubmitterID  string    `json:"submitter_id"  validate:"required"`
	Amount       string    `json:"amount"        validate:"required"`
	CurrencyCode string    `json:"currency_code" validate:"required,len=3"`
	Description  string    `json:"description"   validate:"max=2000"`
	ExpenseDate  time.Time `json:"expense_date"  validate:"required"`
}

// SubmitDecisionRequest represents the request body for recording an
// approval or rejection.
type SubmitDecisionRequest struct {
	ApproverID string                `json:"approver_id" validate:"required"`
	Decision   models.DecisionStatus `json:"decision"    validate:"required,oneof=Approved Rejected"`
	Comment    string                `json:"comment"     validate:"max=2000"`
}

// DecisionResponse is returned after a decision or an escalation.
type DecisionResponse struct {
	Status     models.ExpenseStatus `json:"status"`
	Message    string               `json:"message"`
	NextStepID *string              `json:"next_step_id,omitempty"`
}

// PendingApprovalResponse is one entry of an approver's queue.
type PendingApprovalResponse struct {
	Expense   *models.Expense  `json:"expense"`
	Step      *models.FlowStep `json:"step"`
	Submitter *models.User     `json:"submitter"`
}
