package models

import "time"

// ExpenseStatus represents the lifecycle state of an expense claim.
type ExpenseStatus string

const (
	ExpenseStatusDraft    ExpenseStatus = "Draft"    // Editable, not yet submitted
	ExpenseStatusPending  ExpenseStatus = "Pending"  // Moving through an approval flow
	ExpenseStatusApproved ExpenseStatus = "Approved" // Terminal
	ExpenseStatusRejected ExpenseStatus = "Rejected" // Terminal
)

// IsTerminal reports whether no further status transitions are permitted.
func (s ExpenseStatus) IsTerminal() bool {
	return s == ExpenseStatusApproved || s == ExpenseStatusRejected
}

// Expense is an expense claim submitted by a user. Status and
// CurrentStepID are mutated only by the approval engine; once the
// status is terminal the expense never changes again.
type Expense struct {
	ID            string        `json:"id"`
	CompanyID     string        `json:"company_id"   validate:"required"`
	SubmitterID   string        `json:"submitter_id" validate:"required"`
	Amount        string        `json:"amount"       validate:"required"`
	CurrencyCode  string        `json:"currency_code" validate:"required,len=3"`
	Description   string        `json:"description"`
	ExpenseDate   time.Time     `json:"expense_date"`
	Status        ExpenseStatus `json:"status"`
	CurrentStepID *string       `json:"current_step_id,omitempty"` // Active flow step; nil once terminal
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
