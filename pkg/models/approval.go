package models

import "time"

// DecisionStatus represents one approver's verdict on a flow step.
type DecisionStatus string

const (
	DecisionPending  DecisionStatus = "Pending"
	DecisionApproved DecisionStatus = "Approved"
	DecisionRejected DecisionStatus = "Rejected"
)

// ExpenseApproval records a single decision for an (expense, step,
// approver) tuple. Rows are append-only: the first decision recorded
// for a tuple wins and later submissions for the same tuple are
// silently absorbed.
type ExpenseApproval struct {
	ID         string         `json:"id"`
	ExpenseID  string         `json:"expense_id"  validate:"required"`
	StepID     string         `json:"step_id"     validate:"required"`
	ApproverID string         `json:"approver_id" validate:"required"`
	Status     DecisionStatus `json:"status"      validate:"required,oneof=Pending Approved Rejected"`
	Comment    string         `json:"comment,omitempty"`
	ApprovedAt *time.Time     `json:"approved_at,omitempty"` // Set only when Status is Approved
	CreatedAt  time.Time      `json:"created_at"`
}

// CountApprovedInGroup counts Approved decisions recorded against any
// step of the given group.
func CountApprovedInGroup(approvals []*ExpenseApproval, group []*FlowStep) int {
	members := make(map[string]struct{}, len(group))
	for _, step := range group {
		members[step.ID] = struct{}{}
	}

	count := 0

	for _, approval := range approvals {
		if approval.Status != DecisionApproved {
			continue
		}

		if _, ok := members[approval.StepID]; ok {
			count++
		}
	}

	return count
}
