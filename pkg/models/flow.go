package models

import (
	"sort"
	"time"
)

// ApprovalFlow is an ordered sequence of approval stages owned by a
// company. Steps sharing a StepOrder form one parallel group; an
// expense passes through groups in increasing order.
type ApprovalFlow struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id" validate:"required"`
	Name      string    `json:"name"       validate:"required,min=3"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
}

// FlowStep is one approver slot within a flow. Exactly one of the
// approver criteria is normally set, but authorization checks all
// three independently: a step may match an approver through more than
// one of them.
type FlowStep struct {
	ID                string    `json:"id"`
	FlowID            string    `json:"flow_id"    validate:"required"`
	StepOrder         int       `json:"step_order" validate:"min=0"`
	IsManagerApprover bool      `json:"is_manager_approver"`
	ApproverRole      *UserRole `json:"approver_role,omitempty"`
	ApproverUserID    *string   `json:"approver_user_id,omitempty"`
	RuleID            *string   `json:"rule_id,omitempty"` // Optional conditional rule short-circuiting the group
	CreatedAt         time.Time `json:"created_at"`
}

// SortSteps orders steps by (StepOrder, ID). Step ID is the
// deterministic tie-break within a group; nothing downstream may rely
// on insertion order.
func SortSteps(steps []*FlowStep) {
	sort.Slice(steps, func(i, j int) bool {
		if steps[i].StepOrder != steps[j].StepOrder {
			return steps[i].StepOrder < steps[j].StepOrder
		}

		return steps[i].ID < steps[j].ID
	})
}

// GroupOf returns the members of the parallel group with the given
// order, sorted by step ID.
func GroupOf(steps []*FlowStep, order int) []*FlowStep {
	group := make([]*FlowStep, 0, len(steps))

	for _, step := range steps {
		if step.StepOrder == order {
			group = append(group, step)
		}
	}

	SortSteps(group)

	return group
}

// NextGroup returns the group with the smallest StepOrder strictly
// greater than the given order, or nil when the flow ends there.
func NextGroup(steps []*FlowStep, order int) []*FlowStep {
	nextOrder := -1

	for _, step := range steps {
		if step.StepOrder <= order {
			continue
		}

		if nextOrder == -1 || step.StepOrder < nextOrder {
			nextOrder = step.StepOrder
		}
	}

	if nextOrder == -1 {
		return nil
	}

	return GroupOf(steps, nextOrder)
}
