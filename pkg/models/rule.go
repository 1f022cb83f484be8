package models

import (
	"strconv"
	"strings"
	"time"
)

// ConditionType identifies how a rule condition is evaluated.
type ConditionType string

const (
	// ConditionPercentage approves once the share of approved group
	// members reaches the configured percentage.
	ConditionPercentage ConditionType = "Percentage"
	// ConditionSpecificUser (also known as auto-approve) approves
	// immediately when the configured user acts.
	ConditionSpecificUser ConditionType = "SpecificUser"
	// ConditionAmountThreshold is stored for rules but not consulted by
	// the evaluator.
	ConditionAmountThreshold ConditionType = "AmountThreshold"
)

// LogicOperator is persisted with each condition but conditions are
// evaluated independently in priority order, never combined.
type LogicOperator string

const (
	LogicOperatorAnd  LogicOperator = "AND"
	LogicOperatorOr   LogicOperator = "OR"
	LogicOperatorNone LogicOperator = "NONE"
)

// DefaultPercentThreshold applies when a percentage condition carries
// an absent or unparseable value.
const DefaultPercentThreshold = 100

// ApprovalRule is a named set of conditions a flow step may reference
// to short-circuit normal group completion. SuccessOutcome is stored
// but not consulted: a satisfied rule always finalizes to Approved.
type ApprovalRule struct {
	ID             string           `json:"id"`
	CompanyID      string           `json:"company_id" validate:"required"`
	Name           string           `json:"name"       validate:"required"`
	Description    string           `json:"description"`
	SuccessOutcome ExpenseStatus    `json:"success_outcome"`
	Conditions     []*RuleCondition `json:"conditions"`
	CreatedAt      time.Time        `json:"created_at"`
}

// Condition returns the first condition of the given type, or nil.
func (r *ApprovalRule) Condition(t ConditionType) *RuleCondition {
	for _, c := range r.Conditions {
		if c.Type == t {
			return c
		}
	}

	return nil
}

// RuleCondition is a single condition within a rule. Value is
// string-encoded: a number for Percentage and AmountThreshold, a user
// id for SpecificUser.
type RuleCondition struct {
	ID       string        `json:"id"`
	RuleID   string        `json:"rule_id"`
	Type     ConditionType `json:"type"     validate:"required,oneof=Percentage SpecificUser AmountThreshold"`
	Value    string        `json:"value"    validate:"required"`
	Operator LogicOperator `json:"operator"`
}

// PercentThreshold parses the condition value as a percentage,
// falling back to DefaultPercentThreshold when absent or invalid.
func (c *RuleCondition) PercentThreshold() int {
	v, err := strconv.Atoi(strings.TrimSpace(c.Value))
	if err != nil || v <= 0 {
		return DefaultPercentThreshold
	}

	return v
}
