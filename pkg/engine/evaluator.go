package engine

import (
	"math"

	"github.com/expensahq/expensa/pkg/models"
)

// VerdictKind classifies the result of evaluating a conditional rule.
type VerdictKind int

const (
	// NoVerdict means no condition applied; plain group-completion
	// logic decides.
	NoVerdict VerdictKind = iota
	// VerdictAutoApprove means a SpecificUser condition matched the
	// acting approver.
	VerdictAutoApprove
	// VerdictThresholdMet means a Percentage condition was satisfied.
	VerdictThresholdMet
)

// Verdict is the outcome of rule evaluation. Percent is the computed
// group approval percentage, set only for VerdictThresholdMet.
type Verdict struct {
	Kind      VerdictKind
	Percent   int
	Threshold int
}

// EvaluateRule evaluates a rule's conditions against the decisions
// recorded for the active group. Conditions are consulted in fixed
// priority order and the first applicable one wins; the stored logic
// operator is not consulted. AmountThreshold conditions are modeled
// but never evaluated on this path.
func EvaluateRule(rule *models.ApprovalRule, actorID string, group []*models.FlowStep, approvals []*models.ExpenseApproval) Verdict {
	specific := rule.Condition(models.ConditionSpecificUser)
	if specific != nil && specific.Value == actorID {
		// Finalizes on this single decision even if other group
		// members have not voted.
		return Verdict{Kind: VerdictAutoApprove}
	}

	percentage := rule.Condition(models.ConditionPercentage)
	if percentage != nil {
		total := len(group)
		if total < 1 {
			total = 1
		}

		approved := models.CountApprovedInGroup(approvals, group)
		pct := int(math.Round(float64(approved) / float64(total) * 100))
		threshold := percentage.PercentThreshold()

		if pct >= threshold {
			return Verdict{Kind: VerdictThresholdMet, Percent: pct, Threshold: threshold}
		}
	}

	return Verdict{Kind: NoVerdict}
}
