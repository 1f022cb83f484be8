package engine

import "github.com/expensahq/expensa/pkg/models"

// StepMatches reports whether the approver is entitled to act on the
// step for an expense submitted by submitter. The three criteria are
// checked independently; a step may match through more than one.
func StepMatches(step *models.FlowStep, approver, submitter *models.User) bool {
	if step.IsManagerApprover && submitter != nil && submitter.ManagerID != nil &&
		*submitter.ManagerID == approver.ID {
		return true
	}

	if step.ApproverUserID != nil && *step.ApproverUserID == approver.ID {
		return true
	}

	if step.ApproverRole != nil && *step.ApproverRole == approver.Role {
		return true
	}

	return false
}

// MatchStepInGroup returns the first step of the group the approver is
// authorized for, or nil. Callers pass groups sorted by step id, which
// makes the tie-break deterministic when several steps match.
func MatchStepInGroup(group []*models.FlowStep, approver, submitter *models.User) *models.FlowStep {
	for _, step := range group {
		if StepMatches(step, approver, submitter) {
			return step
		}
	}

	return nil
}
