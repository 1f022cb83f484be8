package engine_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/expensahq/expensa/pkg/engine"
	"github.com/expensahq/expensa/pkg/locks"
	"github.com/expensahq/expensa/pkg/models"
	"github.com/expensahq/expensa/pkg/persistence"
	"github.com/expensahq/expensa/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	engine      *engine.Engine
	persistence persistence.Persistence
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	p := file.NewPersistence(t.TempDir())
	t.Cleanup(func() { _ = p.Close(context.Background()) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &fixture{
		engine:      engine.New(p, nil, locks.NewKeyedMutex(), logger),
		persistence: p,
	}
}

func (f *fixture) seedUser(t *testing.T, id string, role models.UserRole, managerID *string) *models.User {
	t.Helper()

	user := &models.User{
		ID:        id,
		CompanyID: "company-1",
		Name:      id,
		Email:     id + "@example.com",
		Role:      role,
		ManagerID: managerID,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, f.persistence.Users().Save(t.Context(), user))

	return user
}

func (f *fixture) seedFlow(t *testing.T, steps ...*models.FlowStep) *models.ApprovalFlow {
	t.Helper()

	flow := &models.ApprovalFlow{
		ID:        "flow-1",
		CompanyID: "company-1",
		Name:      "default approval flow",
		IsDefault: true,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, f.persistence.Flows().SaveFlow(t.Context(), flow))

	for _, step := range steps {
		step.FlowID = flow.ID
		require.NoError(t, f.persistence.Flows().SaveStep(t.Context(), step))
	}

	return flow
}

func (f *fixture) seedExpense(t *testing.T, submitterID string, currentStepID *string) *models.Expense {
	t.Helper()

	expense := &models.Expense{
		ID:            "expense-1",
		CompanyID:     "company-1",
		SubmitterID:   submitterID,
		Amount:        "125.00",
		CurrencyCode:  "USD",
		Description:   "team lunch",
		Status:        models.ExpenseStatusPending,
		CurrentStepID: currentStepID,
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, f.persistence.Expenses().Save(t.Context(), expense))

	return expense
}

func (f *fixture) reload(t *testing.T, expenseID string) *models.Expense {
	t.Helper()

	expense, err := f.persistence.Expenses().GetByID(t.Context(), expenseID)
	require.NoError(t, err)
	require.NotNil(t, expense)

	return expense
}

func strPtr(s string) *string { return &s }

func rolePtr(r models.UserRole) *models.UserRole { return &r }

func TestProcessDecisionRejectsMalformedDecision(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.ProcessDecision(t.Context(), "expense-1", "user-1", models.DecisionPending, "")
	require.Error(t, err)
	assert.True(t, engine.IsInvalidDecision(err))
}

func TestProcessDecisionUnknownExpense(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.ProcessDecision(t.Context(), "missing", "user-1", models.DecisionApproved, "")
	require.Error(t, err)
	assert.True(t, persistence.IsExpenseNotFound(err))
}

func TestProcessDecisionOnFinalizedExpense(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "approver", models.UserRoleManager, nil)

	expense := f.seedExpense(t, "submitter", nil)
	expense.Status = models.ExpenseStatusApproved
	require.NoError(t, f.persistence.Expenses().Save(t.Context(), expense))

	_, err := f.engine.ProcessDecision(t.Context(), expense.ID, "approver", models.DecisionApproved, "")
	require.Error(t, err)
	assert.True(t, engine.IsTerminalExpense(err))
}

func TestProcessDecisionWithoutActiveStep(t *testing.T) {
	f := newFixture(t)
	expense := f.seedExpense(t, "submitter", nil)

	_, err := f.engine.ProcessDecision(t.Context(), expense.ID, "approver", models.DecisionApproved, "")
	require.Error(t, err)
	assert.True(t, engine.IsNoActiveStep(err))
}

func TestProcessDecisionUnauthorizedApprover(t *testing.T) {
	f := newFixture(t)

	f.seedUser(t, "submitter", models.UserRoleEmployee, nil)
	outsider := f.seedUser(t, "outsider", models.UserRoleEmployee, nil)

	f.seedFlow(t, &models.FlowStep{ID: "step-1", StepOrder: 0, ApproverRole: rolePtr(models.UserRoleManager)})
	expense := f.seedExpense(t, "submitter", strPtr("step-1"))

	_, err := f.engine.ProcessDecision(t.Context(), expense.ID, outsider.ID, models.DecisionApproved, "")
	require.Error(t, err)
	assert.True(t, engine.IsUnauthorized(err))

	// A failed authorization leaves no trace: no decision row, no
	// state change.
	approvals, err := f.persistence.Approvals().ListByExpense(t.Context(), expense.ID)
	require.NoError(t, err)
	assert.Empty(t, approvals)

	reloaded := f.reload(t, expense.ID)
	assert.Equal(t, models.ExpenseStatusPending, reloaded.Status)
	require.NotNil(t, reloaded.CurrentStepID)
	assert.Equal(t, "step-1", *reloaded.CurrentStepID)
}

func TestProcessDecisionRejectFinalizesImmediately(t *testing.T) {
	f := newFixture(t)

	f.seedUser(t, "submitter", models.UserRoleEmployee, nil)
	f.seedUser(t, "finance-1", models.UserRoleManager, nil)
	f.seedUser(t, "finance-2", models.UserRoleManager, nil)

	// Two-member parallel group followed by another stage that must
	// never be reached.
	f.seedFlow(t,
		&models.FlowStep{ID: "step-a", StepOrder: 0, ApproverUserID: strPtr("finance-1")},
		&models.FlowStep{ID: "step-b", StepOrder: 0, ApproverUserID: strPtr("finance-2")},
		&models.FlowStep{ID: "step-c", StepOrder: 1, ApproverRole: rolePtr(models.UserRoleAdmin)},
	)
	expense := f.seedExpense(t, "submitter", strPtr("step-a"))

	outcome, err := f.engine.ProcessDecision(t.Context(), expense.ID, "finance-2", models.DecisionRejected, "receipts missing")
	require.NoError(t, err)
	assert.Equal(t, models.ExpenseStatusRejected, outcome.Status)

	reloaded := f.reload(t, expense.ID)
	assert.Equal(t, models.ExpenseStatusRejected, reloaded.Status)
	assert.Nil(t, reloaded.CurrentStepID)
}

func TestProcessDecisionApprovesAtEndOfFlow(t *testing.T) {
	f := newFixture(t)

	manager := f.seedUser(t, "manager", models.UserRoleManager, nil)
	f.seedUser(t, "submitter", models.UserRoleEmployee, &manager.ID)

	f.seedFlow(t, &models.FlowStep{ID: "step-1", StepOrder: 0, IsManagerApprover: true})
	expense := f.seedExpense(t, "submitter", strPtr("step-1"))

	outcome, err := f.engine.ProcessDecision(t.Context(), expense.ID, manager.ID, models.DecisionApproved, "ok")
	require.NoError(t, err)
	assert.Equal(t, models.ExpenseStatusApproved, outcome.Status)

	reloaded := f.reload(t, expense.ID)
	assert.Equal(t, models.ExpenseStatusApproved, reloaded.Status)
	assert.Nil(t, reloaded.CurrentStepID)

	approvals, err := f.persistence.Approvals().ListByExpense(t.Context(), expense.ID)
	require.NoError(t, err)
	require.Len(t, approvals, 1)
	assert.Equal(t, models.DecisionApproved, approvals[0].Status)
	assert.NotNil(t, approvals[0].ApprovedAt)
}

func TestProcessDecisionAdvancesToNextGroup(t *testing.T) {
	f := newFixture(t)

	manager := f.seedUser(t, "manager", models.UserRoleManager, nil)
	f.seedUser(t, "submitter", models.UserRoleEmployee, &manager.ID)
	f.seedUser(t, "cfo", models.UserRoleAdmin, nil)

	f.seedFlow(t,
		&models.FlowStep{ID: "step-1", StepOrder: 0, IsManagerApprover: true},
		&models.FlowStep{ID: "step-2", StepOrder: 1, ApproverUserID: strPtr("cfo")},
	)
	expense := f.seedExpense(t, "submitter", strPtr("step-1"))

	outcome, err := f.engine.ProcessDecision(t.Context(), expense.ID, manager.ID, models.DecisionApproved, "")
	require.NoError(t, err)
	assert.Equal(t, models.ExpenseStatusPending, outcome.Status)
	require.NotNil(t, outcome.NextStepID)
	assert.Equal(t, "step-2", *outcome.NextStepID)

	reloaded := f.reload(t, expense.ID)
	assert.Equal(t, models.ExpenseStatusPending, reloaded.Status)
	require.NotNil(t, reloaded.CurrentStepID)
	assert.Equal(t, "step-2", *reloaded.CurrentStepID)
}

func TestProcessDecisionAdvancesToLowestStepIDOfNextGroup(t *testing.T) {
	f := newFixture(t)

	manager := f.seedUser(t, "manager", models.UserRoleManager, nil)
	f.seedUser(t, "submitter", models.UserRoleEmployee, &manager.ID)

	f.seedFlow(t,
		&models.FlowStep{ID: "step-1", StepOrder: 0, IsManagerApprover: true},
		&models.FlowStep{ID: "step-z", StepOrder: 1, ApproverRole: rolePtr(models.UserRoleAdmin)},
		&models.FlowStep{ID: "step-a", StepOrder: 1, ApproverRole: rolePtr(models.UserRoleManager)},
	)
	expense := f.seedExpense(t, "submitter", strPtr("step-1"))

	outcome, err := f.engine.ProcessDecision(t.Context(), expense.ID, manager.ID, models.DecisionApproved, "")
	require.NoError(t, err)
	require.NotNil(t, outcome.NextStepID)
	assert.Equal(t, "step-a", *outcome.NextStepID)
}

func TestProcessDecisionPartialGroupStaysPending(t *testing.T) {
	f := newFixture(t)

	f.seedUser(t, "submitter", models.UserRoleEmployee, nil)
	f.seedUser(t, "finance-1", models.UserRoleManager, nil)
	f.seedUser(t, "finance-2", models.UserRoleManager, nil)

	f.seedFlow(t,
		&models.FlowStep{ID: "step-a", StepOrder: 0, ApproverUserID: strPtr("finance-1")},
		&models.FlowStep{ID: "step-b", StepOrder: 0, ApproverUserID: strPtr("finance-2")},
	)
	expense := f.seedExpense(t, "submitter", strPtr("step-a"))

	outcome, err := f.engine.ProcessDecision(t.Context(), expense.ID, "finance-1", models.DecisionApproved, "")
	require.NoError(t, err)
	assert.Equal(t, models.ExpenseStatusPending, outcome.Status)

	reloaded := f.reload(t, expense.ID)
	assert.Equal(t, models.ExpenseStatusPending, reloaded.Status)

	// The second member completes the group and, with no next group,
	// the flow ends.
	outcome, err = f.engine.ProcessDecision(t.Context(), expense.ID, "finance-2", models.DecisionApproved, "")
	require.NoError(t, err)
	assert.Equal(t, models.ExpenseStatusApproved, outcome.Status)
}

func TestProcessDecisionPercentageThreshold(t *testing.T) {
	f := newFixture(t)

	f.seedUser(t, "submitter", models.UserRoleEmployee, nil)
	f.seedUser(t, "finance-1", models.UserRoleManager, nil)
	f.seedUser(t, "finance-2", models.UserRoleManager, nil)

	rule := &models.ApprovalRule{
		ID:        "rule-50",
		CompanyID: "company-1",
		Name:      "half the group",
		Conditions: []*models.RuleCondition{
			{ID: "cond-1", RuleID: "rule-50", Type: models.ConditionPercentage, Value: "50", Operator: models.LogicOperatorNone},
		},
	}
	require.NoError(t, f.persistence.Rules().SaveRule(t.Context(), rule))

	f.seedFlow(t,
		&models.FlowStep{ID: "step-a", StepOrder: 0, ApproverUserID: strPtr("finance-1"), RuleID: strPtr(rule.ID)},
		&models.FlowStep{ID: "step-b", StepOrder: 0, ApproverUserID: strPtr("finance-2"), RuleID: strPtr(rule.ID)},
	)
	expense := f.seedExpense(t, "submitter", strPtr("step-a"))

	// 1 of 2 approved is exactly 50%, which satisfies the threshold
	// without waiting for the second member.
	outcome, err := f.engine.ProcessDecision(t.Context(), expense.ID, "finance-1", models.DecisionApproved, "")
	require.NoError(t, err)
	assert.Equal(t, models.ExpenseStatusApproved, outcome.Status)

	reloaded := f.reload(t, expense.ID)
	assert.Equal(t, models.ExpenseStatusApproved, reloaded.Status)
	assert.Nil(t, reloaded.CurrentStepID)
}

func TestProcessDecisionPercentageRounding(t *testing.T) {
	f := newFixture(t)

	f.seedUser(t, "submitter", models.UserRoleEmployee, nil)
	f.seedUser(t, "finance-1", models.UserRoleManager, nil)
	f.seedUser(t, "finance-2", models.UserRoleManager, nil)
	f.seedUser(t, "finance-3", models.UserRoleManager, nil)

	rule := &models.ApprovalRule{
		ID:        "rule-33",
		CompanyID: "company-1",
		Name:      "a third of the group",
		Conditions: []*models.RuleCondition{
			{ID: "cond-1", RuleID: "rule-33", Type: models.ConditionPercentage, Value: "33", Operator: models.LogicOperatorNone},
		},
	}
	require.NoError(t, f.persistence.Rules().SaveRule(t.Context(), rule))

	f.seedFlow(t,
		&models.FlowStep{ID: "step-a", StepOrder: 0, ApproverUserID: strPtr("finance-1"), RuleID: strPtr(rule.ID)},
		&models.FlowStep{ID: "step-b", StepOrder: 0, ApproverUserID: strPtr("finance-2"), RuleID: strPtr(rule.ID)},
		&models.FlowStep{ID: "step-c", StepOrder: 0, ApproverUserID: strPtr("finance-3"), RuleID: strPtr(rule.ID)},
	)
	expense := f.seedExpense(t, "submitter", strPtr("step-a"))

	// 1 of 3 is 33.33…%, rounded to 33, which meets a 33% threshold.
	outcome, err := f.engine.ProcessDecision(t.Context(), expense.ID, "finance-1", models.DecisionApproved, "")
	require.NoError(t, err)
	assert.Equal(t, models.ExpenseStatusApproved, outcome.Status)
}

func TestProcessDecisionSpecificUserShortCircuits(t *testing.T) {
	f := newFixture(t)

	f.seedUser(t, "submitter", models.UserRoleEmployee, nil)
	f.seedUser(t, "cfo", models.UserRoleAdmin, nil)
	f.seedUser(t, "finance-1", models.UserRoleManager, nil)

	rule := &models.ApprovalRule{
		ID:        "rule-cfo",
		CompanyID: "company-1",
		Name:      "cfo bypass",
		Conditions: []*models.RuleCondition{
			{ID: "cond-1", RuleID: "rule-cfo", Type: models.ConditionSpecificUser, Value: "cfo", Operator: models.LogicOperatorNone},
		},
	}
	require.NoError(t, f.persistence.Rules().SaveRule(t.Context(), rule))

	f.seedFlow(t,
		&models.FlowStep{ID: "step-a", StepOrder: 0, ApproverUserID: strPtr("finance-1"), RuleID: strPtr(rule.ID)},
		&models.FlowStep{ID: "step-b", StepOrder: 0, ApproverUserID: strPtr("cfo"), RuleID: strPtr(rule.ID)},
		&models.FlowStep{ID: "step-c", StepOrder: 1, ApproverRole: rolePtr(models.UserRoleManager)},
	)
	expense := f.seedExpense(t, "submitter", strPtr("step-a"))

	// The designated user's single approval finalizes the expense even
	// though the rest of the group never acted.
	outcome, err := f.engine.ProcessDecision(t.Context(), expense.ID, "cfo", models.DecisionApproved, "")
	require.NoError(t, err)
	assert.Equal(t, models.ExpenseStatusApproved, outcome.Status)
}

func TestProcessDecisionRuleShortCircuitAlwaysApproves(t *testing.T) {
	f := newFixture(t)

	f.seedUser(t, "submitter", models.UserRoleEmployee, nil)
	f.seedUser(t, "cfo", models.UserRoleAdmin, nil)

	// SuccessOutcome is stored but a satisfied rule finalizes to
	// Approved regardless.
	rule := &models.ApprovalRule{
		ID:             "rule-odd",
		CompanyID:      "company-1",
		Name:           "misconfigured outcome",
		SuccessOutcome: models.ExpenseStatusRejected,
		Conditions: []*models.RuleCondition{
			{ID: "cond-1", RuleID: "rule-odd", Type: models.ConditionSpecificUser, Value: "cfo", Operator: models.LogicOperatorNone},
		},
	}
	require.NoError(t, f.persistence.Rules().SaveRule(t.Context(), rule))

	f.seedFlow(t,
		&models.FlowStep{ID: "step-a", StepOrder: 0, ApproverUserID: strPtr("cfo"), RuleID: strPtr(rule.ID)},
	)
	expense := f.seedExpense(t, "submitter", strPtr("step-a"))

	outcome, err := f.engine.ProcessDecision(t.Context(), expense.ID, "cfo", models.DecisionApproved, "")
	require.NoError(t, err)
	assert.Equal(t, models.ExpenseStatusApproved, outcome.Status)

	stored := f.reload(t, expense.ID)
	assert.Equal(t, models.ExpenseStatusApproved, stored.Status)
	assert.Nil(t, stored.CurrentStepID)
}

func TestProcessDecisionDuplicateIsAbsorbed(t *testing.T) {
	f := newFixture(t)

	f.seedUser(t, "submitter", models.UserRoleEmployee, nil)
	f.seedUser(t, "finance-1", models.UserRoleManager, nil)
	f.seedUser(t, "finance-2", models.UserRoleManager, nil)

	f.seedFlow(t,
		&models.FlowStep{ID: "step-a", StepOrder: 0, ApproverUserID: strPtr("finance-1")},
		&models.FlowStep{ID: "step-b", StepOrder: 0, ApproverUserID: strPtr("finance-2")},
	)
	expense := f.seedExpense(t, "submitter", strPtr("step-a"))

	_, err := f.engine.ProcessDecision(t.Context(), expense.ID, "finance-1", models.DecisionApproved, "first")
	require.NoError(t, err)

	// A retried approval does not insert a second row and cannot
	// double-advance the group.
	outcome, err := f.engine.ProcessDecision(t.Context(), expense.ID, "finance-1", models.DecisionApproved, "retry")
	require.NoError(t, err)
	assert.Equal(t, models.ExpenseStatusPending, outcome.Status)

	approvals, err := f.persistence.Approvals().ListByExpense(t.Context(), expense.ID)
	require.NoError(t, err)
	require.Len(t, approvals, 1)
	assert.Equal(t, models.DecisionApproved, approvals[0].Status)
	assert.Equal(t, "first", approvals[0].Comment)

	reloaded := f.reload(t, expense.ID)
	assert.Equal(t, models.ExpenseStatusPending, reloaded.Status)
	require.NotNil(t, reloaded.CurrentStepID)
	assert.Equal(t, "step-a", *reloaded.CurrentStepID)
}

func TestEscalateAdvancesToNextGroup(t *testing.T) {
	f := newFixture(t)

	f.seedUser(t, "submitter", models.UserRoleEmployee, nil)

	f.seedFlow(t,
		&models.FlowStep{ID: "step-1", StepOrder: 0, ApproverRole: rolePtr(models.UserRoleManager)},
		&models.FlowStep{ID: "step-2", StepOrder: 1, ApproverRole: rolePtr(models.UserRoleAdmin)},
	)
	expense := f.seedExpense(t, "submitter", strPtr("step-1"))

	outcome, err := f.engine.Escalate(t.Context(), expense.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExpenseStatusPending, outcome.Status)
	require.NotNil(t, outcome.NextStepID)
	assert.Equal(t, "step-2", *outcome.NextStepID)

	reloaded := f.reload(t, expense.ID)
	require.NotNil(t, reloaded.CurrentStepID)
	assert.Equal(t, "step-2", *reloaded.CurrentStepID)
}

func TestEscalatePastEndOfFlowApproves(t *testing.T) {
	f := newFixture(t)

	f.seedUser(t, "submitter", models.UserRoleEmployee, nil)

	f.seedFlow(t, &models.FlowStep{ID: "step-1", StepOrder: 0, ApproverRole: rolePtr(models.UserRoleManager)})
	expense := f.seedExpense(t, "submitter", strPtr("step-1"))

	outcome, err := f.engine.Escalate(t.Context(), expense.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExpenseStatusApproved, outcome.Status)

	reloaded := f.reload(t, expense.ID)
	assert.Equal(t, models.ExpenseStatusApproved, reloaded.Status)
	assert.Nil(t, reloaded.CurrentStepID)
}

func TestEscalateWithoutActiveStepIsNoop(t *testing.T) {
	f := newFixture(t)

	expense := f.seedExpense(t, "submitter", nil)
	expense.Status = models.ExpenseStatusApproved
	require.NoError(t, f.persistence.Expenses().Save(t.Context(), expense))

	outcome, err := f.engine.Escalate(t.Context(), expense.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExpenseStatusApproved, outcome.Status)
}

func TestListPendingForFiltersByAuthorization(t *testing.T) {
	f := newFixture(t)

	manager := f.seedUser(t, "manager", models.UserRoleManager, nil)
	f.seedUser(t, "submitter", models.UserRoleEmployee, &manager.ID)
	other := f.seedUser(t, "other-manager", models.UserRoleAdmin, nil)

	f.seedFlow(t, &models.FlowStep{ID: "step-1", StepOrder: 0, IsManagerApprover: true})
	expense := f.seedExpense(t, "submitter", strPtr("step-1"))

	queue, err := f.engine.ListPendingFor(t.Context(), manager.ID)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, expense.ID, queue[0].Expense.ID)
	assert.Equal(t, "step-1", queue[0].Step.ID)
	assert.Equal(t, "submitter", queue[0].Submitter.ID)

	queue, err = f.engine.ListPendingFor(t.Context(), other.ID)
	require.NoError(t, err)
	assert.Empty(t, queue)
}

func TestListPendingForUnknownApprover(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.ListPendingFor(t.Context(), "nobody")
	require.Error(t, err)
	assert.True(t, persistence.IsUserNotFound(err))
}
