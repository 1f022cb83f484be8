package file

import (
	"testing"
	"time"

	"github.com/expensahq/expensa/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpenseRoundTrip(t *testing.T) {
	p := NewPersistence(t.TempDir())

	expense := &models.Expense{
		ID:           "exp-1",
		CompanyID:    "co-1",
		SubmitterID:  "user-1",
		Amount:       "120.50",
		CurrencyCode: "USD",
		Status:       models.ExpenseStatusPending,
	}

	require.NoError(t, p.Expenses().Save(t.Context(), expense))
	assert.False(t, expense.CreatedAt.IsZero())

	loaded, err := p.Expenses().GetByID(t.Context(), "exp-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "120.50", loaded.Amount)
	assert.Equal(t, models.ExpenseStatusPending, loaded.Status)

	missing, err := p.Expenses().GetByID(t.Context(), "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestExpenseListByStatusAndSubmitter(t *testing.T) {
	p := NewPersistence(t.TempDir())

	for _, e := range []*models.Expense{
		{ID: "a", CompanyID: "co", SubmitterID: "u1", Amount: "1", CurrencyCode: "USD", Status: models.ExpenseStatusPending},
		{ID: "b", CompanyID: "co", SubmitterID: "u2", Amount: "2", CurrencyCode: "USD", Status: models.ExpenseStatusApproved},
		{ID: "c", CompanyID: "co", SubmitterID: "u1", Amount: "3", CurrencyCode: "USD", Status: models.ExpenseStatusPending},
	} {
		require.NoError(t, p.Expenses().Save(t.Context(), e))
	}

	pending, err := p.Expenses().ListByStatus(t.Context(), models.ExpenseStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "a", pending[0].ID)
	assert.Equal(t, "c", pending[1].ID)

	byUser, err := p.Expenses().ListBySubmitter(t.Context(), "u2")
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	assert.Equal(t, "b", byUser[0].ID)
}

func TestDefaultFlowPrefersFlaggedFlow(t *testing.T) {
	p := NewPersistence(t.TempDir())

	older := &models.ApprovalFlow{ID: "f1", CompanyID: "co", Name: "Standard", CreatedAt: time.Now().Add(-time.Hour)}
	flagged := &models.ApprovalFlow{ID: "f2", CompanyID: "co", Name: "Default", IsDefault: true}
	require.NoError(t, p.Flows().SaveFlow(t.Context(), older))
	require.NoError(t, p.Flows().SaveFlow(t.Context(), flagged))

	got, err := p.Flows().DefaultFlow(t.Context(), "co")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "f2", got.ID)
}

func TestDefaultFlowFallsBackToOldest(t *testing.T) {
	p := NewPersistence(t.TempDir())

	newer := &models.ApprovalFlow{ID: "f1", CompanyID: "co", Name: "Newer", CreatedAt: time.Now()}
	older := &models.ApprovalFlow{ID: "f2", CompanyID: "co", Name: "Older", CreatedAt: time.Now().Add(-time.Hour)}
	other := &models.ApprovalFlow{ID: "f3", CompanyID: "elsewhere", Name: "Other", IsDefault: true}
	require.NoError(t, p.Flows().SaveFlow(t.Context(), newer))
	require.NoError(t, p.Flows().SaveFlow(t.Context(), older))
	require.NoError(t, p.Flows().SaveFlow(t.Context(), other))

	got, err := p.Flows().DefaultFlow(t.Context(), "co")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "f2", got.ID)

	none, err := p.Flows().DefaultFlow(t.Context(), "empty-co")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestStepsByFlowSorted(t *testing.T) {
	p := NewPersistence(t.TempDir())

	for _, s := range []*models.FlowStep{
		{ID: "s-z", FlowID: "f1", StepOrder: 1},
		{ID: "s-a", FlowID: "f1", StepOrder: 2},
		{ID: "s-b", FlowID: "f1", StepOrder: 1},
		{ID: "s-x", FlowID: "other", StepOrder: 1},
	} {
		require.NoError(t, p.Flows().SaveStep(t.Context(), s))
	}

	steps, err := p.Flows().StepsByFlow(t.Context(), "f1")
	require.NoError(t, err)
	require.Len(t, steps, 3)
	assert.Equal(t, []string{"s-b", "s-z", "s-a"}, []string{steps[0].ID, steps[1].ID, steps[2].ID})
}

func TestRecordIsIdempotentPerTuple(t *testing.T) {
	p := NewPersistence(t.TempDir())

	first := &models.ExpenseApproval{
		ID:         "ap-1",
		ExpenseID:  "exp-1",
		StepID:     "step-1",
		ApproverID: "user-1",
		Status:     models.DecisionApproved,
		Comment:    "looks good",
	}

	inserted, err := p.Approvals().Record(t.Context(), first)
	require.NoError(t, err)
	assert.True(t, inserted)

	// Retried submission for the same tuple, even with a different verdict.
	dup := &models.ExpenseApproval{
		ID:         "ap-2",
		ExpenseID:  "exp-1",
		StepID:     "step-1",
		ApproverID: "user-1",
		Status:     models.DecisionRejected,
	}

	inserted, err = p.Approvals().Record(t.Context(), dup)
	require.NoError(t, err)
	assert.False(t, inserted)

	rows, err := p.Approvals().ListByExpense(t.Context(), "exp-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.DecisionApproved, rows[0].Status, "first decision per tuple wins")
	assert.Equal(t, "looks good", rows[0].Comment)
}

func TestListByExpenseEmpty(t *testing.T) {
	p := NewPersistence(t.TempDir())

	rows, err := p.Approvals().ListByExpense(t.Context(), "never-seen")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestUserRepository(t *testing.T) {
	p := NewPersistence(t.TempDir())

	manager := &models.User{ID: "u1", CompanyID: "co", Name: "Dana", Email: "dana@example.com", Role: models.UserRoleManager}
	employee := &models.User{ID: "u2", CompanyID: "co", Name: "Sam", Email: "sam@example.com", Role: models.UserRoleEmployee, ManagerID: &manager.ID}
	require.NoError(t, p.Users().Save(t.Context(), manager))
	require.NoError(t, p.Users().Save(t.Context(), employee))

	loaded, err := p.Users().GetByID(t.Context(), "u2")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.NotNil(t, loaded.ManagerID)
	assert.Equal(t, "u1", *loaded.ManagerID)

	all, err := p.Users().ListByCompany(t.Context(), "co")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRuleRoundTrip(t *testing.T) {
	p := NewPersistence(t.TempDir())

	rule := &models.ApprovalRule{
		ID:        "r1",
		CompanyID: "co",
		Name:      "Majority",
		Conditions: []*models.RuleCondition{
			{ID: "c1", RuleID: "r1", Type: models.ConditionPercentage, Value: "60", Operator: models.LogicOperatorNone},
		},
	}

	require.NoError(t, p.Rules().SaveRule(t.Context(), rule))

	loaded, err := p.Rules().GetRule(t.Context(), "r1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Len(t, loaded.Conditions, 1)
	assert.Equal(t, models.ConditionPercentage, loaded.Conditions[0].Type)
}
