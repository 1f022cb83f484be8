// Package persistence provides the data storage abstraction layer for
// expenses, approval flows, rules and decisions.
package persistence

import (
	"context"

	"github.com/expensahq/expensa/pkg/models"
)

// CompanyRepository reads and writes companies.
type CompanyRepository interface {
	GetByID(ctx context.Context, id string) (*models.Company, error)
	Save(ctx context.Context, company *models.Company) error
}

// UserRepository is the user directory consumed by the approval engine.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	Save(ctx context.Context, user *models.User) error
	ListByCompany(ctx context.Context, companyID string) ([]*models.User, error)
}

// ExpenseRepository reads and writes expense claims.
type ExpenseRepository interface {
	GetByID(ctx context.Context, id string) (*models.Expense, error)
	Save(ctx context.Context, expense *models.Expense) error
	ListByStatus(ctx context.Context, status models.ExpenseStatus) ([]*models.Expense, error)
	ListBySubmitter(ctx context.Context, submitterID string) ([]*models.Expense, error)
}

// FlowRepository reads and writes approval flows and their steps.
// StepsByFlow returns steps sorted by (step order, step id).
type FlowRepository interface {
	GetFlow(ctx context.Context, id string) (*models.ApprovalFlow, error)
	SaveFlow(ctx context.Context, flow *models.ApprovalFlow) error
	DefaultFlow(ctx context.Context, companyID string) (*models.ApprovalFlow, error)
	GetStep(ctx context.Context, id string) (*models.FlowStep, error)
	SaveStep(ctx context.Context, step *models.FlowStep) error
	StepsByFlow(ctx context.Context, flowID string) ([]*models.FlowStep, error)
}

// RuleRepository reads and writes conditional approval rules. Rules are
// stored with their conditions.
type RuleRepository interface {
	GetRule(ctx context.Context, id string) (*models.ApprovalRule, error)
	SaveRule(ctx context.Context, rule *models.ApprovalRule) error
}

// ApprovalRepository records approval decisions. Record is idempotent:
// inserting a decision for an (expense, step, approver) tuple that
// already has one is a no-op and reports inserted=false. Existing rows
// are never updated.
type ApprovalRepository interface {
	Record(ctx context.Context, approval *models.ExpenseApproval) (inserted bool, err error)
	ListByExpense(ctx context.Context, expenseID string) ([]*models.ExpenseApproval, error)
}

// Persistence aggregates the repositories behind a single backing store.
type Persistence interface {
	Companies() CompanyRepository
	Users() UserRepository
	Expenses() ExpenseRepository
	Flows() FlowRepository
	Rules() RuleRepository
	Approvals() ApprovalRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
