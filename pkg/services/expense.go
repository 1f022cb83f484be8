package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/expensahq/expensa/pkg/eventbus"
	"github.com/expensahq/expensa/pkg/events"
	"github.com/expensahq/expensa/pkg/models"
	"github.com/expensahq/expensa/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Expense handles expense submission and queries. Decisions on a
// submitted expense belong to the approval engine, not this service.
type Expense struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	validator   *validator.Validate
	logger      *slog.Logger
}

// NewExpense creates a new expense service.
func NewExpense(p persistence.Persistence, publisher eventbus.EventPublisher, logger *slog.Logger) *Expense {
	return &Expense{
		persistence: p,
		publisher:   publisher,
		validator:   validator.New(),
		logger:      logger,
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *Expense) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := s.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// SubmitExpenseRequest is the input for submitting a new expense claim.
type SubmitExpenseRequest struct {
	SubmitterID  string    `validate:"required"`
	Amount       string    `validate:"required"`
	CurrencyCode string    `validate:"required,len=3"`
	Description  string    `validate:"max=2000"`
	ExpenseDate  time.Time `validate:"required"`
}

// Submit creates a Pending expense and places it on the first group of
// the company's default approval flow. A company without any flow still
// accepts submissions; such expenses carry no active step until an
// administrator assigns one.
func (s *Expense) Submit(ctx context.Context, req SubmitExpenseRequest) (*models.Expense, error) {
	err := s.validator.Struct(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	submitter, err := s.persistence.Users().GetByID(ctx, req.SubmitterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load submitter %s: %w", req.SubmitterID, err)
	}

	if submitter == nil {
		return nil, fmt.Errorf("submitter %s: %w", req.SubmitterID, persistence.ErrUserNotFound)
	}

	expense := &models.Expense{
		ID:           uuid.New().String(),
		CompanyID:    submitter.CompanyID,
		SubmitterID:  submitter.ID,
		Amount:       req.Amount,
		CurrencyCode: req.CurrencyCode,
		Description:  req.Description,
		ExpenseDate:  req.ExpenseDate,
		Status:       models.ExpenseStatusPending,
	}

	stepID, err := s.firstStepOfDefaultFlow(ctx, submitter.CompanyID)
	if err != nil {
		return nil, err
	}

	expense.CurrentStepID = stepID

	err = s.persistence.Expenses().Save(ctx, expense)
	if err != nil {
		return nil, fmt.Errorf("failed to save expense: %w", err)
	}

	s.publish(ctx, expense.ID, events.ExpenseSubmitted{
		BaseEvent: events.BaseEvent{
			ID:        uuid.New().String(),
			Type:      events.ExpenseSubmittedEvent,
			Timestamp: time.Now().UTC(),
			ExpenseID: expense.ID,
		},
		SubmitterID:   expense.SubmitterID,
		Amount:        expense.Amount,
		CurrencyCode:  expense.CurrencyCode,
		CurrentStepID: expense.CurrentStepID,
	})

	return expense, nil
}

// Get returns an expense by id.
func (s *Expense) Get(ctx context.Context, id string) (*models.Expense, error) {
	expense, err := s.persistence.Expenses().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load expense %s: %w", id, err)
	}

	if expense == nil {
		return nil, persistence.NewExpenseError("Get", id, persistence.ErrExpenseNotFound)
	}

	return expense, nil
}

// ListBySubmitter returns a user's expenses.
func (s *Expense) ListBySubmitter(ctx context.Context, submitterID string) ([]*models.Expense, error) {
	expenses, err := s.persistence.Expenses().ListBySubmitter(ctx, submitterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses for %s: %w", submitterID, err)
	}

	return expenses, nil
}

// Approvals returns the decision history recorded against an expense.
func (s *Expense) Approvals(ctx context.Context, expenseID string) ([]*models.ExpenseApproval, error) {
	expense, err := s.persistence.Expenses().GetByID(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load expense %s: %w", expenseID, err)
	}

	if expense == nil {
		return nil, persistence.NewExpenseError("Approvals", expenseID, persistence.ErrExpenseNotFound)
	}

	approvals, err := s.persistence.Approvals().ListByExpense(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions for expense %s: %w", expenseID, err)
	}

	return approvals, nil
}

// firstStepOfDefaultFlow resolves the entry step for a new expense: the
// lowest-order, lowest-id step of the company's default flow.
func (s *Expense) firstStepOfDefaultFlow(ctx context.Context, companyID string) (*string, error) {
	flow, err := s.persistence.Flows().DefaultFlow(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load default flow for company %s: %w", companyID, err)
	}

	if flow == nil {
		return nil, nil
	}

	steps, err := s.persistence.Flows().StepsByFlow(ctx, flow.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load steps for flow %s: %w", flow.ID, err)
	}

	if len(steps) == 0 {
		return nil, nil
	}

	return &steps[0].ID, nil
}

func (s *Expense) publish(ctx context.Context, key string, event eventbus.Event) {
	if s.publisher == nil {
		return
	}

	err := s.publisher.Publish(ctx, key, event)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to publish event",
			"event_type", event.GetType(), "expense_id", key, "error", err)
	}
}
