package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/expensahq/expensa/pkg/eventbus"
	"github.com/expensahq/expensa/pkg/events"
	"github.com/expensahq/expensa/pkg/locks"
	"github.com/expensahq/expensa/pkg/models"
	"github.com/expensahq/expensa/pkg/otelhelper"
	"github.com/expensahq/expensa/pkg/persistence"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Outcome describes the state an expense landed in after a decision or
// an escalation.
type Outcome struct {
	Status     models.ExpenseStatus `json:"status"`
	Message    string               `json:"message"`
	NextStepID *string              `json:"next_step_id,omitempty"`
}

// PendingApproval is one entry of an approver's work queue.
type PendingApproval struct {
	Expense   *models.Expense  `json:"expense"`
	Step      *models.FlowStep `json:"step"`
	Submitter *models.User     `json:"submitter"`
}

// Engine orchestrates decision processing: it authorizes the approver
// against the active group, records the decision and applies the flow
// transition rules, all under a per-expense lock.
type Engine struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	locker      locks.Locker
	logger      *slog.Logger
	tracer      trace.Tracer
}

// New creates an approval engine.
func New(p persistence.Persistence, publisher eventbus.EventPublisher, locker locks.Locker, logger *slog.Logger) *Engine {
	return &Engine{
		persistence: p,
		publisher:   publisher,
		locker:      locker,
		logger:      logger,
		tracer:      otel.Tracer("expensa.engine"),
	}
}

// ProcessDecision applies one approval or rejection to an expense.
// The whole read-decide-write sequence runs under the expense's lock so
// concurrent decisions on the same expense are serialized.
func (e *Engine) ProcessDecision(ctx context.Context, expenseID, approverID string, decision models.DecisionStatus, comment string) (*Outcome, error) {
	if decision != models.DecisionApproved && decision != models.DecisionRejected {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidDecision, decision)
	}

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.process_decision",
		attribute.String(otelhelper.ExpenseIDKey, expenseID),
		attribute.String(otelhelper.ApproverIDKey, approverID),
		attribute.String(otelhelper.DecisionKey, string(decision)),
	)
	defer span.End()

	release, err := e.locker.Acquire(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock expense %s: %w", expenseID, err)
	}
	defer release()

	expense, err := e.loadExpense(ctx, "ProcessDecision", expenseID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	if expense.Status.IsTerminal() {
		err := fmt.Errorf("%w: status is %s", ErrTerminalExpense, expense.Status)
		otelhelper.SetError(span, err)

		return nil, err
	}

	if expense.CurrentStepID == nil {
		return nil, ErrNoActiveStep
	}

	current, steps, group, err := e.loadGroup(ctx, *expense.CurrentStepID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	approver, err := e.persistence.Users().GetByID(ctx, approverID)
	if err != nil {
		return nil, fmt.Errorf("failed to load approver %s: %w", approverID, err)
	}

	if approver == nil {
		return nil, fmt.Errorf("approver %s: %w", approverID, persistence.ErrUserNotFound)
	}

	// The submitter may have been removed; the manager criterion then
	// simply never matches.
	submitter, err := e.persistence.Users().GetByID(ctx, expense.SubmitterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load submitter %s: %w", expense.SubmitterID, err)
	}

	matching := MatchStepInGroup(group, approver, submitter)
	if matching == nil {
		err := fmt.Errorf("%w: approver %s, expense %s", ErrUnauthorized, approverID, expenseID)
		otelhelper.SetError(span, err)

		return nil, err
	}

	span.SetAttributes(attribute.String(otelhelper.StepIDKey, matching.ID))

	approval := &models.ExpenseApproval{
		ID:         uuid.New().String(),
		ExpenseID:  expenseID,
		StepID:     matching.ID,
		ApproverID: approverID,
		Status:     decision,
		Comment:    comment,
	}
	if decision == models.DecisionApproved {
		now := time.Now().UTC()
		approval.ApprovedAt = &now
	}

	inserted, err := e.persistence.Approvals().Record(ctx, approval)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to record decision: %w", err)
	}

	if inserted {
		e.publish(ctx, expenseID, events.DecisionRecorded{
			BaseEvent:  e.baseEvent(events.DecisionRecordedEvent, expenseID),
			StepID:     matching.ID,
			ApproverID: approverID,
			Decision:   string(decision),
			Comment:    comment,
		})
	}

	return e.applyTransition(ctx, expense, current, steps, group, matching, approverID, decision)
}

// Escalate force-advances an expense to its next approval group, or
// finalizes it as Approved when none remains. No decision is recorded
// and group completion is not required. An expense with no active step
// is a no-op success.
func (e *Engine) Escalate(ctx context.Context, expenseID string) (*Outcome, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.escalate",
		attribute.String(otelhelper.ExpenseIDKey, expenseID),
	)
	defer span.End()

	release, err := e.locker.Acquire(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock expense %s: %w", expenseID, err)
	}
	defer release()

	expense, err := e.loadExpense(ctx, "Escalate", expenseID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	if expense.CurrentStepID == nil {
		return &Outcome{
			Status:  expense.Status,
			Message: "expense has no active approval step",
		}, nil
	}

	current, steps, _, err := e.loadGroup(ctx, *expense.CurrentStepID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	previousStepID := current.ID

	next := models.NextGroup(steps, current.StepOrder)
	if len(next) > 0 {
		head := next[0]
		expense.CurrentStepID = &head.ID

		err = e.persistence.Expenses().Save(ctx, expense)
		if err != nil {
			otelhelper.SetError(span, err)

			return nil, fmt.Errorf("failed to save expense %s: %w", expenseID, err)
		}

		e.publish(ctx, expenseID, events.ExpenseEscalated{
			BaseEvent:      e.baseEvent(events.ExpenseEscalatedEvent, expenseID),
			PreviousStepID: previousStepID,
			NextStepID:     &head.ID,
		})

		return &Outcome{
			Status:     models.ExpenseStatusPending,
			Message:    "escalated to next approval group",
			NextStepID: &head.ID,
		}, nil
	}

	err = e.finalize(ctx, expense, models.ExpenseStatusApproved)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	e.publish(ctx, expenseID, events.ExpenseEscalated{
		BaseEvent:      e.baseEvent(events.ExpenseEscalatedEvent, expenseID),
		PreviousStepID: previousStepID,
	})
	e.publish(ctx, expenseID, events.ExpenseApproved{
		BaseEvent: e.baseEvent(events.ExpenseApprovedEvent, expenseID),
		Reason:    "escalated past end of flow",
	})

	return &Outcome{
		Status:  models.ExpenseStatusApproved,
		Message: "expense approved (end of flow) via escalation",
	}, nil
}

// ListPendingFor returns the pending expenses whose active group
// authorizes the given approver.
func (e *Engine) ListPendingFor(ctx context.Context, approverID string) ([]*PendingApproval, error) {
	approver, err := e.persistence.Users().GetByID(ctx, approverID)
	if err != nil {
		return nil, fmt.Errorf("failed to load approver %s: %w", approverID, err)
	}

	if approver == nil {
		return nil, fmt.Errorf("approver %s: %w", approverID, persistence.ErrUserNotFound)
	}

	pending, err := e.persistence.Expenses().ListByStatus(ctx, models.ExpenseStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending expenses: %w", err)
	}

	results := make([]*PendingApproval, 0)

	for _, expense := range pending {
		if expense.CurrentStepID == nil {
			continue
		}

		step, err := e.persistence.Flows().GetStep(ctx, *expense.CurrentStepID)
		if err != nil {
			return nil, fmt.Errorf("failed to load step %s: %w", *expense.CurrentStepID, err)
		}

		if step == nil {
			continue
		}

		steps, err := e.persistence.Flows().StepsByFlow(ctx, step.FlowID)
		if err != nil {
			return nil, fmt.Errorf("failed to load steps for flow %s: %w", step.FlowID, err)
		}

		group := models.GroupOf(steps, step.StepOrder)

		submitter, err := e.persistence.Users().GetByID(ctx, expense.SubmitterID)
		if err != nil {
			return nil, fmt.Errorf("failed to load submitter %s: %w", expense.SubmitterID, err)
		}

		matching := MatchStepInGroup(group, approver, submitter)
		if matching == nil {
			continue
		}

		results = append(results, &PendingApproval{
			Expense:   expense,
			Step:      matching,
			Submitter: submitter,
		})
	}

	return results, nil
}

// applyTransition applies the flow transition rules, in order:
// reject-fast, rule short-circuit, group completion, otherwise stay
// pending.
func (e *Engine) applyTransition(
	ctx context.Context,
	expense *models.Expense,
	current *models.FlowStep,
	steps []*models.FlowStep,
	group []*models.FlowStep,
	matching *models.FlowStep,
	approverID string,
	decision models.DecisionStatus,
) (*Outcome, error) {
	// 1. Reject-fast: one rejection anywhere in the group kills the
	// expense, regardless of rules or remaining approvers.
	if decision == models.DecisionRejected {
		err := e.finalize(ctx, expense, models.ExpenseStatusRejected)
		if err != nil {
			return nil, err
		}

		e.publish(ctx, expense.ID, events.ExpenseRejected{
			BaseEvent:  e.baseEvent(events.ExpenseRejectedEvent, expense.ID),
			ApproverID: approverID,
		})

		return &Outcome{
			Status:  models.ExpenseStatusRejected,
			Message: "expense rejected",
		}, nil
	}

	approvals, err := e.persistence.Approvals().ListByExpense(ctx, expense.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load decisions for expense %s: %w", expense.ID, err)
	}

	// 2. Rule short-circuit.
	if matching.RuleID != nil {
		rule, err := e.persistence.Rules().GetRule(ctx, *matching.RuleID)
		if err != nil {
			return nil, fmt.Errorf("failed to load rule %s: %w", *matching.RuleID, err)
		}

		if rule == nil {
			return nil, fmt.Errorf("rule %s: %w", *matching.RuleID, persistence.ErrRuleNotFound)
		}

		verdict := EvaluateRule(rule, approverID, group, approvals)

		switch verdict.Kind {
		case VerdictAutoApprove:
			err = e.finalize(ctx, expense, models.ExpenseStatusApproved)
			if err != nil {
				return nil, err
			}

			e.publish(ctx, expense.ID, events.ExpenseApproved{
				BaseEvent: e.baseEvent(events.ExpenseApprovedEvent, expense.ID),
				Reason:    "specific approver rule",
			})

			return &Outcome{
				Status:  expense.Status,
				Message: "expense auto-approved by specific approver rule",
			}, nil

		case VerdictThresholdMet:
			err = e.finalize(ctx, expense, models.ExpenseStatusApproved)
			if err != nil {
				return nil, err
			}

			e.publish(ctx, expense.ID, events.ExpenseApproved{
				BaseEvent: e.baseEvent(events.ExpenseApprovedEvent, expense.ID),
				Reason:    fmt.Sprintf("approval threshold reached at %d%%", verdict.Percent),
			})

			return &Outcome{
				Status:  expense.Status,
				Message: fmt.Sprintf("expense approved by reaching %d%% (>= %d%%)", verdict.Percent, verdict.Threshold),
			}, nil

		case NoVerdict:
			// Fall through to group completion.
		}
	}

	// 3. Group completion: advance once every step of the group holds
	// an approval.
	approvedCount := models.CountApprovedInGroup(approvals, group)
	if approvedCount >= len(group) {
		next := models.NextGroup(steps, current.StepOrder)
		if len(next) > 0 {
			head := next[0]
			previousStepID := *expense.CurrentStepID
			expense.CurrentStepID = &head.ID

			err = e.persistence.Expenses().Save(ctx, expense)
			if err != nil {
				return nil, fmt.Errorf("failed to save expense %s: %w", expense.ID, err)
			}

			e.publish(ctx, expense.ID, events.StageAdvanced{
				BaseEvent:      e.baseEvent(events.StageAdvancedEvent, expense.ID),
				PreviousStepID: previousStepID,
				NextStepID:     head.ID,
			})

			return &Outcome{
				Status:     models.ExpenseStatusPending,
				Message:    "moved to next approval group",
				NextStepID: &head.ID,
			}, nil
		}

		err = e.finalize(ctx, expense, models.ExpenseStatusApproved)
		if err != nil {
			return nil, err
		}

		e.publish(ctx, expense.ID, events.ExpenseApproved{
			BaseEvent: e.baseEvent(events.ExpenseApprovedEvent, expense.ID),
			Reason:    "end of flow",
		})

		return &Outcome{
			Status:  models.ExpenseStatusApproved,
			Message: "expense approved (end of flow)",
		}, nil
	}

	// 4. Otherwise stay pending in the same group.
	return &Outcome{
		Status:     models.ExpenseStatusPending,
		Message:    "decision recorded; awaiting other approvers in group",
		NextStepID: expense.CurrentStepID,
	}, nil
}

func (e *Engine) loadExpense(ctx context.Context, op, expenseID string) (*models.Expense, error) {
	expense, err := e.persistence.Expenses().GetByID(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load expense %s: %w", expenseID, err)
	}

	if expense == nil {
		return nil, persistence.NewExpenseError(op, expenseID, persistence.ErrExpenseNotFound)
	}

	return expense, nil
}

// loadGroup loads the current step, its flow's full step list and the
// members of the active group.
func (e *Engine) loadGroup(ctx context.Context, stepID string) (*models.FlowStep, []*models.FlowStep, []*models.FlowStep, error) {
	current, err := e.persistence.Flows().GetStep(ctx, stepID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load step %s: %w", stepID, err)
	}

	if current == nil {
		return nil, nil, nil, &persistence.StepError{Op: "GetStep", StepID: stepID, Err: persistence.ErrStepNotFound}
	}

	steps, err := e.persistence.Flows().StepsByFlow(ctx, current.FlowID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load steps for flow %s: %w", current.FlowID, err)
	}

	return current, steps, models.GroupOf(steps, current.StepOrder), nil
}

// finalize moves the expense into a terminal state and clears its
// active step.
func (e *Engine) finalize(ctx context.Context, expense *models.Expense, status models.ExpenseStatus) error {
	expense.Status = status
	if status.IsTerminal() {
		expense.CurrentStepID = nil
	}

	err := e.persistence.Expenses().Save(ctx, expense)
	if err != nil {
		return fmt.Errorf("failed to save expense %s: %w", expense.ID, err)
	}

	return nil
}

// publish sends a lifecycle event. Event delivery is a side channel:
// failures are logged, never propagated into the transaction result.
func (e *Engine) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	err := e.publisher.Publish(ctx, key, event)
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to publish event",
			"event_type", event.GetType(), "expense_id", key, "error", err)
	}
}

func (e *Engine) baseEvent(eventType events.EventType, expenseID string) events.BaseEvent {
	return events.BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		ExpenseID: expenseID,
	}
}
