package web

import (
	"net/http"
	"time"

	"github.com/expensahq/expensa/pkg/engine"
	"github.com/expensahq/expensa/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	expenseService *services.Expense
	engine         *engine.Engine
	validator      *validator.Validate
}

func NewAPIHandlers(
	expenseService *services.Expense,
	approvalEngine *engine.Engine,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		expenseService: expenseService,
		engine:         approvalEngine,
		validator:      validator,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.expenseService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Expensa API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "Expensa API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) CreateExpense(c fiber.Ctx) error {
	var req CreateExpenseRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	expense, err := h.expenseService.Submit(c.Context(), services.SubmitExpenseRequest{
		SubmitterID:  req.SubmitterID,
		Amount:       req.Amount,
		CurrencyCode: req.CurrencyCode,
		Description:  req.Description,
		ExpenseDate:  req.ExpenseDate,
	})
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(expense)
}

// GetExpenses lists the expenses submitted by a user.
func (h *APIHandlers) GetExpenses(c fiber.Ctx) error {
	userID := c.Query("user_id")
	if userID == "" {
		return badRequest(c, "user_id query parameter is required")
	}

	expenses, err := h.expenseService.ListBySubmitter(c.Context(), userID)
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.JSON(fiber.Map{
		"expenses":    expenses,
		"total_count": len(expenses),
	})
}

func (h *APIHandlers) GetExpense(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Expense ID is required")
	}

	expense, err := h.expenseService.Get(c.Context(), id)
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.JSON(expense)
}

// SubmitDecision records an approval or rejection for an expense's
// active step.
func (h *APIHandlers) SubmitDecision(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Expense ID is required")
	}

	var req SubmitDecisionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	outcome, err := h.engine.ProcessDecision(c.Context(), id, req.ApproverID, req.Decision, req.Comment)
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.JSON(DecisionResponse{
		Status:     outcome.Status,
		Message:    outcome.Message,
		NextStepID: outcome.NextStepID,
	})
}

// Escalate force-advances an expense to its next approval group.
func (h *APIHandlers) Escalate(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Expense ID is required")
	}

	outcome, err := h.engine.Escalate(c.Context(), id)
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.JSON(DecisionResponse{
		Status:     outcome.Status,
		Message:    outcome.Message,
		NextStepID: outcome.NextStepID,
	})
}

// GetExpenseApprovals returns the decision history of an expense.
func (h *APIHandlers) GetExpenseApprovals(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Expense ID is required")
	}

	approvals, err := h.expenseService.Approvals(c.Context(), id)
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.JSON(fiber.Map{
		"approvals":   approvals,
		"total_count": len(approvals),
	})
}

// GetPendingApprovals returns an approver's work queue.
func (h *APIHandlers) GetPendingApprovals(c fiber.Ctx) error {
	approverID := c.Query("approver_id")
	if approverID == "" {
		return badRequest(c, "approver_id query parameter is required")
	}

	pending, err := h.engine.ListPendingFor(c.Context(), approverID)
	if err != nil {
		return handleDomainError(c, err)
	}

	queue := make([]PendingApprovalResponse, 0, len(pending))
	for _, item := range pending {
		queue = append(queue, PendingApprovalResponse{
			Expense:   item.Expense,
			Step:      item.Step,
			Submitter: item.Submitter,
		})
	}

	return c.JSON(fiber.Map{
		"pending":     queue,
		"total_count": len(queue),
	})
}
