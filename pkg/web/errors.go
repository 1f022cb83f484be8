package web

import (
	"github.com/expensahq/expensa/pkg/engine"
	"github.com/expensahq/expensa/pkg/persistence"
	"github.com/expensahq/expensa/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleDomainError maps engine, service and persistence errors onto
// problem responses.
func handleDomainError(c fiber.Ctx, err error) error {
	switch {
	case engine.IsInvalidDecision(err) || engine.IsNoActiveStep(err) || services.IsValidationError(err):
		return badRequest(c, err.Error())

	case engine.IsUnauthorized(err):
		problem := problems.NewStatusProblem(403).
			WithInstance(c.Path()).
			WithType("unauthorized_approver").
			WithDetail(err.Error())

		return c.Status(fiber.StatusForbidden).JSON(problem)

	case engine.IsTerminalExpense(err):
		problem := problems.NewStatusProblem(409).
			WithInstance(c.Path()).
			WithType("conflict").
			WithDetail(err.Error())

		return c.Status(fiber.StatusConflict).JSON(problem)

	case persistence.IsExpenseNotFound(err):
		return notFound(c, "expense not found")

	case persistence.IsUserNotFound(err):
		return notFound(c, "user not found")

	case persistence.IsStepNotFound(err):
		return notFound(c, "flow step not found")

	default:
		return internalError(c, err)
	}
}
