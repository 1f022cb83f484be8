// Package main provides the Expensa API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/expensahq/expensa/pkg/engine"
	"github.com/expensahq/expensa/pkg/eventbus"
	"github.com/expensahq/expensa/pkg/locks"
	"github.com/expensahq/expensa/pkg/persistence"
	"github.com/expensahq/expensa/pkg/services"
	"github.com/expensahq/expensa/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	locker      locks.Locker
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	locker locks.Locker,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
		locker:      locker,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	expenseService := services.NewExpense(a.persistence, a.eventBus, a.logger)
	approvalEngine := engine.New(a.persistence, a.eventBus, a.locker, a.logger)

	handlers := web.NewAPIHandlers(expenseService, approvalEngine, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Expensa API")
	})

	e := app.Group("/expenses")
	e.Post("/", handlers.CreateExpense)
	e.Get("/", handlers.GetExpenses)
	e.Get("/:id", handlers.GetExpense)
	e.Post("/:id/decisions", handlers.SubmitDecision)
	e.Post("/:id/escalate", handlers.Escalate)
	e.Get("/:id/approvals", handlers.GetExpenseApprovals)

	app.Get("/approvals", handlers.GetPendingApprovals)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
