// Package postgresql provides PostgreSQL persistence for expenses,
// flows, rules and approval decisions.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/expensahq/expensa/pkg/persistence"
	"github.com/expensahq/expensa/pkg/persistence/sqlbase"
	_ "github.com/lib/pq" // postgres driver
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db           *sql.DB
	logger       *slog.Logger
	companyRepo  *CompanyRepository
	userRepo     *UserRepository
	expenseRepo  *ExpenseRepository
	flowRepo     *FlowRepository
	ruleRepo     *RuleRepository
	approvalRepo *ApprovalRepository
}

// NewPersistence creates a new PostgreSQL persistence layer and runs
// pending schema migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:           database,
		logger:       logger,
		companyRepo:  &CompanyRepository{db: database, logger: logger},
		userRepo:     &UserRepository{db: database, logger: logger},
		expenseRepo:  &ExpenseRepository{db: database, logger: logger},
		flowRepo:     &FlowRepository{db: database, logger: logger},
		ruleRepo:     &RuleRepository{db: database, logger: logger},
		approvalRepo: &ApprovalRepository{db: database, logger: logger},
	}, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) Companies() persistence.CompanyRepository {
	return p.companyRepo
}

func (p *Persistence) Users() persistence.UserRepository {
	return p.userRepo
}

func (p *Persistence) Expenses() persistence.ExpenseRepository {
	return p.expenseRepo
}

func (p *Persistence) Flows() persistence.FlowRepository {
	return p.flowRepo
}

func (p *Persistence) Rules() persistence.RuleRepository {
	return p.ruleRepo
}

func (p *Persistence) Approvals() persistence.ApprovalRepository {
	return p.approvalRepo
}
