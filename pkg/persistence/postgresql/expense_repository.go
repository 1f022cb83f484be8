package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/expensahq/expensa/pkg/models"
)

// ExpenseRepository handles expense database operations.
type ExpenseRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const expenseColumns = `
			id
		  , company_id
		  , submitter_id
		  , amount
		  , currency_code
		  , description
		  , expense_date
		  , status
		  , current_step_id
		  , created_at
		  , updated_at
`

// GetByID returns an expense by id, or (nil, nil) when absent.
func (r *ExpenseRepository) GetByID(ctx context.Context, id string) (*models.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = $1`

	expense, err := scanExpense(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan expense: %w", err)
	}

	return expense, nil
}

// Save inserts or updates an expense. Status and current step are the
// only mutable fields after creation.
func (r *ExpenseRepository) Save(ctx context.Context, expense *models.Expense) error {
	now := time.Now().UTC()
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = now
	}

	expense.UpdatedAt = now

	query := `
		INSERT INTO expenses (id, company_id, submitter_id, amount, currency_code, description,
			expense_date, status, current_step_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			current_step_id = EXCLUDED.current_step_id,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		expense.ID, expense.CompanyID, expense.SubmitterID, expense.Amount, expense.CurrencyCode,
		expense.Description, expense.ExpenseDate, expense.Status, expense.CurrentStepID,
		expense.CreatedAt, expense.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save expense %s: %w", expense.ID, err)
	}

	return nil
}

// ListByStatus returns every expense with the given status, sorted by id.
func (r *ExpenseRepository) ListByStatus(ctx context.Context, status models.ExpenseStatus) ([]*models.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE status = $1 ORDER BY id`

	return r.queryExpenses(ctx, query, string(status))
}

// ListBySubmitter returns every expense submitted by the given user, sorted by id.
func (r *ExpenseRepository) ListBySubmitter(ctx context.Context, submitterID string) ([]*models.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE submitter_id = $1 ORDER BY id`

	return r.queryExpenses(ctx, query, submitterID)
}

func (r *ExpenseRepository) queryExpenses(ctx context.Context, query string, args ...any) ([]*models.Expense, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	expenses := make([]*models.Expense, 0)

	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}

		expenses = append(expenses, expense)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}

	return expenses, nil
}

func scanExpense(row rowScanner) (*models.Expense, error) {
	var (
		expense       models.Expense
		currentStepID sql.NullString
	)

	err := row.Scan(&expense.ID, &expense.CompanyID, &expense.SubmitterID, &expense.Amount,
		&expense.CurrencyCode, &expense.Description, &expense.ExpenseDate, &expense.Status,
		&currentStepID, &expense.CreatedAt, &expense.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if currentStepID.Valid {
		expense.CurrentStepID = &currentStepID.String
	}

	return &expense, nil
}
