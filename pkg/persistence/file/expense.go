package file

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/expensahq/expensa/pkg/models"
)

const expenseCollection = "expenses"

// ExpenseRepository handles expense file operations.
type ExpenseRepository struct {
	root string
}

// GetByID retrieves an expense by id. A missing expense returns (nil, nil).
func (er *ExpenseRepository) GetByID(_ context.Context, id string) (*models.Expense, error) {
	var expense models.Expense

	found, err := readDocument(er.root, expenseCollection, id, &expense)
	if err != nil || !found {
		return nil, err
	}

	return &expense, nil
}

// Save stores an expense document.
func (er *ExpenseRepository) Save(_ context.Context, expense *models.Expense) error {
	now := time.Now().UTC()
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = now
	}

	expense.UpdatedAt = now

	return writeDocument(er.root, expenseCollection, expense.ID, expense)
}

// ListByStatus returns every expense with the given status, sorted by id.
func (er *ExpenseRepository) ListByStatus(ctx context.Context, status models.ExpenseStatus) ([]*models.Expense, error) {
	return er.list(ctx, func(e *models.Expense) bool { return e.Status == status })
}

// ListBySubmitter returns every expense submitted by the given user, sorted by id.
func (er *ExpenseRepository) ListBySubmitter(ctx context.Context, submitterID string) ([]*models.Expense, error) {
	return er.list(ctx, func(e *models.Expense) bool { return e.SubmitterID == submitterID })
}

func (er *ExpenseRepository) list(ctx context.Context, keep func(*models.Expense) bool) ([]*models.Expense, error) {
	ids, err := listDocumentIDs(er.root, expenseCollection)
	if err != nil {
		return nil, err
	}

	expenses := make([]*models.Expense, 0, len(ids))

	for _, id := range ids {
		expense, err := er.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load expense %s: %w", id, err)
		}

		if expense != nil && keep(expense) {
			expenses = append(expenses, expense)
		}
	}

	sort.Slice(expenses, func(i, j int) bool { return expenses[i].ID < expenses[j].ID })

	return expenses, nil
}
