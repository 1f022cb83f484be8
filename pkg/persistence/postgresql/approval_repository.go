package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/expensahq/expensa/pkg/models"
)

// ApprovalRepository handles decision record database operations. The
// unique_approval_per_step index plus ON CONFLICT DO NOTHING gives the
// at-most-once semantic per (expense, step, approver) tuple.
type ApprovalRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// Record inserts a decision row unless one already exists for the tuple.
func (r *ApprovalRepository) Record(ctx context.Context, approval *models.ExpenseApproval) (bool, error) {
	if approval.CreatedAt.IsZero() {
		approval.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO expense_approvals (id, expense_id, step_id, approver_id, status, comment, approved_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (expense_id, step_id, approver_id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		approval.ID, approval.ExpenseID, approval.StepID, approval.ApproverID,
		approval.Status, approval.Comment, approval.ApprovedAt, approval.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to record decision for expense %s: %w", approval.ExpenseID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected > 0, nil
}

// ListByExpense returns every decision recorded for an expense, sorted
// by (step id, approver id).
func (r *ApprovalRepository) ListByExpense(ctx context.Context, expenseID string) ([]*models.ExpenseApproval, error) {
	query := `
		SELECT id, expense_id, step_id, approver_id, status, comment, approved_at, created_at
		FROM expense_approvals
		WHERE expense_id = $1
		ORDER BY step_id, approver_id
	`

	rows, err := r.db.QueryContext(ctx, query, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	approvals := make([]*models.ExpenseApproval, 0)

	for rows.Next() {
		var (
			approval   models.ExpenseApproval
			approvedAt sql.NullTime
		)

		err := rows.Scan(&approval.ID, &approval.ExpenseID, &approval.StepID, &approval.ApproverID,
			&approval.Status, &approval.Comment, &approvedAt, &approval.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}

		if approvedAt.Valid {
			approval.ApprovedAt = &approvedAt.Time
		}

		approvals = append(approvals, &approval)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating decisions: %w", err)
	}

	return approvals, nil
}
