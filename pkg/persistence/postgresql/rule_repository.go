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

// RuleRepository handles conditional rule database operations.
type RuleRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// GetRule returns a rule with its conditions, or (nil, nil) when absent.
func (r *RuleRepository) GetRule(ctx context.Context, id string) (*models.ApprovalRule, error) {
	query := `
		SELECT id, company_id, name, description, success_outcome, created_at
		FROM approval_rules
		WHERE id = $1
	`

	var rule models.ApprovalRule

	err := r.db.QueryRowContext(ctx, query, id).Scan(&rule.ID, &rule.CompanyID, &rule.Name,
		&rule.Description, &rule.SuccessOutcome, &rule.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan rule: %w", err)
	}

	conditions, err := r.conditionsByRule(ctx, id)
	if err != nil {
		return nil, err
	}

	rule.Conditions = conditions

	return &rule, nil
}

// SaveRule inserts or updates a rule and replaces its conditions.
func (r *RuleRepository) SaveRule(ctx context.Context, rule *models.ApprovalRule) error {
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}

	if rule.SuccessOutcome == "" {
		rule.SuccessOutcome = models.ExpenseStatusApproved
	}

	transaction, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	upsert := `
		INSERT INTO approval_rules (id, company_id, name, description, success_outcome, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			success_outcome = EXCLUDED.success_outcome
	`

	_, err = transaction.ExecContext(ctx, upsert,
		rule.ID, rule.CompanyID, rule.Name, rule.Description, rule.SuccessOutcome, rule.CreatedAt)
	if err != nil {
		_ = transaction.Rollback()

		return fmt.Errorf("failed to save rule %s: %w", rule.ID, err)
	}

	_, err = transaction.ExecContext(ctx, "DELETE FROM rule_conditions WHERE rule_id = $1", rule.ID)
	if err != nil {
		_ = transaction.Rollback()

		return fmt.Errorf("failed to clear rule conditions %s: %w", rule.ID, err)
	}

	for _, condition := range rule.Conditions {
		operator := condition.Operator
		if operator == "" {
			operator = models.LogicOperatorNone
		}

		_, err = transaction.ExecContext(ctx,
			`INSERT INTO rule_conditions (id, rule_id, condition_type, condition_value, logic_operator)
			 VALUES ($1, $2, $3, $4, $5)`,
			condition.ID, rule.ID, condition.Type, condition.Value, operator)
		if err != nil {
			_ = transaction.Rollback()

			return fmt.Errorf("failed to save rule condition %s: %w", condition.ID, err)
		}
	}

	err = transaction.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit rule %s: %w", rule.ID, err)
	}

	return nil
}

func (r *RuleRepository) conditionsByRule(ctx context.Context, ruleID string) ([]*models.RuleCondition, error) {
	query := `
		SELECT id, rule_id, condition_type, condition_value, logic_operator
		FROM rule_conditions
		WHERE rule_id = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, ruleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rule conditions: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	conditions := make([]*models.RuleCondition, 0)

	for rows.Next() {
		var condition models.RuleCondition

		err := rows.Scan(&condition.ID, &condition.RuleID, &condition.Type, &condition.Value, &condition.Operator)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule condition: %w", err)
		}

		conditions = append(conditions, &condition)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating rule conditions: %w", err)
	}

	return conditions, nil
}
