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

// FlowRepository handles approval flow and flow step database operations.
type FlowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// GetFlow returns a flow by id, or (nil, nil) when absent.
func (r *FlowRepository) GetFlow(ctx context.Context, id string) (*models.ApprovalFlow, error) {
	query := `
		SELECT id, company_id, name, is_default, created_at
		FROM approval_flows
		WHERE id = $1
	`

	flow, err := scanFlow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan flow: %w", err)
	}

	return flow, nil
}

// SaveFlow inserts or updates a flow.
func (r *FlowRepository) SaveFlow(ctx context.Context, flow *models.ApprovalFlow) error {
	if flow.CreatedAt.IsZero() {
		flow.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO approval_flows (id, company_id, name, is_default, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			is_default = EXCLUDED.is_default
	`

	_, err := r.db.ExecContext(ctx, query, flow.ID, flow.CompanyID, flow.Name, flow.IsDefault, flow.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save flow %s: %w", flow.ID, err)
	}

	return nil
}

// DefaultFlow returns the company's default flow, falling back to its
// oldest flow. No flow at all returns (nil, nil).
func (r *FlowRepository) DefaultFlow(ctx context.Context, companyID string) (*models.ApprovalFlow, error) {
	query := `
		SELECT id, company_id, name, is_default, created_at
		FROM approval_flows
		WHERE company_id = $1
		ORDER BY is_default DESC, created_at ASC
		LIMIT 1
	`

	flow, err := scanFlow(r.db.QueryRowContext(ctx, query, companyID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan flow: %w", err)
	}

	return flow, nil
}

// GetStep returns a flow step by id, or (nil, nil) when absent.
func (r *FlowRepository) GetStep(ctx context.Context, id string) (*models.FlowStep, error) {
	query := `
		SELECT id, flow_id, step_order, is_manager_approver, approver_role, approver_user_id, rule_id, created_at
		FROM flow_steps
		WHERE id = $1
	`

	step, err := scanStep(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan step: %w", err)
	}

	return step, nil
}

// SaveStep inserts or updates a flow step.
func (r *FlowRepository) SaveStep(ctx context.Context, step *models.FlowStep) error {
	if step.CreatedAt.IsZero() {
		step.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO flow_steps (id, flow_id, step_order, is_manager_approver, approver_role,
			approver_user_id, rule_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			step_order = EXCLUDED.step_order,
			is_manager_approver = EXCLUDED.is_manager_approver,
			approver_role = EXCLUDED.approver_role,
			approver_user_id = EXCLUDED.approver_user_id,
			rule_id = EXCLUDED.rule_id
	`

	_, err := r.db.ExecContext(ctx, query,
		step.ID, step.FlowID, step.StepOrder, step.IsManagerApprover, step.ApproverRole,
		step.ApproverUserID, step.RuleID, step.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save step %s: %w", step.ID, err)
	}

	return nil
}

// StepsByFlow returns a flow's steps sorted by (step order, step id).
func (r *FlowRepository) StepsByFlow(ctx context.Context, flowID string) ([]*models.FlowStep, error) {
	query := `
		SELECT id, flow_id, step_order, is_manager_approver, approver_role, approver_user_id, rule_id, created_at
		FROM flow_steps
		WHERE flow_id = $1
		ORDER BY step_order, id
	`

	rows, err := r.db.QueryContext(ctx, query, flowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query steps: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	steps := make([]*models.FlowStep, 0)

	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}

		steps = append(steps, step)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating steps: %w", err)
	}

	return steps, nil
}

func scanFlow(row rowScanner) (*models.ApprovalFlow, error) {
	var flow models.ApprovalFlow

	err := row.Scan(&flow.ID, &flow.CompanyID, &flow.Name, &flow.IsDefault, &flow.CreatedAt)
	if err != nil {
		return nil, err
	}

	return &flow, nil
}

func scanStep(row rowScanner) (*models.FlowStep, error) {
	var (
		step           models.FlowStep
		approverRole   sql.NullString
		approverUserID sql.NullString
		ruleID         sql.NullString
	)

	err := row.Scan(&step.ID, &step.FlowID, &step.StepOrder, &step.IsManagerApprover,
		&approverRole, &approverUserID, &ruleID, &step.CreatedAt)
	if err != nil {
		return nil, err
	}

	if approverRole.Valid {
		role := models.UserRole(approverRole.String)
		step.ApproverRole = &role
	}

	if approverUserID.Valid {
		step.ApproverUserID = &approverUserID.String
	}

	if ruleID.Valid {
		step.RuleID = &ruleID.String
	}

	return &step, nil
}
