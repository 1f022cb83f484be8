package file

import (
	"context"
	"fmt"
	"time"

	"github.com/expensahq/expensa/pkg/models"
)

const (
	flowCollection = "flows"
	stepCollection = "steps"
)

// FlowRepository handles approval flow and flow step file operations.
type FlowRepository struct {
	root string
}

// GetFlow retrieves a flow by id. A missing flow returns (nil, nil).
func (fr *FlowRepository) GetFlow(_ context.Context, id string) (*models.ApprovalFlow, error) {
	var flow models.ApprovalFlow

	found, err := readDocument(fr.root, flowCollection, id, &flow)
	if err != nil || !found {
		return nil, err
	}

	return &flow, nil
}

// SaveFlow stores a flow document.
func (fr *FlowRepository) SaveFlow(_ context.Context, flow *models.ApprovalFlow) error {
	if flow.CreatedAt.IsZero() {
		flow.CreatedAt = time.Now().UTC()
	}

	return writeDocument(fr.root, flowCollection, flow.ID, flow)
}

// DefaultFlow returns the company's default flow, falling back to its
// oldest flow when none is flagged. No flow at all returns (nil, nil).
func (fr *FlowRepository) DefaultFlow(ctx context.Context, companyID string) (*models.ApprovalFlow, error) {
	ids, err := listDocumentIDs(fr.root, flowCollection)
	if err != nil {
		return nil, err
	}

	var oldest *models.ApprovalFlow

	for _, id := range ids {
		flow, err := fr.GetFlow(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load flow %s: %w", id, err)
		}

		if flow == nil || flow.CompanyID != companyID {
			continue
		}

		if flow.IsDefault {
			return flow, nil
		}

		if oldest == nil || flow.CreatedAt.Before(oldest.CreatedAt) {
			oldest = flow
		}
	}

	return oldest, nil
}

// GetStep retrieves a flow step by id. A missing step returns (nil, nil).
func (fr *FlowRepository) GetStep(_ context.Context, id string) (*models.FlowStep, error) {
	var step models.FlowStep

	found, err := readDocument(fr.root, stepCollection, id, &step)
	if err != nil || !found {
		return nil, err
	}

	return &step, nil
}

// SaveStep stores a flow step document.
func (fr *FlowRepository) SaveStep(_ context.Context, step *models.FlowStep) error {
	if step.CreatedAt.IsZero() {
		step.CreatedAt = time.Now().UTC()
	}

	return writeDocument(fr.root, stepCollection, step.ID, step)
}

// StepsByFlow returns a flow's steps sorted by (step order, step id).
func (fr *FlowRepository) StepsByFlow(ctx context.Context, flowID string) ([]*models.FlowStep, error) {
	ids, err := listDocumentIDs(fr.root, stepCollection)
	if err != nil {
		return nil, err
	}

	steps := make([]*models.FlowStep, 0, len(ids))

	for _, id := range ids {
		step, err := fr.GetStep(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load step %s: %w", id, err)
		}

		if step != nil && step.FlowID == flowID {
			steps = append(steps, step)
		}
	}

	models.SortSteps(steps)

	return steps, nil
}
