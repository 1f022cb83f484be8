package file

import (
	"context"
	"time"

	"github.com/expensahq/expensa/pkg/models"
)

const ruleCollection = "rules"

// RuleRepository handles conditional rule file operations. Rules are
// stored with their conditions in one document.
type RuleRepository struct {
	root string
}

// GetRule retrieves a rule by id. A missing rule returns (nil, nil).
func (rr *RuleRepository) GetRule(_ context.Context, id string) (*models.ApprovalRule, error) {
	var rule models.ApprovalRule

	found, err := readDocument(rr.root, ruleCollection, id, &rule)
	if err != nil || !found {
		return nil, err
	}

	return &rule, nil
}

// SaveRule stores a rule document.
func (rr *RuleRepository) SaveRule(_ context.Context, rule *models.ApprovalRule) error {
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}

	return writeDocument(rr.root, ruleCollection, rule.ID, rule)
}
