package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/expensahq/expensa/pkg/models"
	"github.com/expensahq/expensa/pkg/persistence"
	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
)

// importSchema validates bootstrap documents before anything is
// persisted. Cross-references (manager ids, rule ids on steps) are
// checked by the database, not here.
const importSchema = `{
	"type": "object",
	"required": ["company", "users"],
	"properties": {
		"company": {
			"type": "object",
			"required": ["id", "name", "base_currency_code"],
			"properties": {
				"id": {"type": "string", "minLength": 1},
				"name": {"type": "string", "minLength": 1},
				"base_currency_code": {"type": "string", "minLength": 3, "maxLength": 3}
			}
		},
		"users": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["id", "name", "email", "role"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"name": {"type": "string", "minLength": 1},
					"email": {"type": "string", "minLength": 3},
					"role": {"enum": ["Admin", "Manager", "Employee"]},
					"manager_id": {"type": "string"}
				}
			}
		},
		"rules": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "name"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"name": {"type": "string", "minLength": 1},
					"description": {"type": "string"},
					"success_outcome": {"enum": ["Approved", "Rejected"]},
					"conditions": {
						"type": "array",
						"items": {
							"type": "object",
							"required": ["type", "value"],
							"properties": {
								"type": {"enum": ["Percentage", "SpecificUser", "AmountThreshold"]},
								"value": {"type": "string", "minLength": 1},
								"operator": {"enum": ["AND", "OR", "NONE"]}
							}
						}
					}
				}
			}
		},
		"flows": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "name", "steps"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"name": {"type": "string", "minLength": 3},
					"is_default": {"type": "boolean"},
					"steps": {
						"type": "array",
						"minItems": 1,
						"items": {
							"type": "object",
							"required": ["id", "step_order"],
							"properties": {
								"id": {"type": "string", "minLength": 1},
								"step_order": {"type": "integer", "minimum": 0},
								"is_manager_approver": {"type": "boolean"},
								"approver_role": {"enum": ["Admin", "Manager", "Employee"]},
								"approver_user_id": {"type": "string"},
								"rule_id": {"type": "string"}
							}
						}
					}
				}
			}
		}
	}
}`

type importDocument struct {
	Company models.Company `json:"company"`
	Users   []*models.User `json:"users"`
	Rules   []importRule   `json:"rules"`
	Flows   []importFlow   `json:"flows"`
}

type importRule struct {
	models.ApprovalRule

	Conditions []*models.RuleCondition `json:"conditions"`
}

type importFlow struct {
	models.ApprovalFlow

	Steps []*models.FlowStep `json:"steps"`
}

// ImportSummary reports what a bootstrap import persisted.
type ImportSummary struct {
	CompanyID string `json:"company_id"`
	Users     int    `json:"users"`
	Rules     int    `json:"rules"`
	Flows     int    `json:"flows"`
	Steps     int    `json:"steps"`
}

// Importer loads a company bootstrap document (company, users, rules
// and flows) into the backing store. Imports are idempotent: entities
// are upserted by id, so re-running a document is safe.
type Importer struct {
	persistence persistence.Persistence
	logger      *slog.Logger
}

// NewImporter creates a new bootstrap importer.
func NewImporter(p persistence.Persistence, logger *slog.Logger) *Importer {
	return &Importer{
		persistence: p,
		logger:      logger,
	}
}

// Import validates and persists one bootstrap document.
func (i *Importer) Import(ctx context.Context, data []byte) (*ImportSummary, error) {
	err := i.validate(data)
	if err != nil {
		return nil, err
	}

	var doc importDocument

	err = json.Unmarshal(data, &doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImport, err)
	}

	err = i.persistence.Companies().Save(ctx, &doc.Company)
	if err != nil {
		return nil, fmt.Errorf("failed to save company %s: %w", doc.Company.ID, err)
	}

	err = i.importUsers(ctx, doc)
	if err != nil {
		return nil, err
	}

	for _, rule := range doc.Rules {
		record := rule.ApprovalRule
		record.CompanyID = doc.Company.ID
		record.Conditions = rule.Conditions

		for _, condition := range record.Conditions {
			if condition.ID == "" {
				condition.ID = uuid.New().String()
			}

			condition.RuleID = record.ID
		}

		err = i.persistence.Rules().SaveRule(ctx, &record)
		if err != nil {
			return nil, fmt.Errorf("failed to save rule %s: %w", record.ID, err)
		}
	}

	steps := 0

	for _, flow := range doc.Flows {
		record := flow.ApprovalFlow
		record.CompanyID = doc.Company.ID

		err = i.persistence.Flows().SaveFlow(ctx, &record)
		if err != nil {
			return nil, fmt.Errorf("failed to save flow %s: %w", record.ID, err)
		}

		for _, step := range flow.Steps {
			step.FlowID = record.ID

			err = i.persistence.Flows().SaveStep(ctx, step)
			if err != nil {
				return nil, fmt.Errorf("failed to save step %s: %w", step.ID, err)
			}

			steps++
		}
	}

	summary := &ImportSummary{
		CompanyID: doc.Company.ID,
		Users:     len(doc.Users),
		Rules:     len(doc.Rules),
		Flows:     len(doc.Flows),
		Steps:     steps,
	}

	i.logger.InfoContext(ctx, "bootstrap import complete",
		"company_id", summary.CompanyID,
		"users", summary.Users,
		"rules", summary.Rules,
		"flows", summary.Flows,
		"steps", summary.Steps)

	return summary, nil
}

func (i *Importer) validate(data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(importSchema)
	dataLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidImport, err)
	}

	if !result.Valid() {
		descriptions := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			descriptions = append(descriptions, desc.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidImport, strings.Join(descriptions, "; "))
	}

	return nil
}

// importUsers saves users in two passes so manager references resolve
// regardless of document order.
func (i *Importer) importUsers(ctx context.Context, doc importDocument) error {
	for _, user := range doc.Users {
		record := *user
		record.CompanyID = doc.Company.ID
		record.ManagerID = nil

		err := i.persistence.Users().Save(ctx, &record)
		if err != nil {
			return fmt.Errorf("failed to save user %s: %w", record.ID, err)
		}
	}

	for _, user := range doc.Users {
		if user.ManagerID == nil {
			continue
		}

		record := *user
		record.CompanyID = doc.Company.ID

		err := i.persistence.Users().Save(ctx, &record)
		if err != nil {
			return fmt.Errorf("failed to save user %s: %w", record.ID, err)
		}
	}

	return nil
}
