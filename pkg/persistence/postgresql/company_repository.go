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

// CompanyRepository handles company database operations.
type CompanyRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// GetByID returns a company by id, or (nil, nil) when absent.
func (r *CompanyRepository) GetByID(ctx context.Context, id string) (*models.Company, error) {
	query := `
		SELECT
			id
		  , name
		  , base_currency_code
		  , created_at
		FROM companies
		WHERE id = $1
	`

	var company models.Company

	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&company.ID, &company.Name, &company.BaseCurrencyCode, &company.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan company: %w", err)
	}

	return &company, nil
}

// Save inserts or updates a company.
func (r *CompanyRepository) Save(ctx context.Context, company *models.Company) error {
	if company.CreatedAt.IsZero() {
		company.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO companies (id, name, base_currency_code, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			base_currency_code = EXCLUDED.base_currency_code
	`

	_, err := r.db.ExecContext(ctx, query,
		company.ID, company.Name, company.BaseCurrencyCode, company.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save company %s: %w", company.ID, err)
	}

	return nil
}
