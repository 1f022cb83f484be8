package file

import (
	"context"
	"time"

	"github.com/expensahq/expensa/pkg/models"
)

const companyCollection = "companies"

// CompanyRepository handles company file operations.
type CompanyRepository struct {
	root string
}

// GetByID retrieves a company by id. A missing company returns (nil, nil).
func (cr *CompanyRepository) GetByID(_ context.Context, id string) (*models.Company, error) {
	var company models.Company

	found, err := readDocument(cr.root, companyCollection, id, &company)
	if err != nil || !found {
		return nil, err
	}

	return &company, nil
}

// Save stores a company document.
func (cr *CompanyRepository) Save(_ context.Context, company *models.Company) error {
	if company.CreatedAt.IsZero() {
		company.CreatedAt = time.Now().UTC()
	}

	return writeDocument(cr.root, companyCollection, company.ID, company)
}
