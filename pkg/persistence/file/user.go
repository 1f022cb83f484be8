package file

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/expensahq/expensa/pkg/models"
)

const userCollection = "users"

// UserRepository handles user directory file operations.
type UserRepository struct {
	root string
}

// GetByID retrieves a user by id. A missing user returns (nil, nil).
func (ur *UserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	var user models.User

	found, err := readDocument(ur.root, userCollection, id, &user)
	if err != nil || !found {
		return nil, err
	}

	return &user, nil
}

// Save stores a user document.
func (ur *UserRepository) Save(_ context.Context, user *models.User) error {
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}

	user.UpdatedAt = now

	return writeDocument(ur.root, userCollection, user.ID, user)
}

// ListByCompany returns the company's users sorted by id.
func (ur *UserRepository) ListByCompany(ctx context.Context, companyID string) ([]*models.User, error) {
	ids, err := listDocumentIDs(ur.root, userCollection)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, len(ids))

	for _, id := range ids {
		user, err := ur.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load user %s: %w", id, err)
		}

		if user != nil && user.CompanyID == companyID {
			users = append(users, user)
		}
	}

	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })

	return users, nil
}
