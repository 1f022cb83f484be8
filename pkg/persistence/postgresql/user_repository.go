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

// UserRepository handles user directory database operations.
type UserRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// GetByID returns a user by id, or (nil, nil) when absent.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT
			id
		  , company_id
		  , name
		  , email
		  , role
		  , manager_id
		  , created_at
		  , updated_at
		FROM users
		WHERE id = $1
	`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	return user, nil
}

// Save inserts or updates a user.
func (r *UserRepository) Save(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}

	user.UpdatedAt = now

	query := `
		INSERT INTO users (id, company_id, name, email, role, manager_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			role = EXCLUDED.role,
			manager_id = EXCLUDED.manager_id,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.CompanyID, user.Name, user.Email, user.Role, user.ManagerID,
		user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save user %s: %w", user.ID, err)
	}

	return nil
}

// ListByCompany returns the company's users sorted by id.
func (r *UserRepository) ListByCompany(ctx context.Context, companyID string) ([]*models.User, error) {
	query := `
		SELECT
			id
		  , company_id
		  , name
		  , email
		  , role
		  , manager_id
		  , created_at
		  , updated_at
		FROM users
		WHERE company_id = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	users := make([]*models.User, 0)

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}

		users = append(users, user)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		user      models.User
		managerID sql.NullString
	)

	err := row.Scan(&user.ID, &user.CompanyID, &user.Name, &user.Email, &user.Role,
		&managerID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if managerID.Valid {
		user.ManagerID = &managerID.String
	}

	return &user, nil
}
