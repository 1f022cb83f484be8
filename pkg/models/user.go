// Package models defines the core domain models for expense approval flows.
package models

import "time"

// UserRole represents the role a user holds within their company.
type UserRole string

const (
	UserRoleAdmin    UserRole = "Admin"
	UserRoleManager  UserRole = "Manager"
	UserRoleEmployee UserRole = "Employee"
)

// User is a member of a company. Users submit expenses and, depending on
// their role or position in the management chain, approve them.
type User struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id" validate:"required"`
	Name      string    `json:"name"       validate:"required"`
	Email     string    `json:"email"      validate:"required,email"`
	Role      UserRole  `json:"role"       validate:"required,oneof=Admin Manager Employee"`
	ManagerID *string   `json:"manager_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Company owns users, approval flows and conditional rules.
type Company struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"               validate:"required"`
	BaseCurrencyCode string    `json:"base_currency_code" validate:"required,len=3"`
	CreatedAt        time.Time `json:"created_at"`
}
