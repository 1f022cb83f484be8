// Package services implements the application services in front of the
// approval engine: expense submission and queries, and company
// bootstrap imports.
package services

import "errors"

// Business logic errors. These indicate client errors (4xx responses);
// anything else surfacing from a service is a server-side failure.
var (
	// ErrInvalidRequest indicates the request failed field validation.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidImport indicates a bootstrap document failed schema
	// validation.
	ErrInvalidImport = errors.New("import document is invalid")
)

// IsValidationError checks if an error should map to HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) || errors.Is(err, ErrInvalidImport)
}
