package entity

import "errors"

// Domain-specific errors for entity operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrInvalidOptions is returned when required constructor options are missing.
	ErrInvalidOptions = errors.New("entity: invalid registry options")

	// ErrEntityExists is returned when registering a friendly name twice.
	ErrEntityExists = errors.New("entity: already registered")

	// ErrEntityNotFound is returned when operating on an unknown entity.
	ErrEntityNotFound = errors.New("entity: not registered")
)
