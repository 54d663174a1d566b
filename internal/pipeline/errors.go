package pipeline

import "errors"

// Domain-specific errors for pipeline operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrUnsupportedCommand is returned when a command has no gateway
	// translation.
	ErrUnsupportedCommand = errors.New("pipeline: unsupported command")

	// ErrMissingCommandField is returned when a command lacks a required
	// numeric field.
	ErrMissingCommandField = errors.New("pipeline: missing command field")
)
