package fabric

import "errors"

// Domain-specific errors for fabric operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrIncompatibleHost is returned when the host fabric reports an API
	// version this adapter was not built against. Fatal at construction.
	ErrIncompatibleHost = errors.New("fabric: incompatible host version")

	// ErrEndpointExists is returned when registering a name twice.
	ErrEndpointExists = errors.New("fabric: endpoint already registered")

	// ErrEndpointNotFound is returned when unregistering an unknown endpoint.
	ErrEndpointNotFound = errors.New("fabric: endpoint not registered")

	// ErrNoCommandHandler is returned when dispatching to an endpoint
	// without an installed handler.
	ErrNoCommandHandler = errors.New("fabric: no command handler installed")
)
