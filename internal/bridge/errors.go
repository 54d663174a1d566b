package bridge

import "errors"

// Domain-specific errors for bridge operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrBridgeNotReady is returned when the retained gateway topics do
	// not all arrive within the startup deadline.
	ErrBridgeNotReady = errors.New("bridge: gateway state not received before deadline")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("bridge: controller already started")

	// ErrInvalidOptions is returned when required constructor options are missing.
	ErrInvalidOptions = errors.New("bridge: invalid controller options")
)
