package history

import "errors"

// Domain-specific errors for history sink operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrDisabled is returned when connecting with history disabled in config.
	ErrDisabled = errors.New("history: sink is disabled in configuration")

	// ErrNotConnected is returned when operations are attempted without a connection.
	ErrNotConnected = errors.New("history: not connected to InfluxDB")

	// ErrConnectionFailed is returned when the connection cannot be established.
	ErrConnectionFailed = errors.New("history: connection failed")
)
