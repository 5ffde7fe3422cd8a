package transport

import (
	"context"
)

// Connection is the socket-transport abstraction the provisioning layer
// consumes. Implemented by Socket.
type Connection interface {
	// Connect dials the endpoint and starts delivering events.
	Connect(ctx context.Context) error

	// Disconnect closes the connection.
	Disconnect()

	// State returns the current connection state.
	State() State

	// Send writes one binary message.
	Send(data []byte) error

	// SendPing sends a transport-level ping frame.
	SendPing() error
}

// Compile-time interface satisfaction check.
var _ Connection = (*Socket)(nil)
