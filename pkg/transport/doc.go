// Package transport provides the WebSocket transport for DEVLINK
// provisioning.
//
// A Socket owns one persistent WebSocket connection to a provisioning
// endpoint. Binary messages are delivered to the application through a
// Handler in arrival order from a single reader goroutine; the transport
// never reorders or buffers frames. Heartbeat pings use the WebSocket
// ping control frame and carry no application payload.
//
// The package also defines the small repeating-task Scheduler abstraction
// the provisioning layer uses for its heartbeat timer, with a
// time.Ticker-backed production implementation.
package transport
