// Package provisioning implements the DEVLINK device-linking socket.
//
// A Socket bridges the WebSocket transport to the small fixed request
// protocol used during linking: the endpoint assigns the client an
// ephemeral provisioning address (PUT /v1/address) and later delivers the
// encrypted provisioning envelope from the primary device
// (PUT /v1/message). Every received request is acknowledged with
// (200, "OK"). A repeating heartbeat ping keeps intermediaries from
// closing the idle connection.
//
// Protocol-level failures (missing body, decode failure, unrecognized
// route, acknowledgement send failure) are logged and absorbed; the
// session continues. Only a transport-level disconnect with a cause
// reaches the Delegate's OnError. The socket never reconnects; the owning
// controller restarts provisioning with a fresh Socket.
//
// The package also provides the envelope cipher (ephemeral Curve25519 +
// HKDF + AES-CBC + HMAC) and the provisioning URI the application renders
// as a QR code.
package provisioning
