// Package log provides structured protocol logging for DEVLINK.
//
// This package defines the Logger interface and Event types for capturing
// protocol-level events at multiple layers (transport, wire, provisioning).
// It is separate from operational logging (slog) - protocol capture provides
// a complete machine-readable event trace for debugging a linking session.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.Logger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.Logger, _ = log.NewFileLogger("/var/log/devlink/link.dlog")
//
//	// Both: use MultiLogger
//	cfg.Logger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    log.NewFileLogger("/var/log/devlink/link.dlog"),
//	)
//
// # Event Types
//
// Events are captured at multiple layers:
//   - Transport: raw WebSocket frames (FrameEvent)
//   - Wire: decoded requests and responses (MessageEvent)
//   - Provisioning: socket state changes (StateChangeEvent)
//
// Heartbeat pings and errors have dedicated event types.
//
// # File Format
//
// Log files use CBOR encoding with .dlog extension. Reader streams events
// back out of a capture file, optionally filtered.
package log
