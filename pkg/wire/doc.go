// Package wire defines the DEVLINK provisioning wire format.
//
// Every WebSocket binary message carries exactly one Frame, CBOR-encoded
// with integer map keys. A frame is either a request (verb + path + optional
// body) or a response (numeric status + short reason). The two payload
// records a linking client decodes from request bodies are
// ProvisioningAddress and ProvisioningEnvelope.
//
// Encoding is deterministic (canonical key order); decoding is lenient so
// that newer peers can add fields without breaking older clients.
package wire
