// Package discovery implements mDNS/DNS-SD discovery for DEVLINK devices.
//
// DEVLINK uses two mDNS service types:
//
// # Linkable Discovery (_devlinkl._tcp)
//
// A device awaiting provisioning advertises this service for the duration of
// its linking window, so a primary on the same network can find it without
// scanning the provisioning QR code. Instance name format: DEVLINK-<fp> where
// fp is the short fingerprint of the device's ephemeral public key.
// TXT records include: uuid (provisioning address), kf (key fingerprint),
// and optionally DN (device name), brand, model.
//
// # Primary Discovery (_devlink._tcp)
//
// A primary device advertises this service to signal it can deliver
// provisioning envelopes. Instance name is the primary's device name.
// TXT records include: DI (device fingerprint) and optionally DN.
//
// # Key Fingerprint
//
// Fingerprints are the first 64 bits (16 hex chars) of SHA-256 over the raw
// Curve25519 public key. They identify a linking attempt on the wire without
// exposing the full key in instance names.
package discovery
