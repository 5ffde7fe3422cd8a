package discovery

import (
	"crypto/sha256"
	"encoding/hex"
)

// KeyFingerprint generates a fingerprint from a raw Curve25519 public key.
//
// The fingerprint is the first 64 bits (16 hex chars) of SHA-256(key).
func KeyFingerprint(publicKey []byte) string {
	hash := sha256.Sum256(publicKey)
	return hex.EncodeToString(hash[:8])
}

// ValidateFingerprint checks if a string is a valid 64-bit fingerprint
// (16 hex chars).
func ValidateFingerprint(fp string) bool {
	if len(fp) != FingerprintLength {
		return false
	}
	return isHexString(fp)
}

// isHexString checks if a string contains only valid hex characters.
func isHexString(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
