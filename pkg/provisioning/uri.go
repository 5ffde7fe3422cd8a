package provisioning

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// URIScheme is the scheme of a provisioning URI.
const URIScheme = "devlink"

// Provisioning URI errors.
var (
	ErrInvalidURIScheme = errors.New("invalid provisioning URI scheme")
	ErrMissingUUID      = errors.New("provisioning URI missing uuid")
	ErrInvalidUUID      = errors.New("provisioning URI has invalid uuid")
	ErrMissingPublicKey = errors.New("provisioning URI missing pub_key")
	ErrInvalidPublicKey = errors.New("provisioning URI has invalid pub_key")
)

// URI carries the address and ephemeral public key a linking device
// presents to the primary, typically rendered as a QR code.
//
// Format: devlink:/?uuid=<device-address>&pub_key=<base64url key>
type URI struct {
	// UUID is the provisioning address assigned by the server.
	UUID string

	// PublicKey is the linking device's ephemeral Curve25519 public key.
	PublicKey []byte
}

// NewURI creates a provisioning URI from an assigned address and the
// client's ephemeral public key.
func NewURI(address string, publicKey []byte) (*URI, error) {
	if _, err := uuid.Parse(address); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidUUID, address)
	}
	if len(publicKey) != KeySize {
		return nil, ErrInvalidPublicKey
	}
	return &URI{UUID: address, PublicKey: publicKey}, nil
}

// ParseURI parses a provisioning URI string.
func ParseURI(content string) (*URI, error) {
	u, err := url.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse provisioning URI: %w", err)
	}
	if !strings.EqualFold(u.Scheme, URIScheme) {
		return nil, ErrInvalidURIScheme
	}

	query := u.Query()

	address := query.Get("uuid")
	if address == "" {
		return nil, ErrMissingUUID
	}
	if _, err := uuid.Parse(address); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidUUID, address)
	}

	encoded := query.Get("pub_key")
	if encoded == "" {
		return nil, ErrMissingPublicKey
	}
	key, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	if len(key) != KeySize {
		return nil, ErrInvalidPublicKey
	}

	return &URI{UUID: address, PublicKey: key}, nil
}

// String returns the URI as a string suitable for QR encoding.
func (u *URI) String() string {
	query := url.Values{}
	query.Set("uuid", u.UUID)
	query.Set("pub_key", base64.URLEncoding.EncodeToString(u.PublicKey))
	return fmt.Sprintf("%s:/?%s", URIScheme, query.Encode())
}
