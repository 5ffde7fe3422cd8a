package transport

import (
	"fmt"
	"net/url"
	"strings"
)

// ProvisioningPath is the WebSocket path for device provisioning.
const ProvisioningPath = "/v1/provisioning/"

// EndpointURL builds the provisioning WebSocket URL for a host.
// The host may include a port.
func EndpointURL(host string) string {
	return fmt.Sprintf("wss://%s%s", host, ProvisioningPath)
}

// ValidateEndpoint checks that raw is a usable WebSocket URL.
func ValidateEndpoint(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid endpoint URL: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "ws", "wss":
	default:
		return fmt.Errorf("endpoint scheme must be ws or wss, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("endpoint host is empty")
	}
	return nil
}
