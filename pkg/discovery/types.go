package discovery

import (
	"errors"
	"time"
)

// Service type constants for mDNS.
const (
	// ServiceTypeLinkable is the service type for devices awaiting provisioning.
	ServiceTypeLinkable = "_devlinkl._tcp"

	// ServiceTypePrimary is the service type for primary devices.
	ServiceTypePrimary = "_devlink._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultPort is the default DEVLINK port.
	DefaultPort = 8443
)

// TXT record key constants.
const (
	// Common TXT keys
	TXTKeyProtocolVersion = "pv" // Protocol version ("major.minor")

	// Linkable TXT keys
	TXTKeyAddress     = "uuid"  // Provisioning address (UUID)
	TXTKeyFingerprint = "kf"    // Ephemeral key fingerprint (16 hex chars)
	TXTKeyDeviceName  = "DN"    // Device name (optional, user-configurable)
	TXTKeyBrand       = "brand" // Vendor/brand name (optional)
	TXTKeyModel       = "model" // Model name (optional)

	// Primary TXT keys
	TXTKeyDeviceID = "DI" // Primary device fingerprint (16 hex chars)
	// Also uses: pv (protocol version), DN (device name)
)

// Timing constants.
const (
	// LinkingWindowDuration is how long a linkable advertisement stays up.
	// Matches the lifetime of the ephemeral provisioning address.
	LinkingWindowDuration = 10 * time.Minute

	// BrowseTimeout is the default timeout for mDNS browsing.
	BrowseTimeout = 10 * time.Second
)

// Limits.
const (
	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63

	// MaxTXTRecordSize is the maximum total TXT record size.
	MaxTXTRecordSize = 400

	// FingerprintLength is the length of key fingerprints (16 hex chars = 64 bits).
	FingerprintLength = 16
)

// Discovery errors.
var (
	ErrInvalidTXTRecord    = errors.New("invalid TXT record format")
	ErrInvalidFingerprint  = errors.New("invalid key fingerprint")
	ErrInvalidAddress      = errors.New("invalid provisioning address")
	ErrMissingRequired     = errors.New("missing required field")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
	ErrIncompatibleVersion = errors.New("incompatible protocol version")
	ErrNotFound            = errors.New("service not found")
	ErrBrowseTimeout       = errors.New("browse timeout")
)

// AnnounceState represents the device's linking announcement state.
type AnnounceState uint8

const (
	// AnnounceIdle - nothing is advertised.
	AnnounceIdle AnnounceState = iota

	// AnnounceLinkable - linking window is open (_devlinkl._tcp advertised).
	AnnounceLinkable

	// AnnouncePrimary - device advertises as a primary (_devlink._tcp).
	AnnouncePrimary
)

// String returns the state name.
func (s AnnounceState) String() string {
	switch s {
	case AnnounceIdle:
		return "IDLE"
	case AnnounceLinkable:
		return "LINKABLE"
	case AnnouncePrimary:
		return "PRIMARY"
	default:
		return "UNKNOWN"
	}
}

// LinkableService represents a device awaiting provisioning found via mDNS.
type LinkableService struct {
	// InstanceName is the mDNS instance name (e.g., "DEVLINK-a1b2c3d4e5f6a7b8").
	InstanceName string

	// Host is the hostname (e.g., "phone-001.local").
	Host string

	// Port is the service port.
	Port uint16

	// Addresses contains resolved IP addresses.
	Addresses []string

	// Address is the provisioning address (from TXT "uuid").
	Address string

	// Fingerprint is the ephemeral key fingerprint (from TXT "kf").
	Fingerprint string

	// DeviceName is the optional user-configurable name (from TXT "DN").
	DeviceName string

	// Brand is the optional vendor/brand name (from TXT "brand").
	Brand string

	// Model is the optional model name (from TXT "model").
	Model string
}

// PrimaryService represents a primary device found via mDNS.
type PrimaryService struct {
	// InstanceName is the mDNS instance name.
	InstanceName string

	// Host is the hostname.
	Host string

	// Port is the service port.
	Port uint16

	// Addresses contains resolved IP addresses.
	Addresses []string

	// DeviceID is the primary's fingerprint (from TXT "DI").
	DeviceID string

	// DeviceName is the optional device name (from TXT "DN").
	DeviceName string
}

// LinkableInfo contains information for advertising a linkable device.
type LinkableInfo struct {
	// Address is the provisioning address assigned by the endpoint.
	Address string

	// Fingerprint is the ephemeral key fingerprint (16 hex chars).
	Fingerprint string

	// DeviceName is an optional user-configurable name.
	DeviceName string

	// Brand is an optional vendor/brand name.
	Brand string

	// Model is an optional model name.
	Model string

	// Port is the service port.
	Port uint16

	// Host is the hostname to advertise.
	Host string
}

// Validate checks if the LinkableInfo is valid.
func (i *LinkableInfo) Validate() error {
	if i.Address == "" {
		return ErrMissingRequired
	}
	if !ValidateFingerprint(i.Fingerprint) {
		return ErrInvalidFingerprint
	}
	return nil
}

// PrimaryInfo contains information for advertising a primary device.
type PrimaryInfo struct {
	// DeviceID is the primary's fingerprint (16 hex chars).
	DeviceID string

	// DeviceName is an optional device name.
	DeviceName string

	// Port is the service port.
	Port uint16

	// Host is the hostname to advertise.
	Host string
}

// Validate checks if the PrimaryInfo is valid.
func (i *PrimaryInfo) Validate() error {
	if !ValidateFingerprint(i.DeviceID) {
		return ErrInvalidFingerprint
	}
	return nil
}
