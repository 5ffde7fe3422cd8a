package discovery

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/devlink-protocol/devlink-go/pkg/version"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeLinkableTXT creates TXT records for linkable discovery.
func EncodeLinkableTXT(info *LinkableInfo) TXTRecordMap {
	txt := make(TXTRecordMap)

	// Required fields
	txt[TXTKeyProtocolVersion] = version.Current
	txt[TXTKeyAddress] = info.Address
	txt[TXTKeyFingerprint] = info.Fingerprint

	// Optional fields
	if info.DeviceName != "" {
		txt[TXTKeyDeviceName] = info.DeviceName
	}
	if info.Brand != "" {
		txt[TXTKeyBrand] = info.Brand
	}
	if info.Model != "" {
		txt[TXTKeyModel] = info.Model
	}

	return txt
}

// DecodeLinkableTXT parses TXT records from linkable discovery.
func DecodeLinkableTXT(txt TXTRecordMap) (*LinkableInfo, error) {
	info := &LinkableInfo{}

	if err := checkProtocolVersion(txt); err != nil {
		return nil, err
	}

	// Parse provisioning address (required)
	var ok bool
	info.Address, ok = txt[TXTKeyAddress]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyAddress)
	}
	if _, err := uuid.Parse(info.Address); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAddress, info.Address)
	}

	// Parse key fingerprint (required)
	info.Fingerprint, ok = txt[TXTKeyFingerprint]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyFingerprint)
	}
	if !ValidateFingerprint(info.Fingerprint) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFingerprint, info.Fingerprint)
	}

	// Optional fields
	info.DeviceName = txt[TXTKeyDeviceName]
	info.Brand = txt[TXTKeyBrand]
	info.Model = txt[TXTKeyModel]

	return info, nil
}

// EncodePrimaryTXT creates TXT records for primary discovery.
func EncodePrimaryTXT(info *PrimaryInfo) TXTRecordMap {
	txt := make(TXTRecordMap)

	// Required fields
	txt[TXTKeyProtocolVersion] = version.Current
	txt[TXTKeyDeviceID] = info.DeviceID

	// Optional fields
	if info.DeviceName != "" {
		txt[TXTKeyDeviceName] = info.DeviceName
	}

	return txt
}

// DecodePrimaryTXT parses TXT records from primary discovery.
func DecodePrimaryTXT(txt TXTRecordMap) (*PrimaryInfo, error) {
	info := &PrimaryInfo{}

	if err := checkProtocolVersion(txt); err != nil {
		return nil, err
	}

	// Parse device fingerprint (required)
	var ok bool
	info.DeviceID, ok = txt[TXTKeyDeviceID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyDeviceID)
	}
	if !ValidateFingerprint(info.DeviceID) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFingerprint, info.DeviceID)
	}

	// Optional fields
	info.DeviceName = txt[TXTKeyDeviceName]

	return info, nil
}

// checkProtocolVersion validates the advertised protocol version, if present.
// Records without a version key are accepted for interoperability with older
// advertisers.
func checkProtocolVersion(txt TXTRecordMap) error {
	pv, ok := txt[TXTKeyProtocolVersion]
	if !ok {
		return nil
	}

	advertised, err := version.Parse(pv)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidTXTRecord, pv)
	}

	current, _ := version.Parse(version.Current)
	if !current.Compatible(advertised) {
		return fmt.Errorf("%w: %s", ErrIncompatibleVersion, pv)
	}
	return nil
}

// TXTRecordsToStrings converts a TXTRecordMap to a slice of "key=value" strings.
// This format is commonly used by mDNS libraries.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			// Key without value (boolean flag)
			txt[parts[0]] = ""
		}
	}
	return txt
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInstanceNameTooLong)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}

// LinkableInstanceName creates the instance name for linkable discovery.
//
// Format: DEVLINK-<fingerprint>
func LinkableInstanceName(fingerprint string) string {
	return fmt.Sprintf("DEVLINK-%s", fingerprint)
}

// FingerprintFromInstanceName extracts the fingerprint from a linkable
// instance name.
func FingerprintFromInstanceName(name string) (string, error) {
	if !strings.HasPrefix(name, "DEVLINK-") {
		return "", ErrInvalidTXTRecord
	}
	fp := strings.TrimPrefix(name, "DEVLINK-")
	if !ValidateFingerprint(fp) {
		return "", ErrInvalidFingerprint
	}
	return fp, nil
}
