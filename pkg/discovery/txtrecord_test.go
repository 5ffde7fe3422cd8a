package discovery

import (
	"errors"
	"testing"
)

const (
	testAddress     = "3f8c2a1e-9b4d-4c6f-8a2e-1d5b7c9e0f31"
	testFingerprint = "a1b2c3d4e5f6a7b8"
)

func TestLinkableTXT_RoundTrip(t *testing.T) {
	info := &LinkableInfo{
		Address:     testAddress,
		Fingerprint: testFingerprint,
		DeviceName:  "Living Room Tablet",
		Brand:       "Acme",
		Model:       "T42",
	}

	txt := EncodeLinkableTXT(info)
	got, err := DecodeLinkableTXT(txt)
	if err != nil {
		t.Fatalf("DecodeLinkableTXT failed: %v", err)
	}

	if got.Address != info.Address {
		t.Errorf("Address = %q, want %q", got.Address, info.Address)
	}
	if got.Fingerprint != info.Fingerprint {
		t.Errorf("Fingerprint = %q, want %q", got.Fingerprint, info.Fingerprint)
	}
	if got.DeviceName != info.DeviceName {
		t.Errorf("DeviceName = %q, want %q", got.DeviceName, info.DeviceName)
	}
	if got.Brand != info.Brand || got.Model != info.Model {
		t.Errorf("Brand/Model = %q/%q, want %q/%q", got.Brand, got.Model, info.Brand, info.Model)
	}
}

func TestLinkableTXT_OptionalFieldsOmitted(t *testing.T) {
	txt := EncodeLinkableTXT(&LinkableInfo{
		Address:     testAddress,
		Fingerprint: testFingerprint,
	})

	if _, ok := txt[TXTKeyDeviceName]; ok {
		t.Error("empty device name should not be encoded")
	}
	if _, ok := txt[TXTKeyBrand]; ok {
		t.Error("empty brand should not be encoded")
	}
}

func TestLinkableTXT_ProtocolVersion(t *testing.T) {
	txt := EncodeLinkableTXT(&LinkableInfo{
		Address:     testAddress,
		Fingerprint: testFingerprint,
	})

	if txt[TXTKeyProtocolVersion] != "1.0" {
		t.Errorf("pv = %q, want %q", txt[TXTKeyProtocolVersion], "1.0")
	}

	// Incompatible major version is rejected
	txt[TXTKeyProtocolVersion] = "2.0"
	if _, err := DecodeLinkableTXT(txt); !errors.Is(err, ErrIncompatibleVersion) {
		t.Errorf("expected ErrIncompatibleVersion, got %v", err)
	}

	// Unparseable version is rejected
	txt[TXTKeyProtocolVersion] = "abc"
	if _, err := DecodeLinkableTXT(txt); !errors.Is(err, ErrInvalidTXTRecord) {
		t.Errorf("expected ErrInvalidTXTRecord, got %v", err)
	}

	// Missing version is tolerated
	delete(txt, TXTKeyProtocolVersion)
	if _, err := DecodeLinkableTXT(txt); err != nil {
		t.Errorf("expected missing pv to be tolerated, got %v", err)
	}
}

func TestDecodeLinkableTXT_Errors(t *testing.T) {
	tests := []struct {
		name string
		txt  TXTRecordMap
		want error
	}{
		{
			name: "MissingAddress",
			txt:  TXTRecordMap{TXTKeyFingerprint: testFingerprint},
			want: ErrMissingRequired,
		},
		{
			name: "InvalidAddress",
			txt:  TXTRecordMap{TXTKeyAddress: "not-a-uuid", TXTKeyFingerprint: testFingerprint},
			want: ErrInvalidAddress,
		},
		{
			name: "MissingFingerprint",
			txt:  TXTRecordMap{TXTKeyAddress: testAddress},
			want: ErrMissingRequired,
		},
		{
			name: "ShortFingerprint",
			txt:  TXTRecordMap{TXTKeyAddress: testAddress, TXTKeyFingerprint: "abc"},
			want: ErrInvalidFingerprint,
		},
		{
			name: "NonHexFingerprint",
			txt:  TXTRecordMap{TXTKeyAddress: testAddress, TXTKeyFingerprint: "zzzzzzzzzzzzzzzz"},
			want: ErrInvalidFingerprint,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeLinkableTXT(tt.txt)
			if !errors.Is(err, tt.want) {
				t.Errorf("DecodeLinkableTXT error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPrimaryTXT_RoundTrip(t *testing.T) {
	info := &PrimaryInfo{
		DeviceID:   testFingerprint,
		DeviceName: "Kitchen Phone",
	}

	got, err := DecodePrimaryTXT(EncodePrimaryTXT(info))
	if err != nil {
		t.Fatalf("DecodePrimaryTXT failed: %v", err)
	}
	if got.DeviceID != info.DeviceID {
		t.Errorf("DeviceID = %q, want %q", got.DeviceID, info.DeviceID)
	}
	if got.DeviceName != info.DeviceName {
		t.Errorf("DeviceName = %q, want %q", got.DeviceName, info.DeviceName)
	}
}

func TestDecodePrimaryTXT_MissingDeviceID(t *testing.T) {
	_, err := DecodePrimaryTXT(TXTRecordMap{TXTKeyDeviceName: "Kitchen Phone"})
	if !errors.Is(err, ErrMissingRequired) {
		t.Errorf("error = %v, want %v", err, ErrMissingRequired)
	}
}

func TestTXTRecordsStringConversion(t *testing.T) {
	txt := TXTRecordMap{
		"uuid": testAddress,
		"kf":   testFingerprint,
	}

	strs := TXTRecordsToStrings(txt)
	if len(strs) != 2 {
		t.Fatalf("got %d strings, want 2", len(strs))
	}

	back := StringsToTXTRecords(strs)
	if back["uuid"] != testAddress || back["kf"] != testFingerprint {
		t.Errorf("round trip mismatch: %v", back)
	}
}

func TestStringsToTXTRecords_BooleanFlag(t *testing.T) {
	txt := StringsToTXTRecords([]string{"flag", "k=v"})
	if v, ok := txt["flag"]; !ok || v != "" {
		t.Errorf("boolean flag not preserved: %v", txt)
	}
	if txt["k"] != "v" {
		t.Errorf("k = %q, want v", txt["k"])
	}
}

func TestLinkableInstanceName(t *testing.T) {
	name := LinkableInstanceName(testFingerprint)
	if name != "DEVLINK-"+testFingerprint {
		t.Errorf("name = %q", name)
	}
	if err := ValidateInstanceName(name); err != nil {
		t.Errorf("ValidateInstanceName failed: %v", err)
	}

	fp, err := FingerprintFromInstanceName(name)
	if err != nil {
		t.Fatalf("FingerprintFromInstanceName failed: %v", err)
	}
	if fp != testFingerprint {
		t.Errorf("fp = %q, want %q", fp, testFingerprint)
	}
}

func TestFingerprintFromInstanceName_Errors(t *testing.T) {
	if _, err := FingerprintFromInstanceName("OTHER-1234"); !errors.Is(err, ErrInvalidTXTRecord) {
		t.Errorf("wrong prefix: error = %v", err)
	}
	if _, err := FingerprintFromInstanceName("DEVLINK-xyz"); !errors.Is(err, ErrInvalidFingerprint) {
		t.Errorf("bad fingerprint: error = %v", err)
	}
}

func TestValidateInstanceName_TooLong(t *testing.T) {
	long := make([]byte, MaxInstanceNameLen+1)
	for i := range long {
		long[i] = 'a'
	}
	if err := ValidateInstanceName(string(long)); !errors.Is(err, ErrInstanceNameTooLong) {
		t.Errorf("error = %v, want %v", err, ErrInstanceNameTooLong)
	}
}
