package wire

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the CBOR encoder mode for DEVLINK messages.
// Configured for deterministic encoding with integer keys.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode for DEVLINK messages.
var decMode cbor.DecMode

func init() {
	var err error

	// Configure encoder for deterministic output
	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeUnix,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	// Configure decoder to be lenient for forward compatibility
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// Marshal encodes a value to CBOR bytes.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR bytes into a value.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// NewEncoder creates a new CBOR encoder that writes to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder creates a new CBOR decoder that reads from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}

// EncodeFrame encodes a frame to CBOR bytes.
func EncodeFrame(f *Frame) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid frame: %w", err)
	}
	return Marshal(f)
}

// DecodeFrame decodes CBOR bytes into a frame.
func DecodeFrame(data []byte) (*Frame, error) {
	var f Frame
	if err := Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid frame: %w", err)
	}
	return &f, nil
}

// NewRequestFrame wraps a request in a frame.
func NewRequestFrame(req *Request) *Frame {
	return &Frame{Type: FrameRequest, Request: req}
}

// NewResponseFrame wraps a response in a frame.
func NewResponseFrame(resp *Response) *Frame {
	return &Frame{Type: FrameResponse, Response: resp}
}

// EncodeProvisioningAddress encodes an address-assignment payload.
func EncodeProvisioningAddress(a *ProvisioningAddress) ([]byte, error) {
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("invalid provisioning address: %w", err)
	}
	return Marshal(a)
}

// DecodeProvisioningAddress decodes an address-assignment payload.
func DecodeProvisioningAddress(data []byte) (*ProvisioningAddress, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("provisioning address body is empty")
	}
	var a ProvisioningAddress
	if err := Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to decode provisioning address: %w", err)
	}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("invalid provisioning address: %w", err)
	}
	return &a, nil
}

// EncodeProvisioningEnvelope encodes an envelope payload.
func EncodeProvisioningEnvelope(e *ProvisioningEnvelope) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("invalid provisioning envelope: %w", err)
	}
	return Marshal(e)
}

// DecodeProvisioningEnvelope decodes an envelope payload.
func DecodeProvisioningEnvelope(data []byte) (*ProvisioningEnvelope, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("provisioning envelope body is empty")
	}
	var e ProvisioningEnvelope
	if err := Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to decode provisioning envelope: %w", err)
	}
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("invalid provisioning envelope: %w", err)
	}
	return &e, nil
}
