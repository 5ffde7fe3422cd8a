package wire

import (
	"fmt"
)

// Provisioning routes. The provisioning service only ever issues PUT
// requests; anything else is rejected as an unexpected request.
const (
	// VerbPut is the verb used for both provisioning routes.
	VerbPut = "PUT"

	// PathAddress delivers the ephemeral provisioning address.
	PathAddress = "/v1/address"

	// PathMessage delivers the encrypted provisioning envelope.
	PathMessage = "/v1/message"
)

// FrameType distinguishes requests from responses.
type FrameType uint8

const (
	// FrameRequest indicates the frame carries a Request.
	FrameRequest FrameType = 1

	// FrameResponse indicates the frame carries a Response.
	FrameResponse FrameType = 2
)

// String returns the frame type name.
func (t FrameType) String() string {
	switch t {
	case FrameRequest:
		return "REQUEST"
	case FrameResponse:
		return "RESPONSE"
	default:
		return "UNKNOWN"
	}
}

// IsValid returns true for known frame types.
func (t FrameType) IsValid() bool {
	return t == FrameRequest || t == FrameResponse
}

// Frame is one provisioning protocol message. Exactly one of Request and
// Response is expected to be set, matching Type; a request frame without an
// embedded Request is tolerated on receive and dropped by the caller.
//
// CBOR encoding:
//
//	{
//	  1: type,      // uint8: 1=request, 2=response
//	  2: request,   // Request (request frames only)
//	  3: response   // Response (response frames only)
//	}
type Frame struct {
	Type     FrameType `cbor:"1,keyasint"`
	Request  *Request  `cbor:"2,keyasint,omitempty"`
	Response *Response `cbor:"3,keyasint,omitempty"`
}

// Validate checks that the frame type is known.
func (f *Frame) Validate() error {
	if !f.Type.IsValid() {
		return fmt.Errorf("invalid frame type: %d", f.Type)
	}
	return nil
}

// Request is an inbound provisioning request.
//
// CBOR encoding:
//
//	{
//	  1: id,     // uint64: correlates the acknowledgement
//	  2: verb,   // string: method name
//	  3: path,   // string: routing key
//	  4: body    // bytes: opaque payload (optional)
//	}
type Request struct {
	ID   uint64 `cbor:"1,keyasint"`
	Verb string `cbor:"2,keyasint"`
	Path string `cbor:"3,keyasint"`
	Body []byte `cbor:"4,keyasint,omitempty"`
}

// Validate checks that the request has a verb and a path.
func (r *Request) Validate() error {
	if r.Verb == "" {
		return fmt.Errorf("request verb is empty")
	}
	if r.Path == "" {
		return fmt.Errorf("request path is empty")
	}
	return nil
}

// Response acknowledges a request with a numeric status and short reason.
//
// CBOR encoding:
//
//	{
//	  1: id,       // uint64: matches the request ID
//	  2: status,   // uint16
//	  3: message,  // string: short reason (optional)
//	  4: body      // bytes (optional)
//	}
type Response struct {
	ID      uint64 `cbor:"1,keyasint"`
	Status  Status `cbor:"2,keyasint"`
	Message string `cbor:"3,keyasint,omitempty"`
	Body    []byte `cbor:"4,keyasint,omitempty"`
}

// IsSuccess returns true if the response indicates success.
func (r *Response) IsSuccess() bool {
	return r.Status.IsSuccess()
}

// ProvisioningAddress is the payload of a PUT /v1/address request. It
// assigns the ephemeral address the primary device uses to reach this
// client during linking.
//
// CBOR encoding: { 1: address }
type ProvisioningAddress struct {
	Address string `cbor:"1,keyasint"`
}

// Validate checks that an address was assigned.
func (a *ProvisioningAddress) Validate() error {
	if a.Address == "" {
		return fmt.Errorf("provisioning address is empty")
	}
	return nil
}

// ProvisioningEnvelope is the payload of a PUT /v1/message request: the
// sender's ephemeral public key plus the encrypted provisioning message.
// The envelope body is opaque at this layer; see the provisioning package
// for the cipher.
//
// CBOR encoding: { 1: publicKey, 2: body }
type ProvisioningEnvelope struct {
	PublicKey []byte `cbor:"1,keyasint"`
	Body      []byte `cbor:"2,keyasint"`
}

// Validate checks that the envelope carries a key and a body.
func (e *ProvisioningEnvelope) Validate() error {
	if len(e.PublicKey) == 0 {
		return fmt.Errorf("envelope public key is empty")
	}
	if len(e.Body) == 0 {
		return fmt.Errorf("envelope body is empty")
	}
	return nil
}
