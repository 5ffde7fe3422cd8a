package wire

// Status is the numeric acknowledgement status of a response. Values follow
// the HTTP status space so acknowledgements read naturally in traces.
type Status uint16

const (
	// StatusOK acknowledges a received request.
	StatusOK Status = 200

	// StatusBadRequest indicates a request the peer could not parse.
	StatusBadRequest Status = 400

	// StatusNotFound indicates an unrecognized route.
	StatusNotFound Status = 404

	// StatusInternalError indicates a peer-side failure.
	StatusInternalError Status = 500
)

// String returns the canonical reason phrase for the status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusBadRequest:
		return "Bad Request"
	case StatusNotFound:
		return "Not Found"
	case StatusInternalError:
		return "Internal Error"
	default:
		return "Unknown"
	}
}

// IsSuccess returns true for 2xx statuses.
func (s Status) IsSuccess() bool {
	return s >= 200 && s < 300
}
