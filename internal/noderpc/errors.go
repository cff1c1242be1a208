package noderpc

import "errors"

var (
	// ErrTransport marks failures reaching the node: connection refused,
	// timeout, or a non-2xx HTTP status.
	ErrTransport = errors.New("node transport failure")
	// ErrMalformedResponse marks a transport-level success whose body does
	// not carry the expected result shape. It usually means a node or
	// protocol version mismatch and is never coerced to empty data.
	ErrMalformedResponse = errors.New("malformed node response")
)
