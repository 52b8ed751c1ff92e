package realtime

import "errors"

// Delivery errors. They are isolated to one recipient.
var (
	// ErrNotConnected is returned by SendTo when the identity has no live connection.
	ErrNotConnected = errors.New("user is not connected")

	// ErrTransportFailure wraps a failed write to a peer. The peer has been evicted.
	ErrTransportFailure = errors.New("transport failure")

	// ErrBroadcasterStopped is returned for requests that reach a stopped broadcaster.
	ErrBroadcasterStopped = errors.New("broadcaster stopped")
)

// Protocol errors. Their text is sent back to the client verbatim and the
// connection stays open.
var (
	// ErrMalformedFrame means the frame is not a JSON object.
	ErrMalformedFrame = errors.New("invalid format")

	// ErrInvalidShape means the object has no string "message" field.
	ErrInvalidShape = errors.New("invalid message format")

	// ErrMessageTooLong means the message exceeds the configured maximum length.
	ErrMessageTooLong = errors.New("message too long")
)
