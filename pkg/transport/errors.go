package transport

import "errors"

// Transport errors.
var (
	// ErrClosed is returned when an operation is attempted on a closed socket.
	ErrClosed = errors.New("transport: closed")

	// ErrUnsupportedScheme is returned when the endpoint URL scheme is
	// neither ws nor wss.
	ErrUnsupportedScheme = errors.New("transport: unsupported URL scheme")

	// ErrNoHandler is returned when no message handler is configured.
	ErrNoHandler = errors.New("transport: no message handler configured")

	// ErrSendFailed is returned when writing a frame fails.
	ErrSendFailed = errors.New("transport: send failed")
)
