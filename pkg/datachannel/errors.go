package datachannel

import "errors"

// Data channel protocol errors.
var (
	// ErrNoChannel is returned when no channel is configured.
	ErrNoChannel = errors.New("datachannel: no channel configured")

	// ErrChannelNotOpen is returned when a request is attempted
	// before the channel is open.
	ErrChannelNotOpen = errors.New("datachannel: channel not open")

	// ErrChannelClosed is returned to waiters when the channel closes
	// with their request still pending.
	ErrChannelClosed = errors.New("datachannel: channel closed")

	// ErrInvalidBody is returned when a request body does not encode
	// to a JSON object.
	ErrInvalidBody = errors.New("datachannel: request body must be a JSON object")

	// ErrUnsupportedPayload marks inbound binary payloads, which the
	// protocol rejects outright.
	ErrUnsupportedPayload = errors.New("datachannel: binary payloads not supported")
)
