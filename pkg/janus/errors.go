package janus

import (
	"errors"
	"fmt"
)

var (
	// ErrNoURL indicates a Config without a gateway URL.
	ErrNoURL = errors.New("janus: no gateway URL configured")
	// ErrNotConnected indicates an operation that requires a live session.
	ErrNotConnected = errors.New("janus: not connected")
	// ErrAlreadyConnected indicates Connect on a live connection.
	ErrAlreadyConnected = errors.New("janus: already connected")
	// ErrConnectionClosed indicates the connection went away while an
	// operation was in flight.
	ErrConnectionClosed = errors.New("janus: connection closed")
	// ErrSessionExpired indicates the gateway timed the session out.
	ErrSessionExpired = errors.New("janus: session expired")
	// ErrProtocolViolation indicates a frame that breaks the protocol
	// contract, such as a reply without a transaction.
	ErrProtocolViolation = errors.New("janus: protocol violation")
	// ErrHandleDetached indicates an operation on a detached handle.
	ErrHandleDetached = errors.New("janus: handle detached")
	// ErrNoPlugin indicates an attach request without a plugin name.
	ErrNoPlugin = errors.New("janus: no plugin specified")
	// ErrNoMediaTransport indicates a media operation on a handle that
	// was attached without a media transport.
	ErrNoMediaTransport = errors.New("janus: no media transport")
	// ErrNoDataChannel indicates a data request before OpenDataChannel.
	ErrNoDataChannel = errors.New("janus: no data channel open")
	// ErrInvalidHandleID indicates an attach reply without a usable id.
	ErrInvalidHandleID = errors.New("janus: invalid handle ID")
)

// Gateway error codes reported by the Janus core.
const (
	CodeUnauthorized          = 403
	CodeUnauthorizedPlugin    = 405
	CodeTransportSpecific     = 450
	CodeMissingRequest        = 452
	CodeUnknownRequest        = 453
	CodeInvalidJSON           = 454
	CodeInvalidJSONObject     = 455
	CodeMissingMandatoryField = 456
	CodeInvalidRequestPath    = 457
	CodeSessionNotFound       = 458
	CodeHandleNotFound        = 459
	CodePluginNotFound        = 460
	CodePluginAttach          = 461
	CodePluginMessage         = 462
	CodePluginDetach          = 463
	CodeUnknownJSEPType       = 464
	CodeInvalidSDP            = 465
	CodeTrickleInvalidStream  = 466
	CodeInvalidElementType    = 467
	CodeSessionConflict       = 468
	CodeUnexpectedAnswer      = 469
	CodeTokenNotFound         = 470
	CodeUnknown               = 490
)

// GatewayError is an error reported by the Janus core in response to
// a request, carrying the numeric code and reason from the gateway.
type GatewayError struct {
	Code   int
	Reason string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("janus: gateway error %d: %s", e.Code, e.Reason)
}
