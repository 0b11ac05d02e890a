// Package message implements the JSON wire format spoken by a Janus
// WebRTC gateway over its WebSocket transport.
//
// The package provides:
//   - Message kind enumeration with wire-name mapping
//   - Inbound envelope decoding (responses and unsolicited events)
//   - Outbound request encoding
//   - JSEP, trickle candidate, and plugin payload types
//   - Gateway and plugin error payloads
package message

import "encoding/json"

// Kind identifies the type of a gateway message. It is carried
// in the "janus" field of every frame.
type Kind int

const (
	// KindUnknown marks a kind this package does not recognize.
	// Unknown kinds decode without error so callers can log and
	// drop them instead of failing the read loop.
	KindUnknown Kind = iota

	// KindCreate requests a new gateway session.
	KindCreate

	// KindClaim rebinds an existing session to a new connection.
	KindClaim

	// KindAttach creates a plugin handle within a session.
	KindAttach

	// KindMessage carries a plugin request body (and optional JSEP).
	KindMessage

	// KindTrickle carries one or more ICE candidates, or the
	// end-of-candidates marker.
	KindTrickle

	// KindDetach releases a plugin handle.
	KindDetach

	// KindDestroy releases a session.
	KindDestroy

	// KindKeepAlive refreshes the gateway session timeout.
	KindKeepAlive

	// KindInfo requests the gateway's server information.
	KindInfo

	// KindSuccess is a successful synchronous response.
	KindSuccess

	// KindAck acknowledges receipt of an asynchronously processed request.
	KindAck

	// KindError reports a request rejected by the gateway.
	KindError

	// KindEvent is a plugin-originated event, either the deferred
	// response to a message request or fully unsolicited.
	KindEvent

	// KindWebRTCUp signals that the PeerConnection for a handle is up.
	KindWebRTCUp

	// KindHangup signals that the PeerConnection for a handle was closed.
	KindHangup

	// KindDetached signals that the gateway released a handle.
	KindDetached

	// KindMedia signals that media started or stopped flowing.
	KindMedia

	// KindSlowLink signals packet loss reported by the gateway.
	KindSlowLink

	// KindTimeout signals that the gateway expired the session.
	KindTimeout

	// KindServerInfo is the response to an info request.
	KindServerInfo
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindClaim:
		return "claim"
	case KindAttach:
		return "attach"
	case KindMessage:
		return "message"
	case KindTrickle:
		return "trickle"
	case KindDetach:
		return "detach"
	case KindDestroy:
		return "destroy"
	case KindKeepAlive:
		return "keepalive"
	case KindInfo:
		return "info"
	case KindSuccess:
		return "success"
	case KindAck:
		return "ack"
	case KindError:
		return "error"
	case KindEvent:
		return "event"
	case KindWebRTCUp:
		return "webrtcup"
	case KindHangup:
		return "hangup"
	case KindDetached:
		return "detached"
	case KindMedia:
		return "media"
	case KindSlowLink:
		return "slowlink"
	case KindTimeout:
		return "timeout"
	case KindServerInfo:
		return "server_info"
	default:
		return "unknown"
	}
}

// IsValid returns true if the kind is a defined wire value.
func (k Kind) IsValid() bool {
	return k > KindUnknown && k <= KindServerInfo
}

// ParseKind maps a wire name to its Kind. Unrecognized names map
// to KindUnknown.
func ParseKind(s string) Kind {
	switch s {
	case "create":
		return KindCreate
	case "claim":
		return KindClaim
	case "attach":
		return KindAttach
	case "message":
		return KindMessage
	case "trickle":
		return KindTrickle
	case "detach":
		return KindDetach
	case "destroy":
		return KindDestroy
	case "keepalive":
		return KindKeepAlive
	case "info":
		return KindInfo
	case "success":
		return KindSuccess
	case "ack":
		return KindAck
	case "error":
		return KindError
	case "event":
		return KindEvent
	case "webrtcup":
		return KindWebRTCUp
	case "hangup":
		return KindHangup
	case "detached":
		return KindDetached
	case "media":
		return KindMedia
	case "slowlink":
		return KindSlowLink
	case "timeout":
		return KindTimeout
	case "server_info":
		return KindServerInfo
	default:
		return KindUnknown
	}
}

// MarshalJSON encodes the kind as its wire name.
func (k Kind) MarshalJSON() ([]byte, error) {
	if !k.IsValid() {
		return nil, ErrUnknownKind
	}
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a wire name. Unrecognized names produce
// KindUnknown without error.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*k = ParseKind(s)
	return nil
}
