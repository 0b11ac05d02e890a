package message

import "encoding/json"

// Envelope is a decoded inbound gateway frame. Only the fields
// relevant to the frame's kind are populated; the rest keep their
// zero values.
type Envelope struct {
	// Kind is the decoded "janus" field. Frames with an
	// unrecognized kind decode to KindUnknown.
	Kind Kind `json:"janus"`

	// Transaction correlates the frame with a pending request.
	// Present on responses, absent on unsolicited events.
	Transaction string `json:"transaction,omitempty"`

	// SessionID is the session the frame belongs to.
	SessionID uint64 `json:"session_id,omitempty"`

	// Sender is the originating handle id. Present only on
	// handle-originated events.
	Sender uint64 `json:"sender,omitempty"`

	// Plugin carries the plugin payload of event and success frames.
	Plugin *PluginData `json:"plugindata,omitempty"`

	// JSEP is a remote session description attached to the frame.
	JSEP *SessionDescription `json:"jsep,omitempty"`

	// Error is the error block of error frames, or of success
	// frames carrying an embedded rejection.
	Error *ErrorData `json:"error,omitempty"`

	// Candidate is the payload of inbound trickle frames.
	Candidate *Candidate `json:"candidate,omitempty"`

	// Data carries the result object of success frames, such as the
	// id assigned by create and attach.
	Data json.RawMessage `json:"data,omitempty"`

	// Type is the media kind ("audio" or "video") of media frames.
	Type string `json:"type,omitempty"`

	// Receiving reports whether media is flowing, on media frames.
	Receiving bool `json:"receiving,omitempty"`

	// Mid is the affected transceiver mid, on media frames.
	Mid string `json:"mid,omitempty"`

	// Uplink reports the direction of reported loss, on slowlink frames.
	Uplink bool `json:"uplink,omitempty"`

	// Lost is the number of lost packets, on slowlink frames.
	Lost int64 `json:"lost,omitempty"`

	// Reason is the cause of hangup frames.
	Reason string `json:"reason,omitempty"`

	// Raw preserves the undecoded frame for diagnostics and for
	// kinds whose payload sits at the top level, such as server_info.
	Raw []byte `json:"-"`
}

// IDData is the result object of create and attach responses.
type IDData struct {
	ID uint64 `json:"id"`
}

// PluginData is the plugin payload block of event and success frames.
type PluginData struct {
	// Plugin is the package name of the reporting plugin.
	Plugin string `json:"plugin"`

	// Data is the opaque plugin payload.
	Data json.RawMessage `json:"data"`
}

// SessionDescription is a JSEP offer or answer.
type SessionDescription struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// Candidate is a trickle ICE candidate. SDPMid and SDPMLineIndex are
// pointers because their presence is significant: a candidate missing
// either cannot be bound to a media line yet.
type Candidate struct {
	Candidate     string  `json:"candidate,omitempty"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`

	// Completed marks the end-of-candidates signal.
	Completed bool `json:"completed,omitempty"`
}

// Complete returns true if the candidate can be bound to a media
// line, meaning both SDPMid and SDPMLineIndex are present.
func (c *Candidate) Complete() bool {
	return c.SDPMid != nil && c.SDPMLineIndex != nil
}

// Decode parses an inbound frame. The undecoded bytes are preserved
// in Envelope.Raw.
func Decode(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	env.Raw = data
	return &env, nil
}
