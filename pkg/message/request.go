package message

import "encoding/json"

// Request is an outbound gateway frame. Zero-valued fields are
// omitted from the encoding, so one type covers every request kind.
type Request struct {
	// Kind selects the request ("janus" field). Required.
	Kind Kind `json:"janus"`

	// Transaction is the correlation id. Stamped by the sender.
	Transaction string `json:"transaction,omitempty"`

	// SessionID scopes the request to a session. Omitted on create
	// and info.
	SessionID uint64 `json:"session_id,omitempty"`

	// HandleID scopes the request to a plugin handle.
	HandleID uint64 `json:"handle_id,omitempty"`

	// Plugin is the plugin package name, on attach.
	Plugin string `json:"plugin,omitempty"`

	// OpaqueID is an opaque correlation tag the gateway echoes in
	// its event handlers, on attach.
	OpaqueID string `json:"opaque_id,omitempty"`

	// Token is the stored-token auth credential, when configured.
	Token string `json:"token,omitempty"`

	// APISecret is the shared-secret auth credential, when configured.
	APISecret string `json:"apisecret,omitempty"`

	// Body is the plugin request payload, on message.
	Body json.RawMessage `json:"body,omitempty"`

	// JSEP is a local session description attached to the request.
	JSEP *SessionDescription `json:"jsep,omitempty"`

	// Candidate is a single trickle candidate or the completed marker.
	Candidate *Candidate `json:"candidate,omitempty"`

	// Candidates is a trickle candidate batch. Mutually exclusive
	// with Candidate.
	Candidates []Candidate `json:"candidates,omitempty"`
}

// Encode serializes the request for the wire.
func (r *Request) Encode() ([]byte, error) {
	return json.Marshal(r)
}
