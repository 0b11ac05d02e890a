package janus

import (
	"context"

	"github.com/backkem/janus/pkg/datachannel"
	"github.com/backkem/janus/pkg/message"
)

// LocalCandidateHandler receives locally gathered ICE candidates. A
// nil candidate marks the end of gathering.
type LocalCandidateHandler func(c *message.Candidate)

// MediaTransport is the capability a Handle needs from a WebRTC
// engine. pkg/rtc provides an implementation over pion/webrtc;
// anything satisfying this interface can be plugged in instead.
type MediaTransport interface {
	// CreateOffer produces a local offer and installs it as the local
	// description. iceRestart requests fresh ICE credentials.
	CreateOffer(ctx context.Context, iceRestart bool) (*message.SessionDescription, error)

	// CreateAnswer produces a local answer to the current remote
	// description and installs it as the local description.
	CreateAnswer(ctx context.Context) (*message.SessionDescription, error)

	// SetRemoteDescription applies the peer's description.
	SetRemoteDescription(sd *message.SessionDescription) error

	// AddRemoteCandidate adds a remote ICE candidate.
	AddRemoteCandidate(c *message.Candidate) error

	// OnLocalCandidate registers the local candidate handler. Must be
	// set before CreateOffer or CreateAnswer to see all candidates.
	OnLocalCandidate(h LocalCandidateHandler)

	// CreateDataChannel creates a negotiated-in-SDP data channel.
	CreateDataChannel(label string, opts *datachannel.Options) (datachannel.Channel, error)

	// Close releases the transport.
	Close() error
}
