// Package datachannel implements the transaction-correlated
// request/response protocol some gateway plugins speak over a
// peer-to-peer data channel, bypassing the signaling socket.
//
// The package provides:
//   - The Channel interface abstracting an open data channel
//   - Protocol, correlating JSON requests with their replies
//
// The id space is independent from the signaling transaction space;
// ids never cross between the two paths.
package datachannel

// Channel is the transport the protocol runs over. It is implemented
// by the rtc package on top of a WebRTC data channel.
type Channel interface {
	// Label returns the channel's label.
	Label() string

	// Ready reports whether the channel is open for sending.
	Ready() bool

	// Send transmits one text payload.
	Send(data []byte) error

	// OnOpen registers the open callback.
	OnOpen(func())

	// OnClose registers the close callback.
	OnClose(func())

	// OnMessage registers the inbound payload callback. binary
	// reports whether the payload arrived as a binary frame.
	OnMessage(func(data []byte, binary bool))
}

// Options configures a data channel at creation time.
type Options struct {
	// Unordered disables in-order delivery.
	Unordered bool

	// MaxRetransmits bounds retransmission attempts, switching the
	// channel to partially reliable mode.
	MaxRetransmits *uint16

	// Protocol is the sub-protocol name announced during channel
	// setup.
	Protocol string
}
