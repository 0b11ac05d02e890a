// Package janus implements the client side of the Janus WebRTC
// gateway protocol over a WebSocket connection.
//
// The package provides:
//   - Connection: session lifecycle, keep-alive, and claim-based reconnection
//   - Handle: plugin attachment, requests, and trickle ICE routing
//   - Event routing from the shared socket to the owning handle
//   - MediaTransport, the capability interface to a WebRTC engine
//
// A Connection multiplexes any number of plugin handles over one
// socket. Inbound frames are processed one at a time in arrival
// order; event callbacks run on that loop and must not block.
// Nothing retries automatically: keep-alive stops on the first send
// failure and recovery happens through an explicit Reconnect.
package janus
