// janus-textroom joins a gateway text room over a data channel.
//
// This binary negotiates the plugin's data-only session, joins the
// configured room and prints the room traffic as it arrives. All
// room operations run over the peer-to-peer channel; the WebSocket
// only carries the handshake.
//
// Usage:
//
//	janus-textroom [options]
//
// Options:
//
//	-url        Gateway WebSocket URL (default: ws://localhost:8188/)
//	-token      Stored-token credential
//	-api-secret Shared API secret
//	-room       Room id (default: 1234)
//	-display    Display name (default: "janus-go")
//	-keepalive  Keep-alive interval (default: 25s)
//	-config     TOML config file (flags win over file values)
//	-v          Enable trace logging
//
// Example:
//
//	janus-textroom -room 1234 -display alice
package main

import (
	"log"

	"github.com/backkem/janus/examples/common"
	"github.com/backkem/janus/examples/textroom"
)

func main() {
	// Parse command-line flags
	opts, err := common.ParseFlags()
	if err != nil {
		log.Fatalf("Failed to parse flags: %v", err)
	}

	// Create the text room client
	client, err := textroom.NewClient(opts)
	if err != nil {
		log.Fatalf("Failed to create text room client: %v", err)
	}

	// Run the session (blocks until interrupted)
	if err := common.Run(client.Conn, client.Start); err != nil {
		log.Fatalf("Text room error: %v", err)
	}
}
