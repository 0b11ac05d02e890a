// janus-echotest runs the echo test plugin against a gateway.
//
// This binary negotiates a bidirectional session that the gateway
// loops straight back, which makes it the quickest way to verify a
// deployment end to end, data channels included.
//
// Usage:
//
//	janus-echotest [options]
//
// Options:
//
//	-url        Gateway WebSocket URL (default: ws://localhost:8188/)
//	-token      Stored-token credential
//	-api-secret Shared API secret
//	-keepalive  Keep-alive interval (default: 25s)
//	-config     TOML config file (flags win over file values)
//	-v          Enable trace logging
//
// Example:
//
//	janus-echotest -url ws://janus.example.com:8188/ -v
package main

import (
	"log"

	"github.com/backkem/janus/examples/common"
	"github.com/backkem/janus/examples/echotest"
)

func main() {
	// Parse command-line flags
	opts, err := common.ParseFlags()
	if err != nil {
		log.Fatalf("Failed to parse flags: %v", err)
	}

	// Create the echo test client
	client, err := echotest.NewClient(opts)
	if err != nil {
		log.Fatalf("Failed to create echo test client: %v", err)
	}

	// Run the session (blocks until interrupted)
	if err := common.Run(client.Conn, client.Start); err != nil {
		log.Fatalf("Echo test error: %v", err)
	}
}
