// janus-videoroom publishes a feed into a gateway video room.
//
// This binary joins the configured room as a publisher and attaches
// a subscriber handle for every other feed it learns about, so a
// single instance demonstrates both directions of the plugin.
//
// Usage:
//
//	janus-videoroom [options]
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
//	janus-videoroom -room 1234 -display alice
package main

import (
	"context"
	"log"
	"time"

	"github.com/backkem/janus/examples/common"
	"github.com/backkem/janus/examples/videoroom"
)

func main() {
	// Parse command-line flags
	opts, err := common.ParseFlags()
	if err != nil {
		log.Fatalf("Failed to parse flags: %v", err)
	}

	// Create the publisher
	publisher, err := videoroom.NewPublisher(opts)
	if err != nil {
		log.Fatalf("Failed to create publisher: %v", err)
	}

	// Subscribe to every feed the room announces. The callback runs
	// on the event loop, so the subscription itself moves off it.
	publisher.OnFeed = func(feed videoroom.FeedInfo) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if _, err := publisher.Subscribe(ctx, feed); err != nil {
				log.Printf("Failed to subscribe to feed %d: %v", feed.ID, err)
			}
		}()
	}

	// Run the session (blocks until interrupted)
	if err := common.Run(publisher.Conn, publisher.Start); err != nil {
		log.Fatalf("Video room error: %v", err)
	}
}
