package janus

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/logging"
)

// DefaultKeepAliveInterval keeps sessions alive well inside the
// gateway's default 60 second reaper.
const DefaultKeepAliveInterval = 25 * time.Second

// DisconnectedHandler is notified once when a live connection goes
// away, with the cause. It is not invoked for a local Close.
type DisconnectedHandler func(err error)

// Config collects the parameters of a Connection.
type Config struct {
	// URL of the gateway WebSocket endpoint (ws:// or wss://).
	URL string

	// Token is the per-request stored-token credential, if the
	// gateway requires one.
	Token string

	// APISecret is the shared api_secret credential, if the gateway
	// requires one.
	APISecret string

	// KeepAliveInterval between keep-alive requests. Zero selects
	// DefaultKeepAliveInterval, a negative value disables keep-alive.
	KeepAliveInterval time.Duration

	// HandshakeTimeout bounds the WebSocket dial.
	HandshakeTimeout time.Duration

	// WriteTimeout bounds each outbound frame write.
	WriteTimeout time.Duration

	// Dialer overrides the WebSocket dialer, for TLS or proxy setup.
	Dialer *websocket.Dialer

	// RequestHeader is sent with the WebSocket handshake.
	RequestHeader http.Header

	// DisconnectedHandler is called when an established connection is
	// lost. Runs on the read loop and must not block.
	DisconnectedHandler DisconnectedHandler

	// LoggerFactory for logging. Defaults to no logging.
	LoggerFactory logging.LoggerFactory
}

func (c *Config) validate() error {
	if c.URL == "" {
		return ErrNoURL
	}
	return nil
}

func (c *Config) keepAliveInterval() time.Duration {
	switch {
	case c.KeepAliveInterval < 0:
		return 0
	case c.KeepAliveInterval == 0:
		return DefaultKeepAliveInterval
	default:
		return c.KeepAliveInterval
	}
}
