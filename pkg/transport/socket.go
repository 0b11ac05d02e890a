// Package transport provides the WebSocket transport used to talk to
// a Janus gateway.
//
// The package provides:
//   - Dialing with the gateway sub-protocol negotiated
//   - A read pump delivering whole text frames to a handler
//   - Serialized frame writes from any goroutine
//   - Close with an application close code
package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/logging"
)

const (
	// DefaultSubprotocol is the WebSocket sub-protocol the gateway
	// requires for its JSON API.
	DefaultSubprotocol = "janus-protocol"

	// DefaultHandshakeTimeout bounds the dial handshake.
	DefaultHandshakeTimeout = 10 * time.Second

	// DefaultWriteTimeout bounds a single frame write.
	DefaultWriteTimeout = 10 * time.Second

	// CloseCodeSessionTimeout is the application close code sent when
	// the gateway expired the session.
	CloseCodeSessionTimeout = 4408
)

// MessageHandler is called for each text frame received from the
// gateway. Frames are delivered one at a time in arrival order; the
// handler must not block.
type MessageHandler func(data []byte)

// CloseHandler is called exactly once when the read pump exits.
// err is nil when the socket was closed locally.
type CloseHandler func(err error)

// SocketConfig configures a gateway socket.
type SocketConfig struct {
	// URL is the gateway endpoint. The scheme must be ws or wss.
	URL string

	// Subprotocol overrides the negotiated sub-protocol
	// (default: DefaultSubprotocol).
	Subprotocol string

	// HandshakeTimeout bounds the dial handshake
	// (default: DefaultHandshakeTimeout).
	HandshakeTimeout time.Duration

	// WriteTimeout bounds each frame write
	// (default: DefaultWriteTimeout).
	WriteTimeout time.Duration

	// Dialer is an optional pre-configured dialer, for TLS settings
	// or proxies. Its Subprotocols and HandshakeTimeout are filled
	// in from this config when unset.
	Dialer *websocket.Dialer

	// RequestHeader is attached to the handshake request.
	RequestHeader http.Header

	// MessageHandler is called for each received text frame.
	// Required.
	MessageHandler MessageHandler

	// CloseHandler is called once when the read pump exits.
	CloseHandler CloseHandler

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Socket is a connected gateway transport. All writes are serialized
// internally, so Send may be called from any goroutine.
type Socket struct {
	conn         *websocket.Conn
	handler      MessageHandler
	onClose      CloseHandler
	writeTimeout time.Duration
	log          logging.LeveledLogger

	writeMu sync.Mutex

	mu       sync.Mutex
	closed   bool
	closedCh chan struct{}
}

// Dial connects to the gateway and starts the read pump. The URL
// scheme is validated before any network I/O.
func Dial(ctx context.Context, config SocketConfig) (*Socket, error) {
	if config.MessageHandler == nil {
		return nil, ErrNoHandler
	}

	u, err := url.Parse(config.URL)
	if err != nil {
		return nil, fmt.Errorf("transport: parse URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	// Apply defaults
	subprotocol := config.Subprotocol
	if subprotocol == "" {
		subprotocol = DefaultSubprotocol
	}
	handshakeTimeout := config.HandshakeTimeout
	if handshakeTimeout == 0 {
		handshakeTimeout = DefaultHandshakeTimeout
	}
	writeTimeout := config.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = DefaultWriteTimeout
	}

	var dialer websocket.Dialer
	if config.Dialer != nil {
		dialer = *config.Dialer
	} else {
		dialer.Proxy = http.ProxyFromEnvironment
	}
	if len(dialer.Subprotocols) == 0 {
		dialer.Subprotocols = []string{subprotocol}
	}
	if dialer.HandshakeTimeout == 0 {
		dialer.HandshakeTimeout = handshakeTimeout
	}

	conn, _, err := dialer.DialContext(ctx, config.URL, config.RequestHeader)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", config.URL, err)
	}

	s := &Socket{
		conn:         conn,
		handler:      config.MessageHandler,
		onClose:      config.CloseHandler,
		writeTimeout: writeTimeout,
		closedCh:     make(chan struct{}),
	}
	if config.LoggerFactory != nil {
		s.log = config.LoggerFactory.NewLogger("transport")
	}

	if s.log != nil {
		s.log.Debugf("connected to %s (subprotocol %q)", config.URL, conn.Subprotocol())
	}

	go s.readLoop()
	return s, nil
}

// Send writes one text frame. Safe for concurrent use.
func (s *Socket) Send(data []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.mu.Unlock()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
		return fmt.Errorf("transport: set write deadline: %w", err)
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	return nil
}

// Close performs a best-effort close handshake and tears the socket
// down. Calling Close more than once returns ErrClosed.
func (s *Socket) Close() error {
	return s.CloseWithCode(websocket.CloseNormalClosure, "")
}

// CloseWithCode closes the socket with an application close code.
func (s *Socket) CloseWithCode(code int, reason string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.closed = true
	s.mu.Unlock()

	if s.log != nil {
		s.log.Debugf("closing socket (code %d)", code)
	}

	s.writeMu.Lock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
	s.writeMu.Unlock()

	return s.conn.Close()
}

// Closed returns a channel that is closed once the socket is torn
// down, whether locally or by the peer.
func (s *Socket) Closed() <-chan struct{} {
	return s.closedCh
}

// readLoop pumps inbound frames to the handler until the connection
// fails or is closed.
func (s *Socket) readLoop() {
	var cause error
	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			closedLocally := s.closed
			s.closed = true
			s.mu.Unlock()
			if !closedLocally {
				cause = err
				_ = s.conn.Close()
			}
			break
		}
		if msgType != websocket.TextMessage {
			if s.log != nil {
				s.log.Warnf("ignoring non-text frame (type %d, %d bytes)", msgType, len(data))
			}
			continue
		}
		s.handler(data)
	}

	close(s.closedCh)
	if cause != nil && s.log != nil {
		s.log.Warnf("socket closed: %v", cause)
	}
	if s.onClose != nil {
		s.onClose(cause)
	}
}
