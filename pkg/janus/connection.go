package janus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pion/logging"

	"github.com/backkem/janus/pkg/message"
	"github.com/backkem/janus/pkg/transaction"
	"github.com/backkem/janus/pkg/transport"
)

// Connection is a client session on a Janus gateway. It owns the
// WebSocket transport, the pending transaction registry and the
// handle table, and it keeps the session alive while connected.
type Connection struct {
	config Config
	log    logging.LeveledLogger

	ids     *transaction.IDGenerator
	pending *transaction.Registry[*message.Envelope]
	handles *HandleTable

	mu        sync.Mutex
	sock      *transport.Socket
	sessionID uint64
	connected bool
}

// NewConnection creates a Connection. No network activity happens
// until Connect.
func NewConnection(config Config) (*Connection, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	c := &Connection{
		config:  config,
		ids:     transaction.NewIDGenerator(),
		pending: transaction.NewRegistry[*message.Envelope](),
		handles: NewHandleTable(),
	}
	if config.LoggerFactory != nil {
		c.log = config.LoggerFactory.NewLogger("janus")
	}
	return c, nil
}

// Connect dials the gateway and establishes a session. With a session
// id from a previous Connect it claims that session instead of
// creating a new one; use Destroy to give the session up for good.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	claimID := c.sessionID
	c.mu.Unlock()

	sock, err := transport.Dial(ctx, transport.SocketConfig{
		URL:              c.config.URL,
		HandshakeTimeout: c.config.HandshakeTimeout,
		WriteTimeout:     c.config.WriteTimeout,
		Dialer:           c.config.Dialer,
		RequestHeader:    c.config.RequestHeader,
		MessageHandler:   c.handleFrame,
		CloseHandler:     c.handleSocketClosed,
		LoggerFactory:    c.config.LoggerFactory,
	})
	if err != nil {
		return err
	}

	req := &message.Request{Kind: message.KindCreate}
	if claimID != 0 {
		req = &message.Request{Kind: message.KindClaim, SessionID: claimID}
	}

	env, err := c.roundTripOn(ctx, sock, req)
	if err != nil {
		_ = sock.Close()
		return err
	}

	sessionID := claimID
	if req.Kind == message.KindCreate {
		var data message.IDData
		if err := json.Unmarshal(env.Data, &data); err != nil || data.ID == 0 {
			_ = sock.Close()
			return fmt.Errorf("%w: create response without session id", ErrProtocolViolation)
		}
		sessionID = data.ID
	}

	c.mu.Lock()
	c.sock = sock
	c.sessionID = sessionID
	c.connected = true
	c.mu.Unlock()

	if interval := c.config.keepAliveInterval(); interval > 0 {
		go c.keepAliveLoop(sock, sessionID, interval)
	}

	if c.log != nil {
		if claimID != 0 {
			c.log.Infof("claimed session %d", sessionID)
		} else {
			c.log.Infof("created session %d", sessionID)
		}
	}
	return nil
}

// Close tears the connection down locally. The session id is kept, so
// a later Connect claims the same session; handles are released
// without detaching them at the gateway. Pending requests fail with
// ErrConnectionClosed.
func (c *Connection) Close() error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return ErrNotConnected
	}
	c.mu.Unlock()

	c.dropTransport(0, "")
	c.releaseHandles()
	return nil
}

// Destroy ends the session at the gateway, tears the connection down
// and clears the session id, so a later Connect starts fresh. The
// gateway request is best effort; local state is cleared regardless.
func (c *Connection) Destroy(ctx context.Context) error {
	c.mu.Lock()
	sid := c.sessionID
	connected := c.connected
	c.mu.Unlock()

	var destroyErr error
	if connected && sid != 0 {
		_, destroyErr = c.roundTrip(ctx, &message.Request{
			Kind:      message.KindDestroy,
			SessionID: sid,
		})
	}

	if err := c.Close(); err != nil && !errors.Is(err, ErrNotConnected) {
		destroyErr = errors.Join(destroyErr, err)
	}

	c.mu.Lock()
	c.sessionID = 0
	c.mu.Unlock()

	if c.log != nil {
		c.log.Infof("destroyed session %d", sid)
	}
	return destroyErr
}

// Reconnect drops the current transport, dials again and claims the
// session, then restarts ICE on every media-bearing handle so their
// flows recover. Without a session id from an earlier Connect there
// is nothing to reclaim and Reconnect is a no-op.
func (c *Connection) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	sid := c.sessionID
	c.mu.Unlock()
	if sid == 0 {
		return nil
	}

	c.dropTransport(0, "")

	if err := c.Connect(ctx); err != nil {
		return err
	}

	var errs []error
	for _, h := range c.handles.All() {
		if err := h.RestartICE(ctx); err != nil {
			errs = append(errs, fmt.Errorf("janus: restart handle %d: %w", h.ID(), err))
		}
	}
	return errors.Join(errs...)
}

// Info queries the gateway for its version, capabilities and loaded
// plugins.
func (c *Connection) Info(ctx context.Context) (*message.ServerInfo, error) {
	env, err := c.roundTrip(ctx, &message.Request{Kind: message.KindInfo})
	if err != nil {
		return nil, err
	}
	if env.Kind != message.KindServerInfo {
		return nil, fmt.Errorf("%w: info answered with %s", ErrProtocolViolation, env.Kind)
	}
	return message.ServerInfoFrom(env.Raw)
}

// SessionID returns the gateway-assigned session id, 0 before the
// first Connect or after Destroy.
func (c *Connection) SessionID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Connected reports whether the connection is established.
func (c *Connection) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// roundTrip sends a request on the live socket and waits for the
// correlated reply.
func (c *Connection) roundTrip(ctx context.Context, req *message.Request) (*message.Envelope, error) {
	c.mu.Lock()
	sock := c.sock
	connected := c.connected
	c.mu.Unlock()
	if !connected || sock == nil {
		return nil, ErrNotConnected
	}
	return c.roundTripOn(ctx, sock, req)
}

// roundTripOn registers the transaction before sending, so the reply
// cannot race the registration, then waits for resolution, context
// cancellation or socket loss.
func (c *Connection) roundTripOn(ctx context.Context, sock *transport.Socket, req *message.Request) (*message.Envelope, error) {
	id := c.ids.Next()
	req.Transaction = id
	c.stampAuth(req)

	replyCh := make(chan *message.Envelope, 1)
	if err := c.pending.Put(id, func(env *message.Envelope) {
		replyCh <- env
	}); err != nil {
		return nil, err
	}

	data, err := req.Encode()
	if err != nil {
		c.pending.Drop(id)
		return nil, err
	}
	if err := sock.Send(data); err != nil {
		c.pending.Drop(id)
		return nil, err
	}

	select {
	case env := <-replyCh:
		if env.Error != nil {
			return nil, &GatewayError{Code: env.Error.Code, Reason: env.Error.Reason}
		}
		if env.Kind == message.KindError {
			return nil, fmt.Errorf("%w: error frame without error block", ErrProtocolViolation)
		}
		return env, nil
	case <-ctx.Done():
		c.pending.Drop(id)
		return nil, ctx.Err()
	case <-sock.Closed():
		c.pending.Drop(id)
		return nil, ErrConnectionClosed
	}
}

// fire sends a request without waiting for more than the transport
// write. Used for kinds the gateway only acknowledges.
func (c *Connection) fire(req *message.Request) error {
	c.mu.Lock()
	sock := c.sock
	connected := c.connected
	c.mu.Unlock()
	if !connected || sock == nil {
		return ErrNotConnected
	}

	req.Transaction = c.ids.Next()
	c.stampAuth(req)
	data, err := req.Encode()
	if err != nil {
		return err
	}
	return sock.Send(data)
}

func (c *Connection) stampAuth(req *message.Request) {
	req.Token = c.config.Token
	req.APISecret = c.config.APISecret
}

// keepAliveLoop pings the session until the socket it was started for
// goes away or a send fails.
func (c *Connection) keepAliveLoop(sock *transport.Socket, sessionID uint64, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			req := &message.Request{
				Kind:        message.KindKeepAlive,
				SessionID:   sessionID,
				Transaction: c.ids.Next(),
			}
			c.stampAuth(req)
			data, err := req.Encode()
			if err != nil {
				return
			}
			if err := sock.Send(data); err != nil {
				if c.log != nil {
					c.log.Debugf("keep-alive stopped: %v", err)
				}
				return
			}
		case <-sock.Closed():
			return
		}
	}
}

// dropTransport disconnects and discards the socket, leaving the
// session id untouched. Waiters blocked in roundTrip observe the
// socket closing and fail with ErrConnectionClosed.
func (c *Connection) dropTransport(code int, reason string) {
	c.mu.Lock()
	sock := c.sock
	c.sock = nil
	c.connected = false
	c.mu.Unlock()

	if sock != nil {
		if code != 0 {
			_ = sock.CloseWithCode(code, reason)
		} else {
			_ = sock.Close()
		}
	}
	if n := c.pending.Clear(); n > 0 && c.log != nil {
		c.log.Debugf("discarded %d pending transactions", n)
	}
}

func (c *Connection) releaseHandles() {
	for _, h := range c.handles.Drain() {
		h.release()
	}
}

// handleFrame decodes one inbound frame and routes it. Runs on the
// socket read loop.
func (c *Connection) handleFrame(data []byte) {
	env, err := message.Decode(data)
	if err != nil {
		if c.log != nil {
			c.log.Warnf("dropping undecodable frame: %v", err)
		}
		return
	}
	c.route(env)
}

// handleSocketClosed runs when the read pump exits. Local teardown
// paths reset the state before closing the socket, so only a remote
// loss gets past the connected check and is reported.
func (c *Connection) handleSocketClosed(err error) {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return
	}
	c.sock = nil
	c.connected = false
	c.mu.Unlock()

	c.pending.Clear()

	if err == nil {
		err = ErrConnectionClosed
	}
	if c.log != nil {
		c.log.Warnf("connection lost: %v", err)
	}
	if c.config.DisconnectedHandler != nil {
		c.config.DisconnectedHandler(err)
	}
}
