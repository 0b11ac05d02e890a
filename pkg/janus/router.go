package janus

import (
	"github.com/backkem/janus/pkg/message"
	"github.com/backkem/janus/pkg/transport"
)

// route dispatches one inbound frame. Runs on the socket read loop,
// so everything it calls must return promptly.
//
// Order matters: acks are discarded first so the transaction entry
// survives until the real reply arrives in its own frame. Correlation
// by transaction comes before sender routing because asynchronous
// plugin replies are event frames that echo the request transaction.
func (c *Connection) route(env *message.Envelope) {
	switch env.Kind {
	case message.KindAck, message.KindKeepAlive:
		if c.log != nil {
			c.log.Tracef("ack (transaction %q)", env.Transaction)
		}
		return
	case message.KindTimeout:
		c.handleTimeout(env)
		return
	}

	if env.Transaction != "" {
		cb, ok := c.pending.Take(env.Transaction)
		if !ok {
			// A reply for a transaction we never issued, or one
			// already resolved.
			if c.log != nil {
				c.log.Warnf("%s frame with unknown transaction %q", env.Kind, env.Transaction)
			}
			return
		}
		cb(env)
		return
	}

	switch env.Kind {
	case message.KindSuccess, message.KindError:
		// Replies must echo a transaction id.
		if c.log != nil {
			c.log.Warnf("uncorrelated %s frame", env.Kind)
		}
		return
	}

	if env.Sender == 0 {
		if c.log != nil {
			c.log.Warnf("dropping %s frame without sender", env.Kind)
		}
		return
	}
	h, ok := c.handles.Get(env.Sender)
	if !ok {
		if c.log != nil {
			c.log.Debugf("dropping %s frame for unknown handle %d", env.Kind, env.Sender)
		}
		return
	}

	switch env.Kind {
	case message.KindEvent:
		h.handleEvent(env)
	case message.KindTrickle:
		h.handleTrickle(env)
	case message.KindWebRTCUp:
		h.handleWebRTCUp()
	case message.KindMedia:
		h.handleMedia(env)
	case message.KindSlowLink:
		h.handleSlowLink(env)
	case message.KindHangup:
		c.handleHangup(h, env)
	case message.KindDetached:
		h.handleDetached()
	default:
		if c.log != nil {
			c.log.Debugf("ignoring %s frame for handle %d", env.Kind, env.Sender)
		}
	}
}

// handleHangup removes the handle before notifying, so a second
// hangup or a late media frame for the same sender finds nothing.
func (c *Connection) handleHangup(h *Handle, env *message.Envelope) {
	if !c.handles.Remove(h.ID()) {
		return
	}
	if c.log != nil {
		c.log.Debugf("handle %d hung up: %s", h.ID(), env.Reason)
	}
	h.release()
	h.notifyHangup(env.Reason)
}

// handleTimeout reacts to the gateway expiring the session: the
// transport is closed with the session-timeout code and every handle
// is released. The session id is kept so the caller can inspect it;
// reviving requires Destroy followed by a fresh Connect.
func (c *Connection) handleTimeout(env *message.Envelope) {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return
	}
	sock := c.sock
	c.sock = nil
	c.connected = false
	c.mu.Unlock()

	if c.log != nil {
		c.log.Warnf("session %d timed out at the gateway", env.SessionID)
	}

	if sock != nil {
		_ = sock.CloseWithCode(transport.CloseCodeSessionTimeout, "session timeout")
	}
	c.pending.Clear()
	c.releaseHandles()

	if c.config.DisconnectedHandler != nil {
		c.config.DisconnectedHandler(ErrSessionExpired)
	}
}
