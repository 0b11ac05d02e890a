package datachannel

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/pion/logging"

	"github.com/backkem/janus/pkg/message"
	"github.com/backkem/janus/pkg/transaction"
)

// ProtocolConfig configures a data channel protocol instance.
type ProtocolConfig struct {
	// Channel is the transport to run over. Required.
	Channel Channel

	// Plugin names the plugin behind the channel, for error
	// attribution.
	Plugin string

	// RemoteDescriptionHandler is invoked for a JSEP carried by a
	// correlated reply, before the reply resolves the request.
	RemoteDescriptionHandler func(*message.SessionDescription) error

	// MessageHandler receives payloads that carry no known
	// transaction id. The handler must not block.
	MessageHandler func(data json.RawMessage)

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Protocol correlates JSON requests with their replies over a data
// channel. Replies are matched on the "transaction" field injected
// into each request; payloads without one flow to the configured
// MessageHandler.
type Protocol struct {
	ch        Channel
	plugin    string
	ids       *transaction.IDGenerator
	pending   *transaction.Registry[json.RawMessage]
	onRemote  func(*message.SessionDescription) error
	onMessage func(data json.RawMessage)
	log       logging.LeveledLogger

	mu       sync.Mutex
	closed   bool
	closedCh chan struct{}
}

// NewProtocol creates a protocol instance bound to the channel and
// starts consuming its inbound payloads.
func NewProtocol(config ProtocolConfig) (*Protocol, error) {
	if config.Channel == nil {
		return nil, ErrNoChannel
	}

	p := &Protocol{
		ch:        config.Channel,
		plugin:    config.Plugin,
		ids:       transaction.NewIDGenerator(),
		pending:   transaction.NewRegistry[json.RawMessage](),
		onRemote:  config.RemoteDescriptionHandler,
		onMessage: config.MessageHandler,
		closedCh:  make(chan struct{}),
	}
	if config.LoggerFactory != nil {
		p.log = config.LoggerFactory.NewLogger("datachannel")
	}

	p.ch.OnMessage(p.handleMessage)
	p.ch.OnClose(p.handleClosed)
	return p, nil
}

// Request sends body with an injected transaction id and waits for
// the correlated reply. The body must encode to a JSON object. It
// fails fast with ErrChannelNotOpen when the channel is not open.
func (p *Protocol) Request(ctx context.Context, body any) (json.RawMessage, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrChannelClosed
	}
	p.mu.Unlock()

	if !p.ch.Ready() {
		return nil, ErrChannelNotOpen
	}

	obj, err := toObject(body)
	if err != nil {
		return nil, err
	}
	id := p.ids.Next()
	obj["transaction"] = json.RawMessage(strconv.Quote(id))

	data, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("datachannel: encode request: %w", err)
	}

	replyCh := make(chan json.RawMessage, 1)
	if err := p.pending.Put(id, func(raw json.RawMessage) { replyCh <- raw }); err != nil {
		return nil, err
	}

	if err := p.ch.Send(data); err != nil {
		p.pending.Drop(id)
		return nil, fmt.Errorf("datachannel: send: %w", err)
	}

	select {
	case raw := <-replyCh:
		if perr := message.PluginErrorFrom(p.plugin, raw); perr != nil {
			return nil, perr
		}
		return raw, nil
	case <-ctx.Done():
		p.pending.Drop(id)
		return nil, ctx.Err()
	case <-p.closedCh:
		return nil, ErrChannelClosed
	}
}

// RequestInto sends body and decodes the correlated reply into out.
func (p *Protocol) RequestInto(ctx context.Context, body, out any) error {
	raw, err := p.Request(ctx, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("datachannel: decode reply: %w", err)
	}
	return nil
}

// Pending returns the number of requests awaiting a reply.
func (p *Protocol) Pending() int {
	return p.pending.Len()
}

// Close discards pending entries and releases in-flight waiters with
// ErrChannelClosed. The underlying channel stays with its owner.
func (p *Protocol) Close() {
	p.handleClosed()
}

// handleMessage consumes one inbound payload from the channel.
// Runs on the channel's delivery goroutine.
func (p *Protocol) handleMessage(data []byte, binary bool) {
	if binary {
		if p.log != nil {
			p.log.Warnf("dropping %d byte payload: %v", len(data), ErrUnsupportedPayload)
		}
		return
	}

	var probe struct {
		Transaction string                      `json:"transaction"`
		JSEP        *message.SessionDescription `json:"jsep"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		if p.log != nil {
			p.log.Warnf("dropping undecodable payload: %v", err)
		}
		return
	}

	if probe.Transaction == "" {
		p.dispatchUnsolicited(data)
		return
	}

	cb, ok := p.pending.Take(probe.Transaction)
	if !ok {
		// A reply for a transaction this instance never issued, or
		// one already resolved. Hand it to the generic path.
		p.dispatchUnsolicited(data)
		return
	}

	// The remote description must be installed before the waiter
	// resumes, so it can rely on the negotiated state.
	if probe.JSEP != nil && p.onRemote != nil {
		if err := p.onRemote(probe.JSEP); err != nil && p.log != nil {
			p.log.Warnf("applying remote description from reply: %v", err)
		}
	}

	cb(json.RawMessage(data))
}

func (p *Protocol) dispatchUnsolicited(data []byte) {
	if p.onMessage == nil {
		if p.log != nil {
			p.log.Debugf("dropping uncorrelated payload (%d bytes)", len(data))
		}
		return
	}
	p.onMessage(json.RawMessage(data))
}

func (p *Protocol) handleClosed() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	n := p.pending.Clear()
	if n > 0 && p.log != nil {
		p.log.Debugf("discarded %d pending requests on close", n)
	}
	close(p.closedCh)
}

// toObject re-encodes body as a mutable JSON object.
func toObject(body any) (map[string]json.RawMessage, error) {
	if body == nil {
		return map[string]json.RawMessage{}, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("datachannel: encode body: %w", err)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBody, err)
	}
	return obj, nil
}
