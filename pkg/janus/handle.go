package janus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/logging"

	"github.com/backkem/janus/pkg/datachannel"
	"github.com/backkem/janus/pkg/message"
)

// Events collects the callbacks a handle can register. All fields
// are optional; events without a callback are dropped. Callbacks run
// on the socket read loop and must not block.
type Events struct {
	// OnEvent receives plugin events that did not resolve a pending
	// request, with the session description that rode along, if any.
	// The description is already applied to the media transport.
	OnEvent func(data json.RawMessage, jsep *message.SessionDescription)

	// OnWebRTCUp fires when the gateway sees the peer connection up.
	OnWebRTCUp func()

	// OnMedia reports a change in media flow for one direction.
	OnMedia func(kind string, receiving bool, mid string)

	// OnSlowLink reports gateway-observed packet loss.
	OnSlowLink func(uplink bool, lost int64)

	// OnHangup fires once when the gateway tears the media session
	// down. The handle is already unregistered when it fires.
	OnHangup func(reason string)

	// OnDetached fires when the gateway reports the handle detached.
	// The handle stays registered until Detach is called locally.
	OnDetached func()

	// OnTrickle receives remote candidates on out-of-band handles,
	// where the engine does not feed them to a media transport.
	OnTrickle func(c *message.Candidate)

	// OnTrickleComplete signals the end of remote candidates.
	OnTrickleComplete func()

	// OnData receives data channel payloads that did not resolve a
	// pending data request.
	OnData func(label string, data json.RawMessage)
}

// AttachOptions configures a plugin attach.
type AttachOptions struct {
	// OpaqueID tags the handle in the gateway's event handlers. A
	// random id is generated when empty.
	OpaqueID string

	// Media is the WebRTC engine backing this handle. Nil for
	// handles that never negotiate media.
	Media MediaTransport

	// OutOfBand marks handles whose peer connection is negotiated
	// outside the gateway signaling, as some plugins do. Remote
	// descriptions and candidates are then surfaced through Events
	// instead of being applied to Media.
	OutOfBand bool

	// RenegotiateBody is the plugin body sent alongside an ICE
	// restart offer. Defaults to {"request":"configure","restart":true}.
	RenegotiateBody any

	// Events are the handle's callbacks.
	Events Events
}

// Attach attaches a plugin handle to the session. The media transport
// is wired for trickling on success; on failure it is closed and the
// handle is never registered.
func (c *Connection) Attach(ctx context.Context, plugin string, opts AttachOptions) (*Handle, error) {
	if plugin == "" {
		return nil, ErrNoPlugin
	}
	c.mu.Lock()
	sid := c.sessionID
	connected := c.connected
	c.mu.Unlock()
	if !connected {
		return nil, ErrNotConnected
	}

	opaqueID := opts.OpaqueID
	if opaqueID == "" {
		opaqueID = uuid.NewString()
	}
	renegotiateBody := opts.RenegotiateBody
	if renegotiateBody == nil {
		renegotiateBody = map[string]any{"request": "configure", "restart": true}
	}

	h := &Handle{
		conn:            c,
		plugin:          plugin,
		opaqueID:        opaqueID,
		media:           opts.Media,
		outOfBand:       opts.OutOfBand,
		renegotiateBody: renegotiateBody,
		events:          opts.Events,
		dataProtos:      make(map[string]*datachannel.Protocol),
	}
	if c.config.LoggerFactory != nil {
		h.log = c.config.LoggerFactory.NewLogger("janus-handle")
	}

	env, err := c.roundTrip(ctx, &message.Request{
		Kind:      message.KindAttach,
		SessionID: sid,
		Plugin:    plugin,
		OpaqueID:  opaqueID,
	})
	if err != nil {
		h.closeMedia()
		return nil, err
	}
	var data message.IDData
	if err := json.Unmarshal(env.Data, &data); err != nil || data.ID == 0 {
		h.closeMedia()
		return nil, ErrInvalidHandleID
	}
	h.id = data.ID

	if opts.Media != nil && !opts.OutOfBand {
		opts.Media.OnLocalCandidate(h.onLocalCandidate)
	}

	c.handles.Add(h)
	if c.log != nil {
		c.log.Infof("attached %s as handle %d", plugin, h.id)
	}
	return h, nil
}

// Handle is an attached plugin handle. It relays plugin requests and
// receives the events the gateway addresses to it.
type Handle struct {
	conn *Connection

	// id is assigned by the gateway on attach and immutable after.
	id       uint64
	plugin   string
	opaqueID string

	outOfBand       bool
	renegotiateBody any
	events          Events
	log             logging.LeveledLogger

	mu          sync.Mutex
	media       MediaTransport
	detached    bool
	remoteSet   bool
	held        []message.Candidate
	defaultData *datachannel.Protocol
	dataProtos  map[string]*datachannel.Protocol
}

// ID returns the gateway-assigned handle id.
func (h *Handle) ID() uint64 {
	return h.id
}

// Plugin returns the attached plugin package name.
func (h *Handle) Plugin() string {
	return h.plugin
}

// OpaqueID returns the opaque id sent with the attach.
func (h *Handle) OpaqueID() string {
	return h.opaqueID
}

// Request sends a plugin message and waits for the plugin's reply.
// Synchronous plugins answer with a success frame; asynchronous ones
// acknowledge first and answer with an event echoing the transaction.
// Both resolve here. A session description in the reply is applied to
// the media transport before Request returns. A nil body sends the
// empty object. The reply payload passes through untyped; RequestInto
// adds validation and decoding.
func (h *Handle) Request(ctx context.Context, body any, jsep *message.SessionDescription) (json.RawMessage, *message.SessionDescription, error) {
	env, err := h.request(ctx, body, jsep)
	if err != nil {
		return nil, nil, err
	}
	var data json.RawMessage
	if env.Plugin != nil {
		data = env.Plugin.Data
	}
	return data, env.JSEP, nil
}

// RequestInto sends a plugin message and decodes the reply payload
// into out. The reply must carry plugin data from this handle's own
// plugin and the payload must not embed a plugin error.
func (h *Handle) RequestInto(ctx context.Context, body any, jsep *message.SessionDescription, out any) (*message.SessionDescription, error) {
	env, err := h.request(ctx, body, jsep)
	if err != nil {
		return nil, err
	}
	if env.Plugin == nil {
		return env.JSEP, fmt.Errorf("%w: reply without plugin data", ErrProtocolViolation)
	}
	if env.Plugin.Plugin != "" && env.Plugin.Plugin != h.plugin {
		return env.JSEP, fmt.Errorf("%w: reply from %s on a %s handle",
			ErrProtocolViolation, env.Plugin.Plugin, h.plugin)
	}
	if len(env.Plugin.Data) == 0 {
		return env.JSEP, fmt.Errorf("%w: empty plugin payload", ErrProtocolViolation)
	}
	if perr := message.PluginErrorFrom(h.plugin, env.Plugin.Data); perr != nil {
		return env.JSEP, perr
	}
	if out != nil {
		if err := json.Unmarshal(env.Plugin.Data, out); err != nil {
			return env.JSEP, fmt.Errorf("janus: decode plugin reply: %w", err)
		}
	}
	return env.JSEP, nil
}

// request is the shared message round trip. A remote description in
// the reply is applied before the envelope is handed back.
func (h *Handle) request(ctx context.Context, body any, jsep *message.SessionDescription) (*message.Envelope, error) {
	if h.isDetached() {
		return nil, ErrHandleDetached
	}
	if body == nil {
		body = struct{}{}
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("janus: encode body: %w", err)
	}

	env, err := h.conn.roundTrip(ctx, &message.Request{
		Kind:      message.KindMessage,
		SessionID: h.conn.SessionID(),
		HandleID:  h.id,
		Body:      raw,
		JSEP:      jsep,
	})
	if err != nil {
		return nil, err
	}

	if env.JSEP != nil {
		if err := h.applyRemoteDescription(env.JSEP); err != nil {
			return nil, err
		}
	}
	return env, nil
}

// Trickle sends one local ICE candidate to the gateway.
func (h *Handle) Trickle(c *message.Candidate) error {
	if h.isDetached() {
		return ErrHandleDetached
	}
	return h.conn.fire(&message.Request{
		Kind:      message.KindTrickle,
		SessionID: h.conn.SessionID(),
		HandleID:  h.id,
		Candidate: c,
	})
}

// TrickleMany sends a candidate batch in a single frame.
func (h *Handle) TrickleMany(cs []message.Candidate) error {
	if h.isDetached() {
		return ErrHandleDetached
	}
	return h.conn.fire(&message.Request{
		Kind:       message.KindTrickle,
		SessionID:  h.conn.SessionID(),
		HandleID:   h.id,
		Candidates: cs,
	})
}

// TrickleCompleted signals the end of local candidates.
func (h *Handle) TrickleCompleted() error {
	return h.Trickle(&message.Candidate{Completed: true})
}

// Detach releases the handle at the gateway and locally, closing its
// media transport and data channels. Calling Detach again is a no-op.
func (h *Handle) Detach(ctx context.Context) error {
	h.mu.Lock()
	if h.detached {
		h.mu.Unlock()
		return nil
	}
	h.detached = true
	h.mu.Unlock()

	h.conn.handles.Remove(h.id)

	var detachErr error
	if h.conn.Connected() {
		_, detachErr = h.conn.roundTrip(ctx, &message.Request{
			Kind:      message.KindDetach,
			SessionID: h.conn.SessionID(),
			HandleID:  h.id,
		})
	}
	h.closeMedia()

	if h.log != nil {
		h.log.Debugf("handle %d detached", h.id)
	}
	return detachErr
}

// RestartICE renegotiates the peer connection with fresh ICE
// credentials, sending the new offer with the renegotiate body.
// Handles without an in-band media session are skipped.
func (h *Handle) RestartICE(ctx context.Context) error {
	h.mu.Lock()
	media := h.media
	h.mu.Unlock()

	if media == nil || h.outOfBand {
		if h.log != nil {
			h.log.Debugf("handle %d: no in-band media, skipping ICE restart", h.id)
		}
		return nil
	}

	offer, err := media.CreateOffer(ctx, true)
	if err != nil {
		return err
	}
	_, _, err = h.Request(ctx, h.renegotiateBody, offer)
	return err
}

// OpenDataChannel opens a named data channel on the media transport
// and speaks the request/response sub-protocol over it. The first
// channel becomes the default target for DataRequest; payloads that
// resolve no pending request are delivered to Events.OnData.
func (h *Handle) OpenDataChannel(label string, opts *datachannel.Options) (*datachannel.Protocol, error) {
	h.mu.Lock()
	media := h.media
	detached := h.detached
	h.mu.Unlock()
	if detached {
		return nil, ErrHandleDetached
	}
	if media == nil {
		return nil, ErrNoMediaTransport
	}

	ch, err := media.CreateDataChannel(label, opts)
	if err != nil {
		return nil, err
	}

	proto, err := datachannel.NewProtocol(datachannel.ProtocolConfig{
		Channel:                  ch,
		Plugin:                   h.plugin,
		RemoteDescriptionHandler: h.applyRemoteDescription,
		MessageHandler: func(data json.RawMessage) {
			if h.events.OnData != nil {
				h.events.OnData(label, data)
			}
		},
		LoggerFactory: h.conn.config.LoggerFactory,
	})
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	h.dataProtos[label] = proto
	if h.defaultData == nil {
		h.defaultData = proto
	}
	h.mu.Unlock()

	return proto, nil
}

// DataRequest sends a request over the default data channel and waits
// for the correlated reply.
func (h *Handle) DataRequest(ctx context.Context, body any) (json.RawMessage, error) {
	h.mu.Lock()
	proto := h.defaultData
	h.mu.Unlock()
	if proto == nil {
		return nil, ErrNoDataChannel
	}
	return proto.Request(ctx, body)
}

// applyRemoteDescription installs a remote description on the media
// transport and flushes candidates that arrived before it. No-op on
// out-of-band handles.
func (h *Handle) applyRemoteDescription(sd *message.SessionDescription) error {
	h.mu.Lock()
	media := h.media
	h.mu.Unlock()
	if h.outOfBand || media == nil {
		return nil
	}

	if err := media.SetRemoteDescription(sd); err != nil {
		return err
	}

	h.mu.Lock()
	held := h.held
	h.held = nil
	h.remoteSet = true
	h.mu.Unlock()

	for i := range held {
		// The transport needs the media line binding; a candidate that
		// still lacks it cannot be applied and is dropped here.
		if !held[i].Complete() {
			if h.log != nil {
				h.log.Warnf("handle %d: dropping candidate without media line binding", h.id)
			}
			continue
		}
		if err := media.AddRemoteCandidate(&held[i]); err != nil && h.log != nil {
			h.log.Warnf("handle %d: flush held candidate: %v", h.id, err)
		}
	}
	return nil
}

// handleTrickle routes one remote candidate. A candidate that arrives
// before the remote description, or that lacks its media line
// binding, is held; the next description flushes the held set, and
// only candidates carrying their binding are applied.
func (h *Handle) handleTrickle(env *message.Envelope) {
	if env.Candidate == nil {
		if h.log != nil {
			h.log.Warnf("handle %d: trickle frame without candidate", h.id)
		}
		return
	}
	c := env.Candidate

	if c.Completed {
		if h.events.OnTrickleComplete != nil {
			h.events.OnTrickleComplete()
		}
		return
	}

	h.mu.Lock()
	media := h.media
	remoteSet := h.remoteSet
	h.mu.Unlock()

	if h.outOfBand || media == nil {
		if h.events.OnTrickle != nil {
			h.events.OnTrickle(c)
		}
		return
	}

	if !remoteSet || !c.Complete() {
		h.mu.Lock()
		h.held = append(h.held, *c)
		h.mu.Unlock()
		if h.log != nil {
			h.log.Tracef("handle %d: holding candidate until remote description", h.id)
		}
		return
	}

	if err := media.AddRemoteCandidate(c); err != nil && h.log != nil {
		h.log.Warnf("handle %d: add remote candidate: %v", h.id, err)
	}
}

// handleEvent delivers a plugin event. A session description riding
// along must hit the media transport before the callback sees the
// event.
func (h *Handle) handleEvent(env *message.Envelope) {
	if env.Plugin == nil {
		if h.log != nil {
			h.log.Warnf("handle %d: event without plugin data", h.id)
		}
		return
	}

	if env.JSEP != nil {
		if err := h.applyRemoteDescription(env.JSEP); err != nil && h.log != nil {
			h.log.Warnf("handle %d: apply remote description: %v", h.id, err)
		}
	}
	if h.events.OnEvent != nil {
		h.events.OnEvent(env.Plugin.Data, env.JSEP)
	}
}

func (h *Handle) handleWebRTCUp() {
	if h.events.OnWebRTCUp != nil {
		h.events.OnWebRTCUp()
	}
}

func (h *Handle) handleMedia(env *message.Envelope) {
	if h.events.OnMedia != nil {
		h.events.OnMedia(env.Type, env.Receiving, env.Mid)
	}
}

func (h *Handle) handleSlowLink(env *message.Envelope) {
	if h.events.OnSlowLink != nil {
		h.events.OnSlowLink(env.Uplink, env.Lost)
	}
}

func (h *Handle) handleDetached() {
	if h.events.OnDetached != nil {
		h.events.OnDetached()
	}
}

func (h *Handle) notifyHangup(reason string) {
	if h.events.OnHangup != nil {
		h.events.OnHangup(reason)
	}
}

// onLocalCandidate trickles locally gathered candidates out. The nil
// candidate marking the end of gathering becomes the completed signal.
func (h *Handle) onLocalCandidate(c *message.Candidate) {
	if h.isDetached() {
		return
	}
	var err error
	if c == nil {
		err = h.TrickleCompleted()
	} else {
		err = h.Trickle(c)
	}
	if err != nil && h.log != nil {
		h.log.Warnf("handle %d: trickle: %v", h.id, err)
	}
}

// release drops local state without any gateway request. Used when
// the connection goes away underneath the handle.
func (h *Handle) release() {
	h.mu.Lock()
	if h.detached {
		h.mu.Unlock()
		return
	}
	h.detached = true
	h.mu.Unlock()

	h.closeMedia()
}

// closeMedia shuts the data channel protocols and the media
// transport down.
func (h *Handle) closeMedia() {
	h.mu.Lock()
	protos := make([]*datachannel.Protocol, 0, len(h.dataProtos))
	for _, p := range h.dataProtos {
		protos = append(protos, p)
	}
	h.dataProtos = make(map[string]*datachannel.Protocol)
	h.defaultData = nil
	media := h.media
	h.media = nil
	h.held = nil
	h.mu.Unlock()

	for _, p := range protos {
		p.Close()
	}
	if media != nil {
		_ = media.Close()
	}
}

func (h *Handle) isDetached() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.detached
}
