// Package rtc implements the media transport consumed by the janus
// package on top of pion/webrtc.
//
// The package provides:
//   - Peer, a PeerConnection wrapper satisfying janus.MediaTransport
//   - Data channels adapted to the datachannel.Channel interface
//   - Track helpers for sending and receiving media
package rtc

import (
	"context"
	"fmt"
	"sync"

	"github.com/pion/interceptor"
	"github.com/pion/logging"
	"github.com/pion/webrtc/v4"

	"github.com/backkem/janus/pkg/datachannel"
	"github.com/backkem/janus/pkg/janus"
	"github.com/backkem/janus/pkg/message"
)

// PeerConfig collects the parameters of a Peer.
type PeerConfig struct {
	// ICEServers to use for candidate gathering.
	ICEServers []webrtc.ICEServer

	// ConfigureSettingEngine customizes the setting engine before the
	// peer connection is built, for network or timeout tweaks.
	ConfigureSettingEngine func(*webrtc.SettingEngine)

	// LoggerFactory is the factory for creating loggers. It is also
	// handed to the WebRTC engine. If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Peer wraps a WebRTC peer connection behind the media transport
// capability the signaling engine consumes.
type Peer struct {
	pc  *webrtc.PeerConnection
	log logging.LeveledLogger

	mu      sync.Mutex
	onLocal janus.LocalCandidateHandler
}

var _ janus.MediaTransport = (*Peer)(nil)

// NewPeer builds a peer connection with the default codecs and
// interceptors registered.
func NewPeer(config PeerConfig) (*Peer, error) {
	settings := webrtc.SettingEngine{}
	if config.LoggerFactory != nil {
		settings.LoggerFactory = config.LoggerFactory
	}
	if config.ConfigureSettingEngine != nil {
		config.ConfigureSettingEngine(&settings)
	}

	media := &webrtc.MediaEngine{}
	if err := media.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("rtc: register codecs: %w", err)
	}
	registry := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(media, registry); err != nil {
		return nil, fmt.Errorf("rtc: register interceptors: %w", err)
	}

	api := webrtc.NewAPI(
		webrtc.WithSettingEngine(settings),
		webrtc.WithMediaEngine(media),
		webrtc.WithInterceptorRegistry(registry),
	)
	pc, err := api.NewPeerConnection(webrtc.Configuration{
		ICEServers: config.ICEServers,
	})
	if err != nil {
		return nil, fmt.Errorf("rtc: new peer connection: %w", err)
	}

	p := &Peer{pc: pc}
	if config.LoggerFactory != nil {
		p.log = config.LoggerFactory.NewLogger("rtc")
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		p.mu.Lock()
		handler := p.onLocal
		p.mu.Unlock()
		if handler == nil {
			return
		}
		if c == nil {
			handler(nil)
			return
		}
		init := c.ToJSON()
		if p.log != nil {
			p.log.Tracef("local candidate: %s", init.Candidate)
		}
		handler(&message.Candidate{
			Candidate:     init.Candidate,
			SDPMid:        init.SDPMid,
			SDPMLineIndex: init.SDPMLineIndex,
		})
	})

	return p, nil
}

// CreateOffer produces an offer and installs it as the local
// description, which starts candidate gathering.
func (p *Peer) CreateOffer(_ context.Context, iceRestart bool) (*message.SessionDescription, error) {
	var opts *webrtc.OfferOptions
	if iceRestart {
		opts = &webrtc.OfferOptions{ICERestart: true}
	}
	offer, err := p.pc.CreateOffer(opts)
	if err != nil {
		return nil, fmt.Errorf("rtc: create offer: %w", err)
	}
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return nil, fmt.Errorf("rtc: set local description: %w", err)
	}
	return &message.SessionDescription{Type: offer.Type.String(), SDP: offer.SDP}, nil
}

// CreateAnswer produces an answer to the current remote description
// and installs it as the local description.
func (p *Peer) CreateAnswer(_ context.Context) (*message.SessionDescription, error) {
	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return nil, fmt.Errorf("rtc: create answer: %w", err)
	}
	if err := p.pc.SetLocalDescription(answer); err != nil {
		return nil, fmt.Errorf("rtc: set local description: %w", err)
	}
	return &message.SessionDescription{Type: answer.Type.String(), SDP: answer.SDP}, nil
}

// SetRemoteDescription applies the peer's description.
func (p *Peer) SetRemoteDescription(sd *message.SessionDescription) error {
	if sd == nil {
		return ErrNoDescription
	}
	switch sd.Type {
	case "offer", "answer", "pranswer", "rollback":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDescriptionType, sd.Type)
	}

	desc := webrtc.SessionDescription{
		Type: webrtc.NewSDPType(sd.Type),
		SDP:  sd.SDP,
	}
	if err := p.pc.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("rtc: set remote description: %w", err)
	}
	return nil
}

// AddRemoteCandidate adds a remote ICE candidate. The end-of-
// candidates marker is a no-op here, pion handles it implicitly.
func (p *Peer) AddRemoteCandidate(c *message.Candidate) error {
	if c == nil || c.Completed {
		return nil
	}
	init := webrtc.ICECandidateInit{
		Candidate:     c.Candidate,
		SDPMid:        c.SDPMid,
		SDPMLineIndex: c.SDPMLineIndex,
	}
	if err := p.pc.AddICECandidate(init); err != nil {
		return fmt.Errorf("rtc: add ice candidate: %w", err)
	}
	return nil
}

// OnLocalCandidate registers the local candidate handler. Register it
// before creating a description to see every candidate.
func (p *Peer) OnLocalCandidate(h janus.LocalCandidateHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onLocal = h
}

// LocalDescription returns the current local description, including
// the candidates gathered so far. Nil before the first offer or
// answer.
func (p *Peer) LocalDescription() *message.SessionDescription {
	desc := p.pc.LocalDescription()
	if desc == nil {
		return nil
	}
	return &message.SessionDescription{Type: desc.Type.String(), SDP: desc.SDP}
}

// GatheringComplete waits for local candidate gathering to finish,
// after which LocalDescription carries the full candidate set.
func (p *Peer) GatheringComplete(ctx context.Context) error {
	done := webrtc.GatheringCompletePromise(p.pc)
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CreateDataChannel opens a data channel negotiated in the SDP.
func (p *Peer) CreateDataChannel(label string, opts *datachannel.Options) (datachannel.Channel, error) {
	var init *webrtc.DataChannelInit
	if opts != nil {
		init = &webrtc.DataChannelInit{}
		if opts.Unordered {
			ordered := false
			init.Ordered = &ordered
		}
		if opts.MaxRetransmits != nil {
			init.MaxRetransmits = opts.MaxRetransmits
		}
		if opts.Protocol != "" {
			protocol := opts.Protocol
			init.Protocol = &protocol
		}
	}

	dc, err := p.pc.CreateDataChannel(label, init)
	if err != nil {
		return nil, fmt.Errorf("rtc: create data channel: %w", err)
	}
	return newDataChannel(dc), nil
}

// OnDataChannel registers the callback for channels opened by the
// remote peer.
func (p *Peer) OnDataChannel(f func(datachannel.Channel)) {
	p.pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		f(newDataChannel(dc))
	})
}

// AddTrack adds a local track for sending.
func (p *Peer) AddTrack(track webrtc.TrackLocal) (*webrtc.RTPSender, error) {
	return p.pc.AddTrack(track)
}

// ReplaceTrack swaps the outgoing track on the sender carrying the
// same kind of media, without renegotiation.
func (p *Peer) ReplaceTrack(track webrtc.TrackLocal) error {
	for _, sender := range p.pc.GetSenders() {
		current := sender.Track()
		if current == nil || current.Kind() != track.Kind() {
			continue
		}
		return sender.ReplaceTrack(track)
	}
	return fmt.Errorf("%w: %s", ErrNoSender, track.Kind())
}

// OnRemoteTrack registers the callback for inbound media.
func (p *Peer) OnRemoteTrack(f func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)) {
	p.pc.OnTrack(f)
}

// OnConnectionStateChange registers the peer connection state
// callback.
func (p *Peer) OnConnectionStateChange(f func(state webrtc.PeerConnectionState)) {
	p.pc.OnConnectionStateChange(f)
}

// PeerConnection exposes the underlying connection for anything this
// wrapper does not cover.
func (p *Peer) PeerConnection() *webrtc.PeerConnection {
	return p.pc
}

// Close releases the peer connection.
func (p *Peer) Close() error {
	return p.pc.Close()
}
