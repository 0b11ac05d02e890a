// Package integration contains end-to-end tests that drive the
// client through complete gateway conversations.
//
// This file (testmedia.go) provides scripted media doubles so the
// signaling flows run without real ICE or DTLS.
package integration

import (
	"context"
	"sync"

	"github.com/backkem/janus/pkg/datachannel"
	"github.com/backkem/janus/pkg/janus"
	"github.com/backkem/janus/pkg/message"
)

// scriptedMedia implements janus.MediaTransport with canned
// descriptions and records everything applied to it.
type scriptedMedia struct {
	mu         sync.Mutex
	closed     bool
	restarts   int
	remote     []message.SessionDescription
	candidates []message.Candidate
	onLocal    janus.LocalCandidateHandler
	channel    *scriptedChannel
}

func (m *scriptedMedia) CreateOffer(_ context.Context, iceRestart bool) (*message.SessionDescription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if iceRestart {
		m.restarts++
	}
	return &message.SessionDescription{Type: "offer", SDP: "v=0\r\ns=-\r\n"}, nil
}

func (m *scriptedMedia) CreateAnswer(context.Context) (*message.SessionDescription, error) {
	return &message.SessionDescription{Type: "answer", SDP: "v=0\r\ns=-\r\n"}, nil
}

func (m *scriptedMedia) SetRemoteDescription(sd *message.SessionDescription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remote = append(m.remote, *sd)
	return nil
}

func (m *scriptedMedia) AddRemoteCandidate(c *message.Candidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candidates = append(m.candidates, *c)
	return nil
}

func (m *scriptedMedia) OnLocalCandidate(f janus.LocalCandidateHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onLocal = f
}

func (m *scriptedMedia) CreateDataChannel(label string, _ *datachannel.Options) (datachannel.Channel, error) {
	ch := newScriptedChannel(label)
	m.mu.Lock()
	m.channel = ch
	m.mu.Unlock()
	return ch, nil
}

func (m *scriptedMedia) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *scriptedMedia) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *scriptedMedia) remoteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.remote)
}

func (m *scriptedMedia) candidateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.candidates)
}

func (m *scriptedMedia) restartCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.restarts
}

func (m *scriptedMedia) localHandler() janus.LocalCandidateHandler {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.onLocal
}

func (m *scriptedMedia) dataChannel() *scriptedChannel {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.channel
}

// scriptedChannel is an in-memory, always-open data channel.
type scriptedChannel struct {
	label string

	mu    sync.Mutex
	sent  [][]byte
	onMsg func(data []byte, binary bool)
}

func newScriptedChannel(label string) *scriptedChannel {
	return &scriptedChannel{label: label}
}

func (c *scriptedChannel) Label() string { return c.label }
func (c *scriptedChannel) Ready() bool   { return true }

func (c *scriptedChannel) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, data)
	return nil
}

func (c *scriptedChannel) OnOpen(f func())  {}
func (c *scriptedChannel) OnClose(f func()) {}

func (c *scriptedChannel) OnMessage(f func(data []byte, binary bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMsg = f
}

// takeSent pops the oldest outbound payload, or nil.
func (c *scriptedChannel) takeSent() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		return nil
	}
	data := c.sent[0]
	c.sent = c.sent[1:]
	return data
}

// deliver injects one inbound text payload.
func (c *scriptedChannel) deliver(data []byte) {
	c.mu.Lock()
	f := c.onMsg
	c.mu.Unlock()
	if f != nil {
		f(data, false)
	}
}
