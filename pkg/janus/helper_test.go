package janus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/backkem/janus/pkg/datachannel"
	"github.com/backkem/janus/pkg/janustest"
	"github.com/backkem/janus/pkg/message"
)

// dialGateway wires a Connection to the mock gateway. Keep-alive is
// off unless the test sets an interval, so frame traffic stays
// deterministic.
func dialGateway(t *testing.T, gw *janustest.Gateway, config Config) *Connection {
	t.Helper()

	if config.URL == "" {
		config.URL = gw.URL()
	}
	if config.KeepAliveInterval == 0 {
		config.KeepAliveInterval = -1
	}
	conn, err := NewConnection(config)
	if err != nil {
		t.Fatalf("NewConnection: %v", err)
	}
	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func attachEcho(t *testing.T, conn *Connection, opts AttachOptions) *Handle {
	t.Helper()

	h, err := conn.Attach(context.Background(), "janus.plugin.echotest", opts)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	return h
}

// waitForKind consumes the gateway's request feed until a frame of
// the wanted kind shows up.
func waitForKind(t *testing.T, gw *janustest.Gateway, kind message.Kind) janustest.Request {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case req := <-gw.Requests():
			if req.Kind == kind {
				return req
			}
		case <-deadline:
			t.Fatalf("timed out waiting for a %s frame", kind)
		}
	}
}

// settle gives the read loop a moment to process pushed frames whose
// effect has no positive signal to wait on.
func settle() {
	time.Sleep(50 * time.Millisecond)
}

// fakeMedia is a MediaTransport double recording everything the
// engine feeds it.
type fakeMedia struct {
	mu         sync.Mutex
	closed     bool
	offers     int
	restarts   int
	remote     []message.SessionDescription
	candidates []message.Candidate
	onLocal    LocalCandidateHandler
	ops        []string
	srdErr     error
	channel    *fakeDataChannel
}

func (m *fakeMedia) CreateOffer(_ context.Context, iceRestart bool) (*message.SessionDescription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offers++
	if iceRestart {
		m.restarts++
	}
	return &message.SessionDescription{Type: "offer", SDP: "v=0\r\ns=-\r\n"}, nil
}

func (m *fakeMedia) CreateAnswer(context.Context) (*message.SessionDescription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &message.SessionDescription{Type: "answer", SDP: "v=0\r\ns=-\r\n"}, nil
}

func (m *fakeMedia) SetRemoteDescription(sd *message.SessionDescription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.srdErr != nil {
		return m.srdErr
	}
	m.remote = append(m.remote, *sd)
	m.ops = append(m.ops, "remote-description")
	return nil
}

func (m *fakeMedia) AddRemoteCandidate(c *message.Candidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candidates = append(m.candidates, *c)
	m.ops = append(m.ops, "candidate")
	return nil
}

func (m *fakeMedia) OnLocalCandidate(h LocalCandidateHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onLocal = h
}

func (m *fakeMedia) CreateDataChannel(label string, _ *datachannel.Options) (datachannel.Channel, error) {
	ch := newFakeDataChannel(label)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channel = ch
	return ch, nil
}

func (m *fakeMedia) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *fakeMedia) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *fakeMedia) remoteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.remote)
}

func (m *fakeMedia) candidateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.candidates)
}

func (m *fakeMedia) opOrder() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.ops))
	copy(out, m.ops)
	return out
}

func (m *fakeMedia) localHandler() LocalCandidateHandler {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.onLocal
}

// fakeDataChannel is an open-by-default Channel double.
type fakeDataChannel struct {
	label string

	mu      sync.Mutex
	ready   bool
	sent    [][]byte
	onMsg   func(data []byte, binary bool)
	onClose func()
}

func newFakeDataChannel(label string) *fakeDataChannel {
	return &fakeDataChannel{label: label, ready: true}
}

func (c *fakeDataChannel) Label() string { return c.label }

func (c *fakeDataChannel) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

func (c *fakeDataChannel) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, data)
	return nil
}

func (c *fakeDataChannel) OnOpen(func()) {}

func (c *fakeDataChannel) OnClose(f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClose = f
}

func (c *fakeDataChannel) OnMessage(f func(data []byte, binary bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMsg = f
}

// deliver injects an inbound text payload.
func (c *fakeDataChannel) deliver(data []byte) {
	c.mu.Lock()
	f := c.onMsg
	c.mu.Unlock()
	if f != nil {
		f(data, false)
	}
}

// takeSent pops the oldest outbound payload, nil if none yet.
func (c *fakeDataChannel) takeSent() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		return nil
	}
	data := c.sent[0]
	c.sent = c.sent[1:]
	return data
}
