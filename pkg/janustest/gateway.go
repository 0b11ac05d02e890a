// Package janustest provides an in-process mock gateway for testing
// code that speaks the Janus WebSocket protocol.
//
// The package provides:
//   - A WebSocket endpoint answering the session and handle requests
//   - Scripted plugin replies, failure injection and frame dropping
//   - Unsolicited frame pushes for event and teardown scenarios
//   - A feed of the decoded frames the client sent
package janustest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/backkem/janus/pkg/message"
)

// Request is one decoded client frame.
type Request struct {
	Kind        message.Kind                `json:"janus"`
	Transaction string                      `json:"transaction"`
	SessionID   uint64                      `json:"session_id"`
	HandleID    uint64                      `json:"handle_id"`
	Plugin      string                      `json:"plugin"`
	OpaqueID    string                      `json:"opaque_id"`
	Token       string                      `json:"token"`
	APISecret   string                      `json:"apisecret"`
	Body        json.RawMessage             `json:"body"`
	JSEP        *message.SessionDescription `json:"jsep"`
	Candidate   json.RawMessage             `json:"candidate"`
	Candidates  json.RawMessage             `json:"candidates"`
}

// MessageHandler scripts the reply to a message request. Each
// returned frame is sent in order; frames without a "transaction" or
// "session_id" get the request's stamped in.
type MessageHandler func(req Request) []map[string]any

// Config adjusts gateway behavior.
type Config struct {
	// MessageHandler overrides the default synchronous success reply
	// to message requests.
	MessageHandler MessageHandler

	// FirstID seeds the id counter used for sessions and handles.
	// Defaults to 1000.
	FirstID uint64
}

type failure struct {
	code   int
	reason string
}

// Gateway is a scripted mock gateway bound to a real WebSocket
// endpoint.
type Gateway struct {
	t   testing.TB
	srv *httptest.Server

	upgrader  websocket.Upgrader
	onMessage MessageHandler
	requests  chan Request

	mu       sync.Mutex
	conns    []*gatewayConn
	nextID   uint64
	plugins  map[uint64]string
	fail     map[message.Kind]failure
	drop     map[message.Kind]bool
	received []Request
}

type gatewayConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (gc *gatewayConn) send(frame map[string]any) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	gc.writeMu.Lock()
	defer gc.writeMu.Unlock()
	return gc.conn.WriteMessage(websocket.TextMessage, data)
}

// New starts a gateway. It is torn down with the test.
func New(t testing.TB, config Config) *Gateway {
	t.Helper()

	firstID := config.FirstID
	if firstID == 0 {
		firstID = 1000
	}

	g := &Gateway{
		t:         t,
		upgrader:  websocket.Upgrader{Subprotocols: []string{"janus-protocol"}},
		onMessage: config.MessageHandler,
		requests:  make(chan Request, 128),
		nextID:    firstID,
		plugins:   make(map[uint64]string),
		fail:      make(map[message.Kind]failure),
		drop:      make(map[message.Kind]bool),
	}
	g.srv = httptest.NewServer(http.HandlerFunc(g.serve))
	t.Cleanup(g.Close)
	return g
}

// URL returns the ws:// endpoint of the gateway.
func (g *Gateway) URL() string {
	return "ws" + strings.TrimPrefix(g.srv.URL, "http")
}

// Close drops every client connection and stops the endpoint.
func (g *Gateway) Close() {
	g.mu.Lock()
	conns := g.conns
	g.conns = nil
	g.mu.Unlock()
	for _, gc := range conns {
		_ = gc.conn.Close()
	}
	g.srv.Close()
}

// Fail makes every subsequent request of the given kind answer with
// an error frame carrying code and reason.
func (g *Gateway) Fail(kind message.Kind, code int, reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fail[kind] = failure{code: code, reason: reason}
}

// Drop makes the gateway swallow every subsequent request of the
// given kind without replying.
func (g *Gateway) Drop(kind message.Kind) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.drop[kind] = true
}

// Push sends an unsolicited frame to the most recent client
// connection.
func (g *Gateway) Push(frame map[string]any) {
	g.t.Helper()

	g.mu.Lock()
	var gc *gatewayConn
	if n := len(g.conns); n > 0 {
		gc = g.conns[n-1]
	}
	g.mu.Unlock()

	if gc == nil {
		g.t.Fatal("janustest: push without a client connection")
		return
	}
	if err := gc.send(frame); err != nil {
		g.t.Fatalf("janustest: push: %v", err)
	}
}

// CloseClient drops the most recent client connection without a close
// handshake, simulating a transport loss.
func (g *Gateway) CloseClient() {
	g.mu.Lock()
	var gc *gatewayConn
	if n := len(g.conns); n > 0 {
		gc = g.conns[n-1]
	}
	g.mu.Unlock()

	if gc != nil {
		_ = gc.conn.Close()
	}
}

// Requests exposes the decoded client frames in arrival order.
func (g *Gateway) Requests() <-chan Request {
	return g.requests
}

// Received returns a snapshot of every frame seen so far.
func (g *Gateway) Received() []Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Request, len(g.received))
	copy(out, g.received)
	return out
}

// ConnCount returns the number of client connections accepted so far.
func (g *Gateway) ConnCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.conns)
}

func (g *Gateway) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	gc := &gatewayConn{conn: conn}

	g.mu.Lock()
	g.conns = append(g.conns, gc)
	g.mu.Unlock()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			continue
		}

		g.mu.Lock()
		g.received = append(g.received, req)
		g.mu.Unlock()
		select {
		case g.requests <- req:
		default:
		}

		g.dispatch(gc, req)
	}
}

func (g *Gateway) dispatch(gc *gatewayConn, req Request) {
	g.mu.Lock()
	if g.drop[req.Kind] {
		g.mu.Unlock()
		return
	}
	injected, failed := g.fail[req.Kind]
	g.mu.Unlock()

	if failed {
		g.reply(gc, req, map[string]any{
			"janus": "error",
			"error": map[string]any{
				"code":   injected.code,
				"reason": injected.reason,
			},
		})
		return
	}

	switch req.Kind {
	case message.KindCreate:
		id := g.allocID()
		g.reply(gc, req, map[string]any{
			"janus": "success",
			"data":  map[string]any{"id": id},
		})

	case message.KindClaim:
		g.reply(gc, req, map[string]any{"janus": "success"})

	case message.KindAttach:
		id := g.allocID()
		g.mu.Lock()
		g.plugins[id] = req.Plugin
		g.mu.Unlock()
		g.reply(gc, req, map[string]any{
			"janus": "success",
			"data":  map[string]any{"id": id},
		})

	case message.KindMessage:
		if g.onMessage != nil {
			for _, frame := range g.onMessage(req) {
				g.reply(gc, req, frame)
			}
			return
		}
		g.mu.Lock()
		plugin := g.plugins[req.HandleID]
		g.mu.Unlock()
		g.reply(gc, req, map[string]any{
			"janus":  "success",
			"sender": req.HandleID,
			"plugindata": map[string]any{
				"plugin": plugin,
				"data":   map[string]any{},
			},
		})

	case message.KindKeepAlive, message.KindTrickle:
		g.reply(gc, req, map[string]any{"janus": "ack"})

	case message.KindDetach, message.KindDestroy:
		g.reply(gc, req, map[string]any{"janus": "success"})

	case message.KindInfo:
		g.reply(gc, req, map[string]any{
			"janus":          "server_info",
			"name":           "Janus WebRTC Server",
			"version":        1203,
			"version_string": "1.2.3",
			"data_channels":  true,
			"plugins": map[string]any{
				"janus.plugin.echotest": map[string]any{
					"name":           "JANUS EchoTest plugin",
					"version":        7,
					"version_string": "0.0.7",
				},
			},
		})

	default:
		g.reply(gc, req, map[string]any{
			"janus": "error",
			"error": map[string]any{
				"code":   453,
				"reason": "unknown request",
			},
		})
	}
}

// reply stamps the correlation fields of the request into the frame
// unless the script already set them, then sends it.
func (g *Gateway) reply(gc *gatewayConn, req Request, frame map[string]any) {
	if _, ok := frame["transaction"]; !ok && req.Transaction != "" {
		frame["transaction"] = req.Transaction
	}
	if _, ok := frame["session_id"]; !ok && req.SessionID != 0 {
		frame["session_id"] = req.SessionID
	}
	if err := gc.send(frame); err != nil && g.t != nil {
		g.t.Logf("janustest: reply: %v", err)
	}
}

func (g *Gateway) allocID() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextID
	g.nextID++
	return id
}
