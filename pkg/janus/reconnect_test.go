package janus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pion/transport/v3/test"

	"github.com/backkem/janus/pkg/janustest"
	"github.com/backkem/janus/pkg/message"
)

// Reconnect claims the session over a fresh socket and restarts ICE
// on the handles that negotiate in band.
func TestReconnectClaimsAndRestartsICE(t *testing.T) {
	lim := test.TimeOut(5 * time.Second)
	defer lim.Stop()

	gw := janustest.New(t, janustest.Config{})
	conn := dialGateway(t, gw, Config{})
	sid := conn.SessionID()

	media := &fakeMedia{}
	attachEcho(t, conn, AttachOptions{Media: media})
	attachEcho(t, conn, AttachOptions{OutOfBand: true})

	if err := conn.Reconnect(context.Background()); err != nil {
		t.Fatalf("Reconnect: %v", err)
	}

	if got := gw.ConnCount(); got != 2 {
		t.Errorf("gateway saw %d connections, want 2", got)
	}
	if got := conn.SessionID(); got != sid {
		t.Errorf("SessionID() after Reconnect = %d, want %d", got, sid)
	}
	if !conn.Connected() {
		t.Error("Connected() = false after Reconnect")
	}

	waitForKind(t, gw, message.KindCreate)
	claim := waitForKind(t, gw, message.KindClaim)
	if claim.SessionID != sid {
		t.Errorf("claim frame session_id = %d, want %d", claim.SessionID, sid)
	}

	// Only the in-band media handle renegotiates.
	waitForKind(t, gw, message.KindMessage)
	if media.restarts != 1 {
		t.Errorf("ice restarts = %d, want 1", media.restarts)
	}
	if got := countKind(gw, message.KindMessage); got != 1 {
		t.Errorf("%d restart messages sent, want 1", got)
	}
	if got := conn.handles.Count(); got != 2 {
		t.Errorf("handle table after Reconnect has %d entries, want 2", got)
	}
}

func TestReconnectWithoutSessionIsNoOp(t *testing.T) {
	gw := janustest.New(t, janustest.Config{})
	conn, err := NewConnection(Config{URL: gw.URL()})
	if err != nil {
		t.Fatalf("NewConnection: %v", err)
	}

	// Nothing to reclaim, so nothing happens.
	if err := conn.Reconnect(context.Background()); err != nil {
		t.Fatalf("Reconnect before Connect = %v, want nil", err)
	}
	if conn.Connected() {
		t.Error("Reconnect established a connection without a session")
	}
	if got := gw.ConnCount(); got != 0 {
		t.Errorf("gateway connections = %d, want 0", got)
	}
}

func TestReconnectWithBackoffRecovers(t *testing.T) {
	lim := test.TimeOut(5 * time.Second)
	defer lim.Stop()

	gw := janustest.New(t, janustest.Config{})
	lost := make(chan error, 1)
	conn := dialGateway(t, gw, Config{
		DisconnectedHandler: func(err error) { lost <- err },
	})
	sid := conn.SessionID()

	gw.CloseClient()
	select {
	case <-lost:
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect never observed")
	}

	if err := ReconnectWithBackoff(context.Background(), conn, nil); err != nil {
		t.Fatalf("ReconnectWithBackoff: %v", err)
	}
	if !conn.Connected() {
		t.Error("Connected() = false after recovery")
	}
	if got := conn.SessionID(); got != sid {
		t.Errorf("SessionID() after recovery = %d, want %d", got, sid)
	}
}

// A gateway rejection ends the retry loop immediately: the claim is
// deterministic, waiting longer cannot change the answer.
func TestReconnectWithBackoffGatewayErrorIsPermanent(t *testing.T) {
	lim := test.TimeOut(5 * time.Second)
	defer lim.Stop()

	gw := janustest.New(t, janustest.Config{})
	conn := dialGateway(t, gw, Config{})

	gw.Fail(message.KindClaim, CodeSessionNotFound, "No such session")

	err := ReconnectWithBackoff(context.Background(), conn, nil)
	var ge *GatewayError
	if !errors.As(err, &ge) || ge.Code != CodeSessionNotFound {
		t.Fatalf("ReconnectWithBackoff = %v, want gateway error %d", err, CodeSessionNotFound)
	}
	if got := countKind(gw, message.KindClaim); got != 1 {
		t.Errorf("%d claim attempts, want 1", got)
	}
}

func TestReconnectWithBackoffRetriesTransportErrors(t *testing.T) {
	lim := test.TimeOut(5 * time.Second)
	defer lim.Stop()

	gw := janustest.New(t, janustest.Config{})
	conn := dialGateway(t, gw, Config{})
	gw.Close()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 10 * time.Millisecond
	policy.MaxElapsedTime = 150 * time.Millisecond

	err := ReconnectWithBackoff(context.Background(), conn, policy)
	if err == nil {
		t.Fatal("ReconnectWithBackoff succeeded against a dead gateway")
	}
	var ge *GatewayError
	if errors.As(err, &ge) {
		t.Fatalf("dial failure surfaced as a gateway error: %v", err)
	}
}
