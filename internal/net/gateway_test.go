package net

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/gunzgo/server/internal/auth"
	"github.com/gunzgo/server/internal/match"
	"github.com/gunzgo/server/internal/protocol"
	"github.com/gunzgo/server/internal/world"
)

type pipeConn struct {
	in     chan []byte
	out    chan []byte
	closed chan struct{}
	once   sync.Once
}

func newPipe() *pipeConn {
	return &pipeConn{in: make(chan []byte, 16), out: make(chan []byte, 64), closed: make(chan struct{})}
}

func (p *pipeConn) ReadMessage() ([]byte, error) {
	select {
	case m := <-p.in:
		return m, nil
	case <-p.closed:
		return nil, io.EOF
	}
}

func (p *pipeConn) WriteMessage(data []byte, _ time.Time) error {
	select {
	case p.out <- data:
		return nil
	case <-p.closed:
		return io.ErrClosedPipe
	}
}

func (p *pipeConn) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func (p *pipeConn) RemoteAddr() string { return "pipe" }

type frame struct {
	Op      protocol.OpCode `json:"op"`
	Payload json.RawMessage `json:"payload"`
}

// next waits for the next message with the given op.
func (p *pipeConn) next(t *testing.T, op protocol.OpCode) frame {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case m := <-p.out:
			var f frame
			if err := json.Unmarshal(m, &f); err != nil {
				t.Fatal(err)
			}
			if f.Op == op {
				return f
			}
		case <-deadline:
			t.Fatalf("no %v received", op)
		}
	}
}

func (p *pipeConn) send(t *testing.T, op protocol.OpCode, payload any) {
	t.Helper()
	data, err := NewFramer(protocol.JSONCodec{}).Encode(op, protocol.Wrap(payload, 0))
	if err != nil {
		t.Fatal(err)
	}
	p.in <- data
}

type matchesStub struct {
	mu      sync.Mutex
	joined  []world.Presence
	meta    []map[string]string
	left    []string
	inputs  []match.Input
	joinErr error
}

func (m *matchesStub) Join(_ context.Context, _ string, pr world.Presence, meta map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.joinErr != nil {
		return m.joinErr
	}
	m.joined = append(m.joined, pr)
	m.meta = append(m.meta, meta)
	return nil
}

func (m *matchesStub) Leave(matchID string, _ world.Presence) {
	m.mu.Lock()
	m.left = append(m.left, matchID)
	m.mu.Unlock()
}

func (m *matchesStub) Input(_ string, in match.Input) error {
	m.mu.Lock()
	m.inputs = append(m.inputs, in)
	m.mu.Unlock()
	return nil
}

func (m *matchesStub) snapshot() (int, int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.joined), len(m.left), len(m.inputs)
}

func newTestGateway(t *testing.T) (*Gateway, *matchesStub, *auth.Issuer) {
	t.Helper()
	iss, err := auth.NewIssuer("secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	gw := NewGateway(GatewayConfig{Issuer: iss})
	stub := &matchesStub{}
	gw.Bind(stub)
	t.Cleanup(gw.Shutdown)
	return gw, stub, iss
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestGatewayInBandAuth(t *testing.T) {
	gw, _, iss := newTestGateway(t)
	conn := newPipe()
	sess := gw.Open(conn, nil)

	tok, _ := iss.Issue("u1", "alice", "admin")
	conn.send(t, protocol.CAuth, protocol.AuthRequest{Token: tok})
	f := conn.next(t, protocol.SAuth)

	var reply protocol.AuthReply
	if err := json.Unmarshal(f.Payload, &reply); err != nil {
		t.Fatal(err)
	}
	if reply.UserID != "u1" || reply.SessionID != sess.ID {
		t.Errorf("reply = %+v", reply)
	}
	if id := sess.Identity(); id == nil || id.Role != "admin" {
		t.Errorf("identity = %+v", id)
	}
}

func TestGatewayRejectsUnauthenticated(t *testing.T) {
	gw, stub, _ := newTestGateway(t)
	conn := newPipe()
	sess := gw.Open(conn, nil)

	conn.send(t, protocol.CReady, struct{}{})
	f := conn.next(t, protocol.SMatchError)
	var me protocol.MatchError
	json.Unmarshal(f.Payload, &me)
	if me.Code != protocol.ErrCodeAuth {
		t.Errorf("error = %+v", me)
	}
	waitFor(t, sess.IsClosed)
	if _, _, n := stub.snapshot(); n != 0 {
		t.Error("input routed before auth")
	}
}

func TestGatewayJoinInputLeave(t *testing.T) {
	gw, stub, _ := newTestGateway(t)
	conn := newPipe()
	sess := gw.Open(conn, &Identity{UserID: "u1", Username: "alice", Role: "player"})
	conn.next(t, protocol.SAuth)

	conn.send(t, protocol.CReady, struct{}{})
	conn.next(t, protocol.SMatchError)

	conn.send(t, protocol.CMatchJoin, protocol.JoinRequest{MatchID: "m1", Password: "pw"})
	conn.next(t, protocol.SMatchJoined)
	if sess.MatchID() != "m1" {
		t.Errorf("match id = %q", sess.MatchID())
	}
	stub.mu.Lock()
	pr, meta := stub.joined[0], stub.meta[0]
	stub.mu.Unlock()
	if pr.SessionID != sess.ID || pr.UserID != "u1" || meta["role"] != "player" || meta["password"] != "pw" {
		t.Errorf("join = %+v %v", pr, meta)
	}

	conn.send(t, protocol.CInputMove, map[string]any{"x": 1})
	waitFor(t, func() bool { _, _, n := stub.snapshot(); return n == 1 })
	stub.mu.Lock()
	in := stub.inputs[0]
	stub.mu.Unlock()
	if in.Op != protocol.CInputMove || in.SessionID != sess.ID {
		t.Errorf("input = %+v", in)
	}

	conn.Close()
	waitFor(t, func() bool { _, l, _ := stub.snapshot(); return l == 1 })
	waitFor(t, func() bool { return gw.Len() == 0 })
}

func TestGatewayJoinRejected(t *testing.T) {
	gw, stub, _ := newTestGateway(t)
	stub.joinErr = &match.JoinError{Reason: match.RejectPassword}
	conn := newPipe()
	sess := gw.Open(conn, &Identity{UserID: "u1"})

	conn.send(t, protocol.CMatchJoin, protocol.JoinRequest{MatchID: "m1"})
	f := conn.next(t, protocol.SMatchError)
	var me protocol.MatchError
	json.Unmarshal(f.Payload, &me)
	if me.Code != protocol.ErrCodeJoin || me.Detail != match.RejectPassword {
		t.Errorf("error = %+v", me)
	}
	if sess.MatchID() != "" {
		t.Error("rejected join left a match id")
	}
}

func TestGatewayRouterSendAndDisconnect(t *testing.T) {
	gw, _, _ := newTestGateway(t)
	conn := newPipe()
	sess := gw.Open(conn, &Identity{UserID: "u1"})

	gw.Send(sess.ID, protocol.TimeSync, protocol.TimeSyncReply{ServerTime: 7})
	conn.next(t, protocol.TimeSync)
	gw.Send("unknown", protocol.TimeSync, nil)

	gw.Disconnect(sess.ID)
	waitFor(t, sess.IsClosed)
}
