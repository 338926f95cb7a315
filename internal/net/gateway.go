package net

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gunzgo/server/internal/auth"
	"github.com/gunzgo/server/internal/match"
	"github.com/gunzgo/server/internal/protocol"
	"github.com/gunzgo/server/internal/world"
	"go.uber.org/zap"
)

// Matches is the part of the match hub the gateway drives.
type Matches interface {
	Join(ctx context.Context, matchID string, pr world.Presence, meta map[string]string) error
	Leave(matchID string, pr world.Presence)
	Input(matchID string, in match.Input) error
}

type GatewayConfig struct {
	Issuer       *auth.Issuer
	Codec        protocol.Codec
	OutQueueSize int
	PktPerSec    int
	WriteTimeout time.Duration
	JoinTimeout  time.Duration
	Log          *zap.Logger
}

// Gateway owns the connected sessions of every transport. It routes inbound
// messages to matches and implements match.Router for the way back.
type Gateway struct {
	cfg    GatewayConfig
	framer Framer
	log    *zap.Logger
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
	matches  Matches
}

var _ match.Router = (*Gateway)(nil)

func NewGateway(cfg GatewayConfig) *Gateway {
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	if cfg.Codec == nil {
		cfg.Codec = protocol.JSONCodec{}
	}
	if cfg.OutQueueSize <= 0 {
		cfg.OutQueueSize = 256
	}
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = 5 * time.Second
	}
	return &Gateway{
		cfg:      cfg,
		framer:   NewFramer(cfg.Codec),
		log:      cfg.Log,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Bind attaches the match hub. The hub is built with the gateway as its
// router, so the two are wired after construction.
func (g *Gateway) Bind(m Matches) {
	g.mu.Lock()
	g.matches = m
	g.mu.Unlock()
}

func (g *Gateway) hub() Matches {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.matches
}

// Open registers a connection and starts its loops. A nil identity means the
// client must authenticate with C_AUTH first.
func (g *Gateway) Open(conn Conn, ident *Identity) *Session {
	sess := NewSession(conn, uuid.NewString(), g.cfg.OutQueueSize, g.cfg.PktPerSec, g.cfg.WriteTimeout, g.log)
	sess.SetIdentity(ident)

	g.mu.Lock()
	g.sessions[sess.ID] = sess
	g.mu.Unlock()

	g.log.Info("session opened", zap.String("session", sess.ID), zap.String("ip", sess.IP))
	sess.Start(g.handle, g.closed)
	if ident != nil {
		g.sendAuth(sess, ident)
	}
	return sess
}

func (g *Gateway) session(id string) *Session {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.sessions[id]
}

func (g *Gateway) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.sessions)
}

// Send encodes one message for a session. Unknown sessions are skipped.
func (g *Gateway) Send(sessionID string, op protocol.OpCode, payload any) {
	sess := g.session(sessionID)
	if sess == nil {
		return
	}
	data, err := g.framer.Encode(op, protocol.Wrap(payload, g.now().UnixMilli()))
	if err != nil {
		g.log.Error("encode message", zap.Stringer("op", op), zap.Error(err))
		return
	}
	sess.Enqueue(data)
}

func (g *Gateway) Disconnect(sessionID string) {
	if sess := g.session(sessionID); sess != nil {
		sess.Close()
	}
}

// Shutdown closes every session.
func (g *Gateway) Shutdown() {
	g.mu.RLock()
	all := make([]*Session, 0, len(g.sessions))
	for _, s := range g.sessions {
		all = append(all, s)
	}
	g.mu.RUnlock()
	for _, s := range all {
		s.Close()
	}
}

func (g *Gateway) closed(sess *Session) {
	g.mu.Lock()
	delete(g.sessions, sess.ID)
	g.mu.Unlock()

	g.leave(sess)
	g.log.Info("session closed", zap.String("session", sess.ID))
}

func presenceOf(sess *Session, ident *Identity) world.Presence {
	return world.Presence{SessionID: sess.ID, UserID: ident.UserID, Username: ident.Username}
}

func (g *Gateway) handle(sess *Session, msg []byte) {
	op, data, err := g.framer.Decode(msg)
	if err != nil {
		g.log.Debug("bad frame", zap.String("session", sess.ID), zap.Error(err))
		return
	}

	ident := sess.Identity()
	if ident == nil {
		g.authenticate(sess, op, data)
		return
	}

	switch op {
	case protocol.CAuth:
		// Already authenticated.
	case protocol.CMatchJoin:
		g.join(sess, ident, data)
	case protocol.CMatchLeave:
		g.leave(sess)
	default:
		matchID := sess.MatchID()
		if matchID == "" {
			g.Send(sess.ID, protocol.SMatchError, protocol.MatchError{Code: protocol.ErrCodeNotInMatch, Detail: op.String()})
			return
		}
		hub := g.hub()
		if hub == nil {
			return
		}
		err := hub.Input(matchID, match.Input{SessionID: sess.ID, Op: op, Data: data})
		switch {
		case errors.Is(err, match.ErrInboxFull):
			g.log.Warn("match inbox full, input dropped", zap.String("match", matchID), zap.Stringer("op", op))
		case errors.Is(err, match.ErrNoMatch):
			sess.SetMatchID("")
		}
	}
}

func (g *Gateway) authenticate(sess *Session, op protocol.OpCode, data []byte) {
	if op != protocol.CAuth || g.cfg.Issuer == nil {
		g.rejectAuth(sess, "authentication required")
		return
	}
	var req protocol.AuthRequest
	if err := g.framer.Codec().Decode(data, &req); err != nil {
		g.rejectAuth(sess, "malformed auth request")
		return
	}
	claims, err := g.cfg.Issuer.Verify(req.Token)
	if err != nil {
		g.rejectAuth(sess, "invalid token")
		return
	}
	ident := &Identity{UserID: claims.Subject, Username: claims.Username, Role: claims.Role}
	sess.SetIdentity(ident)
	g.sendAuth(sess, ident)
}

func (g *Gateway) sendAuth(sess *Session, ident *Identity) {
	g.Send(sess.ID, protocol.SAuth, protocol.AuthReply{
		SessionID: sess.ID,
		UserID:    ident.UserID,
		Username:  ident.Username,
	})
}

func (g *Gateway) rejectAuth(sess *Session, detail string) {
	g.Send(sess.ID, protocol.SMatchError, protocol.MatchError{Code: protocol.ErrCodeAuth, Detail: detail})
	// Let the writer flush the reply before the connection drops.
	time.AfterFunc(100*time.Millisecond, sess.Close)
}

func (g *Gateway) join(sess *Session, ident *Identity, data []byte) {
	hub := g.hub()
	if hub == nil {
		return
	}
	var req protocol.JoinRequest
	if err := g.framer.Codec().Decode(data, &req); err != nil || req.MatchID == "" {
		g.Send(sess.ID, protocol.SMatchError, protocol.MatchError{Code: protocol.ErrCodeJoin, Detail: "malformed join request"})
		return
	}
	if cur := sess.MatchID(); cur != "" {
		if cur == req.MatchID {
			return
		}
		g.leave(sess)
	}

	meta := map[string]string{"password": req.Password, "role": ident.Role}
	if req.Spectator {
		meta["spectator"] = "true"
	}
	ctx, cancel := context.WithTimeout(context.Background(), g.cfg.JoinTimeout)
	defer cancel()

	// The match id is set first so inputs sent right after the welcome
	// are routed.
	sess.SetMatchID(req.MatchID)
	if err := hub.Join(ctx, req.MatchID, presenceOf(sess, ident), meta); err != nil {
		sess.SetMatchID("")
		detail := err.Error()
		var je *match.JoinError
		if errors.As(err, &je) {
			detail = je.Reason
		}
		g.Send(sess.ID, protocol.SMatchError, protocol.MatchError{Code: protocol.ErrCodeJoin, Detail: detail})
		return
	}
	g.Send(sess.ID, protocol.SMatchJoined, protocol.Joined{MatchID: req.MatchID})
}

func (g *Gateway) leave(sess *Session) {
	matchID := sess.MatchID()
	ident := sess.Identity()
	if matchID == "" || ident == nil {
		return
	}
	sess.SetMatchID("")
	if hub := g.hub(); hub != nil {
		hub.Leave(matchID, presenceOf(sess, ident))
	}
}
