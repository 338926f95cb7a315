package net

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Conn is one transport connection carrying whole messages.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte, deadline time.Time) error
	Close() error
	RemoteAddr() string
}

type tcpConn struct {
	c net.Conn
}

func (t tcpConn) ReadMessage() ([]byte, error) { return ReadFrame(t.c) }

func (t tcpConn) WriteMessage(data []byte, deadline time.Time) error {
	t.c.SetWriteDeadline(deadline)
	return WriteFrame(t.c, data)
}

func (t tcpConn) Close() error       { return t.c.Close() }
func (t tcpConn) RemoteAddr() string { return t.c.RemoteAddr().String() }

type wsConn struct {
	c       *websocket.Conn
	msgType int
}

func (w wsConn) ReadMessage() ([]byte, error) {
	_, data, err := w.c.ReadMessage()
	return data, err
}

func (w wsConn) WriteMessage(data []byte, deadline time.Time) error {
	w.c.SetWriteDeadline(deadline)
	return w.c.WriteMessage(w.msgType, data)
}

func (w wsConn) Close() error       { return w.c.Close() }
func (w wsConn) RemoteAddr() string { return w.c.RemoteAddr().String() }

// Identity is the authenticated user behind a session.
type Identity struct {
	UserID   string
	Username string
	Role     string
}

// Session represents a single client connection. Reads and writes run in
// dedicated goroutines; inbound messages are handed to the gateway.
type Session struct {
	ID   string
	conn Conn

	OutQueue chan []byte // writer goroutine reads from here

	IP string

	mu      sync.Mutex // protects ident and matchID
	ident   *Identity
	matchID string

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	// Per-second message rate limiter (readLoop goroutine only, no lock needed)
	pktPerSec  int
	pktCount   int
	pktResetAt int64

	writeTimeout time.Duration
	log          *zap.Logger
}

func NewSession(conn Conn, id string, outSize, pktPerSec int, writeTimeout time.Duration, log *zap.Logger) *Session {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &Session{
		ID:           id,
		conn:         conn,
		OutQueue:     make(chan []byte, outSize),
		IP:           conn.RemoteAddr(),
		closeCh:      make(chan struct{}),
		pktPerSec:    pktPerSec,
		writeTimeout: writeTimeout,
		log:          log.With(zap.String("session", id)),
	}
}

func (s *Session) Identity() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ident
}

func (s *Session) SetIdentity(id *Identity) {
	s.mu.Lock()
	s.ident = id
	s.mu.Unlock()
}

func (s *Session) MatchID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matchID
}

func (s *Session) SetMatchID(id string) {
	s.mu.Lock()
	s.matchID = id
	s.mu.Unlock()
}

// Start launches the reader and writer goroutines. onMessage runs on the
// reader goroutine; onClose runs once after the connection is gone.
func (s *Session) Start(onMessage func(*Session, []byte), onClose func(*Session)) {
	go s.readLoop(onMessage, onClose)
	go s.writeLoop()
}

// Enqueue hands an encoded message to the writer. Non-blocking: if OutQueue
// is full, the session is disconnected (backpressure).
func (s *Session) Enqueue(data []byte) {
	if s.closed.Load() {
		return
	}
	select {
	case s.OutQueue <- data:
	default:
		s.log.Warn("output queue full, dropping slow connection")
		s.Close()
	}
}

// Close gracefully shuts down the session.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.closeCh)
		s.conn.Close()
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

func (s *Session) readLoop(onMessage func(*Session, []byte), onClose func(*Session)) {
	defer func() {
		s.Close()
		onClose(s)
	}()

	for {
		select {
		case <-s.closeCh:
			return
		default:
		}

		msg, err := s.conn.ReadMessage()
		if err != nil {
			if !s.closed.Load() {
				s.log.Debug("read error", zap.Error(err))
			}
			return
		}

		if s.pktPerSec > 0 {
			now := time.Now().Unix()
			if now != s.pktResetAt {
				s.pktCount = 0
				s.pktResetAt = now
			}
			s.pktCount++
			if s.pktCount > s.pktPerSec {
				s.log.Warn("message rate exceeded, disconnecting", zap.Int("pps", s.pktCount))
				return
			}
		}

		onMessage(s, msg)
	}
}

func (s *Session) writeLoop() {
	defer s.Close()

	for {
		select {
		case data := <-s.OutQueue:
			if err := s.conn.WriteMessage(data, time.Now().Add(s.writeTimeout)); err != nil {
				if !s.closed.Load() {
					s.log.Debug("write error", zap.Error(err))
				}
				return
			}
		case <-s.closeCh:
			return
		}
	}
}
