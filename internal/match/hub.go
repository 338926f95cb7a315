package match

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gunzgo/server/internal/content"
	"github.com/gunzgo/server/internal/protocol"
	"github.com/gunzgo/server/internal/world"
	"go.uber.org/zap"
)

var (
	ErrNoMatch   = errors.New("match not found")
	ErrHubFull   = errors.New("match limit reached")
	ErrInboxFull = errors.New("match inbox full")
)

// JoinError is a join refused by the room.
type JoinError struct{ Reason string }

func (e *JoinError) Error() string { return "join rejected: " + e.Reason }

// Router delivers messages to connected sessions. Transports implement it.
type Router interface {
	Send(sessionID string, op protocol.OpCode, payload any)
	Disconnect(sessionID string)
}

// HubConfig configures a Hub. Deps is the template every room is built
// from; its Sink and Log are replaced per room. Catalog, when set, supplies
// the content a new room pins.
type HubConfig struct {
	Deps             Deps
	Catalog          func() *content.Catalog
	Router           Router
	MaxMatches       int
	IdleTimeout      time.Duration
	InboxSize        int
	MaxInputsPerTick int
	Log              *zap.Logger
}

// Listing is one room in the lobby list.
type Listing struct {
	ID      string          `json:"matchId"`
	Label   json.RawMessage `json:"label"`
	Players int             `json:"players"`
}

// Hub owns the rooms of a standalone server. Each room runs on its own
// goroutine; Hub methods are safe for concurrent use.
type Hub struct {
	cfg   HubConfig
	log   *zap.Logger
	mu    sync.RWMutex
	rooms map[string]*room
	wg    sync.WaitGroup
}

type room struct {
	id     string
	m      *Match
	sink   *roomSink
	cmds   chan func()
	inputs chan Input
	label  atomic.Value // string
	size   atomic.Int32
	stop   chan struct{}
	done   chan struct{}
}

func NewHub(cfg HubConfig) *Hub {
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = 256
	}
	if cfg.MaxInputsPerTick <= 0 {
		cfg.MaxInputsPerTick = 32
	}
	return &Hub{cfg: cfg, log: cfg.Log, rooms: make(map[string]*room)}
}

// Create opens a room and starts its loop.
func (h *Hub) Create(p Params) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cfg.MaxMatches > 0 && len(h.rooms) >= h.cfg.MaxMatches {
		return "", ErrHubFull
	}
	p.MatchID = uuid.NewString()

	sink := &roomSink{router: h.cfg.Router, members: make(map[string]struct{})}
	d := h.cfg.Deps
	d.Sink = sink
	d.Log = h.log
	if h.cfg.Catalog != nil {
		d.Catalog = h.cfg.Catalog()
	}
	m, err := New(d, p)
	if err != nil {
		return "", err
	}
	r := &room{
		id:     p.MatchID,
		m:      m,
		sink:   sink,
		cmds:   make(chan func(), 16),
		inputs: make(chan Input, h.cfg.InboxSize),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	r.publish()
	h.rooms[r.id] = r
	h.wg.Add(1)
	go h.run(r)
	return r.id, nil
}

func (h *Hub) room(id string) (*room, error) {
	h.mu.RLock()
	r, ok := h.rooms[id]
	h.mu.RUnlock()
	if !ok {
		return nil, ErrNoMatch
	}
	return r, nil
}

// do runs fn on the room's loop and waits for it.
func (h *Hub) do(ctx context.Context, id string, fn func(r *room)) error {
	r, err := h.room(id)
	if err != nil {
		return err
	}
	finished := make(chan struct{})
	cmd := func() {
		defer close(finished)
		fn(r)
	}
	select {
	case r.cmds <- cmd:
	case <-r.done:
		return ErrNoMatch
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-r.done:
		return ErrNoMatch
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Join admits a session. meta["role"] must come from the authenticated
// session, never from the client.
func (h *Hub) Join(ctx context.Context, matchID string, pr world.Presence, meta map[string]string) error {
	var reason string
	err := h.do(ctx, matchID, func(r *room) {
		ok, why := r.m.JoinAttempt(pr, meta)
		if !ok {
			reason = why
			return
		}
		r.sink.members[pr.SessionID] = struct{}{}
		r.m.Join([]world.Presence{pr})
	})
	if err != nil {
		return err
	}
	if reason != "" {
		return &JoinError{Reason: reason}
	}
	return nil
}

// Leave removes a session. It does not wait for the room.
func (h *Hub) Leave(matchID string, pr world.Presence) {
	r, err := h.room(matchID)
	if err != nil {
		return
	}
	cmd := func() {
		delete(r.sink.members, pr.SessionID)
		r.m.Leave([]world.Presence{pr})
	}
	select {
	case r.cmds <- cmd:
	case <-r.done:
	}
}

// Input queues a client message for the next tick.
func (h *Hub) Input(matchID string, in Input) error {
	r, err := h.room(matchID)
	if err != nil {
		return err
	}
	select {
	case r.inputs <- in:
		return nil
	default:
		return ErrInboxFull
	}
}

// Signal runs a control request and returns the reply.
func (h *Hub) Signal(ctx context.Context, matchID, data string) (string, error) {
	var out string
	err := h.do(ctx, matchID, func(r *room) { out = r.m.Signal(data) })
	return out, err
}

// List returns the open rooms.
func (h *Hub) List() []Listing {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Listing, 0, len(h.rooms))
	for _, r := range h.rooms {
		label, _ := r.label.Load().(string)
		out = append(out, Listing{ID: r.id, Label: json.RawMessage(label), Players: int(r.size.Load())})
	}
	return out
}

// Len is the number of open rooms.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// Shutdown stops every room and waits for the loops to finish.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	for _, r := range h.rooms {
		close(r.stop)
	}
	h.mu.Unlock()
	h.wg.Wait()
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	delete(h.rooms, id)
	h.mu.Unlock()
}

func (r *room) publish() {
	r.label.Store(r.m.Label())
	r.size.Store(int32(r.m.State().ActiveCount()))
}

// run is the room loop. Commands and inputs are applied between ticks.
func (h *Hub) run(r *room) {
	defer h.wg.Done()
	defer close(r.done)
	log := h.log.With(zap.String("match", r.id))

	ticker := time.NewTicker(tickDuration)
	defer ticker.Stop()

	var (
		tick      int64
		pending   []Input
		perSess   = make(map[string]int)
		idleSince time.Time
	)
	for {
		select {
		case <-r.stop:
			r.m.Close()
			return

		case fn := <-r.cmds:
			fn()

		case in := <-r.inputs:
			if perSess[in.SessionID] >= h.cfg.MaxInputsPerTick {
				log.Debug("input dropped", zap.String("session", in.SessionID), zap.Stringer("op", in.Op))
				continue
			}
			perSess[in.SessionID]++
			pending = append(pending, in)

		case now := <-ticker.C:
			tick++
			r.m.Tick(tick, pending)
			pending = pending[:0]
			clear(perSess)
			r.publish()

			if !r.m.Empty() || h.cfg.IdleTimeout <= 0 {
				idleSince = time.Time{}
				continue
			}
			if idleSince.IsZero() {
				idleSince = now
			} else if now.Sub(idleSince) >= h.cfg.IdleTimeout {
				log.Info("closing idle match", zap.Int64("tick", tick))
				h.remove(r.id)
				r.m.Close()
				return
			}
		}
	}
}

// roomSink resolves a room's broadcasts to its connected sessions. It is
// only touched from the room loop.
type roomSink struct {
	router  Router
	members map[string]struct{}
}

func (s *roomSink) Broadcast(op protocol.OpCode, payload any, to []string) {
	if s.router == nil {
		return
	}
	if to == nil {
		for sid := range s.members {
			s.router.Send(sid, op, payload)
		}
		return
	}
	for _, sid := range to {
		s.router.Send(sid, op, payload)
	}
}

func (s *roomSink) Kick(sessionIDs []string) {
	for _, sid := range sessionIDs {
		delete(s.members, sid)
		if s.router != nil {
			s.router.Disconnect(sid)
		}
	}
}
