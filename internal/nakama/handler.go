package nakama

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/gunzgo/server/internal/content"
	"github.com/gunzgo/server/internal/match"
	"github.com/gunzgo/server/internal/npc"
	"github.com/gunzgo/server/internal/protocol"
	"github.com/gunzgo/server/internal/world"
	"github.com/heroiclabs/nakama-common/runtime"
	"go.uber.org/zap"
)

// ModuleName is the name matches are registered and created under.
const ModuleName = "gunzgo"

// RejectUser refuses presences without a valid user id.
const RejectUser = "Invalid user."

// Module holds what every match created by the runtime shares.
type Module struct {
	Catalog func() *content.Catalog
	Codec   protocol.Codec
	Hooks   npc.Hooks
	Curve   func(xp int) int
	Options match.Options
	// IdleTicks closes a match after this many empty ticks. Zero keeps
	// empty matches open.
	IdleTicks int64
}

// NewMatch is the runtime match constructor.
func (mod *Module) NewMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	log := NewLogger(logger)
	return &Handler{mod: mod, store: NewStore(nk, mod.Curve, log), log: log, now: time.Now}, nil
}

// Handler drives one match through the runtime's callbacks.
type Handler struct {
	mod   *Module
	store *Store
	log   *zap.Logger
	now   func() time.Time
}

var _ runtime.Match = (*Handler)(nil)

// roomState is the match state the runtime threads through callbacks.
type roomState struct {
	m         *match.Match
	rec       *protocol.Recorder
	presences map[string]runtime.Presence
	idle      int64
	label     string
}

func toPresence(p runtime.Presence) world.Presence {
	return world.Presence{SessionID: p.GetSessionId(), UserID: p.GetUserId(), Username: p.GetUsername()}
}

func (h *Handler) codec() protocol.Codec {
	if h.mod.Codec == nil {
		return protocol.JSONCodec{}
	}
	return h.mod.Codec
}

func (h *Handler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	p := match.ParseParams(params)
	p.MatchID, _ = ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)

	var cat *content.Catalog
	if h.mod.Catalog != nil {
		cat = h.mod.Catalog()
	}
	rec := &protocol.Recorder{}
	m, err := match.New(match.Deps{
		Catalog:    cat,
		Sink:       rec,
		Codec:      h.codec(),
		Characters: h.store,
		Ledger:     h.store,
		Roles:      h.store,
		Hooks:      h.mod.Hooks,
		Options:    h.mod.Options,
		Now:        h.now,
		Log:        h.log,
	}, p)
	if err != nil {
		logger.Error("match init failed: %v", err)
		return nil, 0, ""
	}
	rs := &roomState{m: m, rec: rec, presences: make(map[string]runtime.Presence), label: m.Label()}
	return rs, world.TickRate, rs.label
}

func (h *Handler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	rs := state.(*roomState)
	if _, err := uuid.FromString(presence.GetUserId()); err != nil {
		return rs, false, RejectUser
	}
	// Roles come from the account store, never from the client.
	meta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		if k != "role" {
			meta[k] = v
		}
	}
	ok, reason := rs.m.JoinAttempt(toPresence(presence), meta)
	h.flush(dispatcher, rs)
	return rs, ok, reason
}

func (h *Handler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	rs := state.(*roomState)
	joined := make([]world.Presence, 0, len(presences))
	for _, p := range presences {
		rs.presences[p.GetSessionId()] = p
		joined = append(joined, toPresence(p))
	}
	rs.m.Join(joined)
	h.flush(dispatcher, rs)
	return rs
}

func (h *Handler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	rs := state.(*roomState)
	left := make([]world.Presence, 0, len(presences))
	for _, p := range presences {
		delete(rs.presences, p.GetSessionId())
		left = append(left, toPresence(p))
	}
	rs.m.Leave(left)
	h.flush(dispatcher, rs)
	return rs
}

func (h *Handler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	rs := state.(*roomState)
	inputs := make([]match.Input, 0, len(messages))
	for _, msg := range messages {
		inputs = append(inputs, match.Input{
			SessionID: msg.GetSessionId(),
			Op:        protocol.OpCode(msg.GetOpCode()),
			Data:      msg.GetData(),
		})
	}
	rs.m.Tick(tick, inputs)
	h.flush(dispatcher, rs)

	if !rs.m.Empty() {
		rs.idle = 0
		return rs
	}
	rs.idle++
	if h.mod.IdleTicks > 0 && rs.idle >= h.mod.IdleTicks {
		h.log.Info("closing idle match", zap.Int64("tick", tick))
		rs.m.Close()
		h.flush(dispatcher, rs)
		return nil
	}
	return rs
}

func (h *Handler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	rs := state.(*roomState)
	rs.m.Close()
	h.flush(dispatcher, rs)
	return rs
}

func (h *Handler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	rs := state.(*roomState)
	reply := rs.m.Signal(data)
	h.flush(dispatcher, rs)
	return rs, reply
}

// flush sends everything the match recorded since the last flush. A nil
// recipient list reaches every presence in the match.
func (h *Handler) flush(dispatcher runtime.MatchDispatcher, rs *roomState) {
	nowMs := h.now().UnixMilli()
	codec := h.codec()
	for _, msg := range rs.rec.Drain() {
		data, err := codec.Encode(protocol.Wrap(msg.Payload, nowMs))
		if err != nil {
			h.log.Error("encode message", zap.Stringer("op", msg.Op), zap.Error(err))
			continue
		}
		var targets []runtime.Presence
		if msg.To != nil {
			targets = h.lookup(rs, msg.To)
			if len(targets) == 0 {
				continue
			}
		}
		reliable := msg.Op != protocol.SMatchState
		if err := dispatcher.BroadcastMessage(int64(msg.Op), data, targets, nil, reliable); err != nil {
			h.log.Warn("broadcast failed", zap.Stringer("op", msg.Op), zap.Error(err))
		}
	}

	if len(rs.rec.Kicked) > 0 {
		kicked := h.lookup(rs, rs.rec.Kicked)
		rs.rec.Kicked = nil
		if len(kicked) > 0 {
			if err := dispatcher.MatchKick(kicked); err != nil {
				h.log.Warn("kick failed", zap.Error(err))
			}
		}
	}

	if label := rs.m.Label(); label != rs.label {
		if err := dispatcher.MatchLabelUpdate(label); err != nil {
			h.log.Warn("label update failed", zap.Error(err))
			return
		}
		rs.label = label
	}
}

func (h *Handler) lookup(rs *roomState, sessionIDs []string) []runtime.Presence {
	out := make([]runtime.Presence, 0, len(sessionIDs))
	for _, sid := range sessionIDs {
		if p, ok := rs.presences[sid]; ok {
			out = append(out, p)
		}
	}
	return out
}
