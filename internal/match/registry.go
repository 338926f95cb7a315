package match

import (
	"fmt"

	"github.com/gunzgo/server/internal/protocol"
	"github.com/gunzgo/server/internal/world"
	"go.uber.org/zap"
)

// PlayerState is the phase of a player as far as input handling goes.
type PlayerState int

const (
	StatePlaying PlayerState = iota
	StateStunned
	StateSpectating
	StateDisconnected
)

func (s PlayerState) String() string {
	switch s {
	case StatePlaying:
		return "Playing"
	case StateStunned:
		return "Stunned"
	case StateSpectating:
		return "Spectating"
	case StateDisconnected:
		return "Disconnected"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// stateOf classifies p at tick.
func stateOf(p *world.Player, tick int64) PlayerState {
	switch {
	case p.Disconnected:
		return StateDisconnected
	case p.Spectator:
		return StateSpectating
	case p.Effects.Stunned(tick):
		return StateStunned
	}
	return StatePlaying
}

// State sets accepted by handlers.
var (
	playing = []PlayerState{StatePlaying}
	anyone  = []PlayerState{StatePlaying, StateStunned, StateSpectating, StateDisconnected}
)

// Input is one client message waiting for the next tick.
type Input struct {
	SessionID string
	Op        protocol.OpCode
	Data      []byte
}

// HandlerFunc handles one decoded client message. decode unwraps the
// envelope into the handler's payload type.
type HandlerFunc func(p *world.Player, decode func(out any) error)

type handlerEntry struct {
	fn      HandlerFunc
	allowed map[PlayerState]bool
}

// Registry maps op codes to handlers with state-based access control.
type Registry struct {
	handlers map[protocol.OpCode]*handlerEntry
	codec    protocol.Codec
	log      *zap.Logger
}

func NewRegistry(codec protocol.Codec, log *zap.Logger) *Registry {
	if codec == nil {
		codec = protocol.JSONCodec{}
	}
	return &Registry{
		handlers: make(map[protocol.OpCode]*handlerEntry),
		codec:    codec,
		log:      log,
	}
}

// Register maps op codes to a handler, restricted to the given states.
func (reg *Registry) Register(states []PlayerState, fn HandlerFunc, ops ...protocol.OpCode) {
	allowed := make(map[PlayerState]bool, len(states))
	for _, s := range states {
		allowed[s] = true
	}
	for _, op := range ops {
		reg.handlers[op] = &handlerEntry{fn: fn, allowed: allowed}
	}
}

// Dispatch runs the handler for in. Unknown op codes are ignored; a state
// violation is reported as an error. Nothing a client sends can panic the
// match loop.
func (reg *Registry) Dispatch(p *world.Player, state PlayerState, in Input) error {
	entry, ok := reg.handlers[in.Op]
	if !ok {
		reg.log.Debug("unknown op code", zap.Int64("op", int64(in.Op)), zap.String("user", p.UserID))
		return nil
	}
	if !entry.allowed[state] {
		return fmt.Errorf("op %s not allowed in state %s", in.Op, state)
	}
	decode := func(out any) error { return reg.codec.Decode(in.Data, out) }
	return reg.safeCall(entry.fn, p, decode, in.Op)
}

// safeCall executes a handler with panic recovery.
func (reg *Registry) safeCall(fn HandlerFunc, p *world.Player, decode func(any) error, op protocol.OpCode) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("handler panic recovered",
				zap.String("op", op.String()),
				zap.String("user", p.UserID),
				zap.Any("panic", rec),
			)
			err = fmt.Errorf("handler panic for op %s: %v", op, rec)
		}
	}()
	fn(p, decode)
	return nil
}

// Len reports the number of registered op codes.
func (reg *Registry) Len() int { return len(reg.handlers) }
