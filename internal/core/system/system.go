package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: reconnect grace cleanup
	PhasePreUpdate               // 1: round conditions, status effects, duel
	PhaseUpdate                  // 2: client inputs, projectiles
	PhasePostUpdate              // 3: timers, respawn, pickups, zones, NPCs, quest
	PhaseOutput                  // 4: snapshot broadcast
	PhasePersist                 // 5: reward writes
	PhaseCleanup                 // 6: reserved
)

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}

// Func adapts a plain function into a System.
type Func struct {
	P  Phase
	Fn func(dt time.Duration)
}

func (f Func) Phase() Phase            { return f.P }
func (f Func) Update(dt time.Duration) { f.Fn(dt) }
