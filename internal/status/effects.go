package status

// StunType selects the client-side stagger animation.
type StunType int

const (
	StunNone      StunType = -1
	StunDamage1   StunType = 0
	StunDamage2   StunType = 1
	StunSlash     StunType = 2
	StunBlocked   StunType = 3
	StunLightning StunType = 4
	StunLoop      StunType = 5
)

// DOTInterval is the number of ticks between damage-over-time pulses.
const DOTInterval = 20

// DOTKind names a damage-over-time family.
type DOTKind int

const (
	Poison DOTKind = iota
	Burn
	Shock
)

func (k DOTKind) String() string {
	switch k {
	case Poison:
		return "poison"
	case Burn:
		return "burn"
	case Shock:
		return "shock"
	}
	return "unknown"
}

// DOT is a damage window that pulses every DOTInterval ticks. The window
// magnitude is the damage per pulse.
type DOT struct {
	Window
	Next int64 `json:"next"`
}

// Pulse is one damage-over-time application due this tick.
type Pulse struct {
	Kind   DOTKind
	Damage int
}

// Effects groups every timed status a player can carry.
type Effects struct {
	Flash    Window
	Stun     Window
	StunType StunType
	Slow     Window
	DOTs     [3]DOT
}

func NewEffects() Effects {
	return Effects{StunType: StunNone}
}

func (e *Effects) Stunned(tick int64) bool { return e.Stun.ActiveAt(tick) }

// SlowRatio is the movement multiplier at tick, 1 when no slow applies.
func (e *Effects) SlowRatio(tick int64) float64 {
	if e.Slow.ActiveAt(tick) {
		return e.Slow.Magnitude
	}
	return 1
}

func (e *Effects) Slowed(tick int64) bool { return e.Slow.ActiveAt(tick) }

// ApplyStun extends the stun to at least tick+ticks with the given type.
func (e *Effects) ApplyStun(tick, ticks int64, kind StunType) {
	e.Stun.Extend(tick, tick+ticks, 0)
	e.StunType = kind
}

// ApplySlow sets the slow ratio until tick+ticks.
func (e *Effects) ApplySlow(tick, ticks int64, ratio float64) {
	e.Slow.Extend(tick, tick+ticks, ratio)
}

// ApplyRoot stuns and pins the player in place for ticks.
func (e *Effects) ApplyRoot(tick, ticks int64) {
	e.ApplyStun(tick, ticks, StunLoop)
	e.ApplySlow(tick, ticks, 0)
}

// ApplyDOT (re)starts a damage-over-time effect. The first pulse lands one
// interval after tick.
func (e *Effects) ApplyDOT(kind DOTKind, tick, ticks int64, damage int) {
	d := &e.DOTs[kind]
	d.Window = Open(tick, ticks, float64(damage))
	d.Next = tick + DOTInterval
}

// RefreshDOT extends a DOT without resetting its pulse schedule, keeping the
// larger damage.
func (e *Effects) RefreshDOT(kind DOTKind, tick, ticks int64, damage int) {
	d := &e.DOTs[kind]
	dmg := float64(damage)
	if d.ActiveAt(tick) && d.Magnitude > dmg {
		dmg = d.Magnitude
	}
	d.Extend(tick, tick+ticks, dmg)
}

// Expire clears windows that have run out. It reports whether a stun ended
// this tick.
func (e *Effects) Expire(tick int64) (stunEnded bool) {
	if e.Stun.Expired(tick) {
		e.Stun.Clear()
		e.StunType = StunNone
		e.Slow.Clear()
		stunEnded = true
	}
	if e.Flash.Expired(tick) {
		e.Flash.Clear()
	}
	for i := range e.DOTs {
		if e.DOTs[i].Expired(tick) {
			e.DOTs[i] = DOT{}
		}
	}
	return stunEnded
}

// Pulses returns the DOT damage due at tick and schedules the next pulse.
func (e *Effects) Pulses(tick int64) []Pulse {
	var out []Pulse
	for i := range e.DOTs {
		d := &e.DOTs[i]
		if !d.ActiveAt(tick) {
			continue
		}
		if d.Next != 0 && tick < d.Next {
			continue
		}
		dmg := int(d.Magnitude)
		if dmg <= 0 {
			dmg = 5
		}
		out = append(out, Pulse{Kind: DOTKind(i), Damage: dmg})
		d.Next = tick + DOTInterval
	}
	return out
}

// Clear drops every effect, used on respawn.
func (e *Effects) Clear() { *e = NewEffects() }
