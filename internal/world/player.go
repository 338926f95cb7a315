package world

import (
	"github.com/gunzgo/server/internal/content"
	"github.com/gunzgo/server/internal/geom"
	"github.com/gunzgo/server/internal/status"
)

// Presence identifies the connection a player is reachable through.
type Presence struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
}

// Resist holds the elemental resistances granted by equipment.
type Resist struct {
	SF int `json:"sf"`
	FR int `json:"fr"`
	CR int `json:"cr"`
	PR int `json:"pr"`
	LR int `json:"lr"`
}

// WallState tracks an ongoing wall run or wall jump sequence.
type WallState struct {
	Start    int64
	Side     int
	Jump2    bool
	Jump2Dir int
}

func (w WallState) Active() bool { return w.Start > 0 }

// Player is the authoritative state of one participant. Single-goroutine
// access only (match loop).
type Player struct {
	Presence
	Role string

	HP        int
	AP        int
	MaxHP     int
	MaxAP     int
	Weight    int
	MaxWeight int
	Resist    Resist

	Pos  geom.Vec3
	Rot  geom.Vec3
	Vel  geom.Vec3
	Anim int

	Ready     bool
	Loaded    bool
	Dead      bool
	Team      int
	RespawnAt int64
	Kills     int
	Deaths    int
	VIP       bool

	Spectator         bool
	Disconnected      bool
	DisconnectedUntil int64

	Loadout    Loadout
	WeaponID   int
	WeaponType string
	Limits     Limits
	Ammo       map[int]*Ammo
	LastAttack int64

	// Recoil accumulation.
	CAFactor  float64
	CAElapsed float64
	LastShot  int64

	Effects status.Effects
	Enchant status.Enchant

	Charged            status.Window
	GuardCancel        status.Window
	GuardStart         int64
	PendingGuardRecoil int64
	PendingDash        int64
	PendingDashDir     geom.Vec3

	Wall       WallState
	LastTumble int64
	LastJump   int64
}

// NewPlayer returns a player with full health and no weapon drawn.
func NewPlayer(pr Presence) *Player {
	return &Player{
		Presence:   pr,
		HP:         100,
		AP:         100,
		MaxHP:      100,
		MaxAP:      100,
		MaxWeight:  BaseMaxWeight,
		Limits:     Limits{Speed: 100},
		Ammo:       make(map[int]*Ammo),
		LastAttack: -999999,
		LastShot:   -999999,
		CAFactor:   1,
		Effects:    status.NewEffects(),
	}
}

// Active reports whether the player takes part in the simulation.
func (p *Player) Active() bool { return !p.Spectator && !p.Disconnected }

// Alive reports whether the player can act and be hit.
func (p *Player) Alive() bool { return p.Active() && !p.Dead }

// Hostile reports whether p may damage other. Teams only matter in team
// modes, and never between unassigned players.
func (p *Player) Hostile(other *Player, teamMode bool) bool {
	if p == other || p.UserID == other.UserID {
		return false
	}
	return !teamMode || p.Team == TeamNone || other.Team == TeamNone || p.Team != other.Team
}

// EquipWeapon draws w. Movement limits come from the weapon where it sets
// them and are otherwise kept. Drawing a ranged weapon drops any charge.
func (p *Player) EquipWeapon(w content.WeaponInfo) {
	p.WeaponID = w.ID
	p.WeaponType = w.Type
	p.Limits = Limits{
		Speed:  pick(w.LimitSpeed, p.Limits.Speed),
		Wall:   pick(w.LimitWall, p.Limits.Wall),
		Jump:   pick(w.LimitJump, p.Limits.Jump),
		Tumble: pick(w.LimitTumble, p.Limits.Tumble),
	}
	if !content.IsMelee(w.Type) {
		p.Charged.Clear()
	}
}

// AmmoFor returns the magazine state of a weapon, creating it on first use.
func (p *Player) AmmoFor(w content.WeaponInfo) *Ammo {
	a, ok := p.Ammo[w.ID]
	if !ok {
		a = NewAmmo(w)
		p.Ammo[w.ID] = a
	}
	return a
}

// CanGuardWith reports whether a weapon family can block.
func CanGuardWith(weaponType string) bool {
	return weaponType == "katana" || weaponType == "doublekatana"
}

// Guarding reports whether the player is blocking at tick.
func (p *Player) Guarding(tick int64) bool {
	if p.GuardCancel.ActiveAt(tick) {
		return false
	}
	return IsGuardStance(p.Anim) && CanGuardWith(p.WeaponType)
}

// GuardingRecoilable reports whether a block at tick would stagger the
// attacker.
func (p *Player) GuardingRecoilable(tick int64) bool {
	if p.GuardCancel.ActiveAt(tick) {
		return false
	}
	return IsGuardRecoilable(p.Anim) && CanGuardWith(p.WeaponType)
}

// IsCharged reports whether a charged swing is ready at tick.
func (p *Player) IsCharged(tick int64) bool { return p.Charged.ActiveAt(tick) }

// Respawn revives the player at pos with full health and no effects.
func (p *Player) Respawn(pos geom.Vec3) {
	p.Dead = false
	p.HP = p.MaxHP
	p.AP = p.MaxAP
	p.Pos = pos
	p.Rot = geom.Vec3{}
	p.Vel = geom.Vec3{}
	p.RespawnAt = 0
	p.Effects.Clear()
	p.Wall = WallState{}
}

// ResetForRound clears the per-round tallies.
func (p *Player) ResetForRound() {
	p.Kills = 0
	p.Deaths = 0
	p.VIP = false
}
