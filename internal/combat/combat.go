// Package combat resolves attacks, skills and explosions against the match
// state. It owns no state of its own: everything it changes lives in
// world.State and every side effect leaves through the injected Sink.
package combat

import (
	"github.com/gunzgo/server/internal/content"
	"github.com/gunzgo/server/internal/geom"
	"github.com/gunzgo/server/internal/protocol"
	"github.com/gunzgo/server/internal/world"
	"go.uber.org/zap"
)

// Geometry is the part of the collision engine combat queries.
type Geometry interface {
	Blocked(origin, target geom.Vec3) bool
	WallBetween(a, b geom.Vec3) bool
	IsBlockedMovement(from, to geom.Vec3) bool
}

// Catalog resolves item ids.
type Catalog interface {
	Item(id int) (*content.Item, bool)
	Weapon(id int) (content.WeaponInfo, bool)
	Motion(name string) content.MotionParams
}

// NpcDamager routes damage dealt to quest NPCs.
type NpcDamager interface {
	DamageNpc(attacker *world.Player, npc *world.NPC, damage int)
}

// DeathHandler is told when a player's health reaches zero. attacker is nil
// for environmental deaths.
type DeathHandler interface {
	PlayerDied(target, attacker *world.Player)
}

// Deps are the collaborators of a Resolver.
type Deps struct {
	State    *world.State
	Geometry Geometry
	Catalog  Catalog
	Sink     protocol.Sink
	Npcs     NpcDamager
	Deaths   DeathHandler
	Log      *zap.Logger
}

// Resolver applies combat rules for one match. Single-goroutine access
// only (match loop).
type Resolver struct {
	w      *world.State
	geo    Geometry
	items  Catalog
	sink   protocol.Sink
	npcs   NpcDamager
	deaths DeathHandler
	log    *zap.Logger
}

func New(d Deps) *Resolver {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{
		w:      d.State,
		geo:    d.Geometry,
		items:  d.Catalog,
		sink:   d.Sink,
		npcs:   d.Npcs,
		deaths: d.Deaths,
		log:    log,
	}
}

// SetGeometry swaps the level after a map change.
func (r *Resolver) SetGeometry(geo Geometry) { r.geo = geo }

// Tuning.
const (
	AimConeDot         = 0.8
	ShotgunPellets     = 12
	ShotgunDiffuse     = 0.1
	DefaultMeleeRange  = 150
	MaxSpeed           = 1000
	KnockbackScale     = 0.05
	GuardDurationSec   = 2.0
	GuardRecoilDelay   = 0.2
	GuardRecoilSec     = 0.2
	ChargedSec         = 15
	CounterChargedSec  = 1
	RecoilDecaySec     = 0.2
	ExplosivePiercing  = 0.4
	ExplosionFullRange = 50.0
)

// Part is the body region a shot landed on.
type Part string

const (
	PartHead Part = "head"
	PartBody Part = "body"
	PartLegs Part = "legs"
)

func (p Part) rank() int {
	switch p {
	case PartHead:
		return 2
	case PartBody:
		return 1
	}
	return 0
}

func (r *Resolver) tick() int64 { return r.w.Tick }

func (r *Resolver) teamMode() bool { return r.w.Stage.TeamMode }

// targets lists the players attacker may hurt this tick.
func (r *Resolver) targets(attacker *world.Player) []*world.Player {
	var out []*world.Player
	for _, t := range r.w.Players() {
		if !t.Alive() || !attacker.Hostile(t, r.teamMode()) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// facingAway reports whether target faces against dir, the condition for a
// frontal block.
func facingAway(dir geom.Vec3, target *world.Player) bool {
	return dir.Dot(target.Rot.XY().Normalize()) < 0
}

// report announces damage dealt to target and resolves a kill.
func (r *Resolver) report(attacker, target *world.Player, damage int, part Part) {
	r.sink.Broadcast(protocol.SPlayerDamage, protocol.PlayerDamage{
		TargetUserID:   target.UserID,
		AttackerUserID: attacker.UserID,
		Damage:         damage,
		HP:             target.HP,
		AP:             target.AP,
		Part:           string(part),
	}, nil)
	if target.HP <= 0 && r.deaths != nil {
		r.deaths.PlayerDied(target, attacker)
	}
}

func (r *Resolver) hitNpc(attacker *world.Player, npc *world.NPC, damage int) {
	if r.npcs != nil {
		r.npcs.DamageNpc(attacker, npc, damage)
	}
}

// weapon resolves an item id, falling back to an unknown weapon with
// default stats.
func (r *Resolver) weapon(id int) content.WeaponInfo {
	if w, ok := r.items.Weapon(id); ok {
		return w
	}
	return content.WeaponInfo{
		ID:         id,
		Type:       "unknown",
		Damage:     content.DefaultDamage,
		Range:      world.MaxAttackRange,
		Delay:      content.DefaultDelayMS,
		LimitSpeed: 100,
	}
}
