package combat

import (
	"math"
	"strings"

	"github.com/gunzgo/server/internal/content"
	"github.com/gunzgo/server/internal/geom"
	"github.com/gunzgo/server/internal/protocol"
	"github.com/gunzgo/server/internal/status"
	"github.com/gunzgo/server/internal/world"
)

// Melee swing geometry.
const (
	massiveRange     = 280.0
	massiveFullRange = 50.0
	massiveMaxScale  = 1.5
	massiveMinScale  = 0.9
	massiveGuardPush = 500
	massiveGuardLift = 200
	slashExtraRange  = 100
	slashConeDot     = 0.5
	swordReach       = 100
	swordBackset     = 50
	swordConeDot     = 0.5
)

func (r *Resolver) melee(p *world.Player, w content.WeaponInfo, aim geom.Vec3, in protocol.AttackInput) {
	tick := r.tick()
	ownerDir := aim.XY().Normalize()
	reach := w.Range
	if reach <= 0 {
		reach = DefaultMeleeRange
	}
	kind := strings.ToLower(in.MeleeType)
	if kind == "" {
		kind = "normal"
	}
	motion := strings.ToLower(in.MeleeMotion)
	slash := kind == "slash" || strings.Contains(motion, "slash")

	if kind == "massive" && !p.IsCharged(tick) {
		kind = "normal"
	}
	switch {
	case kind == "massive":
		p.Charged.Clear()
		r.massive(p, w, ownerDir)
	case slash:
		r.slash(p, w, ownerDir, reach+slashExtraRange)
	default:
		r.swing(p, w, ownerDir, reach)
	}
}

// MassiveScale is the damage multiplier of a charged area swing at dist.
func MassiveScale(dist float64) float64 {
	over := max(dist-massiveFullRange, 0) / (massiveRange - massiveFullRange)
	return massiveMaxScale - (massiveMaxScale-massiveMinScale)*over
}

// massive hits everything around the attacker. A frontal block turns the
// hit into a shove.
func (r *Resolver) massive(p *world.Player, w content.WeaponInfo, ownerDir geom.Vec3) {
	tick := r.tick()
	for _, t := range r.targets(p) {
		dist := geom.Dist2D(p.Pos, t.Pos)
		if dist > massiveRange || r.geo.WallBetween(p.Pos, t.Pos) {
			continue
		}
		if t.Guarding(tick) && facingAway(ownerDir, t) {
			push := t.Pos.Sub(p.Pos).Normalize().Scale(massiveGuardPush)
			t.Vel = geom.V(t.Vel.X+push.X, t.Vel.Y+push.Y, t.Vel.Z+massiveGuardLift)
			continue
		}
		dmg := int(math.Floor(MassiveScale(dist) * w.Damage))
		ApplyDamage(t, dmg, ExplosivePiercing)
		r.report(p, t, dmg, PartBody)
	}
	for _, n := range r.w.Npcs {
		if n.Dead {
			continue
		}
		dist := geom.Dist2D(p.Pos, n.Pos)
		if dist > massiveRange || r.geo.WallBetween(p.Pos, n.Pos) {
			continue
		}
		r.hitNpc(p, n, int(math.Floor(MassiveScale(dist)*w.Damage)))
	}
}

// slash sweeps an arc in front of the attacker.
func (r *Resolver) slash(p *world.Player, w content.WeaponInfo, ownerDir geom.Vec3, reach float64) {
	tick := r.tick()
	chest := p.Pos.WithZ(world.PlayerHeight * 0.5)
	for _, t := range r.targets(p) {
		if geom.PointSegmentDist(chest, t.Pos, bodyTop(t)) > reach {
			continue
		}
		if r.geo.WallBetween(p.Pos, t.Pos) {
			continue
		}
		if ownerDir.Dot(t.Pos.Sub(p.Pos).XY().Normalize()) < slashConeDot {
			continue
		}
		if t.Guarding(tick) && facingAway(ownerDir, t) {
			r.guardCounter(p, t)
			continue
		}
		r.bladeHit(p, t, w)
	}
	for _, n := range r.w.Npcs {
		if n.Dead {
			continue
		}
		if geom.PointSegmentDist(chest, n.Pos, n.Pos.WithZ(n.Height)) > reach {
			continue
		}
		if r.geo.WallBetween(p.Pos, n.Pos) {
			continue
		}
		r.hitNpc(p, n, int(w.Damage))
	}
}

// swing is the plain forward strike: the blade sits a step in front of the
// attacker at chest height.
func (r *Resolver) swing(p *world.Player, w content.WeaponInfo, ownerDir geom.Vec3, reach float64) {
	tick := r.tick()
	sword := p.Pos.Add(ownerDir.Scale(swordReach)).WithZ(world.PlayerHeight * 0.5)
	heel := p.Pos.Sub(ownerDir.Scale(swordBackset))
	for _, t := range r.targets(p) {
		if geom.PointSegmentDist(sword, t.Pos, bodyTop(t)) >= reach {
			continue
		}
		if ownerDir.Dot(t.Pos.Sub(heel).Normalize()) <= swordConeDot {
			continue
		}
		if r.geo.WallBetween(p.Pos, t.Pos) {
			continue
		}
		if t.Guarding(tick) && facingAway(ownerDir, t) {
			r.guardCounter(p, t)
			continue
		}
		r.bladeHit(p, t, w)
	}
	for _, n := range r.w.Npcs {
		if n.Dead {
			continue
		}
		if geom.PointSegmentDist(sword, n.Pos, n.Pos.WithZ(n.Height)) >= reach {
			continue
		}
		if r.geo.WallBetween(p.Pos, n.Pos) {
			continue
		}
		r.hitNpc(p, n, int(w.Damage))
	}
}

// bladeHit lands a regular melee hit with enchant and knockback.
func (r *Resolver) bladeHit(p, t *world.Player, w content.WeaponInfo) {
	dmg := int(w.Damage)
	ApplyDamage(t, dmg, Piercing(w.Type, false))
	p.Enchant.ApplyTo(&t.Effects, r.tick())
	r.Knockback(t, t.Pos.Sub(p.Pos).XY().Normalize(), r.KnockbackForce(w.ID))
	r.report(p, t, dmg, PartBody)
}

// guardCounter resolves a blocked swing: the defender's guard resets and
// earns a short counter charge, and a recoilable block staggers the
// attacker shortly after.
func (r *Resolver) guardCounter(attacker, defender *world.Player) {
	tick := r.tick()
	recoil := defender.GuardingRecoilable(tick)
	defender.GuardStart = max(0, tick-world.Ticks(GuardDurationSec))
	defender.GuardCancel = status.Open(tick, world.Ticks(GuardRecoilSec), 0)
	defender.Charged = status.Open(tick, world.Ticks(CounterChargedSec), 0)
	if recoil {
		attacker.PendingGuardRecoil = tick + world.Ticks(GuardRecoilDelay)
	}
}
