package combat

import (
	"math"

	"github.com/gunzgo/server/internal/geom"
	"github.com/gunzgo/server/internal/protocol"
	"github.com/gunzgo/server/internal/status"
	"github.com/gunzgo/server/internal/world"
)

const (
	splashRange     = 300.0
	splashFullRange = 50.0
	splashMinRatio  = 0.3
	splashGuardLift = 200
	uppercutRange   = 200.0
	uppercutPush    = 300
	uppercutLift    = 1700
	dashRange       = 600.0
	dashLift        = 100
	dashPush        = 300
	dashFollowSec   = 0.3
)

// Skill handles a melee special move. Skills use the melee slot
// regardless of the weapon in hand and aim along the body facing.
func (r *Resolver) Skill(p *world.Player, in protocol.SkillInput) {
	tick := r.tick()
	if p.Dead || p.Effects.Stunned(tick) || p.Loadout.Melee == 0 {
		return
	}
	w, ok := r.items.Weapon(p.Loadout.Melee)
	if !ok {
		return
	}
	ownerDir := p.Rot.XY().Normalize()
	blade := world.CanGuardWith(w.Type)

	switch in.SkillNumber() {
	case protocol.SkillSplashShot:
		if blade {
			r.splash(p, w.Damage, ownerDir)
		}
	case protocol.SkillUppercut:
		if blade {
			r.uppercut(p, ownerDir)
		}
	case protocol.SkillDash:
		if p.Anim == world.AnimUppercut && (w.Type == "dagger" || w.Type == "dualdagger") {
			r.dash(p, w.Damage, ownerDir)
		}
	case protocol.SkillChargedShot:
		if blade {
			p.Charged = status.Open(tick, world.Ticks(ChargedSec), 0)
		}
	}
}

// SplashRatio is the splash-shot damage multiplier at dist.
func SplashRatio(dist float64) float64 {
	if dist <= splashFullRange {
		return 1
	}
	return 1 - (1-splashMinRatio)*(dist-splashFullRange)/(splashRange-splashFullRange)
}

// splash is a charged shockwave around the attacker. Unenchanted blades
// hit three times as hard.
func (r *Resolver) splash(p *world.Player, base float64, ownerDir geom.Vec3) {
	tick := r.tick()
	stun := int64(max(0, r.items.Motion("slash5").StunTicks))
	stunType := StunForMotion("slash5", p.Enchant.Kind)
	for _, t := range r.targets(p) {
		dist := geom.Dist(p.Pos, t.Pos.WithZ(blastCenter))
		if dist > splashRange || r.geo.WallBetween(p.Pos, t.Pos) {
			continue
		}
		if t.Guarding(tick) && facingAway(ownerDir, t) {
			away := t.Pos.Sub(p.Pos).XY().WithZ(splashGuardLift)
			r.Knockback(t, away.Normalize(), away.Len())
			continue
		}
		dmg := int(math.Floor(base * SplashRatio(dist)))
		if !p.Enchant.Active() {
			dmg *= 3
		}
		ApplyDamage(t, dmg, ExplosivePiercing)
		if stun > 0 {
			t.Effects.ApplyStun(tick, stun, stunType)
		}
		r.Knockback(t, t.Pos.Sub(p.Pos).XY().Normalize(), MaxSpeed)
		r.report(p, t, dmg, PartBody)
	}
}

// uppercut launches everyone in front of the attacker into the air.
func (r *Resolver) uppercut(p *world.Player, ownerDir geom.Vec3) {
	launch := ownerDir.Scale(uppercutPush).WithZ(uppercutLift)
	for _, t := range r.targets(p) {
		if geom.Dist(p.Pos, t.Pos) > uppercutRange || r.geo.WallBetween(p.Pos, t.Pos) {
			continue
		}
		if ownerDir.Dot(t.Pos.Sub(p.Pos).XY().Normalize()) <= 0 {
			continue
		}
		r.Knockback(t, launch.Normalize(), launch.Len())
	}
}

// DashHits reports whether a dash reaches a target at dist whose direction
// has the given dot product with the dash. Close targets only need to be
// in front; far ones must be nearly dead ahead.
func DashHits(dist, dot float64) bool {
	switch {
	case dist < 100:
		return dot > 0
	case dist < 300:
		return dot > 0.5
	}
	return dot > 0.96
}

// dash drives through targets ahead and schedules a follow-up launch that
// lands once the dash would have reached them.
func (r *Resolver) dash(p *world.Player, base float64, ownerDir geom.Vec3) {
	tick := r.tick()
	push := ownerDir.Scale(dashPush).WithZ(dashLift)
	for _, t := range r.targets(p) {
		dist := geom.Dist(p.Pos, t.Pos)
		if dist > dashRange || r.geo.WallBetween(p.Pos, t.Pos) {
			continue
		}
		if !DashHits(dist, ownerDir.Dot(t.Pos.Sub(p.Pos).XY().Normalize())) {
			continue
		}
		dmg := int(math.Floor(base * 1.5))
		ApplyDamage(t, dmg, Piercing("dagger", false))
		r.Knockback(t, push.Normalize(), push.Len())
		t.PendingDash = tick + world.Ticks(dashFollowSec*dist/dashRange)
		t.PendingDashDir = ownerDir
		r.report(p, t, dmg, PartBody)
	}
}

// Launch is the delayed uppercut a dash leaves on its victims.
func (r *Resolver) Launch(t *world.Player, dir geom.Vec3) {
	if dir.IsZero() {
		return
	}
	v := geom.V(dir.X*uppercutPush, dir.Y*uppercutPush, uppercutLift)
	r.Knockback(t, v.Normalize(), v.Len())
}
