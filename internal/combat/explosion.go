package combat

import (
	"math"

	"github.com/gunzgo/server/internal/geom"
	"github.com/gunzgo/server/internal/world"
)

// blastCenter is where a body is measured from.
const blastCenter = 80

// ExplosionRatio is the damage multiplier at dist from a blast of the given
// radius: full within 50 units (never past the radius), falling linearly to
// minRatio at the edge.
func ExplosionRatio(dist, radius, minRatio float64) float64 {
	if dist >= radius {
		return minRatio
	}
	full := min(ExplosionFullRange, radius)
	if dist <= full {
		return 1
	}
	r := 1 - (1-minRatio)*(dist-full)/(radius-full)
	return geom.Clamp(r, minRatio, 1)
}

// Explode damages everything in range of origin with line of sight. The
// attacker is hit too unless a team mode protects it. knockback scales the
// push away from the blast.
func (r *Resolver) Explode(attacker *world.Player, origin geom.Vec3, damage, radius, minRatio, knockback float64) {
	radius = max(radius, 1)
	team := r.teamMode() && attacker.Team != world.TeamNone
	for _, t := range r.w.Players() {
		if !t.Alive() {
			continue
		}
		if team && t.Team == attacker.Team {
			continue
		}
		center := t.Pos.WithZ(blastCenter)
		dist := geom.Dist(origin, center)
		if dist > radius || r.geo.Blocked(origin, center) {
			continue
		}
		dmg := max(1, int(math.Floor(damage*ExplosionRatio(dist, radius, minRatio))))
		ApplyDamage(t, dmg, ExplosivePiercing)
		if knockback > 0 {
			r.Knockback(t, center.Sub(origin).Normalize(), knockback*7*max(0, radius-dist))
		}
		r.report(attacker, t, dmg, PartBody)
	}
	for _, n := range r.w.Npcs {
		if n.Dead {
			continue
		}
		center := n.Pos.WithZ(blastCenter)
		dist := geom.Dist(origin, center)
		if dist > radius || r.geo.Blocked(origin, center) {
			continue
		}
		r.hitNpc(attacker, n, max(1, int(math.Floor(damage*ExplosionRatio(dist, radius, minRatio)))))
	}
}
