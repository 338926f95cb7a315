// Package projectile flies rockets and thrown objects each tick and
// detonates them against level geometry, actors or an expired fuse.
package projectile

import (
	"fmt"
	"math"

	"github.com/gunzgo/server/internal/collision"
	"github.com/gunzgo/server/internal/content"
	"github.com/gunzgo/server/internal/geom"
	"github.com/gunzgo/server/internal/status"
	"github.com/gunzgo/server/internal/world"
	"go.uber.org/zap"
)

// Geometry is the collision surface projectiles fly through.
type Geometry interface {
	Raycast(origin, target geom.Vec3) (collision.Hit, bool)
	Blocked(origin, target geom.Vec3) bool
}

// Exploder lands blast damage. combat.Resolver implements it.
type Exploder interface {
	Explode(attacker *world.Player, origin geom.Vec3, damage, radius, minRatio, knockback float64)
}

// Kits resolves the pickup a thrown item kit turns into.
type Kits interface {
	WorldItemByModel(model string) (*content.WorldItemDesc, bool)
}

const (
	FlashRadius     = 2000.0
	flashBodyHeight = 100
	maxBallistic    = 200.0
	bounceDamp      = 0.8
	bounceLift      = 0.4
	bounceNudge     = 1.0
	rocketKnockback = 0.5
	fragKnockback   = 1.0
)

// Simulator advances every projectile of one match. Single-goroutine
// access only (match loop).
type Simulator struct {
	w     *world.State
	geo   Geometry
	blast Exploder
	kits  Kits
	log   *zap.Logger
}

func New(w *world.State, geo Geometry, blast Exploder, kits Kits, log *zap.Logger) *Simulator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Simulator{w: w, geo: geo, blast: blast, kits: kits, log: log}
}

// SetGeometry swaps the level projectiles are traced against.
func (s *Simulator) SetGeometry(geo Geometry) { s.geo = geo }

// Step moves every projectile once and removes the ones that detonated
// or lost their owner.
func (s *Simulator) Step(tick int64) {
	if len(s.w.Projectiles) == 0 {
		return
	}
	next := make([]*world.Projectile, 0, len(s.w.Projectiles))
	for _, pr := range s.w.Projectiles {
		if s.advance(pr, tick) {
			next = append(next, pr)
		}
	}
	s.w.Projectiles = next
}

// contact is the nearest thing a projectile runs into this tick.
type contact struct {
	dist  float64
	pos   geom.Vec3
	actor bool
	plane collision.Plane
}

func (s *Simulator) advance(pr *world.Projectile, tick int64) bool {
	owner := s.w.PlayerByUser(pr.OwnerUserID)
	if owner == nil {
		return false
	}
	expired := false
	if pr.Fused {
		pr.Life--
		expired = pr.Life <= 0
	}
	if !pr.Ballistic() && pr.Remaining <= 0 {
		s.detonate(pr, owner, pr.Pos, tick)
		return false
	}

	var (
		dir  geom.Vec3
		step float64
		to   geom.Vec3
	)
	if pr.Ballistic() {
		pr.Vel.Z -= pr.Gravity / world.TickRate
		dir = pr.Vel.Normalize()
		step = geom.Clamp(pr.Vel.Len()/world.TickRate, 1, maxBallistic)
		to = pr.Pos.Add(pr.Vel.Scale(1.0 / world.TickRate))
	} else {
		dir = pr.Dir.Normalize()
		step = max(1, min(pr.Speed, pr.Remaining))
		to = pr.Pos.Add(dir.Scale(step))
	}

	c, hit := s.nearest(pr, owner, dir, to, step)
	if hit && pr.Kind == world.KindGrenade && !c.actor && !expired {
		s.bounce(pr, c)
		return true
	}
	if hit || expired {
		at := pr.Pos
		if hit {
			at = c.pos
		}
		s.detonate(pr, owner, at, tick)
		return false
	}

	pr.Pos = to
	if pr.Remaining > 0 {
		pr.Remaining -= step
	}
	return true
}

// nearest compares the geometry impact with actor hits along the segment.
// Level geometry wins ties.
func (s *Simulator) nearest(pr *world.Projectile, owner *world.Player, dir, to geom.Vec3, step float64) (contact, bool) {
	var (
		best  contact
		found bool
	)
	if h, ok := s.geo.Raycast(pr.Pos, to); ok {
		best = contact{dist: h.Dist, pos: h.Pos, plane: h.Plane}
		found = true
	}
	consider := func(foot geom.Vec3, height, radius float64) {
		d, ok := geom.RayCylinder(pr.Pos, dir, foot, height, radius, max(step, 1))
		if !ok || (found && d >= best.dist) {
			return
		}
		best = contact{dist: d, pos: pr.Pos.Add(dir.Scale(d)), actor: true}
		found = true
	}
	teamMode := s.w.Stage.TeamMode
	for _, t := range s.w.Players() {
		if t == owner || !t.Alive() || !owner.Hostile(t, teamMode) {
			continue
		}
		consider(t.Pos, world.PlayerHeight, world.PlayerRadius)
	}
	for _, n := range s.w.Npcs {
		if n.Dead {
			continue
		}
		consider(n.Pos, n.Height, n.Radius)
	}
	return best, found
}

// bounce reflects a grenade off the surface it touched, losing speed.
func (s *Simulator) bounce(pr *world.Projectile, c contact) {
	n := c.plane.N.Normalize()
	if n.IsZero() {
		pr.Pos = c.pos
		pr.Vel = geom.V(-pr.Vel.X*bounceDamp, -pr.Vel.Y*bounceDamp, math.Abs(pr.Vel.Z)*bounceLift)
		return
	}
	r := geom.Reflect(pr.Vel, n)
	pr.Pos = c.pos.Add(n.Scale(bounceNudge))
	pr.Vel = geom.V(r.X*bounceDamp, r.Y*bounceDamp, math.Abs(r.Z)*bounceLift)
}

// detonate resolves what a projectile does where it stops.
func (s *Simulator) detonate(pr *world.Projectile, owner *world.Player, at geom.Vec3, tick int64) {
	switch pr.Kind {
	case world.KindFlashbang:
		s.flash(at, pr.EffectTicks, tick)
	case world.KindSmoke:
		kind := world.ZoneSmoke
		if pr.TearGas {
			kind = world.ZoneTear
		}
		s.w.Zones = append(s.w.Zones, &world.Zone{
			ID:     fmt.Sprintf("smoke-%d-%s", tick, pr.ID),
			Pos:    at,
			Radius: world.ZoneRadius,
			End:    tick + pr.EffectTicks,
			Kind:   kind,
		})
	case world.KindItemKit:
		s.dropKit(pr, at)
	default:
		kb := 0.0
		switch pr.Kind {
		case world.KindRocket:
			kb = rocketKnockback
		case world.KindGrenade:
			kb = fragKnockback
		}
		s.blast.Explode(owner, at, pr.Damage, pr.Range, pr.MinRatio, kb)
	}
	s.log.Debug("projectile detonated",
		zap.String("id", pr.ID),
		zap.String("kind", string(pr.Kind)),
		zap.Int64("tick", tick))
}

// flash blinds every living player in range with a clear view of the
// burst.
func (s *Simulator) flash(at geom.Vec3, ticks, tick int64) {
	for _, p := range s.w.Players() {
		if !p.Alive() || geom.Dist(at, p.Pos) > FlashRadius {
			continue
		}
		if s.geo.Blocked(at, p.Pos.WithZ(flashBodyHeight)) {
			continue
		}
		p.Effects.Flash = status.Open(tick, ticks, 0)
	}
}

// dropKit turns a thrown kit into a one-shot pickup.
func (s *Simulator) dropKit(pr *world.Projectile, at geom.Vec3) {
	if s.kits == nil || pr.Model == "" {
		return
	}
	desc, ok := s.kits.WorldItemByModel(pr.Model)
	if !ok {
		return
	}
	s.w.WorldItems = append(s.w.WorldItems, &world.WorldItem{
		ID:      fmt.Sprintf("%d-kit-%s", s.w.Stage.MapID, pr.ID),
		Name:    desc.Name,
		Type:    desc.Type,
		Amount:  desc.Amount,
		Pos:     at,
		Active:  true,
		OneShot: true,
	})
}
