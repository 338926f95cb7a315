package combat

import (
	"math"
	"strings"

	"github.com/gunzgo/server/internal/content"
	"github.com/gunzgo/server/internal/geom"
	"github.com/gunzgo/server/internal/protocol"
	"github.com/gunzgo/server/internal/world"
	"go.uber.org/zap"
)

// Throw and launch parameters.
const (
	throwSpeed      = 1200
	throwLift       = 300
	throwGravity    = 1000
	throwForward    = 50
	throwHeight     = 130
	gasFuseTicks    = 60
	rocketHeight    = 80
	rocketSpeed     = 2700.0 / world.TickRate
	rocketRadius    = 350
	rocketMinRatio  = 0.3
	grenadeRadius   = 400
	grenadeMinRatio = 0.2
	FlashTicks      = 200
	SmokeTicks      = 600
	kitFuseSec      = 2
	grenadeFuseSec  = 2
)

// CooldownTicks is the minimum number of ticks between two attacks.
func CooldownTicks(w content.WeaponInfo) int64 {
	return max(1, world.TicksMS(w.Delay))
}

// selectWeapon picks the weapon an attack uses: an explicit id must be
// equipped, a slot name must hold something, otherwise the default draw.
func selectWeapon(p *world.Player, in protocol.AttackInput) int {
	if in.WeaponID != nil {
		if p.Loadout.Has(*in.WeaponID) {
			return *in.WeaponID
		}
		return 0
	}
	if slot := world.Slot(strings.ToLower(in.WeaponSlot)); slot != "" {
		if id := p.Loadout.InSlot(slot); id > 0 {
			return id
		}
	}
	return p.Loadout.Default()
}

func isGas(t string) bool {
	switch t {
	case "flashbang", "smoke", "smokegrenade", "teargas", "tear_gas":
		return true
	}
	return false
}

func isTearGas(t string) bool { return t == "teargas" || t == "tear_gas" }

func isKit(t string) bool {
	switch t {
	case "medkit", "repairkit", "bulletkit", "food":
		return true
	}
	return false
}

func isShotgun(t string) bool { return t == "shotgun" || t == "sawedshotgun" }

// Attack handles one attack input from p.
func (r *Resolver) Attack(p *world.Player, in protocol.AttackInput) {
	tick := r.tick()
	if p.Dead || p.Effects.Stunned(tick) {
		return
	}
	if in.Aim == nil || !in.Aim.InBounds() {
		return
	}
	aim := in.Aim.Normalize()
	id := selectWeapon(p, in)
	if id == 0 {
		return
	}
	w := r.weapon(id)
	melee := content.IsMelee(w.Type)
	if r.w.Stage.MeleeOnly() && !melee {
		return
	}
	if r.w.Stage.IsDuel() && r.w.Duel != nil && !r.w.Duel.Fighter(p.UserID) {
		return
	}

	p.EquipWeapon(w)
	if tick-p.LastAttack < CooldownTicks(w) {
		return
	}
	if w.Magazine > 0 || w.MaxBullet > 0 {
		a := p.AmmoFor(w)
		a.FinishReload(tick)
		if a.Reloading(tick) {
			return
		}
		if a.Magazine <= 0 {
			a.StartReload(tick)
			return
		}
		a.Magazine--
		if a.Magazine <= 0 {
			a.StartReload(tick)
		}
	}
	p.LastAttack = tick
	if !melee {
		addRecoil(p, w.Type, tick)
	}

	switch {
	case melee:
		r.melee(p, w, aim, in)
	case isGas(w.Type):
		r.throwGas(p, w, aim)
	case isKit(w.Type):
		r.throwKit(p, w, aim)
	case w.Type == "rocket" || w.Type == "fragmentation":
		r.launch(p, w, aim)
	default:
		r.hitscan(p, w, aim)
	}
}

func throwVelocity(dir geom.Vec3) geom.Vec3 {
	return dir.Scale(throwSpeed).WithZ(throwLift)
}

func throwOrigin(p *world.Player, dir geom.Vec3) geom.Vec3 {
	return p.Pos.Add(dir.Scale(throwForward)).WithZ(throwHeight)
}

func (r *Resolver) throwGas(p *world.Player, w content.WeaponInfo, dir geom.Vec3) {
	proj := &world.Projectile{
		OwnerUserID: p.UserID,
		WeaponType:  w.Type,
		Kind:        world.KindSmoke,
		Pos:         throwOrigin(p, dir),
		Dir:         dir,
		Vel:         throwVelocity(dir),
		Gravity:     throwGravity,
		Life:        gasFuseTicks,
		Fuse:        gasFuseTicks,
		Fused:       true,
		EffectTicks: SmokeTicks,
		TearGas:     isTearGas(w.Type),
	}
	if w.Type == "flashbang" {
		proj.Kind = world.KindFlashbang
		proj.EffectTicks = FlashTicks
	}
	r.w.AddProjectile(proj)
}

func (r *Resolver) throwKit(p *world.Player, w content.WeaponInfo, dir geom.Vec3) {
	fuse := world.Ticks(kitFuseSec)
	r.w.AddProjectile(&world.Projectile{
		OwnerUserID: p.UserID,
		WeaponType:  w.Type,
		Kind:        world.KindItemKit,
		Pos:         throwOrigin(p, dir),
		Dir:         dir,
		Vel:         throwVelocity(dir),
		Gravity:     throwGravity,
		Life:        fuse,
		Fuse:        fuse,
		Fused:       true,
		Model:       w.Mesh,
	})
}

// launch fires a rocket or throws a frag grenade. Both take the weapon's
// spread.
func (r *Resolver) launch(p *world.Player, w content.WeaponInfo, aim geom.Vec3) {
	dir := ShotDir(aim, w.CtrlAbility, p.CAFactor, r.w.ShotRNG())
	if w.Type == "fragmentation" {
		fuse := world.Ticks(grenadeFuseSec)
		r.w.AddProjectile(&world.Projectile{
			OwnerUserID: p.UserID,
			WeaponType:  w.Type,
			Kind:        world.KindGrenade,
			Pos:         throwOrigin(p, dir),
			Dir:         dir,
			Damage:      w.Damage,
			Range:       grenadeRadius,
			MinRatio:    grenadeMinRatio,
			Vel:         throwVelocity(dir),
			Gravity:     throwGravity,
			Life:        fuse,
			Fuse:        fuse,
			Fused:       true,
		})
		return
	}
	r.w.AddProjectile(&world.Projectile{
		OwnerUserID: p.UserID,
		WeaponType:  w.Type,
		Kind:        world.KindRocket,
		Pos:         p.Pos.WithZ(rocketHeight),
		Dir:         dir,
		Speed:       rocketSpeed,
		Remaining:   min(w.Range, world.MaxAttackRange),
		Damage:      w.Damage,
		Range:       rocketRadius,
		MinRatio:    rocketMinRatio,
	})
}

type playerHit struct {
	target   *world.Player
	damage   float64
	piercing float64
	part     Part
}

// hitscan traces one ray, or a pellet cone for shotguns, and applies the
// accumulated damage per target.
func (r *Resolver) hitscan(p *world.Player, w content.WeaponInfo, aim geom.Vec3) {
	maxRange := min(w.Range, world.MaxAttackRange)
	var (
		hits    []*playerHit
		npcHits = map[*world.NPC]float64{}
		npcSeq  []*world.NPC
	)
	record := func(t *world.Player, part Part) {
		pierce := Piercing(w.Type, part == PartHead)
		for _, h := range hits {
			if h.target == t {
				h.piercing = (h.damage*h.piercing + w.Damage*pierce) / (h.damage + w.Damage)
				h.damage += w.Damage
				if part.rank() > h.part.rank() {
					h.part = part
				}
				return
			}
		}
		hits = append(hits, &playerHit{target: t, damage: w.Damage, piercing: pierce, part: part})
	}
	trace := func(dir geom.Vec3) {
		if t, part, ok := r.tracePlayers(p, dir, maxRange); ok {
			record(t, part)
		}
		if n, ok := r.traceNpcs(p, dir, maxRange); ok {
			if _, seen := npcHits[n]; !seen {
				npcSeq = append(npcSeq, n)
			}
			npcHits[n] += w.Damage
		}
	}

	rng := r.w.ShotRNG()
	if isShotgun(w.Type) {
		for range ShotgunPellets {
			trace(SpreadDir(aim, ShotgunDiffuse, rng))
		}
	} else {
		trace(ShotDir(aim, w.CtrlAbility, p.CAFactor, rng))
	}

	for _, h := range hits {
		dmg := int(math.Round(h.damage))
		ApplyDamage(h.target, dmg, h.piercing)
		force := r.KnockbackForce(w.ID)
		if isShotgun(w.Type) {
			pellets := 1.0
			if w.Damage > 0 {
				pellets = max(1, math.Round(h.damage/w.Damage))
			}
			force *= pellets / (ShotgunPellets / 2)
		}
		r.Knockback(h.target, h.target.Pos.Sub(p.Pos).XY().Normalize(), force)
		r.report(p, h.target, dmg, h.part)
	}
	for _, n := range npcSeq {
		r.hitNpc(p, n, int(math.Round(npcHits[n])))
	}
	if len(hits) > 0 || len(npcSeq) > 0 {
		r.log.Debug("hitscan",
			zap.String("shooter", p.UserID),
			zap.String("weapon", w.Type),
			zap.Int("players", len(hits)),
			zap.Int("npcs", len(npcSeq)))
	}
}

// tracePlayers returns the nearest player a ray from p hits.
func (r *Resolver) tracePlayers(p *world.Player, dir geom.Vec3, maxRange float64) (*world.Player, Part, bool) {
	tick := r.tick()
	src := p.Pos
	dest := src.Add(dir.Scale(maxRange))
	var (
		best     *world.Player
		bestPart Part
		bestDist = math.Inf(1)
	)
	for _, t := range r.targets(p) {
		part, hitPos, ok := PlayerHitTest(bodyTop(t), t.Pos, src, dest)
		if !ok {
			continue
		}
		d := geom.Dist(src, hitPos)
		if d > maxRange || r.geo.WallBetween(src, hitPos) {
			continue
		}
		if dir.Dot(t.Pos.Sub(src).Normalize()) < AimConeDot {
			continue
		}
		if part != PartLegs && t.Guarding(tick) && facingAway(dir, t) {
			continue
		}
		if d < bestDist {
			best, bestPart, bestDist = t, part, d
		}
	}
	return best, bestPart, best != nil
}

// traceNpcs returns the nearest NPC a ray from p hits.
func (r *Resolver) traceNpcs(p *world.Player, dir geom.Vec3, maxRange float64) (*world.NPC, bool) {
	var (
		best     *world.NPC
		bestDist = math.Inf(1)
	)
	for _, n := range r.w.Npcs {
		if n.Dead {
			continue
		}
		d, ok := geom.RayCylinder(p.Pos, dir, n.Pos, n.Height, n.Radius, maxRange)
		if !ok || r.geo.WallBetween(p.Pos, n.Pos) {
			continue
		}
		if dir.Dot(n.Pos.Sub(p.Pos).Normalize()) < AimConeDot {
			continue
		}
		if d < bestDist {
			best, bestDist = n, d
		}
	}
	return best, best != nil
}
