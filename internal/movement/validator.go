// Package movement checks client movement reports against the locomotion
// rules and the level geometry before they touch the authoritative state.
package movement

import (
	"github.com/gunzgo/server/internal/content"
	"github.com/gunzgo/server/internal/geom"
	"github.com/gunzgo/server/internal/protocol"
	"github.com/gunzgo/server/internal/status"
	"github.com/gunzgo/server/internal/world"
	"go.uber.org/zap"
)

// Geometry is the collision surface moves are checked against. A nil
// *collision.Tree satisfies it as open space.
type Geometry interface {
	SweepAndSlide(origin, target geom.Vec3, radius, height float64) (geom.Vec3, bool)
	IsSolid(pos geom.Vec3, radius, height float64) bool
	FloorDistance(pos geom.Vec3) (float64, bool)
	WallProximity(pos, dir geom.Vec3, maxDist float64) bool
}

// Weapons resolves the weapon a move report switches to.
type Weapons interface {
	Weapon(id int) (content.WeaponInfo, bool)
}

// Reason explains a rejected move. The empty reason means accepted.
type Reason string

const (
	Accepted        Reason = ""
	RejectDead      Reason = "dead"
	RejectStunned   Reason = "stunned"
	RejectMalformed Reason = "malformed"
	RejectLimited   Reason = "limited"
	RejectRetrigger Reason = "retrigger"
	RejectSpeed     Reason = "speed"
	RejectAccel     Reason = "accel"
	RejectNoWall    Reason = "no_wall"
	RejectWallTime  Reason = "wall_time"
	RejectJump      Reason = "jump"
	RejectBlocked   Reason = "blocked"
	RejectSolid     Reason = "solid"
)

// Result is the outcome of one move report.
type Result struct {
	Reason Reason
	Pos    geom.Vec3
}

func (r Result) OK() bool { return r.Reason == Accepted }

// Validator applies move reports. Single-goroutine access only (match loop).
type Validator struct {
	geo     Geometry
	weapons Weapons
	log     *zap.Logger
}

func New(geo Geometry, weapons Weapons, log *zap.Logger) *Validator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Validator{geo: geo, weapons: weapons, log: log}
}

// SetGeometry swaps the level the validator checks against.
func (v *Validator) SetGeometry(geo Geometry) { v.geo = geo }

// Apply validates a move report from p at tick and, when it passes,
// updates the player's transform, animation, weapon, wall and guard
// bookkeeping. A rejected report leaves the player as it was.
func (v *Validator) Apply(p *world.Player, in protocol.MoveInput, tick int64) Result {
	prev := holdOf(p)
	res := v.apply(p, in, tick)
	if !res.OK() {
		prev.restore(p)
		v.log.Debug("move rejected",
			zap.String("user", p.UserID),
			zap.String("reason", string(res.Reason)),
			zap.Int64("tick", tick))
	}
	return res
}

func (v *Validator) apply(p *world.Player, in protocol.MoveInput, tick int64) Result {
	if p.Dead {
		return Result{Reason: RejectDead, Pos: p.Pos}
	}
	if p.Effects.Stunned(tick) {
		return Result{Reason: RejectStunned, Pos: p.Pos}
	}
	if in.Pos == nil || in.Rot == nil || !in.Pos.InBounds() || !in.Rot.InBounds() {
		return Result{Reason: RejectMalformed, Pos: p.Pos}
	}
	if in.WeaponID != nil {
		v.switchWeapon(p, *in.WeaponID)
	}

	pos := *in.Pos
	anim := p.Anim
	if in.Anim != nil {
		anim = *in.Anim
	}
	lower := world.IsLowerState(anim)
	reject := func(r Reason) Result { return Result{Reason: r, Pos: p.Pos} }

	if lower && limited(p, anim, tick) {
		return reject(RejectLimited)
	}
	if lower && world.IsTumble(anim) && p.LastTumble > 0 && tick-p.LastTumble < world.Ticks(TumbleDelaySec) {
		return reject(RejectRetrigger)
	}
	if lower && anim == world.AnimJumpUp && p.LastJump > 0 && tick-p.LastJump < world.Ticks(JumpQueueSec) {
		return reject(RejectRetrigger)
	}
	trackWall(p, anim, tick)

	delta := pos.Sub(p.Pos)
	if delta.Len() > MaxDelta(p, anim, tick) {
		return reject(RejectSpeed)
	}

	floor := v.floorDistance(p.Pos)
	onGround := floor <= OnGroundDist
	nearGround := floor <= NearGround

	if lower && !world.IsTumble(anim) && !world.IsWallJump(anim) {
		next := delta.XY().Scale(1 / world.TickDT)
		if geom.Dist2D(p.Vel, next) > AccelLimit(nearGround) {
			return reject(RejectAccel)
		}
	}

	if lower {
		if (world.IsWallRun(anim) || world.IsWallJump(anim)) && !v.geo.WallProximity(p.Pos, delta, WallReach) {
			return reject(RejectNoWall)
		}
		if p.Wall.Active() {
			elapsed := float64(tick-p.Wall.Start) / world.TickRate
			total, second := wallBudget(p.Wall.Side)
			if elapsed > total {
				return reject(RejectWallTime)
			}
			if elapsed > second && !p.Wall.Jump2 && !world.IsWallJump2(anim) {
				return reject(RejectWallTime)
			}
		}
		vz := delta.Z / world.TickDT
		switch {
		case anim == world.AnimJumpUp:
			if !nearGround || vz > JumpVelocity*VelocitySlack {
				return reject(RejectJump)
			}
		case anim == world.AnimJumpDown:
			if onGround {
				return reject(RejectJump)
			}
		case world.IsWallJump(anim):
			if vz > Jump2Velocity*VelocitySlack && vz > WallJumpVel*VelocitySlack {
				return reject(RejectJump)
			}
		case world.IsWallJump2(anim):
			expected := Jump2Velocity
			if anim == world.AnimWallLeftDown || anim == world.AnimWallRightDown {
				expected = WallJump2Vel
			}
			if vz > expected*VelocitySlack {
				return reject(RejectJump)
			}
		}
	}

	adjusted, blocked := v.geo.SweepAndSlide(p.Pos, pos, world.PlayerRadius, world.PlayerHeight)
	if blocked && geom.Dist(p.Pos, adjusted) < MinProgress {
		return reject(RejectBlocked)
	}
	if v.geo.IsSolid(adjusted, world.PlayerRadius, world.PlayerHeight) {
		return reject(RejectSolid)
	}

	p.Vel = adjusted.Sub(p.Pos).Scale(1 / world.TickDT)
	p.Pos = adjusted
	p.Rot = *in.Rot
	wasGuard := world.IsGuardStance(p.Anim)
	p.Anim = anim
	nowGuard := world.IsGuardStance(anim)
	if nowGuard && !wasGuard {
		p.GuardStart = tick
	}
	if !nowGuard {
		p.GuardStart = 0
		p.GuardCancel.Clear()
	}
	if lower && world.IsTumble(anim) {
		p.LastTumble = tick
	}
	if lower && anim == world.AnimJumpUp {
		p.LastJump = tick
	}
	return Result{Pos: adjusted}
}

// held is the player state a report updates before its checks run: the
// drawn weapon decides the limits and the wall sequence the timing.
type held struct {
	weaponID   int
	weaponType string
	limits     world.Limits
	charged    status.Window
	wall       world.WallState
}

func holdOf(p *world.Player) held {
	return held{
		weaponID:   p.WeaponID,
		weaponType: p.WeaponType,
		limits:     p.Limits,
		charged:    p.Charged,
		wall:       p.Wall,
	}
}

func (h held) restore(p *world.Player) {
	p.WeaponID = h.weaponID
	p.WeaponType = h.weaponType
	p.Limits = h.limits
	p.Charged = h.charged
	p.Wall = h.wall
}

// switchWeapon draws an equipped weapon named by a move report.
func (v *Validator) switchWeapon(p *world.Player, id int) {
	if !p.Loadout.Has(id) || v.weapons == nil {
		return
	}
	if w, ok := v.weapons.Weapon(id); ok {
		p.EquipWeapon(w)
	}
}

// limited reports whether the held weapon or a slow forbids anim.
func limited(p *world.Player, anim int, tick int64) bool {
	slowed := p.Effects.Slowed(tick)
	switch {
	case (world.IsWallRun(anim) || world.IsWallJump(anim)) && (p.Limits.Wall > 0 || slowed):
		return true
	case world.IsTumble(anim) && (p.Limits.Tumble > 0 || slowed):
		return true
	case (anim == world.AnimJumpUp || anim == world.AnimJumpDown || world.IsWallJump(anim)) && (p.Limits.Jump > 0 || slowed):
		return true
	}
	return false
}

// trackWall opens, extends or clears the wall sequence of p.
func trackWall(p *world.Player, anim int, tick int64) {
	onWall := world.IsLowerState(anim) && (world.IsWallRun(anim) || world.IsWallJump(anim) || world.IsWallJump2(anim))
	if !onWall {
		p.Wall = world.WallState{Side: -1, Jump2Dir: -1}
		return
	}
	if !p.Wall.Active() {
		jump2 := world.IsWallJump2(anim)
		p.Wall = world.WallState{Start: max(tick, 1), Side: world.WallSide(anim), Jump2: jump2, Jump2Dir: -1}
		if jump2 {
			p.Wall.Jump2Dir = world.WallSide(anim)
		}
		return
	}
	if world.IsWallJump2(anim) && !p.Wall.Jump2 {
		p.Wall.Jump2 = true
		p.Wall.Jump2Dir = world.WallSide(anim)
	}
}

// floorDistance measures the gap to the floor under pos. Open space without
// any floor uses the z = 0 ground plane.
func (v *Validator) floorDistance(pos geom.Vec3) float64 {
	if d, ok := v.geo.FloorDistance(pos); ok {
		return d
	}
	return max(0, pos.Z)
}
