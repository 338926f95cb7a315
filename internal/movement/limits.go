package movement

import (
	"github.com/gunzgo/server/internal/content"
	"github.com/gunzgo/server/internal/world"
)

// Locomotion speeds in units per second.
const (
	MaxSpeed      = 1000.0
	RunSpeed      = 630.0
	BackSpeed     = 450.0
	SwordDash     = 1000.0
	GunDash       = 900.0
	Jump2Velocity = 1400.0
	AccelSpeed    = 7000.0
	AirMove       = 0.05
	JumpVelocity  = 900.0
	WallJumpVel   = 350.0
	WallJump2Vel  = 1300.0
	// Client velocities are accepted up to this much above nominal.
	VelocitySlack = 1.2
)

// Re-trigger intervals and wall budgets in seconds.
const (
	TumbleDelaySec     = 0.5
	JumpQueueSec       = 0.3
	WallTimeFront      = 1.5
	WallTimeSide       = 2.3
	WallJump2TimeFront = 0.95
	WallJump2TimeSide  = 2.1
)

// Probe distances.
const (
	WallReach    = 120.0
	OnGroundDist = 5.0
	NearGround   = 30.0
	MinProgress  = 1.0
)

// MaxSpeedFor is the speed cap of anim for p at tick. States outside the
// lower-body range fall back to the plain speed limit.
func MaxSpeedFor(p *world.Player, anim int, tick int64) float64 {
	ratio := p.Limits.SpeedRatio()
	slow := p.Effects.SlowRatio(tick)
	if !world.IsLowerState(anim) {
		return MaxSpeed * ratio * slow
	}
	switch {
	case world.IsTumble(anim):
		if content.IsMelee(p.WeaponType) {
			return SwordDash * slow
		}
		return GunDash * slow
	case world.IsWallJump(anim):
		return Jump2Velocity * slow
	case anim == world.AnimRunForward:
		return RunSpeed * ratio * slow
	case anim == world.AnimRunBack, anim == world.AnimRunLeft, anim == world.AnimRunRight:
		return BackSpeed * ratio * slow
	case world.IsWallRun(anim):
		return RunSpeed * slow
	}
	return MaxSpeed * ratio * slow
}

// MaxDelta is the largest displacement one tick allows.
func MaxDelta(p *world.Player, anim int, tick int64) float64 {
	return MaxSpeedFor(p, anim, tick) * world.TickDT
}

// AccelLimit bounds the change of horizontal velocity in one tick.
func AccelLimit(nearGround bool) float64 {
	l := AccelSpeed * world.TickDT * VelocitySlack
	if !nearGround {
		l *= AirMove
	}
	return l
}

// wallBudget returns the total wall time and the window for the second kick
// on a wall side.
func wallBudget(side int) (total, second float64) {
	if side == 1 {
		return WallTimeFront, WallJump2TimeFront
	}
	return WallTimeSide, WallJump2TimeSide
}
