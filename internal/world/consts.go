package world

import "math"

// Simulation constants shared by every match system.
const (
	TickRate = 20
	TickDT   = 1.0 / TickRate
	TickMS   = 1000 / TickRate

	PlayerHeight = 180.0
	PlayerRadius = 33.0

	TeamNone = 0
	TeamRed  = 1
	TeamBlue = 2

	MaxPosAbs      = 100000.0
	MaxAttackRange = 600.0

	RespawnTicks        = 140
	ReconnectGraceTicks = 600
	BaseMaxWeight       = 100
	DefaultReloadTicks  = 80
	PickupRadius        = 80.0
)

// Ticks converts seconds to a whole number of ticks, rounding up.
func Ticks(sec float64) int64 {
	return int64(math.Ceil(sec*TickRate - 1e-9))
}

// TicksMS converts milliseconds to ticks, rounding up.
func TicksMS(ms float64) int64 { return Ticks(ms / 1000) }
