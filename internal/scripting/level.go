package scripting

import (
	"math"

	lua "github.com/yuin/gopher-lua"
)

const (
	MaxLevel      = 99
	fnLevelFromXP = "level_from_xp"
	levelXPBase   = 50
)

// levelMultipliers scale the quadratic curve; the highest key not above
// the level applies.
var levelMultipliers = []struct {
	from int
	mul  float64
}{
	{96, 40}, {91, 40}, {86, 20}, {81, 20}, {76, 16}, {71, 12}, {66, 8},
	{61, 4}, {56, 2}, {51, 1.8}, {46, 1.6}, {41, 1.4}, {31, 1.2}, {21, 1.1}, {1, 1},
}

func levelMultiplier(level int) float64 {
	for _, m := range levelMultipliers {
		if level >= m.from {
			return m.mul
		}
	}
	return 1
}

// XPForLevel is the total experience needed to reach level.
func XPForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	level = min(level, MaxLevel)
	d := float64(level - 1)
	return int(math.Floor(levelXPBase * d * d * levelMultiplier(level)))
}

// LevelFromXP is the built-in level curve.
func LevelFromXP(xp int) int {
	if xp <= 0 {
		return 1
	}
	for l := MaxLevel; l > 1; l-- {
		if xp >= XPForLevel(l) {
			return l
		}
	}
	return 1
}

// LevelFromXP calls level_from_xp(xp) when a script defines it, else the
// built-in curve. Results are clamped to [1, MaxLevel].
func (e *Engine) LevelFromXP(xp int) int {
	def := LevelFromXP(xp)
	l := e.callInt(fnLevelFromXP, def, lua.LNumber(xp))
	return max(1, min(l, MaxLevel))
}
