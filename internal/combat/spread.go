package combat

import (
	"math"
	"math/rand/v2"

	"github.com/gunzgo/server/internal/geom"
	"github.com/gunzgo/server/internal/world"
)

var up = geom.V(0, 0, 1)

// SpreadDir tilts dir by a random angle up to maxSpread radians and spins
// the result around dir.
func SpreadDir(dir geom.Vec3, maxSpread float64, rng *rand.Rand) geom.Vec3 {
	force := rng.Float64() * maxSpread
	right := dir.Cross(up).Normalize()
	if right.IsZero() {
		right = geom.V(1, 0, 0)
	}
	out := geom.Rotate(dir, right, force)
	out = geom.Rotate(out, dir, rng.Float64()*2*math.Pi)
	return out.Normalize()
}

// ShotDir applies a weapon's control-ability spread scaled by the shooter's
// accumulated recoil.
func ShotDir(dir geom.Vec3, ctrlAbility, caFactor float64, rng *rand.Rand) geom.Vec3 {
	if ctrlAbility <= 0 {
		return dir
	}
	maxSpread := ctrlAbility * caFactor / 1000
	if maxSpread <= 0 {
		return dir
	}
	return SpreadDir(dir, maxSpread, rng)
}

// RecoilBase is the per-shot recoil a weapon family adds and the floor the
// factor decays to.
func RecoilBase(weaponType string) float64 {
	switch weaponType {
	case "pistol", "pistolx2", "smg", "smgx2":
		return 0.3
	case "revolver", "revolverx2":
		return 0.35
	case "rifle", "snifer":
		return 0.25
	}
	return 1
}

// DecayRecoil lowers the recoil factor by one base step every 0.2s without
// a shot.
func DecayRecoil(p *world.Player, tick int64) {
	if p.Dead || tick == p.LastShot {
		return
	}
	base := RecoilBase(p.WeaponType)
	p.CAFactor = max(p.CAFactor, base)
	p.CAElapsed += world.TickDT
	for p.CAElapsed > RecoilDecaySec {
		p.CAFactor -= base
		p.CAElapsed -= RecoilDecaySec
	}
	p.CAFactor = max(p.CAFactor, base)
}

// addRecoil records a shot.
func addRecoil(p *world.Player, weaponType string, tick int64) {
	p.CAElapsed = 0
	p.CAFactor = min(1, p.CAFactor+RecoilBase(weaponType))
	p.LastShot = tick
}
