package world

import "github.com/gunzgo/server/internal/geom"

// ProjectileKind selects what happens when a projectile detonates.
type ProjectileKind string

const (
	KindRocket    ProjectileKind = "rocket"
	KindGrenade   ProjectileKind = "grenade"
	KindFlashbang ProjectileKind = "flashbang"
	KindSmoke     ProjectileKind = "smoke"
	KindItemKit   ProjectileKind = "itemkit"
)

// Projectile is a rocket or thrown object in flight. A zero Vel means the
// projectile travels in a straight line at Speed along Dir; otherwise it is
// ballistic. Fuse counts ticks down to detonation when Fused is set.
type Projectile struct {
	ID          string
	OwnerUserID string
	WeaponType  string
	Kind        ProjectileKind
	Pos         geom.Vec3
	Dir         geom.Vec3
	Speed       float64
	Remaining   float64
	Damage      float64
	Range       float64
	MinRatio    float64
	Vel         geom.Vec3
	Gravity     float64
	Life        int64
	Fuse        int64
	Fused       bool
	Model       string
	EffectTicks int64

	// TearGas marks smoke that also chokes.
	TearGas bool
}

// Ballistic reports whether the projectile is moved by velocity and gravity.
func (p *Projectile) Ballistic() bool { return !p.Vel.IsZero() }
