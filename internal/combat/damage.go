package combat

import (
	"math"
	"strings"

	"github.com/gunzgo/server/internal/geom"
	"github.com/gunzgo/server/internal/status"
	"github.com/gunzgo/server/internal/world"
)

// ApplyDamage splits damage between health and armor. piercing is the
// share that goes straight to health; armor absorbs the rest and any
// shortfall spills over to health. Dead targets are ignored. The returned
// losses always sum to damage.
func ApplyDamage(target *world.Player, damage int, piercing float64) (hpLoss, apLoss int) {
	if target.Dead || damage <= 0 {
		return 0, 0
	}
	hpLoss = int(math.Floor(float64(damage) * piercing))
	apLoss = damage - hpLoss
	if armor := max(0, target.AP); apLoss > armor {
		hpLoss += apLoss - armor
		apLoss = armor
	}
	target.HP = max(0, target.HP-hpLoss)
	target.AP = max(0, target.AP-apLoss)
	return hpLoss, apLoss
}

// ResistRatio is the share of skill damage a resistance cancels, capped at
// 80%.
func ResistRatio(p *world.Player, resistType int) float64 {
	var v int
	switch resistType {
	case 1:
		v = p.Resist.FR
	case 2:
		v = p.Resist.CR
	case 3:
		v = p.Resist.LR
	case 4:
		v = p.Resist.PR
	}
	return geom.Clamp(float64(v)/100, 0, 0.8)
}

// ApplySkillDamage lands NPC skill damage after resistances and returns
// the amount dealt.
func ApplySkillDamage(target *world.Player, damage, resistType int) int {
	final := max(1, int(math.Floor(float64(damage)*(1-ResistRatio(target, resistType)))))
	ApplyDamage(target, final, ExplosivePiercing)
	return final
}

// Piercing is the share of a hit that ignores armor for a weapon family.
func Piercing(weaponType string, head bool) float64 {
	pick := func(h, b float64) float64 {
		if head {
			return h
		}
		return b
	}
	switch weaponType {
	case "dagger", "dualdagger":
		return pick(0.75, 0.7)
	case "katana", "doublekatana", "greatsword":
		return pick(0.65, 0.6)
	case "pistol", "pistolx2":
		return pick(0.7, 0.5)
	case "revolver", "revolverx2":
		return pick(0.9, 0.7)
	case "smg", "smgx2":
		return pick(0.5, 0.3)
	case "shotgun", "sawedshotgun":
		return 0.2
	case "machinegun", "rifle", "snifer":
		return pick(0.8, 0.4)
	case "fragmentation", "flashbang", "smokegrenade", "smoke", "rocket":
		return ExplosivePiercing
	}
	return pick(0.6, 0.5)
}

// KnockbackForce is the push a weapon item gives on hit.
func (r *Resolver) KnockbackForce(itemID int) float64 {
	it, ok := r.items.Item(itemID)
	if !ok {
		return 0
	}
	switch strings.ToLower(it.Type) {
	case "melee":
		return 200
	case "range":
		if it.Knockback > 0 {
			return it.Knockback
		}
		return 200
	}
	return it.Knockback
}

// Knockback displaces target along dir. The move is dropped when the body
// would pass through level geometry.
func (r *Resolver) Knockback(target *world.Player, dir geom.Vec3, force float64) {
	if force == 0 || math.IsNaN(force) || math.IsInf(force, 0) {
		return
	}
	next := target.Pos.Add(dir.Scale(force * KnockbackScale))
	if !next.InBounds() || r.geo.IsBlockedMovement(target.Pos, next) {
		return
	}
	target.Pos = next
}

// StunForMotion picks the stagger animation a swing inflicts.
func StunForMotion(motion string, attackerEnchant status.EnchantKind) status.StunType {
	m := strings.ToLower(motion)
	switch {
	case m == "slash5" || m == "massive":
		if attackerEnchant == status.EnchantLightning {
			return status.StunLightning
		}
		return status.StunSlash
	case strings.Contains(m, "slash"):
		i := strings.Index(m, "slash") + len("slash")
		if i < len(m) && m[i] >= '1' && m[i] <= '4' {
			if (m[i]-'0')%2 == 1 {
				return status.StunDamage1
			}
			return status.StunDamage2
		}
	}
	return status.StunDamage1
}
