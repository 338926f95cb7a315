package status

import (
	"math"
	"strings"
)

// EnchantKind is the elemental effect carried by an equipped enchant item.
type EnchantKind string

const (
	EnchantNone      EnchantKind = ""
	EnchantFire      EnchantKind = "enchant_fire"
	EnchantPoison    EnchantKind = "enchant_poison"
	EnchantLightning EnchantKind = "enchant_lightning"
	EnchantCold      EnchantKind = "enchant_cold"
)

// ParseEnchant maps an item weapon tag to an enchant kind.
func ParseEnchant(tag string) EnchantKind {
	switch k := EnchantKind(strings.ToLower(strings.TrimSpace(tag))); k {
	case EnchantFire, EnchantPoison, EnchantLightning, EnchantCold:
		return k
	}
	return EnchantNone
}

// Enchant is the profile derived from item data at equip time.
type Enchant struct {
	Kind       EnchantKind `json:"kind"`
	Level      int         `json:"level"`
	Damage     int         `json:"damage"`
	Duration   int64       `json:"duration"`
	LimitSpeed float64     `json:"limitSpeed"`
}

// EnchantFromItem derives a profile from raw item fields. delayMs > 0 sets
// the duration in 50ms ticks, otherwise one DOT interval is used.
func EnchantFromItem(tag string, level, damage int, delayMs, limitSpeed float64) Enchant {
	e := Enchant{Kind: ParseEnchant(tag), Level: level, Damage: damage, LimitSpeed: limitSpeed}
	if e.Level <= 0 {
		e.Level = 1
	}
	if delayMs > 0 {
		e.Duration = int64(math.Max(1, math.Ceil(delayMs/50)))
	} else {
		e.Duration = DOTInterval
	}
	return e
}

func (e Enchant) Active() bool { return e.Kind != EnchantNone }

// ApplyTo lands the enchant on a hit target.
func (e Enchant) ApplyTo(fx *Effects, tick int64) {
	if !e.Active() {
		return
	}
	dur := e.Duration
	if dur < 1 {
		dur = DOTInterval
	}
	dmg := max(1, 6+max(0, e.Damage))
	switch e.Kind {
	case EnchantFire:
		fx.ApplyDOT(Burn, tick, dur, dmg)
	case EnchantPoison:
		fx.ApplyDOT(Poison, tick, dur, dmg)
	case EnchantLightning:
		fx.ApplyDOT(Shock, tick, dur, dmg)
	case EnchantCold:
		ratio := 0.6
		if e.LimitSpeed > 0 {
			ratio = math.Max(0.1, math.Min(e.LimitSpeed/100, 1))
		}
		fx.Slow = Open(tick, dur, ratio)
	}
}
