package world

import (
	"github.com/gunzgo/server/internal/content"
	"github.com/gunzgo/server/internal/status"
)

// Slot names an equipment slot that can hold a weapon.
type Slot string

const (
	SlotMelee     Slot = "melee"
	SlotPrimary   Slot = "primary"
	SlotSecondary Slot = "secondary"
)

// Loadout is the set of weapon item ids a player brought into the match.
// Zero means the slot is empty.
type Loadout struct {
	Melee     int `json:"melee,omitempty"`
	Primary   int `json:"primary,omitempty"`
	Secondary int `json:"secondary,omitempty"`
}

// Has reports whether id sits in any slot.
func (l Loadout) Has(id int) bool {
	return id > 0 && (id == l.Melee || id == l.Primary || id == l.Secondary)
}

// InSlot returns the item in a named slot.
func (l Loadout) InSlot(s Slot) int {
	switch s {
	case SlotMelee:
		return l.Melee
	case SlotPrimary:
		return l.Primary
	case SlotSecondary:
		return l.Secondary
	}
	return 0
}

// Default is the weapon drawn on spawn: primary, then secondary, then melee.
func (l Loadout) Default() int {
	switch {
	case l.Primary > 0:
		return l.Primary
	case l.Secondary > 0:
		return l.Secondary
	}
	return l.Melee
}

// Limits are the movement restrictions imposed by the held weapon.
type Limits struct {
	Speed  float64 `json:"limitSpeed"`
	Wall   float64 `json:"limitWall"`
	Jump   float64 `json:"limitJump"`
	Tumble float64 `json:"limitTumble"`
}

// SpeedRatio is the run-speed multiplier the speed limit allows.
func (l Limits) SpeedRatio() float64 {
	s := l.Speed
	if s <= 0 {
		s = 100
	}
	return min(1, max(0.1, s/100))
}

func pick(v, fallback float64) float64 {
	if v != 0 {
		return v
	}
	return fallback
}

// Ammo tracks one weapon's magazine.
type Ammo struct {
	Magazine     int           `json:"magazine"`
	Reserve      int           `json:"reserve"`
	MagazineSize int           `json:"magazineSize"`
	ReloadTicks  int64         `json:"reloadTicks"`
	Reload       status.Window `json:"reload"`
}

// NewAmmo fills the magazine and puts the rest of the weapon's bullets in
// reserve.
func NewAmmo(w content.WeaponInfo) *Ammo {
	size := max(0, w.Magazine)
	reload := Ticks(w.ReloadTime)
	if w.ReloadTime <= 0 {
		reload = DefaultReloadTicks
	}
	return &Ammo{
		Magazine:     size,
		Reserve:      max(0, w.MaxBullet-size),
		MagazineSize: size,
		ReloadTicks:  reload,
	}
}

func (a *Ammo) Reloading(tick int64) bool { return a.Reload.ActiveAt(tick) }

// StartReload opens a reload window when there is anything to load.
func (a *Ammo) StartReload(tick int64) bool {
	if a.Reserve <= 0 || a.Reloading(tick) {
		return false
	}
	a.Reload = status.Open(tick, a.ReloadTicks, 0)
	return true
}

// FinishReload moves bullets from reserve into the magazine once the reload
// window has run out. It reports whether it did.
func (a *Ammo) FinishReload(tick int64) bool {
	if !a.Reload.Expired(tick) {
		return false
	}
	a.Reload.Clear()
	n := min(a.MagazineSize-a.Magazine, a.Reserve)
	if n > 0 {
		a.Magazine += n
		a.Reserve -= n
	}
	return true
}

// AddClips tops the weapon up by amount magazines, never past maxBullet
// rounds in total. The magazine is filled before the reserve. It reports
// whether anything was added.
func (a *Ammo) AddClips(amount, maxBullet int) bool {
	limit := max(a.MagazineSize, maxBullet)
	total := a.Magazine + a.Reserve
	if total >= limit {
		return false
	}
	next := min(limit, total+amount*max(1, a.MagazineSize))
	if a.Magazine < a.MagazineSize {
		a.Magazine += max(0, min(a.MagazineSize-a.Magazine, next-total))
	}
	a.Reserve = max(0, next-a.Magazine)
	return true
}
