package world

import (
	"github.com/gunzgo/server/internal/geom"
)

// WorldItem is a pickup lying on the map. Placed items respawn after
// RespawnSec; drops and item kits are one-shot and vanish once taken.
type WorldItem struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"` // hp, ap, hpap, bullet
	Amount     int       `json:"amount"`
	Pos        geom.Vec3 `json:"pos"`
	Active     bool      `json:"active"`
	RespawnAt  int64     `json:"-"`
	RespawnSec float64   `json:"-"`
	OneShot    bool      `json:"-"`
}

// Taken deactivates the item. It reports whether the item should be
// removed from the map instead of waiting for a respawn.
func (it *WorldItem) Taken(tick int64) (remove bool) {
	it.Active = false
	if it.OneShot || it.RespawnSec <= 0 {
		return true
	}
	it.RespawnAt = tick + Ticks(it.RespawnSec)
	return false
}

// Revive reactivates a taken item whose respawn time has come.
func (it *WorldItem) Revive(tick int64) bool {
	if it.Active || it.RespawnAt <= 0 || tick < it.RespawnAt {
		return false
	}
	it.Active = true
	it.RespawnAt = 0
	return true
}

// ZoneKind distinguishes plain smoke from tear gas.
type ZoneKind string

const (
	ZoneSmoke ZoneKind = "smoke"
	ZoneTear  ZoneKind = "tear"
)

const ZoneRadius = 300.0

// Zone is a lingering smoke or tear gas cloud.
type Zone struct {
	ID     string    `json:"id"`
	Pos    geom.Vec3 `json:"pos"`
	Radius float64   `json:"radius"`
	End    int64     `json:"endTick"`
	Kind   ZoneKind  `json:"kind,omitempty"`
}

func (z *Zone) Contains(p geom.Vec3) bool { return geom.Dist(p, z.Pos) <= z.Radius }
