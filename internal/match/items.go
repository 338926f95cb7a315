package match

import (
	"fmt"

	"github.com/gunzgo/server/internal/protocol"
	"github.com/gunzgo/server/internal/world"
)

const defaultItemRespawnSec = 30

// seedWorldItems places the map's pickups. Team rounds may use a different
// spawn set than free-for-all.
func (m *Match) seedWorldItems() {
	st := &m.w.Stage
	spawns := m.cat.WorldItemSpawns(st.MapID, st.TeamMode)
	items := make([]*world.WorldItem, 0, len(spawns))
	for i, sp := range spawns {
		it := &world.WorldItem{
			ID:         fmt.Sprintf("%d-%d-%s", st.MapID, i, sp.Item),
			Name:       sp.Item,
			Pos:        sp.Pos,
			Active:     true,
			RespawnSec: defaultItemRespawnSec,
		}
		desc, ok := m.cat.WorldItem(sp.Item)
		if ok {
			it.Type = desc.Type
			it.Amount = desc.Amount
		}
		switch {
		case sp.TimeSec > 0:
			it.RespawnSec = sp.TimeSec
		case ok && desc.TimeMS > 0:
			it.RespawnSec = desc.TimeMS / 1000
		}
		items = append(items, it)
	}
	m.w.WorldItems = items
}

// applyPickup gives the item to p when it does any good. It reports
// whether the item was used up.
func (m *Match) applyPickup(p *world.Player, it *world.WorldItem) bool {
	amount := max(0, it.Amount)
	used := false
	switch it.Type {
	case "hp":
		if p.HP < p.MaxHP {
			p.HP = min(p.MaxHP, p.HP+amount)
			used = true
		}
	case "ap":
		if p.AP < p.MaxAP {
			p.AP = min(p.MaxAP, p.AP+amount)
			used = true
		}
	case "hpap":
		if p.HP < p.MaxHP || p.AP < p.MaxAP {
			p.HP = min(p.MaxHP, p.HP+amount)
			p.AP = min(p.MaxAP, p.AP+amount)
			used = true
		}
	case "bullet":
		for _, id := range []int{p.Loadout.Primary, p.Loadout.Secondary} {
			w, ok := m.cat.Weapon(id)
			if !ok {
				continue
			}
			if p.AmmoFor(w).AddClips(amount, w.MaxBullet) {
				used = true
			}
		}
	}
	if used {
		m.sendPersonal(p)
	}
	return used
}

// sendPersonal syncs a player's own health, armor and ammo to them.
func (m *Match) sendPersonal(p *world.Player) {
	m.sink.Broadcast(protocol.SMatchState, protocol.PersonalState{
		UserID: p.UserID,
		HP:     p.HP,
		AP:     p.AP,
		Ammo:   p.Ammo,
	}, []string{p.SessionID})
}
