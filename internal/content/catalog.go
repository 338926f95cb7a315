package content

import (
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/gunzgo/server/internal/collision"
	"github.com/gunzgo/server/internal/geom"
)

// Catalog is an immutable snapshot of all game content. Replace the whole
// catalog to change content; never mutate one in place.
type Catalog struct {
	Hash string

	items      map[int]*Item
	npcs       map[int]*NpcTemplate
	npcSets    map[string]*NpcSet
	skills     map[int]*Skill
	quests     map[int]*Quest // by map id
	scenarios  []Scenario
	maps       map[int]*Map
	trees      map[int]*collision.Tree
	worldItems []WorldItemDesc
	drops      []DropEntry
	motions    map[string]MeleeMotion
	gameTypes  map[int]GameType
}

func (c *Catalog) Item(id int) (*Item, bool) {
	it, ok := c.items[id]
	return it, ok
}

// Weapon resolves an item id into weapon parameters.
func (c *Catalog) Weapon(id int) (WeaponInfo, bool) {
	it, ok := c.items[id]
	if !ok {
		return WeaponInfo{}, false
	}
	return it.AsWeapon(), true
}

func (c *Catalog) NpcTemplate(id int) (*NpcTemplate, bool) {
	t, ok := c.npcs[id]
	return t, ok
}

func (c *Catalog) NpcSet(name string) (*NpcSet, bool) {
	s, ok := c.npcSets[strings.ToLower(name)]
	return s, ok
}

func (c *Catalog) Skill(id int) (*Skill, bool) {
	s, ok := c.skills[id]
	return s, ok
}

func (c *Catalog) QuestByMap(mapID int) (*Quest, bool) {
	q, ok := c.quests[mapID]
	return q, ok
}

// ScenarioFor finds the scenario of a map set at a quest level, falling back
// to the lowest level defined for that set.
func (c *Catalog) ScenarioFor(mapSet string, level int) (*Scenario, bool) {
	var fallback *Scenario
	for i := range c.scenarios {
		s := &c.scenarios[i]
		if !strings.EqualFold(s.MapSet, mapSet) {
			continue
		}
		if s.QuestLevel == level {
			return s, true
		}
		if fallback == nil || s.QuestLevel < fallback.QuestLevel {
			fallback = s
		}
	}
	return fallback, fallback != nil
}

// SortedSectors returns the scenario sectors ordered by dice.
func (s *Scenario) SortedSectors() []ScenarioSector {
	out := append([]ScenarioSector(nil), s.Sectors...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Dice < out[j].Dice })
	return out
}

func (c *Catalog) Map(id int) (*Map, bool) {
	m, ok := c.maps[id]
	return m, ok
}

// Collision returns the level geometry of a map. A map without geometry
// yields nil, which every query treats as open space.
func (c *Catalog) Collision(mapID int) *collision.Tree {
	return c.trees[mapID]
}

// Spawn picks a spawn point for a team. Team spawns fall back to solo
// spawns and then to the other team's list.
func (c *Catalog) Spawn(mapID, team int, teamMode bool, rng *rand.Rand) geom.Vec3 {
	m, ok := c.maps[mapID]
	if !ok {
		return geom.Vec3{}
	}
	list := m.Spawns.Solo
	if teamMode {
		switch {
		case team == 1 && len(m.Spawns.Team1) > 0:
			list = m.Spawns.Team1
		case team == 2 && len(m.Spawns.Team2) > 0:
			list = m.Spawns.Team2
		case len(m.Spawns.Solo) > 0:
			list = m.Spawns.Solo
		case len(m.Spawns.Team1) > 0:
			list = m.Spawns.Team1
		default:
			list = m.Spawns.Team2
		}
	}
	if len(list) == 0 {
		return geom.Vec3{}
	}
	if rng == nil {
		return list[0]
	}
	return list[rng.IntN(len(list))]
}

// WorldItemSpawns lists the pickups placed on a map for the given mode.
func (c *Catalog) WorldItemSpawns(mapID int, teamMode bool) []MapItemSpawn {
	m, ok := c.maps[mapID]
	if !ok {
		return nil
	}
	if teamMode {
		return m.WorldItems.Team
	}
	return m.WorldItems.Solo
}

func (c *Catalog) WorldItem(name string) (*WorldItemDesc, bool) {
	for i := range c.worldItems {
		if strings.EqualFold(c.worldItems[i].Name, name) {
			return &c.worldItems[i], true
		}
	}
	return nil, false
}

func (c *Catalog) WorldItemByModel(model string) (*WorldItemDesc, bool) {
	for i := range c.worldItems {
		if model != "" && strings.EqualFold(c.worldItems[i].ModelName, model) {
			return &c.worldItems[i], true
		}
	}
	return nil, false
}

func (c *Catalog) Drops() []DropEntry { return c.drops }

// Motion returns swing parameters, defaulting to slash1.
func (c *Catalog) Motion(name string) MotionParams {
	m, ok := c.motions[strings.ToLower(name)]
	if !ok {
		m = c.motions["slash1"]
	}
	p := MotionParams{StunTicks: 6, KnockbackScale: 1, ConeDot: 0.5, RangeScale: 1, SwingAngleDeg: 60, Samples: 5}
	if m.StunTicks != nil {
		p.StunTicks = *m.StunTicks
	}
	if m.KnockbackScale != nil {
		p.KnockbackScale = *m.KnockbackScale
	}
	if m.ConeDot != nil {
		p.ConeDot = *m.ConeDot
	}
	if m.RangeScale != nil {
		p.RangeScale = *m.RangeScale
	}
	if m.SwingAngleDeg != nil {
		p.SwingAngleDeg = *m.SwingAngleDeg
	}
	if m.Samples != nil {
		p.Samples = *m.Samples
	}
	p.Samples = max(3, p.Samples)
	return p
}

func (c *Catalog) GameType(id int) (GameType, bool) {
	g, ok := c.gameTypes[id]
	return g, ok
}

// EquipmentStats sums the stat bonuses of every equipped item.
func (c *Catalog) EquipmentStats(ids []int) Stats {
	var s Stats
	for _, id := range ids {
		it, ok := c.items[id]
		if !ok || id <= 0 {
			continue
		}
		s.HP += it.HP
		s.AP += it.AP
		s.Weight += it.Weight
		s.MaxWt += it.MaxWt
		s.SF += it.SF
		s.FR += it.FR
		s.CR += it.CR
		s.PR += it.PR
		s.LR += it.LR
	}
	return s
}

// Counts reports table sizes for startup logging.
func (c *Catalog) Counts() map[string]int {
	return map[string]int{
		"items":       len(c.items),
		"npcs":        len(c.npcs),
		"npc_sets":    len(c.npcSets),
		"skills":      len(c.skills),
		"quests":      len(c.quests),
		"scenarios":   len(c.scenarios),
		"maps":        len(c.maps),
		"world_items": len(c.worldItems),
	}
}
