package npc

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gunzgo/server/internal/content"
	"github.com/gunzgo/server/internal/geom"
	"github.com/gunzgo/server/internal/protocol"
	"github.com/gunzgo/server/internal/world"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Init sets up the quest of the stage's map and its first wave. A map
// whose map set has a scenario runs the scenario; otherwise a per-map
// quest with stages is used. Maps with neither get no PvE content.
func (d *Director) Init() {
	st := &d.w.Stage
	d.w.Quest = nil
	d.w.Npcs = nil

	if m, ok := d.cat.Map(st.MapID); ok && m.MapSet != "" {
		if sc, ok := d.cat.ScenarioFor(m.MapSet, st.QuestLevel); ok {
			d.w.Quest = scenarioQuest(sc)
			if len(d.w.Quest.Sectors) > 0 {
				d.w.Npcs = d.buildSector(d.w.Quest.Sectors[0])
			}
			d.log.Info("scenario loaded",
				zap.String("title", sc.Title),
				zap.Int("sectors", len(d.w.Quest.Sectors)),
				zap.Int("npcs", len(d.w.Npcs)))
			return
		}
	}

	q, ok := d.cat.QuestByMap(st.MapID)
	if !ok || len(q.Stages) == 0 {
		return
	}
	d.w.Quest = &world.Quest{Mode: world.QuestSimple, QuestID: q.ID, Title: q.Title}
	d.w.Npcs = d.buildStage(q, 0)
}

func scenarioQuest(sc *content.Scenario) *world.Quest {
	sectors := lo.Map(sc.SortedSectors(), func(s content.ScenarioSector, _ int) world.Sector {
		return world.Sector{
			ID:         s.Key,
			NpcSets:    s.NpcSets,
			MeleeSpawn: s.MeleeSpawn,
			RangeSpawn: s.RangeSpawn,
			Boss:       strings.TrimSpace(s.BossSpawn) == "1",
		}
	})
	return &world.Quest{
		Mode:    world.QuestScenario,
		Title:   sc.Title,
		XP:      sc.XP,
		BP:      sc.BP,
		Sectors: sectors,
	}
}

// buildStage spawns every NPC listed for one stage of a per-map quest.
func (d *Director) buildStage(q *content.Quest, stage int) []*world.NPC {
	if stage < 0 || stage >= len(q.Stages) {
		return nil
	}
	var out []*world.NPC
	idx := 0
	for _, e := range q.Stages[stage].Npcs {
		t, ok := d.cat.NpcTemplate(e.ID)
		if !ok {
			continue
		}
		for range max(1, e.Count) {
			id := fmt.Sprintf("npc-%d-%d", stage, idx)
			idx++
			out = append(out, world.NewNPC(id, t, d.spawnPos()))
		}
	}
	return out
}

// buildSector spawns a scenario sector. NPC sets are used round robin and
// each slot rolls its own template from the set.
func (d *Director) buildSector(s world.Sector) []*world.NPC {
	if len(s.NpcSets) == 0 {
		return nil
	}
	total := s.MeleeSpawn + s.RangeSpawn
	if s.Boss {
		total++
	}
	total = max(1, total)

	var out []*world.NPC
	idx := 0
	for i := range total {
		raw := s.NpcSets[i%len(s.NpcSets)]
		set, ok := d.cat.NpcSet(SetName(raw))
		if !ok {
			if set, ok = d.cat.NpcSet(raw); !ok {
				continue
			}
		}
		t, ok := d.cat.NpcTemplate(d.pickFromSet(set))
		if !ok {
			continue
		}
		id := fmt.Sprintf("npc-s-%d-%d", s.ID, idx)
		idx++
		out = append(out, world.NewNPC(id, t, d.spawnPos()))
	}
	return out
}

var groupedSet = regexp.MustCompile(`^[Gg](\d)(\d)$`)

var setLetters = []string{"a", "b", "c", "d", "e", "f", "x"}

// SetName maps a numbered scenario set reference such as G13 onto its
// lettered table name, Gb3. Other names pass through unchanged.
func SetName(name string) string {
	m := groupedSet.FindStringSubmatch(name)
	if m == nil {
		return name
	}
	group := int(m[1][0] - '0')
	letter := "a"
	if group < len(setLetters) {
		letter = setLetters[group]
	}
	return "G" + letter + m[2]
}

// pickFromSet starts from the base NPC; every add-on whose rolled rate
// succeeds replaces the choice, so later entries win.
func (d *Director) pickFromSet(set *content.NpcSet) int {
	rng := d.w.RNG
	chosen := set.BaseNpc
	for _, a := range set.AddNpc {
		rate := geom.Clamp(a.MinRate+rng.Float64()*max(0, a.MaxRate-a.MinRate), 0, 100)
		if rng.Float64()*100 <= rate {
			chosen = a.NpcID
		}
	}
	return chosen
}

// spawnPos scatters an NPC around one of the map's solo spawns.
func (d *Director) spawnPos() geom.Vec3 {
	rng := d.w.RNG
	base := d.cat.Spawn(d.w.Stage.MapID, world.TeamNone, false, rng)
	return geom.V(
		base.X+(rng.Float64()-0.5)*SpawnJitter,
		base.Y+(rng.Float64()-0.5)*SpawnJitter,
		base.Z,
	)
}

// SpawnPayload describes the current NPCs for S_NPC_SPAWN.
func (d *Director) SpawnPayload() protocol.NpcSpawn {
	return protocol.NpcSpawn{Npcs: lo.Map(d.w.Npcs, func(n *world.NPC, _ int) protocol.NpcSpawnEntry {
		return protocol.NpcSpawnEntry{
			ID:         n.ID,
			TemplateID: n.TemplateID,
			Name:       n.Name,
			Pos:        n.Pos,
			Health:     n.HP,
			MaxHealth:  n.MaxHP,
		}
	})}
}

// AnnounceSpawn sends the NPC list to the given sessions, or to everyone
// when to is nil. Nothing is sent when there are no NPCs.
func (d *Director) AnnounceSpawn(to []string) {
	if len(d.w.Npcs) == 0 {
		return
	}
	d.sink.Broadcast(protocol.SNpcSpawn, d.SpawnPayload(), to)
}
