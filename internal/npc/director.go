// Package npc runs the PvE side of a match: quest and scenario monsters,
// their targeting and attacks, drops and stage progression.
package npc

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/gunzgo/server/internal/content"
	"github.com/gunzgo/server/internal/geom"
	"github.com/gunzgo/server/internal/protocol"
	"github.com/gunzgo/server/internal/world"
	"go.uber.org/zap"
)

// Geometry is the collision surface NPCs see and walk through.
type Geometry interface {
	Blocked(origin, target geom.Vec3) bool
	IsBlockedMovement(from, to geom.Vec3) bool
}

// Catalog is the content the director reads.
type Catalog interface {
	Item(id int) (*content.Item, bool)
	NpcTemplate(id int) (*content.NpcTemplate, bool)
	NpcSet(name string) (*content.NpcSet, bool)
	Skill(id int) (*content.Skill, bool)
	QuestByMap(mapID int) (*content.Quest, bool)
	ScenarioFor(mapSet string, level int) (*content.Scenario, bool)
	Map(id int) (*content.Map, bool)
	Spawn(mapID, team int, teamMode bool, rng *rand.Rand) geom.Vec3
	WorldItem(name string) (*content.WorldItemDesc, bool)
	Drops() []content.DropEntry
}

// Rewarder credits quest rewards and drops outside the match.
type Rewarder interface {
	AwardBounty(userID string, bounty int, meta map[string]any)
	AwardXP(userID string, xp int)
	GrantItem(userID string, itemID int)
}

// Hooks lets scripts adjust PvE numbers. A nil Hooks keeps the built-in
// values.
type Hooks interface {
	NpcMeleeDamage(templateID, base int) int
	QuestReward(kind string, base, players int) int
}

// DeathHandler is told when an NPC kills a player.
type DeathHandler interface {
	PlayerDied(target, attacker *world.Player)
}

// RoundEnder closes the current round.
type RoundEnder interface {
	EndRound(reason string)
}

// Deps are the collaborators of a Director.
type Deps struct {
	State    *world.State
	Geometry Geometry
	Catalog  Catalog
	Sink     protocol.Sink
	Rewards  Rewarder
	Hooks    Hooks
	Deaths   DeathHandler
	Rounds   RoundEnder
	Log      *zap.Logger
}

// AI and quest tuning.
const (
	TargetRange        = 5000.0
	MoveScale          = 0.02
	AttackCooldown     = world.TickRate
	DefaultMeleeDamage = 5
	SightHeight        = 80
	SpawnJitter        = 200
	StageClearDelay    = 5 * world.TickRate
	ReasonQuestClear   = "quest_clear"
	SystemUserID       = "system"
	SystemUsername     = "SERVER"
	StageClearMessage  = "STAGE CLEAR! Get ready for the next stage..."
)

// Director owns the NPCs and quest of one match. Single-goroutine access
// only (match loop).
type Director struct {
	w       *world.State
	geo     Geometry
	cat     Catalog
	sink    protocol.Sink
	rewards Rewarder
	hooks   Hooks
	deaths  DeathHandler
	rounds  RoundEnder
	log     *zap.Logger
	drops   int
}

func New(d Deps) *Director {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Director{
		w:       d.State,
		geo:     d.Geometry,
		cat:     d.Catalog,
		sink:    d.Sink,
		rewards: d.Rewards,
		hooks:   d.Hooks,
		deaths:  d.Deaths,
		rounds:  d.Rounds,
		log:     log,
	}
}

func (d *Director) SetGeometry(geo Geometry) { d.geo = geo }

func (d *Director) SetCatalog(cat Catalog) { d.cat = cat }

// DamageNpc lands damage on a quest NPC. The killing blow credits the
// attacker with a kill and rolls the drop table.
func (d *Director) DamageNpc(attacker *world.Player, n *world.NPC, damage int) {
	if n == nil || n.Dead {
		return
	}
	dmg := max(1, damage)
	n.HP = max(0, n.HP-dmg)
	uid := ""
	if attacker != nil {
		uid = attacker.UserID
	}
	d.sink.Broadcast(protocol.SNpcDamage, protocol.NpcDamage{
		NpcID:          n.ID,
		AttackerUserID: uid,
		Damage:         dmg,
		HP:             n.HP,
		MaxHP:          n.MaxHP,
	}, nil)
	if n.HP > 0 {
		return
	}
	n.Dead = true
	if attacker != nil {
		attacker.Kills++
	}
	d.sink.Broadcast(protocol.SNpcDie, protocol.NpcDie{NpcID: n.ID, AttackerUserID: uid}, nil)
	d.log.Debug("npc killed", zap.String("npc", n.ID), zap.String("by", uid))
	d.rollDrops(attacker, n)
}

// dropPickups maps drop table ids onto world item names. Any other numeric
// id is an inventory grant.
var dropPickups = map[string]string{
	"hp1":  "hp01",
	"hp2":  "hp02",
	"ap1":  "ap01",
	"ap2":  "ap02",
	"mag1": "bullet01",
	"mag2": "bullet02",
}

func (d *Director) rollDrops(attacker *world.Player, n *world.NPC) {
	if d.w.Quest == nil {
		return
	}
	for _, e := range d.cat.Drops() {
		if e.Rate <= 0 || d.w.RNG.Float64() > e.Rate {
			continue
		}
		if name, ok := dropPickups[e.ID]; ok {
			d.dropPickup(name, n.Pos)
			continue
		}
		id, err := strconv.Atoi(e.ID)
		if err != nil || attacker == nil || d.rewards == nil {
			continue
		}
		d.rewards.GrantItem(attacker.UserID, id)
	}
}

func (d *Director) dropPickup(name string, pos geom.Vec3) {
	desc, ok := d.cat.WorldItem(name)
	if !ok {
		return
	}
	d.drops++
	d.w.WorldItems = append(d.w.WorldItems, &world.WorldItem{
		ID:         fmt.Sprintf("drop-%d-%d", d.w.Tick, d.drops),
		Name:       name,
		Type:       desc.Type,
		Amount:     desc.Amount,
		Pos:        pos,
		Active:     true,
		RespawnSec: math.Max(0, desc.TimeMS/1000),
		OneShot:    true,
	})
}

func (d *Director) blocked(from, to geom.Vec3) bool {
	return d.geo != nil && d.geo.Blocked(from, to)
}
