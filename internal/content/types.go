package content

import (
	"math"
	"strings"

	"github.com/gunzgo/server/internal/geom"
)

// Item is one row of the item table. Weapon fields are pointers so that an
// absent column falls back to the engine default instead of zero.
type Item struct {
	ID          int      `yaml:"id"`
	Name        string   `yaml:"name"`
	Type        string   `yaml:"type"`   // melee, range, armor, throw, enchant, ...
	Weapon      string   `yaml:"weapon"` // weapon family or enchant tag
	Damage      *float64 `yaml:"damage"`
	Range       *float64 `yaml:"range"`
	Delay       *float64 `yaml:"delay"` // ms between attacks
	ReloadTime  float64  `yaml:"reloadtime"`
	Magazine    int      `yaml:"magazine"`
	MaxBullet   int      `yaml:"maxbullet"`
	CtrlAbility float64  `yaml:"ctrl_ability"`
	LimitSpeed  float64  `yaml:"limitspeed"`
	LimitWall   float64  `yaml:"limitwall"`
	LimitJump   float64  `yaml:"limitjump"`
	LimitTumble float64  `yaml:"limittumble"`
	Knockback   float64  `yaml:"knockback"`
	EffectLevel int      `yaml:"effect_level"`
	Mesh        string   `yaml:"mesh_name"`

	HP     int `yaml:"hp"`
	AP     int `yaml:"ap"`
	Weight int `yaml:"weight"`
	MaxWt  int `yaml:"maxwt"`
	SF     int `yaml:"sf"`
	FR     int `yaml:"fr"`
	CR     int `yaml:"cr"`
	PR     int `yaml:"pr"`
	LR     int `yaml:"lr"`
}

const (
	DefaultDamage  = 10
	DefaultRange   = 600
	DefaultDelayMS = 350
)

// WeaponInfo is an item resolved into weapon terms with defaults applied.
type WeaponInfo struct {
	ID          int
	Type        string // weapon family, lower case
	ItemType    string
	Damage      float64
	Range       float64
	Delay       float64
	ReloadTime  float64
	Magazine    int
	MaxBullet   int
	CtrlAbility float64
	LimitSpeed  float64
	LimitWall   float64
	LimitJump   float64
	LimitTumble float64
	Knockback   float64
	Mesh        string
}

func orDefault(p *float64, def float64) float64 {
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) {
		return def
	}
	return *p
}

// NormalizeWeaponType folds aliases onto their canonical family.
func NormalizeWeaponType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if t == "frag" {
		return "fragmentation"
	}
	return t
}

// AsWeapon resolves the item into weapon parameters.
func (it *Item) AsWeapon() WeaponInfo {
	family := it.Weapon
	if family == "" {
		family = it.Type
	}
	if family == "" {
		family = "unknown"
	}
	return WeaponInfo{
		ID:          it.ID,
		Type:        NormalizeWeaponType(family),
		ItemType:    strings.ToLower(it.Type),
		Damage:      orDefault(it.Damage, DefaultDamage),
		Range:       orDefault(it.Range, DefaultRange),
		Delay:       orDefault(it.Delay, DefaultDelayMS),
		ReloadTime:  it.ReloadTime,
		Magazine:    it.Magazine,
		MaxBullet:   it.MaxBullet,
		CtrlAbility: it.CtrlAbility,
		LimitSpeed:  it.LimitSpeed,
		LimitWall:   it.LimitWall,
		LimitJump:   it.LimitJump,
		LimitTumble: it.LimitTumble,
		Knockback:   it.Knockback,
		Mesh:        it.Mesh,
	}
}

// IsMelee reports whether a weapon family swings instead of shooting.
func IsMelee(weaponType string) bool {
	switch weaponType {
	case "dagger", "dualdagger", "katana", "doublekatana", "greatsword":
		return true
	}
	return false
}

// Stats is the equipment bonus sum of a character.
type Stats struct {
	HP, AP, Weight, MaxWt, SF, FR, CR, PR, LR int
}

// NpcTemplate describes one NPC type.
type NpcTemplate struct {
	ID        int    `yaml:"id"`
	Name      string `yaml:"name"`
	MaxHP     int    `yaml:"max_hp"`
	MaxAP     int    `yaml:"max_ap"`
	Collision struct {
		Radius float64 `yaml:"radius"`
		Height float64 `yaml:"height"`
	} `yaml:"collision"`
	ViewAngle float64 `yaml:"view_angle"`
	Speed     struct {
		Default float64 `yaml:"default"`
	} `yaml:"speed"`
	Attack struct {
		Range        float64 `yaml:"range"`
		WeaponItemID int     `yaml:"weaponitem_id"`
	} `yaml:"attack"`
	Skills []int `yaml:"skills"`
}

// NpcSet picks a concrete template: the base NPC, possibly replaced by any
// add-on whose rolled rate succeeds.
type NpcSet struct {
	Name    string   `yaml:"name"`
	BaseNpc int      `yaml:"basenpc"`
	AddNpc  []AddNpc `yaml:"addnpc"`
}

// AddNpc is an add-on roll of an NpcSet. The rate is drawn between
// MinRate and MaxRate, in percent.
type AddNpc struct {
	NpcID   int     `yaml:"npc_id"`
	MinRate float64 `yaml:"min_rate"`
	MaxRate float64 `yaml:"max_rate"`
}

// Skill is an NPC skill template.
type Skill struct {
	ID         int     `yaml:"id"`
	Delay      float64 `yaml:"delay"`
	EffectArea float64 `yaml:"effectarea"`
	EffectType int     `yaml:"effecttype"`
	EffectTime float64 `yaml:"effecttime"` // ms
	ResistType int     `yaml:"resisttype"`
	Mod        struct {
		Heal       int  `yaml:"heal"`
		Damage     int  `yaml:"damage"`
		Root       bool `yaml:"root"`
		AntiMotion bool `yaml:"antimotion"`
	} `yaml:"mod"`
}

// Quest is a simple per-map stage list.
type Quest struct {
	ID      int          `yaml:"id"`
	MapID   int          `yaml:"map_id"`
	Title   string       `yaml:"title"`
	Stages  []QuestStage `yaml:"stages"`
	Rewards struct {
		Bounty int `yaml:"bounty"`
		XP     int `yaml:"xp"`
	} `yaml:"rewards"`
}

type QuestStage struct {
	Npcs []QuestNpc `yaml:"npcs"`
}

// QuestNpc spawns Count copies of an NPC template, at least one.
type QuestNpc struct {
	ID    int `yaml:"id"`
	Count int `yaml:"count"`
}

// Scenario is a scripted sector sequence for a map set.
type Scenario struct {
	Title      string           `yaml:"title"`
	MapSet     string           `yaml:"mapset"`
	QuestLevel int              `yaml:"quest_level"`
	XP         int              `yaml:"xp"`
	BP         int              `yaml:"bp"`
	Sectors    []ScenarioSector `yaml:"sectors"`
}

type ScenarioSector struct {
	Dice       int      `yaml:"dice"`
	Key        int      `yaml:"key_sector"`
	NpcSets    []string `yaml:"npcset_array"`
	MeleeSpawn int      `yaml:"melee_spawn"`
	RangeSpawn int      `yaml:"range_spawn"`
	BossSpawn  string   `yaml:"boss_spawn"`
}

// Box is an authored solid volume.
type Box struct {
	Min geom.Vec3 `yaml:"min"`
	Max geom.Vec3 `yaml:"max"`
}

// PlaneNode is a raw collision tree node.
type PlaneNode struct {
	Plane [4]float64 `yaml:"plane"`
	Pos   int        `yaml:"pos"`
	Neg   int        `yaml:"neg"`
	Solid bool       `yaml:"solid"`
}

// MapItemSpawn places a world item on a map.
type MapItemSpawn struct {
	Item    string    `yaml:"item"`
	Pos     geom.Vec3 `yaml:"pos"`
	TimeSec float64   `yaml:"time_sec"`
}

// Map is one playable level.
type Map struct {
	ID     int    `yaml:"id"`
	Name   string `yaml:"name"`
	MapSet string `yaml:"mapset"`
	Spawns struct {
		Solo  []geom.Vec3 `yaml:"solo"`
		Team1 []geom.Vec3 `yaml:"team1"`
		Team2 []geom.Vec3 `yaml:"team2"`
	} `yaml:"spawns"`
	WorldItems struct {
		Solo []MapItemSpawn `yaml:"solo"`
		Team []MapItemSpawn `yaml:"team"`
	} `yaml:"world_items"`
	Collision struct {
		Boxes []Box       `yaml:"boxes"`
		Nodes []PlaneNode `yaml:"nodes"`
	} `yaml:"collision"`
}

// WorldItemDesc describes a pickup model.
type WorldItemDesc struct {
	Name      string  `yaml:"name"`
	ModelName string  `yaml:"modelname"`
	Type      string  `yaml:"type"` // hp, ap, hpap, bullet
	Amount    int     `yaml:"amount"`
	TimeMS    float64 `yaml:"time"`
}

// DropEntry is one roll of an NPC drop table.
type DropEntry struct {
	ID   string  `yaml:"id"`
	Rate float64 `yaml:"rate"`
}

// MeleeMotion tunes one swing animation.
type MeleeMotion struct {
	StunTicks      *int     `yaml:"stunTicks"`
	KnockbackScale *float64 `yaml:"knockbackScale"`
	ConeDot        *float64 `yaml:"coneDot"`
	RangeScale     *float64 `yaml:"rangeScale"`
	SwingAngleDeg  *float64 `yaml:"swingAngleDeg"`
	Samples        *int     `yaml:"samples"`
}

// MotionParams is a MeleeMotion with defaults applied.
type MotionParams struct {
	StunTicks      int
	KnockbackScale float64
	ConeDot        float64
	RangeScale     float64
	SwingAngleDeg  float64
	Samples        int
}

// GameType supplies default limits for a game type id.
type GameType struct {
	ID           int `yaml:"id"`
	DefaultRound int `yaml:"default_round"`
	DefaultTime  int `yaml:"default_time_sec"`
}
