package world

import (
	"github.com/gunzgo/server/internal/content"
	"github.com/gunzgo/server/internal/geom"
)

// NPC is a quest monster instance. Accessed only from the match loop.
type NPC struct {
	ID           string
	TemplateID   int
	Name         string
	HP           int
	AP           int
	MaxHP        int
	MaxAP        int
	Pos          geom.Vec3
	Radius       float64
	Height       float64
	ViewAngle    float64
	Speed        float64
	AttackRange  float64
	WeaponItemID int
	Skills       []int
	NextAttack   int64
	NextSkill    map[int]int64
	Dead         bool
}

// NewNPC instantiates a template at pos. Missing template values fall back
// to a 30x120 body, speed 300 and a 150 unit reach.
func NewNPC(id string, t *content.NpcTemplate, pos geom.Vec3) *NPC {
	return &NPC{
		ID:           id,
		TemplateID:   t.ID,
		Name:         t.Name,
		HP:           t.MaxHP,
		AP:           t.MaxAP,
		MaxHP:        t.MaxHP,
		MaxAP:        t.MaxAP,
		Pos:          pos,
		Radius:       orF(t.Collision.Radius, 30),
		Height:       orF(t.Collision.Height, 120),
		ViewAngle:    orF(t.ViewAngle, 20),
		Speed:        orF(t.Speed.Default, 300),
		AttackRange:  orF(t.Attack.Range, 150),
		WeaponItemID: t.Attack.WeaponItemID,
		Skills:       append([]int(nil), t.Skills...),
		NextSkill:    make(map[int]int64),
	}
}

func orF(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}
