package npc

import (
	"math"

	"github.com/gunzgo/server/internal/combat"
	"github.com/gunzgo/server/internal/content"
	"github.com/gunzgo/server/internal/geom"
	"github.com/gunzgo/server/internal/protocol"
	"github.com/gunzgo/server/internal/world"
)

// areaSkillType marks a skill that always hits everyone around the caster.
const areaSkillType = 4

// Step runs one AI tick for every live NPC: approach the nearest player,
// then cast a ready skill or fall back to a melee swing.
func (d *Director) Step(tick int64) {
	for _, n := range d.w.Npcs {
		if n.Dead {
			continue
		}
		target, dist := d.nearest(n.Pos)
		if target == nil || dist > TargetRange {
			continue
		}
		if dist > n.AttackRange {
			next := geom.MoveTowards(n.Pos, target.Pos, n.Speed*MoveScale)
			if d.geo == nil || !d.geo.IsBlockedMovement(n.Pos, next) {
				n.Pos = next
			}
			continue
		}
		if d.castSkill(n, target, tick) {
			continue
		}
		d.melee(n, target, tick)
	}
}

// nearest finds the closest live player to pos.
func (d *Director) nearest(pos geom.Vec3) (*world.Player, float64) {
	var best *world.Player
	bestDist := math.Inf(1)
	for _, p := range d.w.Players() {
		if !p.Alive() {
			continue
		}
		if dd := geom.Dist(pos, p.Pos); dd < bestDist {
			best, bestDist = p, dd
		}
	}
	return best, bestDist
}

// castSkill uses the first skill off cooldown. It reports whether a skill
// was spent this tick, even when it found nobody to hit.
func (d *Director) castSkill(n *world.NPC, target *world.Player, tick int64) bool {
	for _, id := range n.Skills {
		sk, ok := d.cat.Skill(id)
		if !ok || tick < n.NextSkill[id] {
			continue
		}
		n.NextSkill[id] = tick + max(1, world.TicksMS(sk.Delay))

		switch {
		case sk.Mod.Heal > 0:
			n.HP = min(n.MaxHP, n.HP+sk.Mod.Heal)
		case sk.EffectArea > 0 || sk.EffectType == areaSkillType:
			radius := max(1, sk.EffectArea*100)
			for _, p := range d.w.Players() {
				if !p.Alive() || geom.Dist(n.Pos, p.Pos) > radius {
					continue
				}
				if d.blocked(n.Pos, p.Pos.WithZ(SightHeight)) {
					continue
				}
				d.skillHit(n, p, sk, tick)
			}
		default:
			if !d.blocked(n.Pos, target.Pos.WithZ(SightHeight)) {
				d.skillHit(n, target, sk, tick)
			}
		}
		return true
	}
	return false
}

func (d *Director) skillHit(n *world.NPC, p *world.Player, sk *content.Skill, tick int64) {
	dmg := combat.ApplySkillDamage(p, sk.Mod.Damage, sk.ResistType)
	if (sk.Mod.Root || sk.Mod.AntiMotion) && sk.EffectTime > 0 {
		p.Effects.ApplyRoot(tick, world.TicksMS(sk.EffectTime))
	}
	d.hitPlayer(n, p, dmg)
}

// melee swings the NPC's weapon at target once per cooldown.
func (d *Director) melee(n *world.NPC, target *world.Player, tick int64) {
	if tick < n.NextAttack {
		return
	}
	n.NextAttack = tick + AttackCooldown
	if d.blocked(n.Pos, target.Pos.WithZ(SightHeight)) {
		return
	}
	dmg := DefaultMeleeDamage
	if it, ok := d.cat.Item(n.WeaponItemID); ok && it.Damage != nil && *it.Damage > 0 {
		dmg = int(*it.Damage)
	}
	if d.hooks != nil {
		dmg = d.hooks.NpcMeleeDamage(n.TemplateID, dmg)
	}
	combat.ApplyDamage(target, dmg, combat.Piercing("dagger", false))
	d.hitPlayer(n, target, dmg)
}

// hitPlayer reports NPC damage on a player and resolves the kill. NPC
// kills credit nobody.
func (d *Director) hitPlayer(n *world.NPC, p *world.Player, dmg int) {
	d.sink.Broadcast(protocol.SPlayerDamage, protocol.PlayerDamage{
		TargetUserID:   p.UserID,
		AttackerUserID: n.ID,
		Damage:         dmg,
		HP:             p.HP,
		AP:             p.AP,
		Part:           string(combat.PartBody),
	}, nil)
	if p.HP <= 0 && !p.Dead && d.deaths != nil {
		d.deaths.PlayerDied(p, nil)
	}
}
