package npc

import (
	"github.com/gunzgo/server/internal/protocol"
	"github.com/gunzgo/server/internal/world"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Progress advances the quest. When the last NPC of a stage falls, dead
// players are revived and the next stage spawns StageClearDelay ticks
// later. Clearing the final stage pays the rewards and ends the round.
func (d *Director) Progress(tick int64) {
	q := d.w.Quest
	if q == nil || q.Completed {
		return
	}
	if q.Transition > 0 {
		if tick < q.Transition {
			return
		}
		q.Transition = 0
		d.nextStage(q)
		return
	}
	if len(d.w.Npcs) == 0 || len(d.w.LiveNpcs()) > 0 {
		return
	}
	q.Transition = tick + StageClearDelay
	d.reviveDead()
	d.sink.Broadcast(protocol.CRoomChat, protocol.Chat{
		UserID:   SystemUserID,
		Username: SystemUsername,
		Message:  StageClearMessage,
	}, nil)
	d.log.Info("stage cleared", zap.String("match", d.w.MatchID), zap.Int("stage", q.Stage))
}

func (d *Director) nextStage(q *world.Quest) {
	next := q.Stage + 1
	switch q.Mode {
	case world.QuestScenario:
		if next < len(q.Sectors) {
			q.Stage = next
			d.w.Npcs = d.buildSector(q.Sectors[next])
			d.AnnounceSpawn(nil)
			return
		}
		d.complete(q, q.BP, q.XP, map[string]any{"action": "quest_reward", "scenario": q.Title})
	default:
		cq, ok := d.cat.QuestByMap(d.w.Stage.MapID)
		if !ok {
			return
		}
		if next < len(cq.Stages) {
			q.Stage = next
			d.w.Npcs = d.buildStage(cq, next)
			d.AnnounceSpawn(nil)
			return
		}
		d.complete(q, cq.Rewards.Bounty, cq.Rewards.XP, map[string]any{"action": "quest_reward", "questId": cq.ID})
	}
}

// complete pays every active player and closes the round.
func (d *Director) complete(q *world.Quest, bounty, xp int, meta map[string]any) {
	q.Completed = true
	players := d.w.Active()
	if d.hooks != nil {
		bounty = d.hooks.QuestReward("bounty", bounty, len(players))
		xp = d.hooks.QuestReward("xp", xp, len(players))
	}
	if d.rewards != nil {
		for _, p := range players {
			if bounty > 0 {
				d.rewards.AwardBounty(p.UserID, bounty, meta)
			}
			if xp > 0 {
				d.rewards.AwardXP(p.UserID, xp)
			}
		}
	}
	d.log.Info("quest completed",
		zap.String("match", d.w.MatchID),
		zap.String("title", q.Title),
		zap.Int("bounty", bounty),
		zap.Int("xp", xp),
		zap.Int("players", len(players)))
	if d.rounds != nil {
		d.rounds.EndRound(ReasonQuestClear)
	}
}

func (d *Director) reviveDead() {
	dead := lo.Filter(d.w.Players(), func(p *world.Player, _ int) bool { return p.Dead })
	for _, p := range dead {
		p.Respawn(d.cat.Spawn(d.w.Stage.MapID, p.Team, d.w.Stage.TeamMode, d.w.RNG))
		d.sink.Broadcast(protocol.SPlayerRespawn, protocol.PlayerRespawn{UserID: p.UserID, Pos: p.Pos}, nil)
	}
}
