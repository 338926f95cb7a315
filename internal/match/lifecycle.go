package match

import (
	"strings"

	"github.com/gunzgo/server/internal/content"
	"github.com/gunzgo/server/internal/core/event"
	"github.com/gunzgo/server/internal/geom"
	"github.com/gunzgo/server/internal/protocol"
	"github.com/gunzgo/server/internal/status"
	"github.com/gunzgo/server/internal/world"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Join rejections.
const (
	RejectRoomFull = "Room full."
	RejectPassword = "Invalid password."
)

// Round end reasons.
const (
	ReasonScore       = "score"
	ReasonTime        = "time"
	ReasonRedVIPDead  = "blue_win_vip_dead"
	ReasonBlueVIPDead = "red_win_vip_dead"
	ReasonManual      = "manual"
)

// JoinAttempt decides whether a user may enter. meta carries the join
// metadata: password and spectator from the client, role from the
// authenticated session. Transports must not pass a client-supplied role.
func (m *Match) JoinAttempt(pr world.Presence, meta map[string]string) (bool, string) {
	spectator := meta["spectator"] == "true" || meta["spectator"] == "1"
	existing := m.w.PlayerByUser(pr.UserID) != nil
	if !spectator && !existing && m.w.ActiveCount() >= m.w.Stage.MaxPlayers {
		return false, RejectRoomFull
	}
	if !m.checkPassword(meta["password"]) {
		return false, RejectPassword
	}
	m.w.PendingJoin[pr.UserID] = world.JoinMeta{Spectator: spectator, Role: meta["role"]}
	return true, ""
}

// Join admits players that passed JoinAttempt. A user whose entry is still
// held resumes it; anyone else gets a fresh entry loaded from their active
// character.
func (m *Match) Join(presences []world.Presence) {
	for _, pr := range presences {
		meta := m.w.PendingJoin[pr.UserID]
		delete(m.w.PendingJoin, pr.UserID)

		p := m.w.PlayerByUser(pr.UserID)
		if p != nil {
			m.resume(p, pr, meta)
		} else {
			p = world.NewPlayer(pr)
			p.Role = meta.Role
			p.Spectator = meta.Spectator
			m.w.AddPlayer(p)
			if !p.Spectator {
				m.loadCharacter(p)
				p.Pos = m.spawnPos(p)
				if m.w.Duel != nil {
					m.w.Duel.Queue = append(m.w.Duel.Queue, p.UserID)
				}
			}
			m.log.Info("player joined",
				zap.String("user", pr.UserID),
				zap.String("name", pr.Username),
				zap.Bool("spectator", p.Spectator))
		}
		if m.w.Stage.MasterUserID == "" && !p.Spectator {
			m.w.SetMaster(p)
		}

		m.sink.Broadcast(protocol.SMatchWelcome, m.welcome(), []string{pr.SessionID})
		if !p.Spectator {
			m.sink.Broadcast(protocol.SPlayerSpawn, protocol.PlayerSpawn{
				UserID:   pr.UserID,
				Username: pr.Username,
				Pos:      p.Pos,
			}, nil)
		}
	}
	m.npcs.AnnounceSpawn(lo.Map(presences, func(pr world.Presence, _ int) string { return pr.SessionID }))
	m.broadcastRoom()
}

// resume moves an existing entry onto a new session. A live duplicate
// session is kicked.
func (m *Match) resume(p *world.Player, pr world.Presence, meta world.JoinMeta) {
	if !p.Disconnected && p.SessionID != pr.SessionID {
		m.sink.Kick([]string{p.SessionID})
	}
	m.w.Rekey(p, pr.SessionID)
	p.Username = pr.Username
	p.Disconnected = false
	p.DisconnectedUntil = 0
	p.Spectator = p.Spectator || meta.Spectator
	m.log.Info("player reconnected",
		zap.String("user", pr.UserID),
		zap.Int("kills", p.Kills),
		zap.Int("deaths", p.Deaths))
}

// Leave marks players gone. Spectators are dropped at once; others keep
// their entry through the reconnect grace period.
func (m *Match) Leave(presences []world.Presence) {
	for _, pr := range presences {
		p := m.w.GetBySession(pr.SessionID)
		if p == nil {
			continue
		}
		wasMaster := m.w.Stage.MasterSessionID == pr.SessionID
		if p.Spectator {
			m.w.RemovePlayer(pr.SessionID)
		} else {
			p.Disconnected = true
			p.DisconnectedUntil = m.w.Tick + world.ReconnectGraceTicks
			p.Ready = false
		}
		if wasMaster {
			m.w.ReassignMaster()
		}
		m.log.Info("player left", zap.String("user", pr.UserID), zap.Bool("spectator", p.Spectator))
	}
	m.broadcastRoom()
}

// loadCharacter applies the persisted character: loadout, enchant, ammo
// and equipment stats. Read failures leave the defaults in place.
func (m *Match) loadCharacter(p *world.Player) {
	var ch *Character
	if m.chars != nil {
		ctx, cancel := m.storeCtx()
		c, err := m.chars.ActiveCharacter(ctx, p.UserID)
		cancel()
		if err != nil {
			m.log.Warn("load character failed", zap.String("user", p.UserID), zap.Error(err))
		}
		ch = c
	}
	if ch == nil {
		return
	}
	eq := ch.Equipment
	p.Loadout = world.Loadout{
		Melee:     eq[string(world.SlotMelee)],
		Primary:   eq[string(world.SlotPrimary)],
		Secondary: eq[string(world.SlotSecondary)],
	}
	for _, slot := range []string{"item1", "item2"} {
		it, ok := m.cat.Item(eq[slot])
		if !ok || !strings.HasPrefix(strings.ToLower(it.Weapon), "enchant_") {
			continue
		}
		p.Enchant = enchantOf(it)
		break
	}
	for _, id := range []int{p.Loadout.Melee, p.Loadout.Primary, p.Loadout.Secondary} {
		if w, ok := m.cat.Weapon(id); ok {
			p.AmmoFor(w)
		}
	}

	bonus := m.cat.EquipmentStats(lo.Values(eq))
	baseHP, baseAP := 100, 0
	if ch.HP != nil {
		baseHP = *ch.HP
	}
	if ch.AP != nil {
		baseAP = *ch.AP
	}
	p.MaxHP = baseHP + bonus.HP
	p.MaxAP = baseAP + bonus.AP
	p.HP = p.MaxHP
	p.AP = p.MaxAP
	p.Weight = bonus.Weight
	p.MaxWeight = world.BaseMaxWeight + bonus.MaxWt
	p.Resist = world.Resist{SF: bonus.SF, FR: bonus.FR, CR: bonus.CR, PR: bonus.PR, LR: bonus.LR}

	if w, ok := m.cat.Weapon(p.Loadout.Default()); ok {
		p.EquipWeapon(w)
	}
}

func enchantOf(it *content.Item) status.Enchant {
	var dmg int
	if it.Damage != nil {
		dmg = int(*it.Damage)
	}
	var delay float64
	if it.Delay != nil {
		delay = *it.Delay
	}
	return status.EnchantFromItem(it.Weapon, it.EffectLevel, dmg, delay, it.LimitSpeed)
}

func (m *Match) spawnPos(p *world.Player) geom.Vec3 {
	return m.cat.Spawn(m.w.Stage.MapID, p.Team, m.w.Stage.TeamMode, m.w.RNG)
}

// PlayerDied resolves a death. attacker is nil for deaths nobody caused;
// self kills score nothing.
func (m *Match) PlayerDied(target, attacker *world.Player) {
	if target == nil || target.Dead {
		return
	}
	target.Dead = true
	target.RespawnAt = m.w.Tick + world.RespawnTicks
	target.Deaths++

	by := ""
	if attacker != nil && attacker != target {
		attacker.Kills++
		if m.w.Stage.TeamMode {
			m.w.Score.Credit(attacker.Team)
		}
		by = attacker.UserID
	}
	m.sink.Broadcast(protocol.SPlayerDie, protocol.PlayerDie{TargetUserID: target.UserID, AttackerUserID: by}, nil)
	m.log.Debug("player died", zap.String("user", target.UserID), zap.String("by", by))

	if m.w.Stage.IsAssassination() && target.VIP {
		if target.Team == world.TeamRed {
			m.EndRound(ReasonRedVIPDead)
		} else {
			m.EndRound(ReasonBlueVIPDead)
		}
	}
	if m.w.Stage.IsDuel() && m.w.Duel != nil {
		m.w.Duel.Lose(target.UserID)
	}
}

// StartRound opens the next round: limits armed, tallies and score reset,
// VIPs drawn and the duel rotation rebuilt.
func (m *Match) StartRound() {
	st := &m.w.Stage
	st.Started = true
	st.Round++
	st.RoundStart = m.w.Tick
	st.RoundEnd = 0
	if st.TimeLimitSec > 0 {
		st.RoundEnd = m.w.Tick + world.Ticks(float64(st.TimeLimitSec))
	}
	m.w.Score = world.Score{}
	for _, p := range m.w.Players() {
		p.ResetForRound()
	}
	m.w.Duel = nil
	m.assignVIPs()
	m.sink.Broadcast(protocol.SMatchStart, protocol.MatchStart{Round: st.Round}, nil)
	m.log.Info("round started", zap.Int("round", st.Round), zap.Int64("ends", st.RoundEnd))
}

// EndRound closes the running round and reports the leader. Ending a round
// that is not running does nothing.
func (m *Match) EndRound(reason string) {
	st := &m.w.Stage
	if !st.Started {
		return
	}
	st.Started = false
	st.RoundEnd = 0

	end := protocol.MatchEnd{
		Round:  st.Round,
		Reason: reason,
		Score:  &protocol.Score{Red: m.w.Score.Red, Blue: m.w.Score.Blue},
	}
	if st.TeamMode {
		team := world.TeamNone
		switch {
		case m.w.Score.Red > m.w.Score.Blue:
			team = world.TeamRed
		case m.w.Score.Blue > m.w.Score.Red:
			team = world.TeamBlue
		}
		end.WinnerTeam = &team
	} else if top := m.w.Leader(); top != nil {
		uid, kills := top.UserID, top.Kills
		end.WinnerUserID = &uid
		end.TopKills = &kills
	}
	m.sink.Broadcast(protocol.SMatchEnd, end, nil)
	event.Emit(m.bus, event.RoundEnded{MatchID: m.w.MatchID, Round: st.Round, Reason: reason})
	m.log.Info("round ended", zap.Int("round", st.Round), zap.String("reason", reason))
}

// scoreLimitReached checks the round limit: team score in team modes,
// kills of any player otherwise.
func (m *Match) scoreLimitReached() bool {
	limit := m.w.Stage.RoundLimit
	if limit <= 0 {
		return false
	}
	if m.w.Stage.TeamMode {
		return m.w.Score.Red >= limit || m.w.Score.Blue >= limit
	}
	return lo.SomeBy(m.w.Players(), func(p *world.Player) bool { return p.Kills >= limit })
}

// assignVIPs picks one VIP per team in assassination rounds.
func (m *Match) assignVIPs() {
	for _, p := range m.w.Players() {
		p.VIP = false
	}
	if !m.w.Stage.IsAssassination() {
		return
	}
	for _, team := range []int{world.TeamRed, world.TeamBlue} {
		members := lo.Filter(m.w.Players(), func(p *world.Player, _ int) bool { return p.Active() && p.Team == team })
		if len(members) > 0 {
			members[m.w.RNG.IntN(len(members))].VIP = true
		}
	}
}
