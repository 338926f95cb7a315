package match

import (
	"time"

	"github.com/gunzgo/server/internal/combat"
	coresys "github.com/gunzgo/server/internal/core/system"
	"github.com/gunzgo/server/internal/geom"
	"github.com/gunzgo/server/internal/protocol"
	"github.com/gunzgo/server/internal/status"
	"github.com/gunzgo/server/internal/world"
	"go.uber.org/zap"
)

func (m *Match) registerSystems() {
	for _, s := range []coresys.System{
		&graceSystem{m},
		&roundSystem{m},
		&statusSystem{m},
		&duelSystem{m},
		&inputSystem{m},
		&projectileSystem{m},
		&timerSystem{m},
		&pickupSystem{m},
		&zoneSystem{m},
		&npcSystem{m},
		&snapshotSystem{m},
		&persistSystem{m},
	} {
		m.runner.Register(s)
	}
}

// graceSystem drops players whose reconnect grace has run out.
type graceSystem struct{ m *Match }

func (s *graceSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *graceSystem) Update(_ time.Duration) {
	w := s.m.w
	removed, masterLost := w.CleanupDisconnected(w.Tick)
	if masterLost {
		s.m.log.Info("master left, control reassigned", zap.String("master", w.Stage.MasterUserID))
	}
	if len(removed) == 0 {
		return
	}
	for _, p := range removed {
		s.m.log.Info("reconnect grace expired", zap.String("user", p.UserID))
	}
	s.m.broadcastRoom()
}

// roundSystem ends the round on the score or time limit.
type roundSystem struct{ m *Match }

func (s *roundSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (s *roundSystem) Update(_ time.Duration) {
	m := s.m
	st := &m.w.Stage
	if !st.Started {
		return
	}
	switch {
	case m.scoreLimitReached():
		m.EndRound(ReasonScore)
	case st.RoundEnd > 0 && m.w.Tick >= st.RoundEnd:
		m.EndRound(ReasonTime)
	}
}

// statusSystem expires timed effects and applies damage-over-time pulses.
type statusSystem struct{ m *Match }

func (s *statusSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (s *statusSystem) Update(_ time.Duration) {
	m := s.m
	tick := m.w.Tick
	for _, p := range m.w.Active() {
		if p.Dead {
			continue
		}
		p.Effects.Expire(tick)
		for _, pulse := range p.Effects.Pulses(tick) {
			hp, ap := combat.ApplyDamage(p, pulse.Damage, 1)
			m.sink.Broadcast(protocol.SPlayerDamage, protocol.PlayerDamage{
				TargetUserID: p.UserID,
				Damage:       hp + ap,
				HP:           p.HP,
				AP:           p.AP,
				Part:         string(combat.PartBody),
			}, nil)
			if p.HP <= 0 {
				m.PlayerDied(p, nil)
				break
			}
		}
	}
}

// duelSystem rotates fighters in and out of the ring.
type duelSystem struct{ m *Match }

func (s *duelSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (s *duelSystem) Update(_ time.Duration) {
	m := s.m
	w := m.w
	if !w.Stage.IsDuel() || !w.Stage.Started {
		return
	}
	if w.Duel == nil {
		d := &world.Duel{}
		for _, p := range w.Players() {
			if !p.Spectator {
				d.Queue = append(d.Queue, p.UserID)
			}
		}
		w.Duel = d
	}
	d := w.Duel
	d.Fill()
	if d.P1 != "" && w.PlayerByUser(d.P1) == nil {
		d.P1 = ""
	}
	if d.P2 != "" && w.PlayerByUser(d.P2) == nil {
		d.P2 = ""
	}
	for _, uid := range []string{d.P1, d.P2} {
		p := w.PlayerByUser(uid)
		if p == nil || !p.Dead || w.Tick < p.RespawnAt {
			continue
		}
		m.respawn(p)
	}
}

// inputSystem dispatches the client messages queued for this tick.
type inputSystem struct{ m *Match }

func (s *inputSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *inputSystem) Update(_ time.Duration) {
	m := s.m
	for _, in := range m.inbox {
		p := m.w.GetBySession(in.SessionID)
		if p == nil {
			continue
		}
		if err := m.inputs.Dispatch(p, stateOf(p, m.w.Tick), in); err != nil {
			m.log.Debug("input rejected", zap.String("user", p.UserID), zap.Error(err))
		}
	}
}

// projectileSystem advances everything in flight.
type projectileSystem struct{ m *Match }

func (s *projectileSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *projectileSystem) Update(_ time.Duration) { s.m.shots.Step(s.m.w.Tick) }

// timerSystem runs the per-player timers: recoil decay, delayed staggers
// and launches, guard expiry, respawns and reloads.
type timerSystem struct{ m *Match }

func (s *timerSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *timerSystem) Update(_ time.Duration) {
	m := s.m
	tick := m.w.Tick
	for _, p := range m.w.Active() {
		combat.DecayRecoil(p, tick)
		if p.PendingGuardRecoil > 0 && tick >= p.PendingGuardRecoil {
			p.PendingGuardRecoil = 0
			p.Effects.ApplyStun(tick, world.Ticks(combat.GuardRecoilSec), status.StunBlocked)
		}
		if p.PendingDash > 0 && tick >= p.PendingDash {
			p.PendingDash = 0
			m.combat.Launch(p, p.PendingDashDir)
			p.PendingDashDir = geom.Vec3{}
		}
		if p.GuardStart > 0 && float64(tick-p.GuardStart)/world.TickRate > combat.GuardDurationSec {
			p.GuardStart = 0
			p.GuardCancel = status.Open(tick, world.Ticks(0.2), 0)
		}
		if p.Dead && tick >= p.RespawnAt {
			m.respawn(p)
		}
		for _, a := range p.Ammo {
			a.FinishReload(tick)
		}
	}
}

func (m *Match) respawn(p *world.Player) {
	p.Respawn(m.spawnPos(p))
	m.sink.Broadcast(protocol.SPlayerRespawn, protocol.PlayerRespawn{UserID: p.UserID, Pos: p.Pos}, nil)
}

// pickupSystem revives taken items and hands active ones to whoever
// stands on them.
type pickupSystem struct{ m *Match }

func (s *pickupSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *pickupSystem) Update(_ time.Duration) {
	m := s.m
	tick := m.w.Tick
	kept := m.w.WorldItems[:0]
	for _, it := range m.w.WorldItems {
		it.Revive(tick)
		if it.Active && s.take(it) && it.Taken(tick) {
			continue
		}
		kept = append(kept, it)
	}
	clear(m.w.WorldItems[len(kept):])
	m.w.WorldItems = kept
}

func (s *pickupSystem) take(it *world.WorldItem) bool {
	for _, p := range s.m.w.Active() {
		if p.Dead || geom.Dist(p.Pos, it.Pos) > world.PickupRadius {
			continue
		}
		if s.m.applyPickup(p, it) {
			return true
		}
	}
	return false
}

// zoneSystem chokes players standing in tear gas.
type zoneSystem struct{ m *Match }

func (s *zoneSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *zoneSystem) Update(_ time.Duration) {
	tick := s.m.w.Tick
	for _, z := range s.m.w.ActiveZones(tick) {
		if z.Kind != world.ZoneTear {
			continue
		}
		for _, p := range s.m.w.Active() {
			if p.Dead || !z.Contains(p.Pos) {
				continue
			}
			fx := &p.Effects
			fx.ApplySlow(tick, 10, min(fx.SlowRatio(tick), 0.7))
			fx.RefreshDOT(status.Poison, tick, 40, 1)
		}
	}
}

// npcSystem moves quest NPCs and advances the quest.
type npcSystem struct{ m *Match }

func (s *npcSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *npcSystem) Update(_ time.Duration) {
	tick := s.m.w.Tick
	s.m.npcs.Step(tick)
	s.m.npcs.Progress(tick)
}

// snapshotSystem broadcasts the full state.
type snapshotSystem struct{ m *Match }

func (s *snapshotSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *snapshotSystem) Update(_ time.Duration) {
	s.m.sink.Broadcast(protocol.SMatchState, s.m.Snapshot(), nil)
}

// persistSystem hands the rewards earned this tick to the ledger.
type persistSystem struct{ m *Match }

func (s *persistSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *persistSystem) Update(_ time.Duration) {
	s.m.bus.SwapBuffers()
	s.m.bus.DispatchAll()
}
