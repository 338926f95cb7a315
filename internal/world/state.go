package world

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/samber/lo"
)

// Stage is the room configuration plus round bookkeeping.
type Stage struct {
	Name         string
	MapID        int
	Mode         string
	GameTypeID   int
	MaxPlayers   int
	RoundLimit   int
	TimeLimitSec int
	Password     string
	TeamMode     bool
	ChannelRule  string
	QuestLevel   int

	MasterUserID    string
	MasterSessionID string

	Started    bool
	Round      int
	RoundStart int64
	RoundEnd   int64
}

// Modes with special rules.
const (
	ModeDuel          = "duel"
	ModeAssassination = "assassination"
	ModeGladiator     = "gladiator"
	ModeTeamGladiator = "team_gladiator"
)

func (s *Stage) IsDuel() bool          { return strings.EqualFold(s.Mode, ModeDuel) }
func (s *Stage) IsAssassination() bool { return strings.EqualFold(s.Mode, ModeAssassination) }

// MeleeOnly reports whether the mode forbids guns and throwables.
func (s *Stage) MeleeOnly() bool {
	return strings.EqualFold(s.Mode, ModeGladiator) || strings.EqualFold(s.Mode, ModeTeamGladiator)
}

// Score is the team tally of the current round.
type Score struct {
	Red  int `json:"red"`
	Blue int `json:"blue"`
}

// Credit adds a kill to team.
func (s *Score) Credit(team int) {
	switch team {
	case TeamRed:
		s.Red++
	case TeamBlue:
		s.Blue++
	}
}

// JoinMeta is what a join attempt learned about a user before the join.
type JoinMeta struct {
	Spectator bool
	Role      string
}

// State tracks everything inside one match. Players keep join order so
// every iteration is deterministic.
// Single-goroutine access only (match loop).
type State struct {
	MatchID string
	Stage   Stage
	Score   Score
	Tick    int64

	Seed        uint64
	ShotCounter uint64
	RNG         *rand.Rand

	players   []*Player
	bySession map[string]*Player

	Npcs             []*NPC
	Projectiles      []*Projectile
	NextProjectileID int
	WorldItems       []*WorldItem
	Zones            []*Zone
	Quest            *Quest
	Duel             *Duel

	PendingJoin map[string]JoinMeta
}

func NewState(matchID string, seed uint64) *State {
	s := &State{
		MatchID:     matchID,
		bySession:   make(map[string]*Player),
		PendingJoin: make(map[string]JoinMeta),
	}
	s.Reseed(seed)
	return s
}

// Reseed restarts every generator of the match from seed.
func (s *State) Reseed(seed uint64) {
	s.Seed = seed
	s.ShotCounter = 0
	s.RNG = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// ShotRNG returns the generator for one shot. It is derived from the match
// seed, the tick and a per-match counter so replays see the same spread.
func (s *State) ShotRNG() *rand.Rand {
	s.ShotCounter++
	return rand.New(rand.NewPCG(s.Seed^uint64(s.Tick), s.ShotCounter))
}

// AddPlayer registers a player in the match.
func (s *State) AddPlayer(p *Player) {
	s.players = append(s.players, p)
	s.bySession[p.SessionID] = p
}

// RemovePlayer removes a player from the match.
func (s *State) RemovePlayer(sessionID string) *Player {
	p, ok := s.bySession[sessionID]
	if !ok {
		return nil
	}
	delete(s.bySession, sessionID)
	s.players = lo.Without(s.players, p)
	if s.Duel != nil {
		s.Duel.Drop(p.UserID)
	}
	return p
}

// GetBySession returns a player by session ID.
func (s *State) GetBySession(sessionID string) *Player {
	return s.bySession[sessionID]
}

// PlayerByUser returns the player entry of a user, connected or not.
func (s *State) PlayerByUser(userID string) *Player {
	p, _ := lo.Find(s.players, func(p *Player) bool { return p.UserID == userID })
	return p
}

// PlayerByName finds a player by case-insensitive username.
func (s *State) PlayerByName(name string) *Player {
	p, _ := lo.Find(s.players, func(p *Player) bool { return strings.EqualFold(p.Username, name) })
	return p
}

// Rekey moves a reconnecting player onto a new session.
func (s *State) Rekey(p *Player, sessionID string) {
	delete(s.bySession, p.SessionID)
	if s.Stage.MasterSessionID == p.SessionID {
		s.Stage.MasterSessionID = sessionID
	}
	p.SessionID = sessionID
	s.bySession[sessionID] = p
}

// Players returns every entry in join order. The slice must not be
// modified.
func (s *State) Players() []*Player { return s.players }

// Active returns the players taking part in the simulation.
func (s *State) Active() []*Player {
	return lo.Filter(s.players, func(p *Player, _ int) bool { return p.Active() })
}

// ActiveCount is len(Active()) without the allocation.
func (s *State) ActiveCount() int {
	return lo.CountBy(s.players, func(p *Player) bool { return p.Active() })
}

func (s *State) PlayerCount() int { return len(s.players) }

// IsMaster reports whether p controls the room.
func (s *State) IsMaster(p *Player) bool {
	return p != nil && s.Stage.MasterUserID != "" && p.UserID == s.Stage.MasterUserID
}

// SetMaster hands room control to p, or clears it when p is nil.
func (s *State) SetMaster(p *Player) {
	if p == nil {
		s.Stage.MasterUserID = ""
		s.Stage.MasterSessionID = ""
		return
	}
	s.Stage.MasterUserID = p.UserID
	s.Stage.MasterSessionID = p.SessionID
}

// ReassignMaster gives control to the first active player.
func (s *State) ReassignMaster() {
	p, _ := lo.Find(s.players, func(p *Player) bool { return p.Active() })
	s.SetMaster(p)
}

// CleanupDisconnected drops players whose reconnect grace ran out and
// reports whether the master was among them.
func (s *State) CleanupDisconnected(tick int64) (removed []*Player, masterLost bool) {
	for _, p := range append([]*Player(nil), s.players...) {
		if !p.Disconnected || p.DisconnectedUntil <= 0 || tick < p.DisconnectedUntil {
			continue
		}
		if s.IsMaster(p) {
			masterLost = true
		}
		s.RemovePlayer(p.SessionID)
		removed = append(removed, p)
	}
	if masterLost {
		s.ReassignMaster()
	}
	return removed, masterLost
}

// Leader returns the player with the most kills, the earliest joined on a
// tie, or nil when nobody is in the match.
func (s *State) Leader() *Player {
	var top *Player
	for _, p := range s.players {
		if top == nil || p.Kills > top.Kills {
			top = p
		}
	}
	return top
}

func (s *State) NpcByID(id string) *NPC {
	n, _ := lo.Find(s.Npcs, func(n *NPC) bool { return n.ID == id })
	return n
}

// LiveNpcs returns the NPCs still standing.
func (s *State) LiveNpcs() []*NPC {
	return lo.Filter(s.Npcs, func(n *NPC, _ int) bool { return !n.Dead })
}

// AddProjectile assigns an id and puts p in flight.
func (s *State) AddProjectile(p *Projectile) {
	s.NextProjectileID++
	p.ID = fmt.Sprintf("p%d", s.NextProjectileID)
	s.Projectiles = append(s.Projectiles, p)
}

// ActiveZones drops expired clouds and returns the rest.
func (s *State) ActiveZones(tick int64) []*Zone {
	s.Zones = lo.Filter(s.Zones, func(z *Zone, _ int) bool { return z.End > tick })
	return s.Zones
}
