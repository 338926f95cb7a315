package match

import (
	"github.com/gunzgo/server/internal/geom"
	"github.com/gunzgo/server/internal/protocol"
	"github.com/gunzgo/server/internal/status"
	"github.com/gunzgo/server/internal/world"
	"github.com/samber/lo"
)

// StageView is the room configuration as clients see it. The password
// never leaves the server.
type StageView struct {
	Name            string `json:"name" msgpack:"name"`
	MapID           int    `json:"mapId" msgpack:"mapId"`
	Mode            string `json:"mode" msgpack:"mode"`
	GameTypeID      int    `json:"gameTypeId" msgpack:"gameTypeId"`
	MaxPlayers      int    `json:"maxPlayers" msgpack:"maxPlayers"`
	RoundLimit      int    `json:"roundLimit" msgpack:"roundLimit"`
	TimeLimitSec    int    `json:"timeLimitSec" msgpack:"timeLimitSec"`
	HasPassword     bool   `json:"hasPassword" msgpack:"hasPassword"`
	TeamMode        bool   `json:"teamMode" msgpack:"teamMode"`
	ChannelRule     string `json:"channelRule" msgpack:"channelRule"`
	QuestLevel      int    `json:"questLevel" msgpack:"questLevel"`
	MasterUserID    string `json:"masterUserId" msgpack:"masterUserId"`
	MasterSessionID string `json:"masterSessionId" msgpack:"masterSessionId"`
	Started         bool   `json:"started" msgpack:"started"`
	Round           int    `json:"round" msgpack:"round"`
	RoundStartTick  int64  `json:"roundStartTick" msgpack:"roundStartTick"`
	RoundEndTick    int64  `json:"roundEndTick" msgpack:"roundEndTick"`
	ContentHash     string `json:"contentHash,omitempty" msgpack:"contentHash,omitempty"`
}

func (m *Match) stageView() StageView {
	st := &m.w.Stage
	return StageView{
		Name:            st.Name,
		MapID:           st.MapID,
		Mode:            st.Mode,
		GameTypeID:      st.GameTypeID,
		MaxPlayers:      st.MaxPlayers,
		RoundLimit:      st.RoundLimit,
		TimeLimitSec:    st.TimeLimitSec,
		HasPassword:     st.Password != "",
		TeamMode:        st.TeamMode,
		ChannelRule:     st.ChannelRule,
		QuestLevel:      st.QuestLevel,
		MasterUserID:    st.MasterUserID,
		MasterSessionID: st.MasterSessionID,
		Started:         st.Started,
		Round:           st.Round,
		RoundStartTick:  st.RoundStart,
		RoundEndTick:    st.RoundEnd,
		ContentHash:     m.cat.Hash,
	}
}

func (m *Match) welcome() protocol.Welcome {
	return protocol.Welcome{
		MatchID:     m.w.MatchID,
		TickRate:    world.TickRate,
		MapID:       m.w.Stage.MapID,
		RecipeHash:  m.opts.RecipeHash,
		ContentHash: m.cat.Hash,
		Players: lo.Map(m.w.Players(), func(p *world.Player, _ int) protocol.WelcomePlayer {
			return protocol.WelcomePlayer{UID: p.UserID, Name: p.Username}
		}),
	}
}

func (m *Match) roomPlayers() []protocol.RoomPlayer {
	return lo.Map(m.w.Players(), func(p *world.Player, _ int) protocol.RoomPlayer {
		return protocol.RoomPlayer{
			UserID:       p.UserID,
			Username:     p.Username,
			Ready:        p.Ready,
			Team:         p.Team,
			Loaded:       p.Loaded,
			Spectator:    p.Spectator,
			Disconnected: p.Disconnected,
		}
	})
}

func (m *Match) broadcastRoom() {
	m.sink.Broadcast(protocol.SRoomUpdate, protocol.RoomUpdate{
		Stage:   m.stageView(),
		Players: m.roomPlayers(),
	}, nil)
}

func (m *Match) broadcastReady() {
	m.sink.Broadcast(protocol.SReadyState, protocol.ReadyState{
		Players: lo.Map(m.w.Players(), func(p *world.Player, _ int) protocol.ReadyEntry {
			return protocol.ReadyEntry{UserID: p.UserID, Ready: p.Ready}
		}),
	}, nil)
}

// PlayerSnapshot is one player in the per-tick state broadcast.
type PlayerSnapshot struct {
	HP           int                 `json:"hp" msgpack:"hp"`
	AP           int                 `json:"ap" msgpack:"ap"`
	MaxHP        int                 `json:"maxHp" msgpack:"maxHp"`
	MaxAP        int                 `json:"maxAp" msgpack:"maxAp"`
	Weight       int                 `json:"weight" msgpack:"weight"`
	MaxWeight    int                 `json:"maxWeight" msgpack:"maxWeight"`
	Resist       world.Resist        `json:"resist" msgpack:"resist"`
	LimitSpeed   float64             `json:"limitSpeed" msgpack:"limitSpeed"`
	LimitWall    float64             `json:"limitWall" msgpack:"limitWall"`
	Pos          geom.Vec3           `json:"pos" msgpack:"pos"`
	Rot          geom.Vec3           `json:"rot" msgpack:"rot"`
	Anim         int                 `json:"anim" msgpack:"anim"`
	Dead         bool                `json:"dead" msgpack:"dead"`
	Team         int                 `json:"team" msgpack:"team"`
	Kills        int                 `json:"kills" msgpack:"kills"`
	Deaths       int                 `json:"deaths" msgpack:"deaths"`
	VIP          bool                `json:"vip" msgpack:"vip"`
	WeaponID     int                 `json:"weaponId" msgpack:"weaponId"`
	Ammo         map[int]*world.Ammo `json:"ammo" msgpack:"ammo"`
	FlashUntil   int64               `json:"flashUntilTick" msgpack:"flashUntilTick"`
	StunUntil    int64               `json:"stunUntilTick" msgpack:"stunUntilTick"`
	SlowUntil    int64               `json:"slowUntilTick" msgpack:"slowUntilTick"`
	PoisonUntil  int64               `json:"poisonUntilTick" msgpack:"poisonUntilTick"`
	BurnUntil    int64               `json:"burnUntilTick" msgpack:"burnUntilTick"`
	ShockUntil   int64               `json:"lightningUntilTick" msgpack:"lightningUntilTick"`
	EnchantType  string              `json:"enchantType" msgpack:"enchantType"`
	Spectator    bool                `json:"spectator" msgpack:"spectator"`
	Disconnected bool                `json:"disconnected" msgpack:"disconnected"`
}

// NpcSnapshot is one NPC in the state broadcast.
type NpcSnapshot struct {
	ID         string    `json:"id" msgpack:"id"`
	TemplateID int       `json:"templateId" msgpack:"templateId"`
	Name       string    `json:"name" msgpack:"name"`
	HP         int       `json:"hp" msgpack:"hp"`
	AP         int       `json:"ap" msgpack:"ap"`
	Pos        geom.Vec3 `json:"pos" msgpack:"pos"`
	Dead       bool      `json:"dead" msgpack:"dead"`
}

// ProjectileSnapshot is one projectile in flight.
type ProjectileSnapshot struct {
	ID          string    `json:"id" msgpack:"id"`
	OwnerUserID string    `json:"ownerUserId" msgpack:"ownerUserId"`
	WeaponType  string    `json:"weaponType" msgpack:"weaponType"`
	Pos         geom.Vec3 `json:"pos" msgpack:"pos"`
	Dir         geom.Vec3 `json:"dir" msgpack:"dir"`
}

// Snapshot is the full match state sent every tick.
type Snapshot struct {
	Tick        int64                     `json:"tick" msgpack:"tick"`
	Players     map[string]PlayerSnapshot `json:"players" msgpack:"players"`
	Score       world.Score               `json:"score" msgpack:"score"`
	Npcs        []NpcSnapshot             `json:"npcs" msgpack:"npcs"`
	WorldItems  []world.WorldItem         `json:"worldItems" msgpack:"worldItems"`
	Projectiles []ProjectileSnapshot      `json:"projectiles" msgpack:"projectiles"`
	SmokeZones  []world.Zone              `json:"smokeZones" msgpack:"smokeZones"`
}

// Snapshot captures the state clients render from.
func (m *Match) Snapshot() Snapshot {
	w := m.w
	players := make(map[string]PlayerSnapshot, w.PlayerCount())
	for _, p := range w.Players() {
		fx := &p.Effects
		players[p.UserID] = PlayerSnapshot{
			HP:           p.HP,
			AP:           p.AP,
			MaxHP:        p.MaxHP,
			MaxAP:        p.MaxAP,
			Weight:       p.Weight,
			MaxWeight:    p.MaxWeight,
			Resist:       p.Resist,
			LimitSpeed:   p.Limits.Speed,
			LimitWall:    p.Limits.Wall,
			Pos:          p.Pos,
			Rot:          p.Rot,
			Anim:         p.Anim,
			Dead:         p.Dead,
			Team:         p.Team,
			Kills:        p.Kills,
			Deaths:       p.Deaths,
			VIP:          p.VIP,
			WeaponID:     p.WeaponID,
			Ammo:         p.Ammo,
			FlashUntil:   fx.Flash.End,
			StunUntil:    fx.Stun.End,
			SlowUntil:    fx.Slow.End,
			PoisonUntil:  fx.DOTs[status.Poison].End,
			BurnUntil:    fx.DOTs[status.Burn].End,
			ShockUntil:   fx.DOTs[status.Shock].End,
			EnchantType:  string(p.Enchant.Kind),
			Spectator:    p.Spectator,
			Disconnected: p.Disconnected,
		}
	}
	return Snapshot{
		Tick:    w.Tick,
		Players: players,
		Score:   w.Score,
		Npcs: lo.Map(w.Npcs, func(n *world.NPC, _ int) NpcSnapshot {
			return NpcSnapshot{ID: n.ID, TemplateID: n.TemplateID, Name: n.Name, HP: n.HP, AP: n.AP, Pos: n.Pos, Dead: n.Dead}
		}),
		WorldItems: lo.Map(w.WorldItems, func(it *world.WorldItem, _ int) world.WorldItem { return *it }),
		Projectiles: lo.Map(w.Projectiles, func(p *world.Projectile, _ int) ProjectileSnapshot {
			return ProjectileSnapshot{ID: p.ID, OwnerUserID: p.OwnerUserID, WeaponType: p.WeaponType, Pos: p.Pos, Dir: p.Dir}
		}),
		SmokeZones: lo.Map(w.Zones, func(z *world.Zone, _ int) world.Zone { return *z }),
	}
}
