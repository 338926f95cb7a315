package match

import (
	"encoding/json"
	"strings"

	"github.com/gunzgo/server/internal/auth"
	"github.com/gunzgo/server/internal/protocol"
	"github.com/gunzgo/server/internal/world"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Control rejection reasons.
const (
	ReasonNotMaster  = "not_master"
	ReasonNotReady   = "not_ready"
	ReasonRoundLimit = "round_limit"
	ReasonNoPlayer   = "player_not_found"

	// ReasonContentHash is returned while content hashes are enforced and a
	// client's hashes do not match the room's.
	ReasonContentHash = "content_hash_mismatch"
)

// Chat identities used by server announcements.
const (
	AnnounceUserID   = "system"
	AnnounceUsername = "ANNOUNCEMENT"
)

// Roles allowed to run chat commands.
const (
	RoleAdmin     = "admin"
	RoleDeveloper = "developer"
	RolePlayer    = "player"
)

// Reply is the answer to a control request.
type Reply struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// StateView is the full room state returned by get_state.
type StateView struct {
	Stage StageView             `json:"stage"`
	Room  []protocol.RoomPlayer `json:"room"`
	Snapshot
}

// controlInput is a loosely typed control request. Fields of the wrong
// type are treated as absent.
type controlInput map[string]any

func (in controlInput) str(key string) (string, bool) {
	s, ok := in[key].(string)
	return s, ok
}

func (in controlInput) num(key string) (int, bool) {
	f, ok := in[key].(float64)
	return int(f), ok
}

func (in controlInput) flag(key string) (bool, bool) {
	b, ok := in[key].(bool)
	return b, ok
}

// Signal handles one room-management request and returns the JSON reply.
// Unknown operations echo the request back.
func (m *Match) Signal(data string) string {
	in := controlInput{}
	if data != "" {
		if err := json.Unmarshal([]byte(data), &in); err != nil {
			m.log.Debug("bad control request", zap.Error(err))
			in = controlInput{}
		}
	}
	op, _ := in.str("op")
	var reply any
	switch op {
	case "get_state":
		reply = m.stateView()
	case "check_join":
		reply = m.checkJoin(in)
	case "set_ready":
		reply = m.setReady(in)
	case "set_team":
		reply = m.setTeam(in)
	case "update_stage":
		reply = m.updateStage(in)
	case "start":
		reply = m.start(in)
	case "end":
		reply = m.end(in)
	case "chat":
		reply = m.chat(in)
	default:
		return data
	}
	b, err := json.Marshal(reply)
	if err != nil {
		m.log.Error("encode control reply", zap.String("op", op), zap.Error(err))
		return `{"ok":false}`
	}
	return string(b)
}

func (m *Match) stateView() StateView {
	return StateView{Stage: m.stageView(), Room: m.roomPlayers(), Snapshot: m.Snapshot()}
}

// activeUser returns the entry of a user taking part in the match.
func (m *Match) activeUser(in controlInput) *world.Player {
	uid, _ := in.str("userId")
	p := m.w.PlayerByUser(uid)
	if p == nil || !p.Active() {
		return nil
	}
	return p
}

// checkJoin answers a lobby's pre-join check. With hashes enforced the
// caller's recipeHash and contentHash must match the room's.
func (m *Match) checkJoin(in controlInput) Reply {
	pw, _ := in.str("password")
	if !m.checkPassword(pw) {
		return Reply{}
	}
	if m.opts.EnforceContentHash {
		recipe, _ := in.str("recipeHash")
		content, _ := in.str("contentHash")
		if m.hashMismatch(recipe, content) {
			return Reply{Reason: ReasonContentHash}
		}
	}
	return Reply{OK: true}
}

func (m *Match) setReady(in controlInput) Reply {
	p := m.activeUser(in)
	if p == nil {
		return Reply{Reason: ReasonNoPlayer}
	}
	p.Ready, _ = in.flag("ready")
	m.broadcastReady()
	return Reply{OK: true}
}

func (m *Match) setTeam(in controlInput) Reply {
	p := m.activeUser(in)
	if p == nil {
		return Reply{Reason: ReasonNoPlayer}
	}
	p.Team, _ = in.num("team")
	m.broadcastRoom()
	return Reply{OK: true}
}

// masterAllowed reports whether the requester controls the room. A room
// without a master accepts anyone.
func (m *Match) masterAllowed(in controlInput) bool {
	uid, _ := in.str("userId")
	master := m.w.Stage.MasterUserID
	return master == "" || uid == master
}

func (m *Match) updateStage(in controlInput) Reply {
	if !m.masterAllowed(in) {
		return Reply{Reason: ReasonNotMaster}
	}
	st := &m.w.Stage
	prevMap, prevTeam := st.MapID, st.TeamMode

	if v, ok := in.str("name"); ok {
		st.Name = v
	}
	if v, ok := in.num("mapId"); ok {
		st.MapID = v
	}
	if v, ok := in.str("mode"); ok {
		st.Mode = v
	}
	if v, ok := in.num("gameTypeId"); ok {
		st.GameTypeID = v
	}
	if v, ok := in.num("maxPlayers"); ok && v > 0 {
		st.MaxPlayers = v
	}
	if v, ok := in.num("roundLimit"); ok {
		st.RoundLimit = v
	}
	if v, ok := in.num("timeLimitSec"); ok {
		st.TimeLimitSec = NormalizeTimeLimit(v)
	}
	if v, ok := in.str("password"); ok {
		st.Password = ""
		if v != "" {
			hash, err := auth.HashPassword(v)
			if err != nil {
				m.log.Error("hash room password", zap.Error(err))
				return Reply{Reason: "password"}
			}
			st.Password = hash
		}
	}
	if v, ok := in.flag("teamMode"); ok {
		st.TeamMode = v
	}
	if v, ok := in.str("channelRule"); ok {
		st.ChannelRule = v
	}
	if v, ok := in.num("seed"); ok && v > 0 {
		m.w.Reseed(uint64(v))
	}
	if v, ok := in.str("recipeHash"); ok {
		m.opts.RecipeHash = v
	}

	if st.MapID != prevMap || st.TeamMode != prevTeam {
		m.changeMap()
	}
	m.log.Info("stage updated", zap.Int("map", st.MapID), zap.String("mode", st.Mode), zap.Bool("team", st.TeamMode))
	m.broadcastRoom()
	return Reply{OK: true}
}

// changeMap rebuilds everything tied to the level.
func (m *Match) changeMap() {
	geo := m.cat.Collision(m.w.Stage.MapID)
	m.moves.SetGeometry(geo)
	m.combat.SetGeometry(geo)
	m.shots.SetGeometry(geo)
	m.npcs.SetGeometry(geo)

	m.w.Projectiles = nil
	m.w.Zones = nil
	m.seedWorldItems()
	m.npcs.Init()
	m.npcs.AnnounceSpawn(nil)
}

func (m *Match) start(in controlInput) Reply {
	if !m.masterAllowed(in) {
		return Reply{Reason: ReasonNotMaster}
	}
	active := m.w.Active()
	if len(active) == 0 {
		return Reply{Reason: ReasonNotReady}
	}
	for _, p := range active {
		if !p.Ready {
			return Reply{Reason: ReasonNotReady}
		}
	}
	if m.opts.EnforceContentHash {
		for _, p := range active {
			if !p.Loaded {
				return Reply{Reason: ReasonContentHash}
			}
		}
	}
	st := &m.w.Stage
	if st.RoundLimit > 0 && st.Round >= st.RoundLimit {
		return Reply{Reason: ReasonRoundLimit}
	}
	m.StartRound()
	return Reply{OK: true}
}

func (m *Match) end(in controlInput) Reply {
	if !m.masterAllowed(in) {
		return Reply{Reason: ReasonNotMaster}
	}
	m.EndRound(ReasonManual)
	return Reply{OK: true}
}

// chat relays a room message. Admins and developers may instead run
// /kick <name> or /announce <text>.
func (m *Match) chat(in controlInput) Reply {
	msg, _ := in.str("message")
	uid, _ := in.str("userId")
	name, _ := in.str("username")

	if strings.HasPrefix(msg, "/") && uid != "" && m.isStaff(uid) {
		fields := strings.Fields(norm.NFC.String(msg[1:]))
		if len(fields) > 0 {
			cmd, args := cases.Fold().String(fields[0]), fields[1:]
			switch {
			case cmd == "kick" && len(args) > 0:
				if target := m.w.PlayerByName(args[0]); target != nil {
					m.log.Info("player kicked", zap.String("by", uid), zap.String("user", target.UserID))
					m.sink.Kick([]string{target.SessionID})
					return Reply{OK: true}
				}
			case cmd == "announce":
				m.sink.Broadcast(protocol.CRoomChat, protocol.Chat{
					UserID:   AnnounceUserID,
					Username: AnnounceUsername,
					Message:  strings.Join(args, " "),
				}, nil)
				return Reply{OK: true}
			}
		}
	}

	m.sink.Broadcast(protocol.CRoomChat, protocol.Chat{UserID: uid, Username: name, Message: msg}, nil)
	return Reply{OK: true}
}

// isStaff looks the user's role up in the account store, falling back to
// the role they joined with.
func (m *Match) isStaff(userID string) bool {
	role := RolePlayer
	if p := m.w.PlayerByUser(userID); p != nil && p.Role != "" {
		role = p.Role
	}
	if m.roles != nil {
		ctx, cancel := m.storeCtx()
		r, err := m.roles.Role(ctx, userID)
		cancel()
		switch {
		case err != nil:
			m.log.Warn("role lookup failed", zap.String("user", userID), zap.Error(err))
		case r != "":
			role = r
		}
	}
	return role == RoleAdmin || role == RoleDeveloper
}
