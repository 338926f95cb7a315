package protocol

import (
	"strconv"
	"strings"

	"github.com/gunzgo/server/internal/geom"
)

// Inbound payloads. Pointer fields distinguish absent from zero.

type MoveInput struct {
	Pos      *geom.Vec3 `json:"pos" msgpack:"pos"`
	Rot      *geom.Vec3 `json:"rot" msgpack:"rot"`
	Anim     *int       `json:"anim" msgpack:"anim"`
	WeaponID *int       `json:"weaponId" msgpack:"weaponId"`
}

type AttackInput struct {
	Aim         *geom.Vec3 `json:"aim" msgpack:"aim"`
	WeaponID    *int       `json:"weaponId" msgpack:"weaponId"`
	WeaponSlot  string     `json:"weaponSlot" msgpack:"weaponSlot"`
	MeleeType   string     `json:"meleeType" msgpack:"meleeType"`
	MeleeMotion string     `json:"meleeMotion" msgpack:"meleeMotion"`
}

type SkillInput struct {
	Skill   any `json:"skill" msgpack:"skill"`
	SkillID any `json:"skillId" msgpack:"skillId"`
	ID      any `json:"id" msgpack:"id"`
}

// Skill ids.
const (
	SkillUppercut    = 1
	SkillSplashShot  = 2
	SkillDash        = 3
	SkillChargedShot = 4
)

// SkillNumber resolves the skill reference, by name or number. Zero means
// no usable skill.
func (s SkillInput) SkillNumber() int {
	for _, v := range []any{s.Skill, s.SkillID, s.ID} {
		if v == nil {
			continue
		}
		return skillRef(v)
	}
	return 0
}

func skillRef(v any) int {
	switch x := v.(type) {
	case string:
		switch strings.ToLower(x) {
		case "uppercut":
			return SkillUppercut
		case "splashshot", "splash":
			return SkillSplashShot
		case "dash":
			return SkillDash
		case "chargedshot":
			return SkillChargedShot
		}
		if n, err := strconv.Atoi(x); err == nil {
			return n
		}
		return 0
	case float64:
		return int(x)
	case float32:
		return int(x)
	case int:
		return x
	case int8:
		return int(x)
	case int16:
		return int(x)
	case int32:
		return int(x)
	case int64:
		return int(x)
	case uint8:
		return int(x)
	case uint16:
		return int(x)
	case uint32:
		return int(x)
	case uint64:
		return int(x)
	}
	return 0
}

type TeamChangeInput struct {
	Team *int `json:"team" msgpack:"team"`
}

type ClientReadyInput struct {
	RecipeHash  string `json:"recipeHash" msgpack:"recipeHash"`
	ContentHash string `json:"contentHash" msgpack:"contentHash"`
}

type ChatInput struct {
	Message string `json:"message" msgpack:"message"`
}

type TimeSyncInput struct {
	ClientTime *int64 `json:"clientTime" msgpack:"clientTime"`
	T          *int64 `json:"t" msgpack:"t"`
}

// Outbound payloads.

type WelcomePlayer struct {
	UID  string `json:"uid" msgpack:"uid"`
	Name string `json:"name" msgpack:"name"`
}

type Welcome struct {
	MatchID     string          `json:"matchId" msgpack:"matchId"`
	TickRate    int             `json:"tickRate" msgpack:"tickRate"`
	MapID       int             `json:"mapId" msgpack:"mapId"`
	RecipeHash  string          `json:"recipeHash,omitempty" msgpack:"recipeHash,omitempty"`
	ContentHash string          `json:"contentHash,omitempty" msgpack:"contentHash,omitempty"`
	Players     []WelcomePlayer `json:"players" msgpack:"players"`
}

type PlayerSpawn struct {
	UserID   string    `json:"userId" msgpack:"userId"`
	Username string    `json:"username" msgpack:"username"`
	Pos      geom.Vec3 `json:"pos" msgpack:"pos"`
}

type PlayerDamage struct {
	TargetUserID   string `json:"targetUserId" msgpack:"targetUserId"`
	AttackerUserID string `json:"attackerUserId" msgpack:"attackerUserId"`
	Damage         int    `json:"damage" msgpack:"damage"`
	HP             int    `json:"hp" msgpack:"hp"`
	AP             int    `json:"ap" msgpack:"ap"`
	Part           string `json:"part" msgpack:"part"`
}

type PlayerDie struct {
	TargetUserID   string `json:"targetUserId" msgpack:"targetUserId"`
	AttackerUserID string `json:"attackerUserId" msgpack:"attackerUserId"`
}

type PlayerRespawn struct {
	UserID string    `json:"userId" msgpack:"userId"`
	Pos    geom.Vec3 `json:"pos" msgpack:"pos"`
}

type NpcSpawnEntry struct {
	ID         string    `json:"id" msgpack:"id"`
	TemplateID int       `json:"templateId" msgpack:"templateId"`
	Name       string    `json:"name" msgpack:"name"`
	Pos        geom.Vec3 `json:"pos" msgpack:"pos"`
	Health     int       `json:"health" msgpack:"health"`
	MaxHealth  int       `json:"maxHealth" msgpack:"maxHealth"`
}

type NpcSpawn struct {
	Npcs []NpcSpawnEntry `json:"npcs" msgpack:"npcs"`
}

type NpcDamage struct {
	NpcID          string `json:"npcId" msgpack:"npcId"`
	AttackerUserID string `json:"attackerUserId" msgpack:"attackerUserId"`
	Damage         int    `json:"damage" msgpack:"damage"`
	HP             int    `json:"hp" msgpack:"hp"`
	MaxHP          int    `json:"maxHp" msgpack:"maxHp"`
}

type NpcDie struct {
	NpcID          string `json:"npcId" msgpack:"npcId"`
	AttackerUserID string `json:"attackerUserId" msgpack:"attackerUserId"`
}

type MatchStart struct {
	Round int `json:"round" msgpack:"round"`
}

type Score struct {
	Red  int `json:"red" msgpack:"red"`
	Blue int `json:"blue" msgpack:"blue"`
}

// MatchEnd reports the finished round. Team rounds carry WinnerTeam,
// free-for-all rounds carry WinnerUserID and TopKills.
type MatchEnd struct {
	Round        int     `json:"round" msgpack:"round"`
	Reason       string  `json:"reason,omitempty" msgpack:"reason,omitempty"`
	Score        *Score  `json:"score,omitempty" msgpack:"score,omitempty"`
	WinnerTeam   *int    `json:"winnerTeam,omitempty" msgpack:"winnerTeam,omitempty"`
	WinnerUserID *string `json:"winnerUserId,omitempty" msgpack:"winnerUserId,omitempty"`
	TopKills     *int    `json:"topKills,omitempty" msgpack:"topKills,omitempty"`
}

type MatchError struct {
	Code   string `json:"code" msgpack:"code"`
	Detail string `json:"detail" msgpack:"detail"`
}

const ErrCodeContentHash = "CONTENT_HASH_MISMATCH"

type Chat struct {
	UserID   string `json:"userId" msgpack:"userId"`
	Username string `json:"username" msgpack:"username"`
	Message  string `json:"message" msgpack:"message"`
}

type TimeSyncReply struct {
	ServerTime int64  `json:"serverTime" msgpack:"serverTime"`
	ClientTime *int64 `json:"clientTime" msgpack:"clientTime"`
	Tick       int64  `json:"tick" msgpack:"tick"`
}

type ReadyEntry struct {
	UserID string `json:"userId" msgpack:"userId"`
	Ready  bool   `json:"ready" msgpack:"ready"`
}

type ReadyState struct {
	Players []ReadyEntry `json:"players" msgpack:"players"`
}

type RoomPlayer struct {
	UserID       string `json:"userId" msgpack:"userId"`
	Username     string `json:"username" msgpack:"username"`
	Ready        bool   `json:"ready" msgpack:"ready"`
	Team         int    `json:"team" msgpack:"team"`
	Loaded       bool   `json:"loaded" msgpack:"loaded"`
	Spectator    bool   `json:"spectator" msgpack:"spectator"`
	Disconnected bool   `json:"disconnected" msgpack:"disconnected"`
}

type RoomUpdate struct {
	Stage   any          `json:"stage" msgpack:"stage"`
	Players []RoomPlayer `json:"players" msgpack:"players"`
}

// PersonalState is the per-player sync sent after a pickup.
type PersonalState struct {
	UserID string `json:"userId" msgpack:"userId"`
	HP     int    `json:"hp" msgpack:"hp"`
	AP     int    `json:"ap" msgpack:"ap"`
	Ammo   any    `json:"ammo" msgpack:"ammo"`
}

type AuthRequest struct {
	Token string `json:"token" msgpack:"token"`
}

type AuthReply struct {
	SessionID string `json:"sessionId" msgpack:"sessionId"`
	UserID    string `json:"userId" msgpack:"userId"`
	Username  string `json:"username" msgpack:"username"`
}

type JoinRequest struct {
	MatchID   string `json:"matchId" msgpack:"matchId"`
	Password  string `json:"password,omitempty" msgpack:"password,omitempty"`
	Spectator bool   `json:"spectator,omitempty" msgpack:"spectator,omitempty"`
}

type Joined struct {
	MatchID string `json:"matchId" msgpack:"matchId"`
}

const (
	ErrCodeAuth       = "UNAUTHORIZED"
	ErrCodeJoin       = "JOIN_REJECTED"
	ErrCodeNotInMatch = "NOT_IN_MATCH"
)
