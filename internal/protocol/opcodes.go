package protocol

// OpCode identifies a realtime message type.
type OpCode int64

const (
	// Legacy codes, still accepted from older clients.
	OpMove      OpCode = 1
	OpAttack    OpCode = 2
	OpDamage    OpCode = 3
	OpHeartbeat OpCode = 4

	SMatchWelcome OpCode = 1000
	SMatchState   OpCode = 1001
	SMatchDelta   OpCode = 1002
	SMatchStart   OpCode = 1003
	SMatchEnd     OpCode = 1004
	SMatchError   OpCode = 1005

	CInputMove   OpCode = 2001
	CInputAttack OpCode = 2002
	CInputSkill  OpCode = 2003
	CInputEmote  OpCode = 2004

	SPlayerSpawn   OpCode = 3001
	SPlayerDamage  OpCode = 3002
	SPlayerDie     OpCode = 3003
	SPlayerRespawn OpCode = 3004

	SNpcSpawn  OpCode = 3101
	SNpcDamage OpCode = 3102
	SNpcDie    OpCode = 3103

	CReady       OpCode = 4001
	CUnready     OpCode = 4002
	SReadyState  OpCode = 4003
	SRoomUpdate  OpCode = 4004
	CTeamChange  OpCode = 4106
	CRoomChat    OpCode = 4107
	CClientReady OpCode = 4108

	TimeSync OpCode = 4201

	// Session control, handled by the standalone gateway.
	CAuth        OpCode = 9001
	SAuth        OpCode = 9002
	CMatchJoin   OpCode = 9003
	CMatchLeave  OpCode = 9004
	SMatchJoined OpCode = 9005
)

var opNames = map[OpCode]string{
	OpMove:         "MOVE",
	OpAttack:       "ATTACK",
	OpDamage:       "DAMAGE",
	OpHeartbeat:    "HEARTBEAT",
	SMatchWelcome:  "S_MATCH_WELCOME",
	SMatchState:    "S_MATCH_STATE",
	SMatchDelta:    "S_MATCH_DELTA",
	SMatchStart:    "S_MATCH_START",
	SMatchEnd:      "S_MATCH_END",
	SMatchError:    "S_MATCH_ERROR",
	CInputMove:     "C_INPUT_MOVE",
	CInputAttack:   "C_INPUT_ATTACK",
	CInputSkill:    "C_INPUT_SKILL",
	CInputEmote:    "C_INPUT_EMOTE",
	SPlayerSpawn:   "S_PLAYER_SPAWN",
	SPlayerDamage:  "S_PLAYER_DAMAGE",
	SPlayerDie:     "S_PLAYER_DIE",
	SPlayerRespawn: "S_PLAYER_RESPAWN",
	SNpcSpawn:      "S_NPC_SPAWN",
	SNpcDamage:     "S_NPC_DAMAGE",
	SNpcDie:        "S_NPC_DIE",
	CReady:         "C_READY",
	CUnready:       "C_UNREADY",
	SReadyState:    "S_READY_STATE",
	SRoomUpdate:    "S_ROOM_UPDATE",
	CTeamChange:    "C_TEAM_CHANGE",
	CRoomChat:      "C_ROOM_CHAT",
	CClientReady:   "C_CLIENT_READY",
	TimeSync:       "TIME_SYNC",
	CAuth:          "C_AUTH",
	SAuth:          "S_AUTH",
	CMatchJoin:     "C_MATCH_JOIN",
	CMatchLeave:    "C_MATCH_LEAVE",
	SMatchJoined:   "S_MATCH_JOINED",
}

func (o OpCode) String() string {
	if n, ok := opNames[o]; ok {
		return n
	}
	return "UNKNOWN"
}
