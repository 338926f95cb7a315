package match

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/gunzgo/server/internal/auth"
	"github.com/gunzgo/server/internal/content"
	"github.com/gunzgo/server/internal/world"
)

// Params are the creation settings of a room. Nil limits take the game
// type's defaults.
type Params struct {
	MatchID      string `json:"-"`
	Name         string `json:"name"`
	MapID        int    `json:"mapId"`
	Mode         string `json:"mode"`
	GameTypeID   int    `json:"gameTypeId"`
	MaxPlayers   int    `json:"maxPlayers"`
	RoundLimit   *int   `json:"roundLimit"`
	TimeLimitSec *int   `json:"timeLimitSec"`
	Password     string `json:"password"`
	TeamMode     bool   `json:"teamMode"`
	ChannelRule  string `json:"channelRule"`
	QuestLevel   int    `json:"questLevel"`
	Seed         uint64 `json:"seed"`
}

// ParseParams reads creation parameters from a loosely typed map, the form
// runtimes hand them over in. Numbers may arrive as strings.
func ParseParams(in map[string]any) Params {
	p := Params{
		Name:        str(in["name"]),
		Mode:        str(in["mode"]),
		Password:    str(in["password"]),
		ChannelRule: str(in["channelRule"]),
		TeamMode:    boolean(in["teamMode"]),
	}
	p.MapID, _ = num(in["mapId"])
	p.GameTypeID, _ = num(in["gameTypeId"])
	p.MaxPlayers, _ = num(in["maxPlayers"])
	if n, ok := num(in["roundLimit"]); ok {
		p.RoundLimit = &n
	}
	if n, ok := num(in["timeLimitSec"]); ok {
		p.TimeLimitSec = &n
	}
	if n, ok := num(in["questLevel"]); ok {
		p.QuestLevel = n
	} else if n, ok := num(in["ql"]); ok {
		p.QuestLevel = n
	}
	if n, ok := num(in["seed"]); ok && n > 0 {
		p.Seed = uint64(n)
	}
	return p
}

func str(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

func boolean(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		b, _ := strconv.ParseBool(x)
		return b
	}
	return false
}

func num(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		return int(x), true
	case json.Number:
		n, err := x.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(x)
		return n, err == nil
	}
	return 0, false
}

// NormalizeTimeLimit turns a configured time limit into seconds. Values of
// 99999 and above mean no limit; small values are minutes.
func NormalizeTimeLimit(v int) int {
	switch {
	case v <= 0 || v >= 99999:
		return 0
	case v <= 300:
		return v * 60
	}
	return v
}

// stage resolves the room settings against the game type defaults.
func (p Params) stage(cat *content.Catalog) (world.Stage, error) {
	gt, _ := cat.GameType(p.GameTypeID)
	st := world.Stage{
		Name:        orStr(p.Name, DefaultName),
		MapID:       p.MapID,
		Mode:        orStr(p.Mode, DefaultMode),
		GameTypeID:  p.GameTypeID,
		MaxPlayers:  p.MaxPlayers,
		RoundLimit:  gt.DefaultRound,
		TeamMode:    p.TeamMode,
		ChannelRule: orStr(p.ChannelRule, DefaultChannelRule),
		QuestLevel:  p.QuestLevel,
	}
	if st.MaxPlayers <= 0 {
		st.MaxPlayers = DefaultMaxPlayers
	}
	if p.RoundLimit != nil {
		st.RoundLimit = *p.RoundLimit
	}
	limit := gt.DefaultTime
	if p.TimeLimitSec != nil {
		limit = *p.TimeLimitSec
	}
	st.TimeLimitSec = NormalizeTimeLimit(limit)
	if p.Password != "" {
		hash, err := auth.HashPassword(p.Password)
		if err != nil {
			return st, fmt.Errorf("hash room password: %w", err)
		}
		st.Password = hash
	}
	return st, nil
}

func orStr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Label is the listing entry of a room.
type Label struct {
	Name         string `json:"name"`
	MapID        int    `json:"mapId"`
	Mode         string `json:"mode"`
	GameTypeID   int    `json:"gameTypeId"`
	MaxPlayers   int    `json:"maxPlayers"`
	RoundLimit   int    `json:"roundLimit"`
	TimeLimitSec int    `json:"timeLimitSec"`
	HasPassword  bool   `json:"hasPassword"`
}

// Label renders the room listing JSON.
func (m *Match) Label() string {
	st := &m.w.Stage
	b, _ := json.Marshal(Label{
		Name:         st.Name,
		MapID:        st.MapID,
		Mode:         st.Mode,
		GameTypeID:   st.GameTypeID,
		MaxPlayers:   st.MaxPlayers,
		RoundLimit:   st.RoundLimit,
		TimeLimitSec: st.TimeLimitSec,
		HasPassword:  st.Password != "",
	})
	return string(b)
}
