package match

import (
	"errors"

	"github.com/gunzgo/server/internal/protocol"
	"github.com/gunzgo/server/internal/world"
	"go.uber.org/zap"
)

func (m *Match) registerInputs() {
	reg := m.inputs
	reg.Register(playing, m.handleMove, protocol.OpMove, protocol.CInputMove)
	reg.Register(playing, m.handleAttack, protocol.OpAttack, protocol.CInputAttack)
	reg.Register(playing, m.handleSkill, protocol.CInputSkill)
	reg.Register(playing, m.handleReady(true), protocol.CReady)
	reg.Register(playing, m.handleReady(false), protocol.CUnready)
	reg.Register(playing, m.handleTeamChange, protocol.CTeamChange)
	reg.Register(playing, m.handleClientReady, protocol.CClientReady)
	// stunned players keep chat and clock sync only
	reg.Register(anyone, m.handleChat, protocol.CRoomChat)
	reg.Register(anyone, m.handleTimeSync, protocol.TimeSync)
}

// decodeOrLog decodes into out and reports whether the message should be
// handled. Messages from another protocol version are dropped; a payload
// that does not parse is handled as empty.
func (m *Match) decodeOrLog(p *world.Player, decode func(any) error, out any) bool {
	err := decode(out)
	switch {
	case err == nil:
		return true
	case errors.Is(err, protocol.ErrVersion):
		return false
	}
	m.log.Debug("bad payload", zap.String("user", p.UserID), zap.Error(err))
	return true
}

func (m *Match) handleMove(p *world.Player, decode func(any) error) {
	var in protocol.MoveInput
	if !m.decodeOrLog(p, decode, &in) {
		return
	}
	if res := m.moves.Apply(p, in, m.w.Tick); !res.OK() {
		m.log.Debug("move rejected", zap.String("user", p.UserID), zap.String("reason", string(res.Reason)))
	}
}

func (m *Match) handleAttack(p *world.Player, decode func(any) error) {
	var in protocol.AttackInput
	if !m.decodeOrLog(p, decode, &in) {
		return
	}
	m.combat.Attack(p, in)
}

func (m *Match) handleSkill(p *world.Player, decode func(any) error) {
	var in protocol.SkillInput
	if !m.decodeOrLog(p, decode, &in) {
		return
	}
	m.combat.Skill(p, in)
}

func (m *Match) handleReady(ready bool) HandlerFunc {
	return func(p *world.Player, decode func(any) error) {
		if !m.decodeOrLog(p, decode, &struct{}{}) {
			return
		}
		p.Ready = ready
		m.broadcastReady()
	}
}

func (m *Match) handleTeamChange(p *world.Player, decode func(any) error) {
	var in protocol.TeamChangeInput
	if !m.decodeOrLog(p, decode, &in) {
		return
	}
	if in.Team != nil {
		p.Team = *in.Team
	}
	m.broadcastRoom()
}

// handleClientReady marks the client as loaded once its content matches
// the server's, when matching is enforced.
func (m *Match) handleClientReady(p *world.Player, decode func(any) error) {
	var in protocol.ClientReadyInput
	if !m.decodeOrLog(p, decode, &in) {
		return
	}
	if m.opts.EnforceContentHash {
		if m.hashMismatch(in.RecipeHash, in.ContentHash) {
			p.Loaded = false
			m.sink.Broadcast(protocol.SMatchError, protocol.MatchError{
				Code:   protocol.ErrCodeContentHash,
				Detail: "Client recipe/content hash mismatch.",
			}, []string{p.SessionID})
			m.log.Info("client content mismatch",
				zap.String("user", p.UserID),
				zap.String("recipe", in.RecipeHash),
				zap.String("content", in.ContentHash))
			return
		}
	}
	p.Loaded = true
	m.broadcastRoom()
}

// hashMismatch compares client hashes with the room's. An empty room hash
// accepts anything.
func (m *Match) hashMismatch(recipe, content string) bool {
	return m.opts.RecipeHash != "" && recipe != m.opts.RecipeHash ||
		m.cat.Hash != "" && content != m.cat.Hash
}

func (m *Match) handleChat(p *world.Player, decode func(any) error) {
	var in protocol.ChatInput
	if !m.decodeOrLog(p, decode, &in) {
		return
	}
	m.sink.Broadcast(protocol.CRoomChat, protocol.Chat{
		UserID:   p.UserID,
		Username: p.Username,
		Message:  in.Message,
	}, nil)
}

func (m *Match) handleTimeSync(p *world.Player, decode func(any) error) {
	var in protocol.TimeSyncInput
	if !m.decodeOrLog(p, decode, &in) {
		return
	}
	ct := in.ClientTime
	if ct == nil {
		ct = in.T
	}
	m.sink.Broadcast(protocol.TimeSync, protocol.TimeSyncReply{
		ServerTime: m.now().UnixMilli(),
		ClientTime: ct,
		Tick:       m.w.Tick,
	}, []string{p.SessionID})
}
