package match

import (
	"github.com/gunzgo/server/internal/core/event"
	"go.uber.org/zap"
)

// AwardBounty queues a wallet credit. Queued rewards are written in the
// persist phase.
func (m *Match) AwardBounty(userID string, bounty int, meta map[string]any) {
	if bounty <= 0 {
		return
	}
	event.Emit(m.bus, event.CurrencyAwarded{MatchID: m.w.MatchID, UserID: userID, Bounty: bounty, Metadata: meta})
}

func (m *Match) AwardXP(userID string, xp int) {
	if xp <= 0 {
		return
	}
	event.Emit(m.bus, event.XPAwarded{MatchID: m.w.MatchID, UserID: userID, XP: xp})
}

func (m *Match) GrantItem(userID string, itemID int) {
	event.Emit(m.bus, event.ItemGranted{MatchID: m.w.MatchID, UserID: userID, ItemID: itemID})
}

func (m *Match) subscribeRewards() {
	if m.history != nil {
		event.Subscribe(m.bus, func(e event.RoundEnded) {
			ctx, cancel := m.storeCtx()
			defer cancel()
			if err := m.history.RecordRound(ctx, e.MatchID, e.Round, e.Reason); err != nil {
				m.log.Warn("round history write failed", zap.Int("round", e.Round), zap.Error(err))
			}
		})
	}
	if m.ledger == nil {
		return
	}
	event.Subscribe(m.bus, func(e event.CurrencyAwarded) {
		ctx, cancel := m.storeCtx()
		defer cancel()
		if err := m.ledger.AddBounty(ctx, e.UserID, e.Bounty, e.Metadata); err != nil {
			m.log.Error("bounty write failed", zap.String("user", e.UserID), zap.Int("bounty", e.Bounty), zap.Error(err))
		}
	})
	event.Subscribe(m.bus, func(e event.XPAwarded) {
		ctx, cancel := m.storeCtx()
		defer cancel()
		if err := m.ledger.AddXP(ctx, e.UserID, e.XP); err != nil {
			m.log.Error("xp write failed", zap.String("user", e.UserID), zap.Int("xp", e.XP), zap.Error(err))
		}
	})
	event.Subscribe(m.bus, func(e event.ItemGranted) {
		ctx, cancel := m.storeCtx()
		defer cancel()
		if err := m.ledger.GrantItem(ctx, e.UserID, e.ItemID); err != nil {
			m.log.Error("item grant failed", zap.String("user", e.UserID), zap.Int("item", e.ItemID), zap.Error(err))
		}
	})
}
