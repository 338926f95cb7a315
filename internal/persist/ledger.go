package persist

import (
	"context"

	"github.com/gunzgo/server/internal/match"
)

// Ledger routes match rewards to the repository that owns each one.
type Ledger struct {
	*WalletRepo
	chars *CharacterRepo
	items *ItemRepo
}

var _ match.Ledger = (*Ledger)(nil)

func NewLedger(db *DB, curve LevelCurve) *Ledger {
	return &Ledger{
		WalletRepo: NewWalletRepo(db),
		chars:      NewCharacterRepo(db, curve),
		items:      NewItemRepo(db),
	}
}

func (l *Ledger) AddXP(ctx context.Context, userID string, xp int) error {
	return l.chars.AddXP(ctx, userID, xp)
}

func (l *Ledger) GrantItem(ctx context.Context, userID string, itemID int) error {
	return l.items.GrantItem(ctx, userID, itemID)
}
