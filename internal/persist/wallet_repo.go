package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// LedgerEntry is one bounty movement.
type LedgerEntry struct {
	UserID   string
	Amount   int64
	Metadata map[string]any
}

type WalletRepo struct {
	db *DB
}

func NewWalletRepo(db *DB) *WalletRepo {
	return &WalletRepo{db: db}
}

// AddBounty credits a user's wallet and appends the ledger entry in the same
// transaction.
func (r *WalletRepo) AddBounty(ctx context.Context, userID string, amount int, meta map[string]any) error {
	return r.Write(ctx, []LedgerEntry{{UserID: userID, Amount: int64(amount), Metadata: meta}})
}

// Write applies a batch of ledger entries atomically.
func (r *WalletRepo) Write(ctx context.Context, entries []LedgerEntry) error {
	tx, err := r.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("wallet begin: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		meta := e.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		data, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("wallet metadata: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO wallets (user_id, bounty) VALUES ($1, $2)
			 ON CONFLICT (user_id) DO UPDATE SET bounty = wallets.bounty + excluded.bounty`,
			e.UserID, e.Amount,
		); err != nil {
			return fmt.Errorf("wallet upsert: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO wallet_ledger (user_id, amount, metadata) VALUES ($1, $2, $3)`,
			e.UserID, e.Amount, string(data),
		); err != nil {
			return fmt.Errorf("wallet ledger: %w", err)
		}
	}

	return tx.Commit()
}

func (r *WalletRepo) Balance(ctx context.Context, userID string) (int64, error) {
	var bounty int64
	err := r.db.SQL.QueryRowContext(ctx,
		`SELECT bounty FROM wallets WHERE user_id = $1`, userID,
	).Scan(&bounty)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return bounty, err
}

// History returns the newest ledger entries of a user first.
func (r *WalletRepo) History(ctx context.Context, userID string, limit int) ([]LedgerEntry, error) {
	rows, err := r.db.SQL.QueryContext(ctx,
		`SELECT user_id, amount, metadata FROM wallet_ledger
		 WHERE user_id = $1 ORDER BY id DESC LIMIT $2`, userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []LedgerEntry
	for rows.Next() {
		var (
			e   LedgerEntry
			raw []byte
		)
		if err := rows.Scan(&e.UserID, &e.Amount, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &e.Metadata); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
