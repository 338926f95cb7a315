package persist

import "context"

type RoundRow struct {
	MatchID string
	Round   int
	Reason  string
}

type RoundRepo struct {
	db *DB
}

func NewRoundRepo(db *DB) *RoundRepo {
	return &RoundRepo{db: db}
}

func (r *RoundRepo) RecordRound(ctx context.Context, matchID string, round int, reason string) error {
	_, err := r.db.SQL.ExecContext(ctx,
		`INSERT INTO match_rounds (match_id, round, reason) VALUES ($1, $2, $3)`,
		matchID, round, reason,
	)
	return err
}

func (r *RoundRepo) LoadByMatch(ctx context.Context, matchID string) ([]RoundRow, error) {
	rows, err := r.db.SQL.QueryContext(ctx,
		`SELECT match_id, round, reason FROM match_rounds
		 WHERE match_id = $1 ORDER BY id`, matchID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []RoundRow
	for rows.Next() {
		var rr RoundRow
		if err := rows.Scan(&rr.MatchID, &rr.Round, &rr.Reason); err != nil {
			return nil, err
		}
		result = append(result, rr)
	}
	return result, rows.Err()
}
