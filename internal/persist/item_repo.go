package persist

import "context"

// ItemRow is one stack in a user's inventory.
type ItemRow struct {
	ItemID int
	Count  int
}

type ItemRepo struct {
	db *DB
}

func NewItemRepo(db *DB) *ItemRepo {
	return &ItemRepo{db: db}
}

// GrantItem adds one of itemID to the user's inventory.
func (r *ItemRepo) GrantItem(ctx context.Context, userID string, itemID int) error {
	_, err := r.db.SQL.ExecContext(ctx,
		`INSERT INTO inventory_items (user_id, item_id, count) VALUES ($1, $2, 1)
		 ON CONFLICT (user_id, item_id) DO UPDATE SET count = inventory_items.count + 1`,
		userID, itemID,
	)
	return err
}

func (r *ItemRepo) LoadByUser(ctx context.Context, userID string) ([]ItemRow, error) {
	rows, err := r.db.SQL.QueryContext(ctx,
		`SELECT item_id, count FROM inventory_items
		 WHERE user_id = $1 ORDER BY item_id`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ItemRow
	for rows.Next() {
		var it ItemRow
		if err := rows.Scan(&it.ItemID, &it.Count); err != nil {
			return nil, err
		}
		result = append(result, it)
	}
	return result, rows.Err()
}
