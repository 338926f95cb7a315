package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/gunzgo/server/internal/match"
)

type CharacterRow struct {
	ID        string
	UserID    string
	Name      string
	HP        *int
	AP        *int
	XP        int64
	Level     int
	Equipment map[string]int
	Active    bool
}

// LevelCurve maps total experience to a level.
type LevelCurve func(xp int) int

type CharacterRepo struct {
	db    *DB
	curve LevelCurve
}

// NewCharacterRepo returns a repository. A nil curve leaves levels as stored.
func NewCharacterRepo(db *DB, curve LevelCurve) *CharacterRepo {
	return &CharacterRepo{db: db, curve: curve}
}

func (r *CharacterRepo) LoadByUser(ctx context.Context, userID string) ([]CharacterRow, error) {
	rows, err := r.db.SQL.QueryContext(ctx,
		`SELECT id, user_id, name, hp, ap, xp, level, equipment, active
		 FROM characters WHERE user_id = $1
		 ORDER BY name`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []CharacterRow
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}

// ActiveCharacter returns the character a user enters matches with: the one
// marked active, else the first by name. Nil when the user has none.
func (r *CharacterRepo) ActiveCharacter(ctx context.Context, userID string) (*match.Character, error) {
	c, err := scanCharacter(r.db.SQL.QueryRowContext(ctx,
		`SELECT id, user_id, name, hp, ap, xp, level, equipment, active
		 FROM characters WHERE user_id = $1
		 ORDER BY active DESC, name
		 LIMIT 1`, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &match.Character{ID: c.ID, HP: c.HP, AP: c.AP, Equipment: c.Equipment}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCharacter(s rowScanner) (*CharacterRow, error) {
	var (
		c      CharacterRow
		hp, ap sql.NullInt64
		equip  []byte
	)
	if err := s.Scan(&c.ID, &c.UserID, &c.Name, &hp, &ap, &c.XP, &c.Level, &equip, &c.Active); err != nil {
		return nil, err
	}
	if hp.Valid {
		v := int(hp.Int64)
		c.HP = &v
	}
	if ap.Valid {
		v := int(ap.Int64)
		c.AP = &v
	}
	if len(equip) > 0 {
		if err := json.Unmarshal(equip, &c.Equipment); err != nil {
			return nil, fmt.Errorf("character %s equipment: %w", c.ID, err)
		}
	}
	return &c, nil
}

func (r *CharacterRepo) Create(ctx context.Context, c *CharacterRow) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	equip := c.Equipment
	if equip == nil {
		equip = map[string]int{}
	}
	data, err := json.Marshal(equip)
	if err != nil {
		return err
	}
	if c.Level <= 0 {
		c.Level = 1
	}
	_, err = r.db.SQL.ExecContext(ctx,
		`INSERT INTO characters (id, user_id, name, hp, ap, xp, level, equipment, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.UserID, c.Name, nullInt(c.HP), nullInt(c.AP), c.XP, c.Level, string(data), c.Active,
	)
	return err
}

// SetActive marks one character active and clears the flag on the rest.
func (r *CharacterRepo) SetActive(ctx context.Context, userID, charID string) error {
	tx, err := r.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE characters SET active = $2 WHERE user_id = $1`, userID, false,
	); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE characters SET active = $3 WHERE user_id = $1 AND id = $2`, userID, charID, true,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("character %s not owned by %s", charID, userID)
	}
	return tx.Commit()
}

// AddXP credits experience to the active character of a user and moves its
// level along the curve. Users without an active character are skipped.
func (r *CharacterRepo) AddXP(ctx context.Context, userID string, xp int) error {
	tx, err := r.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var (
		id    string
		total int64
	)
	err = tx.QueryRowContext(ctx,
		`UPDATE characters SET xp = xp + $2 WHERE user_id = $1 AND active
		 RETURNING id, xp`,
		userID, xp,
	).Scan(&id, &total)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	if r.curve != nil {
		if _, err := tx.ExecContext(ctx,
			`UPDATE characters SET level = $2 WHERE id = $1`, id, r.curve(int(total)),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
