package persist

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type AccountRow struct {
	UserID       string
	Username     string
	PasswordHash string
	Role         string
}

type AccountRepo struct {
	db *DB
}

func NewAccountRepo(db *DB) *AccountRepo {
	return &AccountRepo{db: db}
}

// Load returns the account with the given username, or nil.
func (r *AccountRepo) Load(ctx context.Context, username string) (*AccountRow, error) {
	row := &AccountRow{}
	err := r.db.SQL.QueryRowContext(ctx,
		`SELECT user_id, username, password_hash, role
		 FROM accounts WHERE username = $1`, username,
	).Scan(&row.UserID, &row.Username, &row.PasswordHash, &row.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (r *AccountRepo) Create(ctx context.Context, username, rawPassword, role string) (*AccountRow, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(rawPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	if role == "" {
		role = "player"
	}
	row := &AccountRow{
		UserID:       uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
	}
	_, err = r.db.SQL.ExecContext(ctx,
		`INSERT INTO accounts (user_id, username, password_hash, role)
		 VALUES ($1, $2, $3, $4)`,
		row.UserID, row.Username, row.PasswordHash, row.Role,
	)
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (r *AccountRepo) ValidatePassword(hash string, rawPassword string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(rawPassword)) == nil
}

func (r *AccountRepo) UpdateLastActive(ctx context.Context, userID string) error {
	_, err := r.db.SQL.ExecContext(ctx,
		`UPDATE accounts SET last_active = $2 WHERE user_id = $1`,
		userID, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// Role returns the account role of a user, empty when the user is unknown.
func (r *AccountRepo) Role(ctx context.Context, userID string) (string, error) {
	var role string
	err := r.db.SQL.QueryRowContext(ctx,
		`SELECT role FROM accounts WHERE user_id = $1`, userID,
	).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return role, err
}

func (r *AccountRepo) SetRole(ctx context.Context, userID, role string) error {
	_, err := r.db.SQL.ExecContext(ctx,
		`UPDATE accounts SET role = $2 WHERE user_id = $1`, userID, role,
	)
	return err
}
