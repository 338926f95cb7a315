package persist

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db")
	db, err := OpenSQLite(ctx, dsn, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(db.Close)
	if err := RunMigrations(ctx, db); err != nil {
		t.Fatal(err)
	}
	return db
}

func TestAccountCreateAndValidate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewAccountRepo(db)

	acc, err := repo.Create(ctx, "alice", "secret", "")
	if err != nil {
		t.Fatal(err)
	}
	got, err := repo.Load(ctx, "alice")
	if err != nil || got == nil {
		t.Fatalf("load: %v %v", got, err)
	}
	if got.UserID != acc.UserID || got.Role != "player" {
		t.Errorf("loaded = %+v", got)
	}
	if !repo.ValidatePassword(got.PasswordHash, "secret") || repo.ValidatePassword(got.PasswordHash, "nope") {
		t.Error("password validation wrong")
	}
	if missing, err := repo.Load(ctx, "bob"); err != nil || missing != nil {
		t.Errorf("missing account = %v %v", missing, err)
	}
	if err := repo.UpdateLastActive(ctx, acc.UserID); err != nil {
		t.Fatal(err)
	}

	if err := repo.SetRole(ctx, acc.UserID, "admin"); err != nil {
		t.Fatal(err)
	}
	role, err := repo.Role(ctx, acc.UserID)
	if err != nil || role != "admin" {
		t.Errorf("role = %q %v", role, err)
	}
	if role, _ := repo.Role(ctx, "ghost"); role != "" {
		t.Errorf("unknown role = %q", role)
	}
}

func TestActiveCharacter(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	acc, _ := NewAccountRepo(db).Create(ctx, "alice", "pw", "")
	repo := NewCharacterRepo(db, func(xp int) int { return 1 + xp/10 })

	if c, err := repo.ActiveCharacter(ctx, acc.UserID); err != nil || c != nil {
		t.Fatalf("no character yet: %v %v", c, err)
	}

	hp := 80
	first := &CharacterRow{UserID: acc.UserID, Name: "one", HP: &hp, Equipment: map[string]int{"primary": 500}}
	second := &CharacterRow{UserID: acc.UserID, Name: "two"}
	for _, c := range []*CharacterRow{first, second} {
		if err := repo.Create(ctx, c); err != nil {
			t.Fatal(err)
		}
	}
	if c, _ := repo.ActiveCharacter(ctx, acc.UserID); c == nil || c.ID != first.ID {
		t.Errorf("fallback to first by name = %+v", c)
	}
	if err := repo.SetActive(ctx, acc.UserID, first.ID); err != nil {
		t.Fatal(err)
	}

	c, err := repo.ActiveCharacter(ctx, acc.UserID)
	if err != nil || c == nil {
		t.Fatalf("active: %v %v", c, err)
	}
	if c.ID != first.ID || c.HP == nil || *c.HP != 80 || c.AP != nil || c.Equipment["primary"] != 500 {
		t.Errorf("active = %+v", c)
	}

	if err := repo.SetActive(ctx, acc.UserID, second.ID); err != nil {
		t.Fatal(err)
	}
	if c, _ := repo.ActiveCharacter(ctx, acc.UserID); c == nil || c.ID != second.ID {
		t.Errorf("switched active = %+v", c)
	}
	if err := repo.SetActive(ctx, acc.UserID, "not-mine"); err == nil {
		t.Error("foreign character activated")
	}

	if err := repo.AddXP(ctx, acc.UserID, 30); err != nil {
		t.Fatal(err)
	}
	rows, err := repo.LoadByUser(ctx, acc.UserID)
	if err != nil || len(rows) != 2 {
		t.Fatalf("rows = %v %v", rows, err)
	}
	for _, r := range rows {
		want := int64(0)
		if r.ID == second.ID {
			want = 30
		}
		if r.XP != want {
			t.Errorf("%s xp = %d, want %d", r.Name, r.XP, want)
		}
		if r.ID == second.ID && r.Level != 4 {
			t.Errorf("level = %d, want 4", r.Level)
		}
	}
}

func TestLedgerRewards(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	l := NewLedger(db, nil)

	if err := l.AddBounty(ctx, "u1", 10, map[string]any{"matchId": "m1"}); err != nil {
		t.Fatal(err)
	}
	if err := l.AddBounty(ctx, "u1", 5, nil); err != nil {
		t.Fatal(err)
	}
	if bal, err := l.Balance(ctx, "u1"); err != nil || bal != 15 {
		t.Errorf("balance = %d %v", bal, err)
	}
	if bal, _ := l.Balance(ctx, "u2"); bal != 0 {
		t.Errorf("empty balance = %d", bal)
	}
	hist, err := l.History(ctx, "u1", 10)
	if err != nil || len(hist) != 2 {
		t.Fatalf("history = %v %v", hist, err)
	}
	if hist[0].Amount != 5 || hist[1].Metadata["matchId"] != "m1" {
		t.Errorf("history order = %+v", hist)
	}

	for i := 0; i < 2; i++ {
		if err := l.GrantItem(ctx, "u1", 500); err != nil {
			t.Fatal(err)
		}
	}
	items, err := l.items.LoadByUser(ctx, "u1")
	if err != nil || len(items) != 1 || items[0].Count != 2 {
		t.Errorf("items = %+v %v", items, err)
	}

	// No active character: skipped without error.
	if err := l.AddXP(ctx, "u1", 10); err != nil {
		t.Error(err)
	}
}

func TestRoundHistory(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewRoundRepo(db)
	for i, reason := range []string{"score_limit", "time_limit"} {
		if err := repo.RecordRound(ctx, "m1", i+1, reason); err != nil {
			t.Fatal(err)
		}
	}
	rows, err := repo.LoadByMatch(ctx, "m1")
	if err != nil || len(rows) != 2 || rows[1].Reason != "time_limit" {
		t.Errorf("rounds = %+v %v", rows, err)
	}
}
