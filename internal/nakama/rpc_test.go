package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/heroiclabs/nakama-common/runtime"
	"go.uber.org/zap"
)

func TestRegister(t *testing.T) {
	nk := newFakeNK()
	reg := &initializer{
		matches: map[string]func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule) (runtime.Match, error){},
		rpcs:    map[string]func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule, string) (string, error){},
	}
	if err := Register(context.Background(), newTestLogger(), nk, reg, &Module{}); err != nil {
		t.Fatal(err)
	}
	if reg.matches[ModuleName] == nil || reg.rpcs[RPCCreateMatch] == nil || reg.rpcs[RPCMatchSignal] == nil {
		t.Errorf("registered matches=%d rpcs=%d", len(reg.matches), len(reg.rpcs))
	}
	if len(nk.leaderboard) != 1 || nk.leaderboard[0].id != LeaderboardXP {
		t.Errorf("leaderboards = %+v", nk.leaderboard)
	}
}

func userCtx(uid, username string) context.Context {
	ctx := context.WithValue(context.Background(), runtime.RUNTIME_CTX_USER_ID, uid)
	return context.WithValue(ctx, runtime.RUNTIME_CTX_USERNAME, username)
}

func TestRPCCreateMatch(t *testing.T) {
	nk := newFakeNK()
	lg := newTestLogger()

	if _, err := rpcCreateMatch(context.Background(), lg, nil, nk, `{}`); !errors.Is(err, errUnauthenticated) {
		t.Errorf("anonymous err = %v", err)
	}
	if _, err := rpcCreateMatch(userCtx("u1", "alice"), lg, nil, nk, `{`); !errors.Is(err, errBadPayload) {
		t.Errorf("malformed err = %v", err)
	}
	out, err := rpcCreateMatch(userCtx("u1", "alice"), lg, nil, nk, `{"name":"Lobby","mapId":2}`)
	if err != nil || !strings.Contains(out, "match-1.node") {
		t.Fatalf("out=%s err=%v", out, err)
	}
	if nk.created[0]["name"] != "Lobby" {
		t.Errorf("params = %v", nk.created[0])
	}
}

func TestRPCMatchSignalUsesCaller(t *testing.T) {
	nk := newFakeNK()
	lg := newTestLogger()
	ctx := userCtx("u1", "alice")

	if _, err := rpcMatchSignal(ctx, lg, nil, nk, `{"op":"start"}`); !errors.Is(err, errNoMatchID) {
		t.Errorf("missing id err = %v", err)
	}
	if _, err := rpcMatchSignal(ctx, lg, nil, nk, `{"matchId":"gone","op":"start"}`); !errors.Is(err, errMatchNotFound) {
		t.Errorf("unknown match err = %v", err)
	}
	reply, err := rpcMatchSignal(ctx, lg, nil, nk, `{"matchId":"match-1.node","op":"set_ready","userId":"someone","ready":true}`)
	if err != nil || reply != `{"ok":true}` {
		t.Fatalf("reply=%s err=%v", reply, err)
	}
	var fwd map[string]any
	json.Unmarshal([]byte(nk.signals[0]), &fwd)
	if fwd["userId"] != "u1" || fwd["username"] != "alice" || fwd["matchId"] != nil {
		t.Errorf("forwarded = %v", fwd)
	}
}

func TestLoggerBridge(t *testing.T) {
	lg := newTestLogger()
	log := NewLogger(lg).With(zap.String("match", "m1"))
	log.Info("round started", zap.Int("round", 2))
	log.Warn("slow tick")
	log.Debug("detail")
	log.Error("boom")

	want := []string{"info round started", "warn slow tick", "debug detail", "error boom"}
	if len(*lg.lines) != len(want) {
		t.Fatalf("lines = %v", *lg.lines)
	}
	for i, w := range want {
		if (*lg.lines)[i] != w {
			t.Errorf("line %d = %q, want %q", i, (*lg.lines)[i], w)
		}
	}
}
