package nakama

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/heroiclabs/nakama-common/runtime"
)

// RPC ids.
const (
	RPCCreateMatch = "create_match"
	RPCMatchSignal = "match_signal"
)

// gRPC status codes the runtime maps errors to.
const (
	codeInvalidArgument = 3
	codeNotFound        = 5
	codeUnauthenticated = 16
)

var (
	errBadPayload      = runtime.NewError("malformed payload", codeInvalidArgument)
	errNoMatchID       = runtime.NewError("matchId required", codeInvalidArgument)
	errUnauthenticated = runtime.NewError("unauthenticated", codeUnauthenticated)
	errMatchNotFound   = runtime.NewError("match not found", codeNotFound)
)

// Register wires the match handler, its RPCs and the xp leaderboard into
// a runtime initializer.
func Register(ctx context.Context, logger runtime.Logger, nk runtime.NakamaModule, initializer runtime.Initializer, mod *Module) error {
	if err := initializer.RegisterMatch(ModuleName, mod.NewMatch); err != nil {
		return err
	}
	if err := initializer.RegisterRpc(RPCCreateMatch, rpcCreateMatch); err != nil {
		return err
	}
	if err := initializer.RegisterRpc(RPCMatchSignal, rpcMatchSignal); err != nil {
		return err
	}
	if err := nk.LeaderboardCreate(ctx, LeaderboardXP, true, "desc", "best", "", nil); err != nil {
		logger.Warn("xp leaderboard create: %v", err)
	}
	return nil
}

func decodePayload(payload string) (map[string]interface{}, error) {
	body := map[string]interface{}{}
	if payload == "" {
		return body, nil
	}
	if err := json.Unmarshal([]byte(payload), &body); err != nil {
		return nil, errBadPayload
	}
	return body, nil
}

func rpcCreateMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	if uid, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string); uid == "" {
		return "", errUnauthenticated
	}
	params, err := decodePayload(payload)
	if err != nil {
		return "", err
	}
	id, err := nk.MatchCreate(ctx, ModuleName, params)
	if err != nil {
		logger.Error("match create: %v", err)
		return "", err
	}
	out, _ := json.Marshal(map[string]string{"matchId": id})
	return string(out), nil
}

// rpcMatchSignal forwards a control request to a match. The caller's
// identity replaces any userId or username in the body.
func rpcMatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	uid, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if uid == "" {
		return "", errUnauthenticated
	}
	body, err := decodePayload(payload)
	if err != nil {
		return "", err
	}
	matchID, _ := body["matchId"].(string)
	if matchID == "" {
		return "", errNoMatchID
	}
	delete(body, "matchId")
	body["userId"] = uid
	body["username"], _ = ctx.Value(runtime.RUNTIME_CTX_USERNAME).(string)
	data, _ := json.Marshal(body)

	reply, err := nk.MatchSignal(ctx, matchID, string(data))
	if err != nil {
		logger.Warn("match signal %s: %v", matchID, err)
		return "", errMatchNotFound
	}
	return reply, nil
}
