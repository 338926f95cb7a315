// Command nakama-plugin builds the match handler as a Nakama Go runtime
// module:
//
//	go build -buildmode=plugin -trimpath -o gunzgo.so ./cmd/nakama-plugin
//
// Settings come from the runtime env (runtime.env in the Nakama config):
// gunzgo_content_dir, gunzgo_scripts_dir, gunzgo_codec, gunzgo_idle_ticks,
// gunzgo_enforce_content_hash, gunzgo_recipe_hash.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/gunzgo/server/internal/content"
	"github.com/gunzgo/server/internal/match"
	"github.com/gunzgo/server/internal/nakama"
	"github.com/gunzgo/server/internal/protocol"
	"github.com/gunzgo/server/internal/scripting"
	"github.com/gunzgo/server/internal/world"
	"github.com/heroiclabs/nakama-common/runtime"
	"go.uber.org/zap"
)

func envOr(env map[string]string, key, def string) string {
	if v, ok := env[key]; ok && v != "" {
		return v
	}
	return def
}

func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	log := nakama.NewLogger(logger)

	store, err := content.NewStore(envOr(env, "gunzgo_content_dir", "data/yaml"), log)
	if err != nil {
		return err
	}
	codec, err := protocol.CodecByName(envOr(env, "gunzgo_codec", "json"))
	if err != nil {
		return err
	}
	idle, err := strconv.ParseInt(envOr(env, "gunzgo_idle_ticks", strconv.Itoa(60*world.TickRate)), 10, 64)
	if err != nil {
		return fmt.Errorf("gunzgo_idle_ticks: %w", err)
	}

	mod := &nakama.Module{
		Catalog: store.Current,
		Codec:   codec,
		Curve:   scripting.LevelFromXP,
		Options: match.Options{
			EnforceContentHash: envOr(env, "gunzgo_enforce_content_hash", "false") == "true",
			RecipeHash:         env["gunzgo_recipe_hash"],
		},
		IdleTicks: idle,
	}
	if dir := env["gunzgo_scripts_dir"]; dir != "" {
		engine, err := scripting.NewEngine(dir, log)
		if err != nil {
			return err
		}
		mod.Hooks = engine
		mod.Curve = engine.LevelFromXP
	}

	if err := nakama.Register(ctx, logger, nk, initializer, mod); err != nil {
		return err
	}
	log.Info("gunzgo module loaded",
		zap.String("content", store.Current().Hash),
		zap.String("codec", codec.Name()),
		zap.Int64("idle_ticks", idle))
	return nil
}

func main() {}
