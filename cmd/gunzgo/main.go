package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gunzgo/server/internal/auth"
	"github.com/gunzgo/server/internal/config"
	"github.com/gunzgo/server/internal/content"
	"github.com/gunzgo/server/internal/match"
	gonet "github.com/gunzgo/server/internal/net"
	"github.com/gunzgo/server/internal/persist"
	"github.com/gunzgo/server/internal/protocol"
	"github.com/gunzgo/server/internal/scripting"
	"github.com/gunzgo/server/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m               gunzgo  v0.1.0              \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m      authoritative match server (Go)      \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s\n\n", serverName)
}

func printSection(title string) {
	lineLen := max(46-len(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := max(42-len(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Content tables
	printSection("content")
	store, err := content.NewStore(cfg.Content.Dir, log)
	if err != nil {
		return err
	}
	cat := store.Current()
	for _, name := range []string{"items", "npcs", "npc_sets", "skills", "quests", "scenarios", "maps", "world_items"} {
		printStat(name, cat.Counts()[name])
	}
	store.OnChange(func(c *content.Catalog) {
		log.Info("content reloaded, new matches use it", zap.String("hash", c.Hash))
	})
	go store.Watch(ctx, cfg.Content.PollInterval)
	fmt.Println()

	// 4. Scripting
	var (
		engine *scripting.Engine
		curve  = scripting.LevelFromXP
	)
	if cfg.Scripting.Enabled {
		engine, err = scripting.NewEngine(cfg.Scripting.Dir, log)
		if err != nil {
			return fmt.Errorf("scripting: %w", err)
		}
		defer engine.Close()
		curve = engine.LevelFromXP
		printOK("lua scripts loaded from " + cfg.Scripting.Dir)
	}

	// 5. Database and repositories
	deps := match.Deps{
		Options: match.Options{
			EnforceContentHash: cfg.Match.EnforceContentHash,
			RecipeHash:         cfg.Match.RecipeHash,
			StoreTimeout:       cfg.Database.StoreTimeout,
		},
	}
	if engine != nil {
		deps.Hooks = engine
	}
	var accounts gonet.Accounts
	if cfg.Database.Driver != "none" {
		printSection("database")
		dbCtx, dbCancel := context.WithTimeout(ctx, 30*time.Second)
		db, err := persist.NewDB(dbCtx, cfg.Database, log)
		if err != nil {
			dbCancel()
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK(db.Dialect + " connected")

		err = persist.RunMigrations(dbCtx, db)
		dbCancel()
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK("migrations applied")
		fmt.Println()

		accountRepo := persist.NewAccountRepo(db)
		accounts = accountRepo
		deps.Characters = persist.NewCharacterRepo(db, persist.LevelCurve(curve))
		deps.Ledger = persist.NewLedger(db, persist.LevelCurve(curve))
		deps.Roles = accountRepo
		deps.History = persist.NewRoundRepo(db)
	} else {
		log.Warn("database disabled: rewards and characters are not stored")
	}

	// 6. Auth, transports and the match hub
	issuer, err := auth.NewIssuer(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	codec, err := protocol.CodecByName(cfg.Network.Codec)
	if err != nil {
		return err
	}
	deps.Codec = codec

	pktPerSec := 0
	if cfg.RateLimit.Enabled {
		pktPerSec = cfg.RateLimit.InputsPerSecond
	}
	gw := gonet.NewGateway(gonet.GatewayConfig{
		Issuer:       issuer,
		Codec:        codec,
		OutQueueSize: cfg.Network.OutQueueSize,
		PktPerSec:    pktPerSec,
		WriteTimeout: cfg.Network.WriteTimeout,
		Log:          log,
	})
	hub := match.NewHub(match.HubConfig{
		Deps:             deps,
		Catalog:          store.Current,
		Router:           gw,
		MaxMatches:       cfg.Match.MaxMatches,
		IdleTimeout:      cfg.Match.IdleTimeout,
		InboxSize:        cfg.Network.InQueueSize,
		MaxInputsPerTick: cfg.Network.MaxInputsPerTick,
		Log:              log,
	})
	gw.Bind(hub)

	tcpServer, err := gonet.NewServer(cfg.Network.BindAddress, gw, log)
	if err != nil {
		return fmt.Errorf("tcp server: %w", err)
	}
	go tcpServer.AcceptLoop()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", gw.ServeWS)
	gonet.NewAPI(hub, issuer, accounts, cfg.Auth.DevLogin, log).Routes(mux)
	httpServer := &http.Server{
		Addr:              cfg.Network.WSAddress,
		Handler:           mux,
		ReadHeaderTimeout: cfg.Network.ReadTimeout,
	}
	httpErr := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
		}
	}()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	printSection("ready")
	printReady(fmt.Sprintf("tcp %s", tcpServer.Addr().String()))
	printReady(fmt.Sprintf("http/ws %s", cfg.Network.WSAddress))
	printReady(fmt.Sprintf("tick rate %d Hz, codec %s", world.TickRate, codec.Name()))
	fmt.Println()

	for {
		select {
		case err := <-httpErr:
			return fmt.Errorf("http server: %w", err)
		case sig := <-shutdownCh:
			if sig == syscall.SIGHUP {
				reload(store, engine, log)
				continue
			}
			log.Info("shutting down", zap.String("signal", sig.String()))
			shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
			httpServer.Shutdown(shutCtx)
			shutCancel()
			tcpServer.Shutdown()
			gw.Shutdown()
			hub.Shutdown()
			log.Info("server stopped")
			return nil
		}
	}
}

// reload re-reads content tables and scripts. Running matches keep what
// they started with.
func reload(store *content.Store, engine *scripting.Engine, log *zap.Logger) {
	if changed, err := store.Reload(); err != nil {
		log.Error("content reload failed", zap.Error(err))
	} else if !changed {
		log.Info("content unchanged")
	}
	if engine != nil {
		if err := engine.Reload(); err != nil {
			log.Error("script reload failed", zap.Error(err))
		}
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	log, err := zapCfg.Build()
	if err != nil || cfg.File == "" {
		return log, err
	}

	// Tee into a rotated JSON file.
	file := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	})
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), file, zapCfg.Level)
	return log.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, fileCore)
	})), nil
}
