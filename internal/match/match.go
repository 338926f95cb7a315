// Package match runs one room: who is in it, the round state machine, the
// per-tick system pipeline and the room-management control channel.
package match

import (
	"context"
	"fmt"
	"time"

	"github.com/gunzgo/server/internal/auth"
	"github.com/gunzgo/server/internal/combat"
	"github.com/gunzgo/server/internal/content"
	"github.com/gunzgo/server/internal/core/event"
	coresys "github.com/gunzgo/server/internal/core/system"
	"github.com/gunzgo/server/internal/movement"
	"github.com/gunzgo/server/internal/npc"
	"github.com/gunzgo/server/internal/projectile"
	"github.com/gunzgo/server/internal/protocol"
	"github.com/gunzgo/server/internal/world"
	"go.uber.org/zap"
)

// Character is the persisted loadout a player brings into a match.
// Equipment maps slot names (melee, primary, secondary, item1, item2, and
// armor slots) to item ids.
type Character struct {
	ID        string         `json:"id"`
	HP        *int           `json:"hp"`
	AP        *int           `json:"ap"`
	Equipment map[string]int `json:"equipment"`
}

// Characters reads the active character of a user. A nil character with a
// nil error means the user has none.
type Characters interface {
	ActiveCharacter(ctx context.Context, userID string) (*Character, error)
}

// Ledger stores rewards earned in a match.
type Ledger interface {
	AddBounty(ctx context.Context, userID string, amount int, meta map[string]any) error
	AddXP(ctx context.Context, userID string, xp int) error
	GrantItem(ctx context.Context, userID string, itemID int) error
}

// Roles resolves the account role used by admin chat commands.
type Roles interface {
	Role(ctx context.Context, userID string) (string, error)
}

// History records finished rounds.
type History interface {
	RecordRound(ctx context.Context, matchID string, round int, reason string) error
}

// Options are the server-wide match settings.
type Options struct {
	EnforceContentHash bool
	RecipeHash         string
	StoreTimeout       time.Duration
}

// Deps are the collaborators of a Match.
type Deps struct {
	Catalog    *content.Catalog
	Sink       protocol.Sink
	Codec      protocol.Codec
	Characters Characters
	Ledger     Ledger
	Roles      Roles
	History    History
	Hooks      npc.Hooks
	Options    Options
	Now        func() time.Time
	Log        *zap.Logger
}

// Room defaults.
const (
	DefaultName        = "Room"
	DefaultMode        = "DM"
	DefaultMaxPlayers  = 16
	DefaultChannelRule = "free_all_maps"
	defaultStoreWait   = 3 * time.Second
	tickDuration       = time.Duration(world.TickMS) * time.Millisecond
)

// Match is one authoritative room. Every method must be called from the
// goroutine that drives the match.
type Match struct {
	w       *world.State
	cat     *content.Catalog
	sink    protocol.Sink
	chars   Characters
	ledger  Ledger
	roles   Roles
	history History
	opts    Options
	now     func() time.Time
	log     *zap.Logger

	bus    *event.Bus
	runner *coresys.Runner
	inputs *Registry
	inbox  []Input

	moves  *movement.Validator
	combat *combat.Resolver
	shots  *projectile.Simulator
	npcs   *npc.Director
}

// New builds a match from its creation parameters.
func New(d Deps, p Params) (*Match, error) {
	if d.Catalog == nil {
		return nil, fmt.Errorf("match %s: no content catalog", p.MatchID)
	}
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("match", p.MatchID))
	now := d.Now
	if now == nil {
		now = time.Now
	}
	seed := p.Seed
	if seed == 0 {
		seed = uint64(now().UnixNano())
	}

	stage, err := p.stage(d.Catalog)
	if err != nil {
		return nil, fmt.Errorf("match %s: %w", p.MatchID, err)
	}
	w := world.NewState(p.MatchID, seed)
	w.Stage = stage

	opts := d.Options
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = defaultStoreWait
	}
	m := &Match{
		w:       w,
		cat:     d.Catalog,
		sink:    d.Sink,
		chars:   d.Characters,
		ledger:  d.Ledger,
		roles:   d.Roles,
		history: d.History,
		opts:    opts,
		now:     now,
		log:     log,
		bus:     event.NewBus(),
		runner:  coresys.NewRunner(),
		inputs:  NewRegistry(d.Codec, log),
	}

	geo := d.Catalog.Collision(stage.MapID)
	m.npcs = npc.New(npc.Deps{
		State:    w,
		Geometry: geo,
		Catalog:  d.Catalog,
		Sink:     d.Sink,
		Rewards:  m,
		Hooks:    d.Hooks,
		Deaths:   m,
		Rounds:   m,
		Log:      log,
	})
	m.combat = combat.New(combat.Deps{
		State:    w,
		Geometry: geo,
		Catalog:  d.Catalog,
		Sink:     d.Sink,
		Npcs:     m.npcs,
		Deaths:   m,
		Log:      log,
	})
	m.moves = movement.New(geo, d.Catalog, log)
	m.shots = projectile.New(w, geo, m.combat, d.Catalog, log)

	m.registerInputs()
	m.registerSystems()
	m.subscribeRewards()

	m.seedWorldItems()
	m.npcs.Init()

	log.Info("match created",
		zap.String("name", stage.Name),
		zap.Int("map", stage.MapID),
		zap.String("mode", stage.Mode),
		zap.Int("round_limit", stage.RoundLimit),
		zap.Int("time_limit", stage.TimeLimitSec),
		zap.Bool("team", stage.TeamMode),
		zap.Int("npcs", len(w.Npcs)),
	)
	return m, nil
}

// State exposes the simulation state for adapters and tests.
func (m *Match) State() *world.State { return m.w }

// Tick runs one simulation step over the inputs queued since the last one.
func (m *Match) Tick(tick int64, inputs []Input) {
	m.w.Tick = tick
	m.inbox = inputs
	m.runner.Tick(tickDuration)
	m.inbox = nil
}

// Close delivers rewards still queued. The match must not tick afterwards.
func (m *Match) Close() {
	m.bus.Flush()
	m.log.Info("match closed", zap.Int64("tick", m.w.Tick), zap.Int("players", m.w.PlayerCount()))
}

// MaxPlayers is the room capacity, spectators excluded.
func (m *Match) MaxPlayers() int { return m.w.Stage.MaxPlayers }

// Empty reports whether nobody is left in the room, connected or not.
func (m *Match) Empty() bool { return m.w.PlayerCount() == 0 }

func (m *Match) storeCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.opts.StoreTimeout)
}

// checkPassword compares a join password with the room's.
func (m *Match) checkPassword(pw string) bool {
	return auth.CheckPassword(m.w.Stage.Password, pw)
}
