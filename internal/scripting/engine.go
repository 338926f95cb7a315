package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gunzgo/server/internal/npc"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Script globals the engine calls. Missing globals keep the built-in value.
const (
	fnNpcMeleeDamage = "npc_melee_damage"
	fnQuestReward    = "quest_reward"
)

// Engine wraps a gopher-lua VM for tuning hooks. Matches run on their own
// goroutines, so every call takes the VM lock. Reload swaps in a fresh VM.
type Engine struct {
	mu  sync.Mutex
	vm  *lua.LState
	dir string
	log *zap.Logger
}

var _ npc.Hooks = (*Engine)(nil)

// NewEngine creates a Lua engine and loads all scripts from the given directory.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{dir: scriptsDir, log: log}
	vm, err := e.load()
	if err != nil {
		return nil, err
	}
	e.vm = vm
	return e, nil
}

func (e *Engine) load() (*lua.LState, error) {
	vm := lua.NewState(lua.Options{SkipOpenLibs: false})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	// Core helpers first, then feature scripts.
	for _, sub := range []string{"core", "npc", "quest", "character"} {
		if err := e.loadDir(vm, filepath.Join(e.dir, sub)); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}
	return vm, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(vm *lua.LState, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// Reload rebuilds the VM from disk. On error the running scripts stay.
func (e *Engine) Reload() error {
	vm, err := e.load()
	if err != nil {
		return err
	}
	e.mu.Lock()
	old := e.vm
	e.vm = vm
	e.mu.Unlock()
	old.Close()
	e.log.Info("lua scripts reloaded", zap.String("dir", e.dir))
	return nil
}

// NpcMeleeDamage calls npc_melee_damage(template_id, base).
func (e *Engine) NpcMeleeDamage(templateID, base int) int {
	return e.callInt(fnNpcMeleeDamage, base, lua.LNumber(templateID), lua.LNumber(base))
}

// QuestReward calls quest_reward(kind, base, players). kind is "bounty" or
// "xp".
func (e *Engine) QuestReward(kind string, base, players int) int {
	return e.callInt(fnQuestReward, base, lua.LString(kind), lua.LNumber(base), lua.LNumber(players))
}

// Has reports whether a script defines the named global function.
func (e *Engine) Has(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	return ok
}

// callInt calls a Lua function and returns its integer result, or def when
// the function is missing, fails, or returns a non-number.
func (e *Engine) callInt(name string, def int, args ...lua.LValue) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	if !ok {
		return def
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		e.log.Error("lua call error", zap.String("func", name), zap.Error(err))
		return def
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)
	n, ok := result.(lua.LNumber)
	if !ok {
		e.log.Warn("lua function returned non-number", zap.String("func", name), zap.String("type", result.Type().String()))
		return def
	}
	if n < 0 {
		return 0
	}
	return int(n)
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vm.Close()
}
