package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/l1jgo/authority/internal/core/ecs"
)

// Engine wraps a single gopher-lua VM hosting user behaviours.
// Single-goroutine access only (game loop).
//
// A behaviour is a .lua file that returns a table of methods. Every instance
// gets its own self table whose metatable falls back to the behaviour, so
// per-instance state lives on self. Recognised methods, all optional:
//
//	start(self)
//	on_player_joined(self, player)
//	on_player_left(self, player)
type Engine struct {
	vm         *lua.LState
	log        *zap.Logger
	behaviours map[string]*lua.LTable
}

// NewEngine creates a VM and loads every behaviour in scriptsDir. A missing
// directory yields an engine with no behaviours.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log, behaviours: make(map[string]*lua.LTable)}
	e.registerHostAPI()

	if scriptsDir != "" {
		if err := e.loadDir(scriptsDir); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load behaviours: %w", err)
		}
	}
	return e, nil
}

// registerHostAPI exposes a small "host" table to scripts.
func (e *Engine) registerHostAPI() {
	host := e.vm.NewTable()
	host.RawSetString("log", e.vm.NewFunction(func(L *lua.LState) int {
		e.log.Info("script", zap.String("msg", L.CheckString(1)))
		return 0
	}))
	host.RawSetString("warn", e.vm.NewFunction(func(L *lua.LState) int {
		e.log.Warn("script", zap.String("msg", L.CheckString(1)))
		return 0
	}))
	e.vm.SetGlobal("host", host)
}

// loadDir loads all .lua files in a directory, one behaviour per file,
// named after the file stem.
func (e *Engine) loadDir(dir string) error {
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
		fn, err := e.vm.LoadFile(path)
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		name := strings.TrimSuffix(entry.Name(), ".lua")
		if err := e.register(name, fn); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded behaviour", zap.String("file", path), zap.String("name", name))
	}
	return nil
}

// LoadString registers a behaviour from source.
func (e *Engine) LoadString(name, src string) error {
	fn, err := e.vm.LoadString(src)
	if err != nil {
		return fmt.Errorf("load behaviour %s: %w", name, err)
	}
	return e.register(name, fn)
}

func (e *Engine) register(name string, chunk *lua.LFunction) error {
	if _, dup := e.behaviours[name]; dup {
		return fmt.Errorf("behaviour %q already loaded", name)
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      chunk,
		NRet:    1,
		Protect: true,
	}); err != nil {
		return fmt.Errorf("run behaviour %s: %w", name, err)
	}
	ret := e.vm.Get(-1)
	e.vm.Pop(1)
	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return fmt.Errorf("behaviour %s returned %s, want table", name, ret.Type())
	}
	e.behaviours[name] = tbl
	return nil
}

// Behaviours returns the loaded behaviour names, sorted.
func (e *Engine) Behaviours() []string {
	out := make([]string, 0, len(e.behaviours))
	for name := range e.behaviours {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Instantiate creates a dormant instance of a behaviour bound to entity.
// alive reports whether the entity still exists; the instance dies with it.
func (e *Engine) Instantiate(name string, entity ecs.EntityID, alive func(ecs.EntityID) bool) (*LuaInstance, error) {
	behaviour, ok := e.behaviours[name]
	if !ok {
		return nil, fmt.Errorf("instantiate %q: %w", name, ErrUnknownBehaviour)
	}
	self := e.vm.NewTable()
	mt := e.vm.NewTable()
	mt.RawSetString("__index", behaviour)
	e.vm.SetMetatable(self, mt)
	self.RawSetString("behaviour", lua.LString(name))
	self.RawSetString("entity", lua.LString(entity.String()))

	return &LuaInstance{
		engine: e,
		name:   name,
		entity: entity,
		self:   self,
		alive:  alive,
	}, nil
}

// call invokes self:method(args...) if the behaviour defines it.
func (e *Engine) call(self *lua.LTable, method string, args ...lua.LValue) error {
	fn, ok := e.vm.GetField(self, method).(*lua.LFunction)
	if !ok {
		return nil
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, append([]lua.LValue{self}, args...)...); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

// Global reads a global variable from the VM.
func (e *Engine) Global(name string) lua.LValue {
	return e.vm.GetGlobal(name)
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
