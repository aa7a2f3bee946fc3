package scripting

import (
	"errors"

	lua "github.com/yuin/gopher-lua"

	"github.com/l1jgo/authority/internal/core/ecs"
	"github.com/l1jgo/authority/internal/core/event"
)

var ErrUnknownBehaviour = errors.New("unknown behaviour")

// LuaInstance is one behaviour instance bound to a scene entity.
type LuaInstance struct {
	engine    *Engine
	name      string
	entity    ecs.EntityID
	self      *lua.LTable
	alive     func(ecs.EntityID) bool
	destroyed bool

	// roster returns the players present at activation; set by the Host.
	roster func() []event.PlayerRef
}

func (i *LuaInstance) Behaviour() string    { return i.name }
func (i *LuaInstance) Entity() ecs.EntityID { return i.entity }

// Self exposes the instance's Lua state table.
func (i *LuaInstance) Self() *lua.LTable { return i.self }

// Alive is false once destroyed or once the bound entity is gone.
func (i *LuaInstance) Alive() bool {
	if i.destroyed {
		return false
	}
	if i.entity.IsZero() || i.alive == nil {
		return true
	}
	return i.alive(i.entity)
}

// Destroy detaches the instance; the registry prunes it on the next flush.
func (i *LuaInstance) Destroy() { i.destroyed = true }

// Activate runs start, then replays a join for every player already present
// so the behaviour sees the same roster late joiners would.
func (i *LuaInstance) Activate() error {
	if err := i.engine.call(i.self, "start"); err != nil {
		return err
	}
	if i.roster == nil {
		return nil
	}
	for _, p := range i.roster() {
		if err := i.OnPlayerJoined(p); err != nil {
			return err
		}
	}
	return nil
}

func (i *LuaInstance) OnPlayerJoined(p event.PlayerRef) error {
	return i.engine.call(i.self, "on_player_joined", i.playerTable(p))
}

func (i *LuaInstance) OnPlayerLeft(p event.PlayerRef) error {
	return i.engine.call(i.self, "on_player_left", i.playerTable(p))
}

func (i *LuaInstance) playerTable(p event.PlayerRef) *lua.LTable {
	t := i.engine.vm.NewTable()
	t.RawSetString("id", lua.LNumber(p.ID))
	t.RawSetString("name", lua.LString(p.DisplayName))
	t.RawSetString("is_local", lua.LBool(p.Local))
	t.RawSetString("is_instance_owner", lua.LBool(p.InstanceOwner))
	return t
}

func (i *LuaInstance) String() string {
	return i.name + "#" + i.entity.String()
}
