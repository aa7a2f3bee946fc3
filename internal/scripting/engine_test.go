package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"

	"github.com/l1jgo/authority/internal/core/ecs"
	"github.com/l1jgo/authority/internal/core/event"
)

const greeter = `
local B = {}
function B:start()
  self.started = (self.started or 0) + 1
  calls = calls or {}
  table.insert(calls, "start " .. self.behaviour)
end
function B:on_player_joined(p)
  table.insert(calls, "joined " .. p.name .. (p.is_local and " local" or ""))
end
function B:on_player_left(p)
  table.insert(calls, "left " .. p.id)
end
return B
`

const broken = `
local B = {}
function B:start() error("kaput") end
return B
`

func callLog(t *testing.T, e *Engine) []string {
	t.Helper()
	tbl, ok := e.Global("calls").(*lua.LTable)
	if !ok {
		return nil
	}
	var out []string
	tbl.ForEach(func(_, v lua.LValue) { out = append(out, v.String()) })
	return out
}

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e := loadEngine(t)
	t.Cleanup(e.Close)
	return e
}

// loadEngine leaves closing to the caller.
func loadEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine("", nil)
	require.NoError(t, err)
	require.NoError(t, e.LoadString("greeter", greeter))
	require.NoError(t, e.LoadString("broken", broken))
	return e
}

func TestEngine_InstanceStateIsPerInstance(t *testing.T) {
	e := newEngine(t)
	a, err := e.Instantiate("greeter", ecs.NoEntity, nil)
	require.NoError(t, err)
	b, err := e.Instantiate("greeter", ecs.NoEntity, nil)
	require.NoError(t, err)

	require.NoError(t, a.Activate())
	assert.Equal(t, lua.LNumber(1), a.Self().RawGetString("started"))
	assert.Equal(t, lua.LNil, b.Self().RawGetString("started"))
	assert.Equal(t, []string{"start greeter"}, callLog(t, e))
}

func TestEngine_ErrorsAreReturned(t *testing.T) {
	e := newEngine(t)
	inst, err := e.Instantiate("broken", ecs.NoEntity, nil)
	require.NoError(t, err)
	assert.ErrorContains(t, inst.Activate(), "kaput")

	_, err = e.Instantiate("missing", ecs.NoEntity, nil)
	assert.ErrorIs(t, err, ErrUnknownBehaviour)

	assert.ErrorContains(t, e.LoadString("greeter", greeter), "already loaded")
	assert.ErrorContains(t, e.LoadString("scalar", "return 3"), "want table")
	assert.Error(t, e.LoadString("syntax", "return {"))
}

func TestEngine_LoadsDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greeter.lua"), []byte(greeter), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644))

	e, err := NewEngine(dir, nil)
	require.NoError(t, err)
	defer e.Close()
	assert.Equal(t, []string{"greeter"}, e.Behaviours())

	missing, err := NewEngine(filepath.Join(dir, "nope"), nil)
	require.NoError(t, err)
	defer missing.Close()
	assert.Empty(t, missing.Behaviours())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.lua"), []byte("return 1"), 0o644))
	_, err = NewEngine(dir, nil)
	assert.ErrorContains(t, err, "want table")
}

func TestLuaInstance_DiesWithEntity(t *testing.T) {
	e := newEngine(t)
	pool := ecs.NewEntityPool()
	id := pool.Create()
	inst, err := e.Instantiate("greeter", id, pool.Alive)
	require.NoError(t, err)
	assert.True(t, inst.Alive())
	assert.Equal(t, "greeter#"+id.String(), inst.String())

	pool.Destroy(id)
	assert.False(t, inst.Alive())

	free, err := e.Instantiate("greeter", ecs.NoEntity, nil)
	require.NoError(t, err)
	free.Destroy()
	assert.False(t, free.Alive())
}

func TestHost_ForwardsLifecycleToRunningInstances(t *testing.T) {
	e := loadEngine(t)
	bus := event.NewBus(nil)
	reg := NewRegistry(nil)
	event.Subscribe(bus, func(event.SessionReady) { reg.ActivateAll() })
	h := NewHost(e, reg, bus, nil)

	_, err := h.Spawn("greeter", ecs.NoEntity, nil)
	require.NoError(t, err)
	_, err = h.Spawn("missing", ecs.NoEntity, nil)
	require.ErrorIs(t, err, ErrUnknownBehaviour)

	alice := event.PlayerRef{ID: 1, Local: true, DisplayName: "alice"}
	bob := event.PlayerRef{ID: 2, DisplayName: "bob"}
	event.Publish(bus, event.PlayerJoined{Player: alice})
	event.Publish(bus, event.PlayerJoined{Player: bob})
	assert.Nil(t, callLog(t, e), "dormant instance sees nothing")

	event.Publish(bus, event.SessionReady{})
	reg.Flush()
	assert.Equal(t, []string{"start greeter", "joined alice local", "joined bob"}, callLog(t, e))

	event.Publish(bus, event.PlayerLeft{Player: alice})
	assert.Equal(t, []event.PlayerRef{bob}, h.Roster())

	_, err = h.Spawn("greeter", ecs.NoEntity, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"start greeter", "joined alice local", "joined bob",
		"left 1",
		"start greeter", "joined bob",
	}, callLog(t, e))

	h.Close()
	assert.Equal(t, 0, event.HandlerCount[event.PlayerJoined](bus))
}
