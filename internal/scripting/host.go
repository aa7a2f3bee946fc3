package scripting

import (
	"go.uber.org/zap"

	"github.com/l1jgo/authority/internal/core/ecs"
	"github.com/l1jgo/authority/internal/core/event"
)

// PlayerListener is implemented by instances that want join/leave callbacks.
type PlayerListener interface {
	OnPlayerJoined(p event.PlayerRef) error
	OnPlayerLeft(p event.PlayerRef) error
}

// Host is the boundary between the session and the Lua engine: it spawns
// behaviour instances into the registry and forwards player lifecycle events
// to running instances as script callbacks.
type Host struct {
	engine   *Engine
	registry *Registry
	bus      *event.Bus
	log      *zap.Logger
	subs     []event.Subscription
	roster   []event.PlayerRef
}

func NewHost(engine *Engine, registry *Registry, bus *event.Bus, log *zap.Logger) *Host {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Host{engine: engine, registry: registry, bus: bus, log: log}
	h.subs = append(h.subs,
		event.Subscribe(bus, h.onPlayerJoined),
		event.Subscribe(bus, h.onPlayerLeft),
	)
	return h
}

// Spawn instantiates a behaviour for entity and tracks it.
func (h *Host) Spawn(behaviour string, entity ecs.EntityID, alive func(ecs.EntityID) bool) (*LuaInstance, error) {
	inst, err := h.engine.Instantiate(behaviour, entity, alive)
	if err != nil {
		return nil, err
	}
	inst.roster = h.Roster
	h.registry.Track(inst)
	return inst, nil
}

// Roster returns the announced players in join order.
func (h *Host) Roster() []event.PlayerRef {
	out := make([]event.PlayerRef, len(h.roster))
	copy(out, h.roster)
	return out
}

func (h *Host) onPlayerJoined(e event.PlayerJoined) {
	h.roster = append(h.roster, e.Player)
	h.registry.Dispatch("on_player_joined", func(inst Instance) error {
		if l, ok := inst.(PlayerListener); ok {
			return l.OnPlayerJoined(e.Player)
		}
		return nil
	})
}

func (h *Host) onPlayerLeft(e event.PlayerLeft) {
	for i, p := range h.roster {
		if p.ID == e.Player.ID {
			h.roster = append(h.roster[:i], h.roster[i+1:]...)
			break
		}
	}
	h.registry.Dispatch("on_player_left", func(inst Instance) error {
		if l, ok := inst.(PlayerListener); ok {
			return l.OnPlayerLeft(e.Player)
		}
		return nil
	})
}

// Close unsubscribes from the bus and shuts the engine down.
func (h *Host) Close() {
	for _, s := range h.subs {
		h.bus.Unsubscribe(s)
	}
	h.subs = nil
	h.engine.Close()
}
