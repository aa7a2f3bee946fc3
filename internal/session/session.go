// Package session owns every authority component for one running session
// and is the only place they are constructed and wired together.
package session

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/authority/internal/component"
	"github.com/l1jgo/authority/internal/core/ecs"
	"github.com/l1jgo/authority/internal/core/event"
	"github.com/l1jgo/authority/internal/data"
	"github.com/l1jgo/authority/internal/ownership"
	"github.com/l1jgo/authority/internal/player"
	"github.com/l1jgo/authority/internal/scripting"
	"github.com/l1jgo/authority/internal/world"
)

// Phase is the session's coarse lifecycle.
type Phase uint8

const (
	Booting Phase = iota
	Ready
)

func (p Phase) String() string {
	if p == Ready {
		return "ready"
	}
	return "booting"
}

var (
	ErrAlreadyReady = player.ErrAlreadyReady
	ErrNoScripting  = errors.New("scripting disabled")
)

// Options configures New. Only World may be nil, in which case the built-in
// default world is used.
type Options struct {
	Name  string
	World *data.WorldDescriptor
	// Engine hosts Lua behaviours. Nil disables script binding; instances can
	// still be tracked directly through Scripts().
	Engine *scripting.Engine
	Log    *zap.Logger
	// StartedAt is when the process booted; MarkReady reports the time
	// spent booting. Zero means now.
	StartedAt time.Time
}

// Session is the root object. It is driven from a single goroutine.
type Session struct {
	name      string
	log       *zap.Logger
	bus       *event.Bus
	scene     *world.Scene
	players   *player.Directory
	ownership *ownership.Registry
	scripts   *scripting.Registry
	host      *scripting.Host
	phase     Phase
	startedAt time.Time
}

// New builds the components in dependency order. The ownership registry is
// the first PlayerLeft subscriber, so every later leave handler already sees
// reassigned owners.
func New(opts Options) *Session {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	desc := opts.World
	if desc == nil {
		desc = data.DefaultWorld()
	}
	name := opts.Name
	if name == "" {
		name = desc.Name
	}

	started := opts.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	s := &Session{name: name, log: log, startedAt: started}
	s.bus = event.NewBus(log.Named("bus"))
	s.scene = world.NewScene(desc, log.Named("world"))
	s.players = player.NewDirectory(s.bus, s.scene, log.Named("players"))
	s.ownership = ownership.NewRegistry(s.players, s.scene, log.Named("ownership"))
	s.players.AttachEntities(s.ownership)
	event.Subscribe(s.bus, s.ownership.OnPlayerLeft)

	s.scripts = scripting.NewRegistry(log.Named("scripts"))
	event.Subscribe(s.bus, func(event.SessionReady) { s.scripts.ActivateAll() })
	if opts.Engine != nil {
		s.host = scripting.NewHost(opts.Engine, s.scripts, s.bus, log.Named("lua"))
	}
	return s
}

func (s *Session) Name() string                   { return s.name }
func (s *Session) Bus() *event.Bus                { return s.bus }
func (s *Session) Scene() *world.Scene            { return s.scene }
func (s *Session) Players() *player.Directory     { return s.players }
func (s *Session) Ownership() *ownership.Registry { return s.ownership }
func (s *Session) Scripts() *scripting.Registry   { return s.scripts }
func (s *Session) Phase() Phase                   { return s.phase }
func (s *Session) StartedAt() time.Time           { return s.startedAt }

// Host returns the Lua host, or nil when scripting is disabled.
func (s *Session) Host() *scripting.Host { return s.host }

// MarkReady is the single Booting -> Ready transition. Pending players are
// announced first, then SessionReady activates the script instances.
func (s *Session) MarkReady() error {
	if s.phase == Ready {
		return ErrAlreadyReady
	}
	s.phase = Ready
	if err := s.players.MarkSessionReady(); err != nil {
		return err
	}
	s.log.Info("session ready",
		zap.String("session", s.name),
		zap.Int("players", s.players.Count()),
		zap.Int("entities", s.scene.EntityCount()),
		zap.Duration("boot", time.Since(s.startedAt)),
	)
	event.Publish(s.bus, event.SessionReady{})
	return nil
}

// SpawnPlayer creates a player; see player.Directory.CreatePlayer.
func (s *Session) SpawnPlayer(local bool, displayName string) (*player.Player, error) {
	return s.players.CreatePlayer(local, displayName)
}

// DespawnPlayer removes a player; see player.Directory.RemovePlayer.
func (s *Session) DespawnPlayer(p *player.Player) error {
	return s.players.RemovePlayer(p)
}

// SpawnEntity creates a scene entity and tracks it for ownership. A nil pose
// makes it static. The entity is visible to sweeps after the next flush.
func (s *Session) SpawnEntity(label string, pose *component.Pose) ecs.EntityID {
	id := s.scene.SpawnEntity(label, pose)
	s.ownership.Track(id)
	return id
}

// SpawnScripted spawns an entity and binds a Lua behaviour to it. The
// instance starts with the session, or at once if the session is ready.
func (s *Session) SpawnScripted(label string, pose *component.Pose, behaviour string) (ecs.EntityID, error) {
	if s.host == nil {
		return ecs.NoEntity, fmt.Errorf("spawn %q: %w", label, ErrNoScripting)
	}
	id := s.SpawnEntity(label, pose)
	if _, err := s.host.Spawn(behaviour, id, s.scene.Alive); err != nil {
		s.scene.RequestDestroy(id)
		return ecs.NoEntity, fmt.Errorf("spawn %q: %w", label, err)
	}
	return id, nil
}

// DestroyEntity queues the entity for destruction at the cleanup phase. Its
// ownership entry and script instances are pruned on the following flush.
func (s *Session) DestroyEntity(id ecs.EntityID) {
	s.scene.RequestDestroy(id)
}

// SpawnProps places the descriptor's props. Props with a script are bound to
// their behaviour when scripting is enabled and skipped with a warning when
// it is not.
func (s *Session) SpawnProps(props []data.PropSpawn) (int, error) {
	n := 0
	for _, p := range props {
		var pose *component.Pose
		if !p.Static {
			pose = &component.Pose{Position: component.Vec3{X: p.X, Y: p.Y, Z: p.Z}, Yaw: p.Yaw}
		}
		if p.Script == "" {
			s.SpawnEntity(p.Name, pose)
			n++
			continue
		}
		if s.host == nil {
			s.log.Warn("prop script ignored, scripting disabled",
				zap.String("prop", p.Name), zap.String("script", p.Script))
			s.SpawnEntity(p.Name, pose)
			n++
			continue
		}
		if _, err := s.SpawnScripted(p.Name, pose, p.Script); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Close detaches the script host. The bus and registries need no teardown.
func (s *Session) Close() {
	if s.host != nil {
		s.host.Close()
		s.host = nil
	}
}
