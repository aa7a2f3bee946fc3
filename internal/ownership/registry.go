package ownership

import (
	"github.com/l1jgo/authority/internal/component"
	"github.com/l1jgo/authority/internal/core/deferred"
	"github.com/l1jgo/authority/internal/core/ecs"
	"github.com/l1jgo/authority/internal/core/event"
	"github.com/l1jgo/authority/internal/player"
	"go.uber.org/zap"
)

// Directory is the slice of the player directory the registry relies on.
type Directory interface {
	Get(id component.PlayerID) *player.Player
	Master() *player.Player
	GetOwner(id ecs.EntityID) *player.Player
	SetOwner(p *player.Player, id ecs.EntityID) error
	ClearOwner(id ecs.EntityID)
	ReleaseEntity(id ecs.EntityID)
}

// World is supplied by the scene collaborator.
type World interface {
	Alive(id ecs.EntityID) bool
	Transform(id ecs.EntityID) (*component.Transform, bool)
	RespawnHeight() float64
	DestroyBelowThreshold() bool
	RequestDestroy(id ecs.EntityID)
}

// SweepResult reports what one respawn sweep did.
type SweepResult struct {
	Respawned int
	Destroyed int
}

// Registry tracks ownership-bearing entities. Membership is deferred: Track
// and Untrack take effect at the next flush, which ProcessTick performs once
// per tick. Whether an entity takes part in the respawn sweep is decided
// once, when it is tracked.
type Registry struct {
	dir      Directory
	world    World
	log      *zap.Logger
	entities *deferred.Set[ecs.EntityID]

	positioned map[ecs.EntityID]bool
}

func NewRegistry(dir Directory, world World, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Registry{
		dir:        dir,
		world:      world,
		log:        log,
		positioned: make(map[ecs.EntityID]bool),
	}
	r.entities = deferred.New(world.Alive,
		deferred.WithDropHook(r.forget),
		deferred.WithRejectHook(r.forget),
		deferred.WithCancelHook(r.forget),
	)
	return r
}

// Track queues id for tracking.
func (r *Registry) Track(id ecs.EntityID) {
	if _, ok := r.world.Transform(id); ok {
		r.positioned[id] = true
	}
	r.entities.Add(id)
}

// Untrack queues id for removal. Its ownership record is released when the
// removal is applied, or at once if id was only queued for tracking.
func (r *Registry) Untrack(id ecs.EntityID) {
	r.entities.Remove(id)
}

// Tracked reports whether id has a registry entry, live or queued.
func (r *Registry) Tracked(id ecs.EntityID) bool { return r.entities.Contains(id) }

// Positioned reports whether id takes part in the respawn sweep.
func (r *Registry) Positioned(id ecs.EntityID) bool { return r.positioned[id] }

// Len returns the number of live tracked entities.
func (r *Registry) Len() int { return r.entities.Len() }

// Flush applies queued Track/Untrack calls and prunes destroyed entities.
func (r *Registry) Flush() { r.entities.Flush() }

// ForEach visits live tracked entities.
func (r *Registry) ForEach(fn func(ecs.EntityID)) { r.entities.ForEach(fn) }

// OwnedBy lists the live entities p currently owns, explicit or by default.
func (r *Registry) OwnedBy(p *player.Player) []ecs.EntityID {
	var out []ecs.EntityID
	r.entities.ForEach(func(id ecs.EntityID) {
		if r.dir.GetOwner(id) == p {
			out = append(out, id)
		}
	})
	return out
}

func (r *Registry) forget(id ecs.EntityID) {
	delete(r.positioned, id)
	r.dir.ReleaseEntity(id)
}

// OnPlayerLeft moves everything the departing player owned to the new
// master. The directory has already handed master off when this runs, so
// Master() is the successor. It must be subscribed before any other leave
// handler that reads ownership.
func (r *Registry) OnPlayerLeft(e event.PlayerLeft) {
	departing := r.dir.Get(e.Player.ID)
	if departing == nil {
		return
	}
	r.entities.Flush()
	next := r.dir.Master()
	moved := 0
	r.entities.ForEach(func(id ecs.EntityID) {
		if r.dir.GetOwner(id) != departing {
			return
		}
		moved++
		if next == nil {
			r.dir.ClearOwner(id)
			return
		}
		if err := r.dir.SetOwner(next, id); err != nil {
			r.log.Error("ownership transfer failed",
				zap.Stringer("entity", id),
				zap.Int32("from", int32(e.Player.ID)),
				zap.Error(err),
			)
		}
	})
	if moved > 0 {
		to := component.NoPlayer
		if next != nil {
			to = next.ID()
		}
		r.log.Info("ownership reassigned",
			zap.Int32("from", int32(e.Player.ID)),
			zap.Int32("to", int32(to)),
			zap.Int("entities", moved),
		)
	}
}

// ProcessTick flushes, then sweeps positioned entities below the respawn
// height: each is reset to its spawn pose or handed to the world for
// destruction. Destroyed entities stay in the live set until a later flush
// finds them dead.
func (r *Registry) ProcessTick() SweepResult {
	r.entities.Flush()

	var res SweepResult
	threshold := r.world.RespawnHeight()
	destroy := r.world.DestroyBelowThreshold()
	r.entities.ForEach(func(id ecs.EntityID) {
		if !r.positioned[id] {
			return
		}
		t, ok := r.world.Transform(id)
		if !ok || t.Pose.Position.Y >= threshold {
			return
		}
		if destroy {
			r.world.RequestDestroy(id)
			res.Destroyed++
			return
		}
		t.Reset()
		res.Respawned++
	})
	if res.Respawned > 0 || res.Destroyed > 0 {
		r.log.Debug("respawn sweep",
			zap.Int("respawned", res.Respawned),
			zap.Int("destroyed", res.Destroyed),
		)
	}
	return res
}
