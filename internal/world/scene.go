package world

import (
	"github.com/l1jgo/authority/internal/component"
	"github.com/l1jgo/authority/internal/core/ecs"
	"github.com/l1jgo/authority/internal/data"
	"go.uber.org/zap"
)

// Scene is the world collaborator: it owns the entity handles, their
// transforms and the scene policy (spawn points, respawn threshold, destroy
// vs respawn). Accessed only from the game loop goroutine.
type Scene struct {
	name       string
	ecs        *ecs.World
	transforms *ecs.Store[component.Transform]
	labels     *ecs.Store[string]

	spawnPoints   []component.Pose
	respawnHeight float64
	destroyBelow  bool
	log           *zap.Logger
}

func NewScene(desc *data.WorldDescriptor, log *zap.Logger) *Scene {
	if desc == nil {
		desc = data.DefaultWorld()
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Scene{
		name:          desc.Name,
		ecs:           ecs.NewWorld(),
		transforms:    ecs.NewStore[component.Transform](),
		labels:        ecs.NewStore[string](),
		respawnHeight: desc.RespawnHeight,
		destroyBelow:  desc.DestroyBelow,
		log:           log,
	}
	s.ecs.RegisterStore(s.transforms)
	s.ecs.RegisterStore(s.labels)
	for _, sp := range desc.SpawnPoints {
		s.spawnPoints = append(s.spawnPoints, component.Pose{
			Position: component.Vec3{X: sp.X, Y: sp.Y, Z: sp.Z},
			Yaw:      sp.Yaw,
		})
	}
	if len(s.spawnPoints) == 0 {
		s.spawnPoints = []component.Pose{{}}
	}
	return s
}

func (s *Scene) Name() string { return s.name }

// SpawnPoint cycles through the scene's spawn points by player id.
func (s *Scene) SpawnPoint(id component.PlayerID) component.Pose {
	i := int(id-1) % len(s.spawnPoints)
	if i < 0 {
		i = 0
	}
	return s.spawnPoints[i]
}

// RespawnHeight is the Y below which tracked entities are reset or destroyed.
func (s *Scene) RespawnHeight() float64 { return s.respawnHeight }

// DestroyBelowThreshold reports the policy flag: true destroys, false resets
// to the recorded spawn pose.
func (s *Scene) DestroyBelowThreshold() bool { return s.destroyBelow }

// SetPolicy overrides the descriptor's threshold policy.
func (s *Scene) SetPolicy(respawnHeight float64, destroyBelow bool) {
	s.respawnHeight = respawnHeight
	s.destroyBelow = destroyBelow
}

// SpawnEntity creates an entity. With a pose it gets a transform and takes
// part in the respawn sweep; without one it is static.
func (s *Scene) SpawnEntity(label string, pose *component.Pose) ecs.EntityID {
	id := s.ecs.CreateEntity()
	if label != "" {
		s.labels.Set(id, &label)
	}
	if pose != nil {
		s.transforms.Set(id, &component.Transform{Pose: *pose, Spawn: *pose})
	}
	s.log.Debug("entity spawned",
		zap.Stringer("entity", id),
		zap.String("label", label),
		zap.Bool("positioned", pose != nil),
	)
	return id
}

func (s *Scene) Alive(id ecs.EntityID) bool { return s.ecs.Alive(id) }

// Transform returns the entity's transform, if it has one.
func (s *Scene) Transform(id ecs.EntityID) (*component.Transform, bool) {
	if !s.ecs.Alive(id) {
		return nil, false
	}
	return s.transforms.Get(id)
}

// Label returns the name the entity was spawned with.
func (s *Scene) Label(id ecs.EntityID) string {
	if l, ok := s.labels.Get(id); ok {
		return *l
	}
	return ""
}

// MoveTo sets an entity's current position. Returns false for entities
// without a transform.
func (s *Scene) MoveTo(id ecs.EntityID, pos component.Vec3) bool {
	t, ok := s.Transform(id)
	if !ok {
		return false
	}
	t.Pose.Position = pos
	return true
}

// RequestDestroy queues the entity for destruction at the cleanup phase.
// The handle stays valid until then.
func (s *Scene) RequestDestroy(id ecs.EntityID) {
	s.ecs.MarkForDestruction(id)
}

func (s *Scene) PendingDestruction(id ecs.EntityID) bool {
	return s.ecs.PendingDestruction(id)
}

// FlushDestroyQueue invalidates every queued handle.
func (s *Scene) FlushDestroyQueue() int {
	n := s.ecs.FlushDestroyQueue()
	if n > 0 {
		s.log.Debug("entities destroyed", zap.Int("count", n))
	}
	return n
}

// EntityCount returns the number of live entities.
func (s *Scene) EntityCount() int { return s.ecs.Live() }
