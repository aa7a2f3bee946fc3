package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/l1jgo/authority/internal/core/system"
)

// Destroyer is the scene's deferred destruction queue.
type Destroyer interface {
	FlushDestroyQueue() int
}

// CleanupSystem flushes the deferred entity destruction queue at tick end.
// Registries notice the dead entities on their next flush. Phase 4 (Cleanup).
type CleanupSystem struct {
	world Destroyer
	log   *zap.Logger
}

func NewCleanupSystem(world Destroyer, log *zap.Logger) *CleanupSystem {
	if log == nil {
		log = zap.NewNop()
	}
	return &CleanupSystem{world: world, log: log}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	if n := s.world.FlushDestroyQueue(); n > 0 {
		s.log.Debug("entities destroyed", zap.Int("count", n))
	}
}
