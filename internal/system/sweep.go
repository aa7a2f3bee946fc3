package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/l1jgo/authority/internal/core/system"
	"github.com/l1jgo/authority/internal/ownership"
)

// Sweeper runs the ownership registry's per-tick fall sweep.
type Sweeper interface {
	ProcessTick() ownership.SweepResult
}

// SweepSystem respawns or destroys tracked entities that fell below the
// world's respawn height. Phase 2 (Update).
type SweepSystem struct {
	registry Sweeper
	log      *zap.Logger
	total    ownership.SweepResult
}

func NewSweepSystem(registry Sweeper, log *zap.Logger) *SweepSystem {
	if log == nil {
		log = zap.NewNop()
	}
	return &SweepSystem{registry: registry, log: log}
}

func (s *SweepSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *SweepSystem) Update(_ time.Duration) {
	res := s.registry.ProcessTick()
	if res.Respawned == 0 && res.Destroyed == 0 {
		return
	}
	s.total.Respawned += res.Respawned
	s.total.Destroyed += res.Destroyed
	s.log.Debug("fall sweep",
		zap.Int("respawned", res.Respawned),
		zap.Int("destroyed", res.Destroyed),
	)
}

// Totals returns the accumulated sweep results.
func (s *SweepSystem) Totals() ownership.SweepResult { return s.total }
