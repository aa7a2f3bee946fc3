package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/l1jgo/authority/internal/core/system"
)

// StartupSystem owns the staged-startup delay: it counts ticks and fires the
// ready trigger exactly once when the delay has elapsed. Phase 0 (Startup).
type StartupSystem struct {
	ready func() error
	delay int
	ticks int
	fired bool
	log   *zap.Logger
}

// NewStartupSystem fires ready on the tick after delayTicks ticks have run;
// a delay of zero fires on the first tick.
func NewStartupSystem(ready func() error, delayTicks int, log *zap.Logger) *StartupSystem {
	if log == nil {
		log = zap.NewNop()
	}
	return &StartupSystem{ready: ready, delay: delayTicks, log: log}
}

func (s *StartupSystem) Phase() coresys.Phase { return coresys.PhaseStartup }

func (s *StartupSystem) Update(_ time.Duration) {
	if s.fired {
		return
	}
	if s.ticks < s.delay {
		s.ticks++
		return
	}
	s.fired = true
	if err := s.ready(); err != nil {
		s.log.Error("session ready trigger failed", zap.Error(err))
	}
}

// Fired reports whether the ready trigger has run.
func (s *StartupSystem) Fired() bool { return s.fired }
