package system

import (
	"time"

	coresys "github.com/l1jgo/authority/internal/core/system"
)

// Flusher is a registry with queued mutations.
type Flusher interface {
	Flush()
}

// FlushSystem applies queued registry mutations once per tick, before any
// system iterates the registries. Phase 1 (Flush).
type FlushSystem struct {
	targets []Flusher
}

func NewFlushSystem(targets ...Flusher) *FlushSystem {
	return &FlushSystem{targets: targets}
}

func (s *FlushSystem) Phase() coresys.Phase { return coresys.PhaseFlush }

func (s *FlushSystem) Update(_ time.Duration) {
	for _, t := range s.targets {
		t.Flush()
	}
}
