package system

import "time"

// Phase orders systems within a single tick.
type Phase int

const (
	PhaseStartup Phase = iota // 0: staged startup, session-ready trigger
	PhaseFlush                // 1: apply queued registry mutations
	PhaseUpdate               // 2: ownership sweep, script callbacks
	PhasePersist              // 3: journal flush
	PhaseCleanup              // 4: destroy queued entities
)

func (p Phase) String() string {
	switch p {
	case PhaseStartup:
		return "startup"
	case PhaseFlush:
		return "flush"
	case PhaseUpdate:
		return "update"
	case PhasePersist:
		return "persist"
	case PhaseCleanup:
		return "cleanup"
	}
	return "unknown"
}

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
