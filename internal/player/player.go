package player

import (
	"github.com/l1jgo/authority/internal/component"
	"github.com/l1jgo/authority/internal/core/event"
)

// Lifecycle is the per-player state machine: Pending -> Active -> Removed.
type Lifecycle int

const (
	Pending Lifecycle = iota
	Active
	Removed
)

func (l Lifecycle) String() string {
	switch l {
	case Pending:
		return "pending"
	case Active:
		return "active"
	case Removed:
		return "removed"
	}
	return "unknown"
}

// Player is a session participant. Identity flags are fixed at creation;
// everything else is mutated by the Directory on the game loop goroutine.
type Player struct {
	id            component.PlayerID
	local         bool
	instanceOwner bool
	displayName   string
	lifecycle     Lifecycle
	leaving       bool // set while PlayerLeft is being delivered

	pose component.Pose
	loco component.Locomotion
}

func (p *Player) ID() component.PlayerID           { return p.id }
func (p *Player) IsLocal() bool                    { return p.local }
func (p *Player) IsInstanceOwner() bool            { return p.instanceOwner }
func (p *Player) DisplayName() string              { return p.displayName }
func (p *Player) Lifecycle() Lifecycle             { return p.lifecycle }
func (p *Player) Pose() component.Pose             { return p.pose }
func (p *Player) Locomotion() component.Locomotion { return p.loco }

// Ref snapshots the player for an event payload.
func (p *Player) Ref() event.PlayerRef {
	return event.PlayerRef{
		ID:            p.id,
		Local:         p.local,
		InstanceOwner: p.instanceOwner,
		DisplayName:   p.displayName,
	}
}

// idOf tolerates nil so "no master" maps to component.NoPlayer.
func idOf(p *Player) component.PlayerID {
	if p == nil {
		return component.NoPlayer
	}
	return p.id
}
