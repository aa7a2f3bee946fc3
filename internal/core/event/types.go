package event

import (
	"github.com/l1jgo/authority/internal/component"
	"github.com/l1jgo/authority/internal/core/ecs"
)

// PlayerRef is the event-side snapshot of a player. Payloads never carry the
// directory's live record, only what it looked like when the event fired.
type PlayerRef struct {
	ID            component.PlayerID
	Local         bool
	InstanceOwner bool
	DisplayName   string
}

type PlayerJoined struct {
	Player PlayerRef
}

// PlayerLeft fires while the departing player is still resolvable in the
// directory; the id is released right after delivery.
type PlayerLeft struct {
	Player PlayerRef
}

// MasterChanged is always announced as a pair. Previous or Next is
// component.NoPlayer when there was or will be no master.
type MasterChanged struct {
	Previous component.PlayerID
	Next     component.PlayerID
}

// OwnershipChanged is a local notification that Entity's owner is now Owner.
type OwnershipChanged struct {
	Entity ecs.EntityID
	Owner  component.PlayerID
}

// SessionReady fires once, after all queued PlayerJoined events.
type SessionReady struct{}
