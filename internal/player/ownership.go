package player

import (
	"fmt"

	"github.com/l1jgo/authority/internal/core/ecs"
	"github.com/l1jgo/authority/internal/core/event"
	"go.uber.org/zap"
)

// GetOwner resolves the owner of an entity. Without a record the current
// master owns it.
func (d *Directory) GetOwner(id ecs.EntityID) *Player {
	if p, ok := d.owners[id]; ok {
		return p
	}
	return d.master
}

func (d *Directory) IsOwner(p *Player, id ecs.EntityID) bool {
	return p != nil && d.GetOwner(id) == p
}

// SetOwner makes p the owner of an ownership-tracked entity and notifies
// OwnershipChanged listeners. Setting the current owner again is a no-op.
func (d *Directory) SetOwner(p *Player, id ecs.EntityID) error {
	if err := d.live(p); err != nil {
		return fmt.Errorf("set owner of %s: %w", id, err)
	}
	if d.entities == nil {
		return fmt.Errorf("set owner of %s: %w", id, ErrNoEntityRegistry)
	}
	if !d.entities.Tracked(id) {
		return fmt.Errorf("set owner of %s: %w", id, ErrUntrackedEntity)
	}
	if d.GetOwner(id) == p {
		return nil
	}
	d.owners[id] = p
	d.log.Debug("ownership changed",
		zap.Stringer("entity", id),
		zap.Int32("owner", int32(p.id)),
	)
	event.Publish(d.bus, event.OwnershipChanged{Entity: id, Owner: p.id})
	return nil
}

// ClearOwner drops an explicit record so the entity falls back to the
// master. Listeners are notified only if the effective owner changed.
func (d *Directory) ClearOwner(id ecs.EntityID) {
	prev, ok := d.owners[id]
	if !ok {
		return
	}
	delete(d.owners, id)
	if prev != d.master {
		event.Publish(d.bus, event.OwnershipChanged{Entity: id, Owner: idOf(d.master)})
	}
}

// ReleaseEntity forgets an entity that left the ownership registry.
func (d *Directory) ReleaseEntity(id ecs.EntityID) {
	delete(d.owners, id)
}

// dropRecordsOf clears records the leave handlers did not rewrite, e.g.
// entities still queued for tracking when the player left.
func (d *Directory) dropRecordsOf(p *Player) {
	for id, owner := range d.owners {
		if owner == p {
			d.ClearOwner(id)
		}
	}
}

// OwnedBy counts entities with an explicit record pointing at p.
func (d *Directory) OwnedBy(p *Player) int {
	n := 0
	for _, owner := range d.owners {
		if owner == p {
			n++
		}
	}
	return n
}
