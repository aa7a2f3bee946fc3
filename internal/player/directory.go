package player

import (
	"fmt"

	"github.com/l1jgo/authority/internal/component"
	"github.com/l1jgo/authority/internal/core/ecs"
	"github.com/l1jgo/authority/internal/core/event"
	"go.uber.org/zap"
)

// SpawnResolver is supplied by the world collaborator.
type SpawnResolver interface {
	SpawnPoint(id component.PlayerID) component.Pose
}

// EntityIndex answers whether an entity has an ownership registry entry.
type EntityIndex interface {
	Tracked(id ecs.EntityID) bool
}

// Directory assigns player identities, runs master election and holds the
// per-entity ownership records. Accessed only from the game loop goroutine.
type Directory struct {
	bus      *event.Bus
	spawns   SpawnResolver
	entities EntityIndex
	log      *zap.Logger

	nextID component.PlayerID
	byID   map[component.PlayerID]*Player
	order  []*Player // join order, departed players excluded
	local  *Player
	master *Player
	owner  *Player // instance owner
	ready  bool

	// Absence of a record means "owned by the current master".
	owners map[ecs.EntityID]*Player
}

func NewDirectory(bus *event.Bus, spawns SpawnResolver, log *zap.Logger) *Directory {
	if log == nil {
		log = zap.NewNop()
	}
	return &Directory{
		bus:    bus,
		spawns: spawns,
		log:    log,
		byID:   make(map[component.PlayerID]*Player),
		order:  make([]*Player, 0, 16),
		owners: make(map[ecs.EntityID]*Player),
	}
}

// AttachEntities binds the registry that SetOwner validates against.
func (d *Directory) AttachEntities(idx EntityIndex) {
	d.entities = idx
}

// CreatePlayer allocates the next id and registers a Pending player. The
// first player, or any player created while nobody holds master, becomes
// master at once. After MarkSessionReady the join is announced immediately.
func (d *Directory) CreatePlayer(local bool, displayName string) (*Player, error) {
	if local && d.local != nil {
		return nil, fmt.Errorf("create player %q: %w", displayName, ErrDuplicateLocal)
	}
	d.nextID++
	id := d.nextID
	if _, dup := d.byID[id]; dup {
		return nil, fmt.Errorf("create player %d: %w", id, ErrDuplicateIdentity)
	}

	p := &Player{
		id:          id,
		local:       local,
		displayName: normalizeDisplayName(displayName, id),
		lifecycle:   Pending,
		loco:        component.DefaultLocomotion(),
	}
	if d.spawns != nil {
		p.pose = d.spawns.SpawnPoint(id)
	}
	if d.owner == nil {
		p.instanceOwner = true
		d.owner = p
	}
	d.byID[id] = p
	d.order = append(d.order, p)
	if local {
		d.local = p
	}

	d.log.Info("player created",
		zap.Int32("player", int32(id)),
		zap.String("name", p.displayName),
		zap.Bool("local", local),
	)

	if d.master == nil {
		d.setMaster(p)
	}
	if d.ready && p.lifecycle == Pending {
		d.activate(p)
	}
	return p, nil
}

// MarkSessionReady flips every Pending player to Active and announces the
// joins in creation order. Later CreatePlayer calls announce immediately.
func (d *Directory) MarkSessionReady() error {
	if d.ready {
		return ErrAlreadyReady
	}
	d.ready = true

	pending := make([]*Player, 0, len(d.order))
	for _, p := range d.order {
		if p.lifecycle == Pending {
			pending = append(pending, p)
		}
	}
	// A join handler may remove a later player before its turn.
	for _, p := range pending {
		if p.lifecycle == Pending {
			d.activate(p)
		}
	}
	return nil
}

// Ready reports whether MarkSessionReady has run.
func (d *Directory) Ready() bool { return d.ready }

func (d *Directory) activate(p *Player) {
	p.lifecycle = Active
	event.Publish(d.bus, event.PlayerJoined{Player: p.Ref()})
}

// RemovePlayer hands master off first, so that leave handlers already see
// the new master, then announces the leave, releases the id and clears any
// ownership record still pointing at the player.
func (d *Directory) RemovePlayer(p *Player) error {
	if p == nil {
		return ErrUnknownPlayer
	}
	if p.lifecycle == Removed || p.leaving {
		return fmt.Errorf("remove player %d: %w", p.id, ErrPlayerRemoved)
	}
	if d.byID[p.id] != p {
		return fmt.Errorf("remove player %d: %w", p.id, ErrUnknownPlayer)
	}

	for i, q := range d.order {
		if q == p {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}

	if d.master == p {
		var next *Player
		if len(d.order) > 0 {
			next = d.order[0]
		}
		d.setMaster(next)
	}

	p.leaving = true
	// Pending players were never announced, so they leave silently.
	if p.lifecycle == Active {
		event.Publish(d.bus, event.PlayerLeft{Player: p.Ref()})
	}

	delete(d.byID, p.id)
	if d.local == p {
		d.local = nil
	}
	p.lifecycle = Removed
	p.leaving = false
	d.dropRecordsOf(p)

	d.log.Info("player removed", zap.Int32("player", int32(p.id)))
	return nil
}

func (d *Directory) setMaster(next *Player) {
	prev := d.master
	d.master = next
	d.log.Info("master changed",
		zap.Int32("previous", int32(idOf(prev))),
		zap.Int32("next", int32(idOf(next))),
	)
	event.Publish(d.bus, event.MasterChanged{Previous: idOf(prev), Next: idOf(next)})
}

// Get returns the player with id, or nil.
func (d *Directory) Get(id component.PlayerID) *Player { return d.byID[id] }

// Local returns the local player, or nil before it is created.
func (d *Directory) Local() *Player { return d.local }

// Master returns the current master, or nil when the session is empty.
func (d *Directory) Master() *Player { return d.master }

func (d *Directory) IsMaster(p *Player) bool { return p != nil && p == d.master }

// InstanceOwner returns the player granted instance ownership (the session
// creator), or nil once that player has left.
func (d *Directory) InstanceOwner() *Player {
	if d.owner != nil && d.owner.lifecycle == Removed {
		return nil
	}
	return d.owner
}

// Players returns the present players in join order.
func (d *Directory) Players() []*Player {
	out := make([]*Player, len(d.order))
	copy(out, d.order)
	return out
}

// Remote returns the present non-local players in join order.
func (d *Directory) Remote() []*Player {
	out := make([]*Player, 0, len(d.order))
	for _, p := range d.order {
		if !p.local {
			out = append(out, p)
		}
	}
	return out
}

func (d *Directory) Count() int { return len(d.order) }

// live rejects nil, removed and foreign players.
func (d *Directory) live(p *Player) error {
	if p == nil {
		return ErrUnknownPlayer
	}
	if p.lifecycle == Removed || p.leaving {
		return fmt.Errorf("player %d: %w", p.id, ErrPlayerRemoved)
	}
	if d.byID[p.id] != p {
		return fmt.Errorf("player %d: %w", p.id, ErrUnknownPlayer)
	}
	return nil
}
