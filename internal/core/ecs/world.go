package ecs

// World owns the entity pool and the component stores. Destruction is
// deferred: MarkForDestruction only queues, FlushDestroyQueue (run by the
// cleanup system at tick end) actually invalidates handles. Anything that
// iterates entities during the tick therefore never sees a handle die
// under it.
type World struct {
	pool         *EntityPool
	stores       []Removable
	destroyQueue []EntityID
	queued       map[EntityID]struct{}
}

func NewWorld() *World {
	return &World{
		pool:         NewEntityPool(),
		stores:       make([]Removable, 0, 8),
		destroyQueue: make([]EntityID, 0, 32),
		queued:       make(map[EntityID]struct{}),
	}
}

// RegisterStore adds a component store to the bulk-remove list.
func (w *World) RegisterStore(s Removable) {
	w.stores = append(w.stores, s)
}

func (w *World) CreateEntity() EntityID { return w.pool.Create() }

func (w *World) Alive(id EntityID) bool { return w.pool.Alive(id) }

func (w *World) Live() int { return w.pool.Live() }

// MarkForDestruction queues id for end-of-tick cleanup. Queuing the same
// entity twice in one tick is harmless.
func (w *World) MarkForDestruction(id EntityID) {
	if !w.pool.Alive(id) {
		return
	}
	if _, ok := w.queued[id]; ok {
		return
	}
	w.queued[id] = struct{}{}
	w.destroyQueue = append(w.destroyQueue, id)
}

// PendingDestruction reports whether id is queued for the next flush.
func (w *World) PendingDestruction(id EntityID) bool {
	_, ok := w.queued[id]
	return ok
}

// FlushDestroyQueue destroys all queued entities, strips their components
// and returns how many handles were invalidated.
func (w *World) FlushDestroyQueue() int {
	n := 0
	for _, id := range w.destroyQueue {
		for _, s := range w.stores {
			s.Remove(id)
		}
		if w.pool.Destroy(id) {
			n++
		}
		delete(w.queued, id)
	}
	w.destroyQueue = w.destroyQueue[:0]
	return n
}
